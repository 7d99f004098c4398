package session

import (
	"math/big"

	"github.com/google/uuid"
)

// MessageID stands in for the original's u128 message identifier (derived
// there from uuid::Uuid::new_v4().as_u128()). Go has no native 128-bit
// integer, so it is carried as the big.Int built from a UUID's 16 bytes.
type MessageID big.Int

// NewMessageID derives a fresh ID from a random UUID's byte representation.
func NewMessageID() *MessageID {
	id := uuid.New()
	n := new(big.Int).SetBytes(id[:])
	return (*MessageID)(n)
}

// MarshalJSON emits the id as an unquoted decimal literal, matching the
// wire shape a u128 would take as a bare JSON number rather than a string.
func (m *MessageID) MarshalJSON() ([]byte, error) {
	return []byte((*big.Int)(m).String()), nil
}
