package chatcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBusinessError(t *testing.T) {
	assert.Nil(t, NewBusinessError(RoomChangeResult{Status: 0, Msg: "ok"}))

	err := NewBusinessError(RoomChangeResult{Status: 2, Msg: "session not in room"})
	assert.Error(t, err)

	var be *BusinessError
	assert.ErrorAs(t, err, &be)
	assert.Equal(t, 2, be.Status)
	assert.Contains(t, err.Error(), "session not in room")
}
