// Package chatserver implements the Chat Server actor (spec §4.3): the
// single-writer state machine for sessions and room membership local to
// this process.
package chatserver

// SessionID identifies an authenticated connection.
type SessionID = string

// RoomID names a room; the distinguished default room is the one passed
// to New.
type RoomID = string

// Msg is a UTF-8 chat payload, already formatted as the outbound wire
// frame (prefix + JSON) by the caller.
type Msg = string
