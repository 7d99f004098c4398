package redisbroker

import _ "embed"

//go:embed scripts/json.lua
var jsonHelpers string

//go:embed scripts/rooms_change.lua
var roomsChangeSrc string

//go:embed scripts/rooms_retrieve.lua
var roomsRetrieveSrc string

// composed scripts prepend the shared JSON helpers, matching the two-file
// concatenation the original loader performs before SCRIPT LOAD.
var (
	roomsChangeScript   = jsonHelpers + roomsChangeSrc
	roomsRetrieveScript = jsonHelpers + roomsRetrieveSrc
)
