package repo

import "errors"

// ErrConflict reports a uniqueness-constraint violation from the record
// store. Engines classify duplicates with errors.Is against this sentinel
// instead of inspecting driver error text.
var ErrConflict = errors.New("record already exists")
