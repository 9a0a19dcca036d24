package boardsync

import "errors"

var ErrNoteNotFound = errors.New("note not found")
