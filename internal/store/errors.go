package store

import "errors"

var (
	ErrDuplicate      = errors.New("store: phone already exists")
	ErrInvalidContact = errors.New("store: name and phone are required")
	ErrCorrupted      = errors.New("store: data file is corrupted")
	ErrIO             = errors.New("store: i/o failure")
)
