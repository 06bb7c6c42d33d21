package catalog

import "errors"

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnknownItem     = errors.New("unknown item")
)
