package domain

import "errors"

var (
	ErrEmptyToken      = errors.New("token must not be empty")
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	ErrInvalidLine     = errors.New("invalid cart line")
)
