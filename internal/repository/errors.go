package repository

import "errors"

var (
	ErrNotFound  = errors.New("resource not found")
	ErrDuplicate = errors.New("duplicate resource")
	ErrNotEnough = errors.New("not enough stock available")
	ErrConflict  = errors.New("resource state changed")
)
