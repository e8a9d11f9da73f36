package domain

import "errors"

var (
	ErrDishNotFound       = errors.New("dish not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
)
