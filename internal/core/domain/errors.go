package domain

import "errors"

var (
	ErrInvalidSleep  = errors.New("sleep must be a non-negative integer number of milliseconds")
	ErrSleepTooLong  = errors.New("sleep exceeds the allowed maximum")
	ErrInvalidTable  = errors.New("invalid table name")
	ErrDatabase      = errors.New("database error")
	ErrUnknownDriver = errors.New("unknown database driver")
	ErrImageEncoding = errors.New("failed to encode image")
)
