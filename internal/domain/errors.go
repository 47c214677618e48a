package domain

import "errors"

var (
	ErrInvalidID            = errors.New("invalid id")
	ErrInvalidName          = errors.New("invalid name")
	ErrInvalidScenario      = errors.New("invalid scenario")
	ErrInvalidAlertLevel    = errors.New("invalid alert level")
	ErrInvalidHeadline      = errors.New("invalid headline")
	ErrDuplicateID          = errors.New("duplicate id")
	ErrUnknownOperation     = errors.New("unknown operation")
	ErrInvalidOperationArgs = errors.New("invalid operation arguments")
)
