package service

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrUpstream      = errors.New("upstream failure")
	ErrIO            = errors.New("io failure")
	ErrInvalidInput  = errors.New("invalid input")
	ErrConflict      = errors.New("conflict")
	ErrQueueDisabled = errors.New("publish queue is not configured")
)
