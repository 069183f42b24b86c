package client

import "errors"

var (
	ErrRequestFailed   = errors.New("request failed")
	ErrRemoteFailure   = errors.New("remote reported failure")
	ErrUnsupportedRole = errors.New("role cannot register")
)
