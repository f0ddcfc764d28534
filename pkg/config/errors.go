package config

import "errors"

var ErrMissingAddr = errors.New("missing server addr")
var ErrInvalidURL = errors.New("client url must be a ws:// or wss:// url")
var ErrInvalidBufferTime = errors.New("buffer time must be positive")
var ErrInvalidEditInterval = errors.New("edit interval must be positive")
var ErrUnknownLogFormat = errors.New("unknown log format")
