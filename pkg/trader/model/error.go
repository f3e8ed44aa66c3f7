package model

import "errors"

var (
	ErrConfiguration = errors.New("configuration error")
	ErrEmptySignal   = errors.New("empty signal body")
	ErrMissingTicker = errors.New("signal ticker is required")
)
