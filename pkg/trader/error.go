package trader

import "errors"

var (
	ErrUnsupportedOrderType   = errors.New("unsupported order type")
	ErrNonPositiveBuyingPower = errors.New("buying power must be positive")
	ErrInvalidAskPrice        = errors.New("ask price must be positive")
	errDispatchTimeout        = errors.New("signal dispatch canceled before completion")
)
