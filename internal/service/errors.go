package service

import "errors"

var (
	ErrPastDate              = errors.New("date is in the past")
	ErrDateTooFar            = errors.New("date is too far in the future")
	ErrServiceInactive       = errors.New("service is not active")
	ErrPaymentMethodDisabled = errors.New("payment method is not accepted")
	ErrNoAccess              = errors.New("tenant has no access")
	ErrUserInactive          = errors.New("user is inactive")
	ErrSubscriptionExpired   = errors.New("subscription expired")
	ErrValidation            = errors.New("validation failed")
	ErrRateLimited           = errors.New("too many requests")
)
