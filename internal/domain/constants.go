package domain

import "time"

const (
	MaxNameservers         = 5
	DefaultMinNameservers  = 2
	DefaultPeriodYears     = 1
	MaxPeriodYears         = 10
	DefaultPollLimit       = 10
	PollBudget             = 60 * time.Second
	DefaultPlaceholderCode = "0000"
)

const (
	DefaultRetryMaxAttempts    = 3
	DefaultRetryInitialDelayMs = 100
	DefaultRetryMaxDelaySec    = 30
	DefaultRetryMultiplier     = 2.0
)

var (
	DefaultRetryInitialDelay = DefaultRetryInitialDelayMs * time.Millisecond
	DefaultRetryMaxDelay     = DefaultRetryMaxDelaySec * time.Second
)
