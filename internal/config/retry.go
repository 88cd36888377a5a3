package config

// RetryBackoffMode selects the delay growth strategy between retries.
type RetryBackoffMode string

const (
	// RetryBackoffFixed uses the initial delay for every retry.
	RetryBackoffFixed RetryBackoffMode = "fixed"
	// RetryBackoffLinear grows the delay linearly with the attempt number.
	RetryBackoffLinear RetryBackoffMode = "linear"
	// RetryBackoffExponential doubles the delay on every retry.
	RetryBackoffExponential RetryBackoffMode = "exponential"
)
