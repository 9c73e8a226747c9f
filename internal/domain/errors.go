package domain

import "errors"

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// ValidationError rejects an order before any state mutation. It is surfaced
// to the caller as a user-visible message and is never retriable.
type ValidationError struct {
	Field  string // "quantity", "price", ...
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid order [" + e.Field + "]: " + e.Reason
}

func (e *ValidationError) IsRetriable() bool {
	return false
}

// IsValidation reports whether err is an order validation rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// FeedError represents a market-data feed failure that may be retriable
type FeedError struct {
	Op        string // Operation that failed (e.g., "dial", "read", "subscribe")
	Err       error  // Underlying error
	Retriable bool   // Whether this error is retriable
}

func (e *FeedError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *FeedError) IsRetriable() bool {
	return e.Retriable
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// NewFeedError creates a new retriable feed error
func NewFeedError(op string, err error) *FeedError {
	return &FeedError{Op: op, Err: err, Retriable: true}
}

// NewFatalFeedError creates a non-retriable feed error
func NewFatalFeedError(op string, err error) *FeedError {
	return &FeedError{Op: op, Err: err, Retriable: false}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrUnknownInstrument is returned when a symbol has no registered
	// instrument or no known mark price. P&L treats it as a transient
	// market-data gap, not a fatal error.
	ErrUnknownInstrument = errors.New("unknown instrument")

	// ErrTradeNotFound is returned when a trade id does not exist
	ErrTradeNotFound = errors.New("trade not found")

	// ErrTradeNotOpen is returned when cancelling or closing a trade that
	// has no remaining open quantity
	ErrTradeNotOpen = errors.New("trade not open")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
