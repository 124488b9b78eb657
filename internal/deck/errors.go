package deck

// ErrConfiguration matches any *ConfigurationError.
// Use errors.Is(err, ErrConfiguration) to check for this error.
var ErrConfiguration = &ConfigurationError{}

// ConfigurationError is returned when a study cannot be turned into a deck.
// It is always raised before the external engine is started.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return "invalid configuration"
	}
	return e.Reason
}

func (e *ConfigurationError) Is(target error) bool {
	_, ok := target.(*ConfigurationError)
	return ok
}

func configErr(reason string) error {
	return &ConfigurationError{Reason: reason}
}
