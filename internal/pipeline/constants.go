package pipeline

const (
	// DefaultTimezone is used when none is configured or the configured one is unknown.
	DefaultTimezone = "UTC"

	// DefaultCurrency is used when neither the model nor the config names one.
	DefaultCurrency = "USD"

	// DateLayout is the only date format accepted from the model.
	DateLayout = "2006-01-02"
)
