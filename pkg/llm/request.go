package llm

const (
	// DefaultMaxTokens caps the length of a generated answer.
	DefaultMaxTokens = 500

	// DefaultTemperature is the sampling temperature used for chat answers.
	DefaultTemperature = 0.7
)

// Options carries generation parameters for a single completion.
// Zero values fall back to the client's model and the package defaults.
type Options struct {
	// Model overrides the client's configured model.
	Model string

	// Generation parameters (unified across providers)
	MaxTokens   int
	Temperature *float64
}

// WithDefaults returns a copy of o with unset fields filled in.
func (o Options) WithDefaults(model string) Options {
	if o.Model == "" {
		o.Model = model
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.Temperature == nil {
		t := DefaultTemperature
		o.Temperature = &t
	}
	return o
}
