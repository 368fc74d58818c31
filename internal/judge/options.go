package judge

// clientConfig holds configuration for an OpenAI-compatible judge
// client.
type clientConfig struct {
	baseURL     string
	apiKey      string
	model       string
	temperature *float64
}

// Option is a functional option for configuring a judge client.
type Option func(*clientConfig)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *clientConfig) {
		c.apiKey = key
	}
}

// WithModel sets the default model for judge calls. Per-call options
// take precedence.
func WithModel(model string) Option {
	return func(c *clientConfig) {
		c.model = model
	}
}

// WithTemperature sets the default temperature for judge calls.
// Per-call options take precedence.
func WithTemperature(temp float64) Option {
	return func(c *clientConfig) {
		c.temperature = &temp
	}
}
