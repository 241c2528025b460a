package types

const redactedPlaceholder = "***REDACTED***"

var redactedJSON = []byte(`"***REDACTED***"`)

// SecretString hides its value from fmt, slog and JSON output. Use Unmask to
// get the raw value when building a request.
type SecretString string

// String returns a redacted placeholder instead of the raw value.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// MarshalJSON returns the redacted placeholder as a JSON string.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// Unmask returns the raw value.
func (s SecretString) Unmask() string {
	return string(s)
}

// Credentials holds the secrets for both data sources. A zero value for a
// source means that source is not configured.
type Credentials struct {
	Tibber   TibberCredentials
	Verisure VerisureCredentials
}

// TibberCredentials authenticates against the price API.
type TibberCredentials struct {
	Token SecretString `envconfig:"TIBBER" validate:"required"`
}

// VerisureCredentials authenticates against the climate API. Username is the
// account email and is also used to look up the installation.
type VerisureCredentials struct {
	Username string       `envconfig:"VERISURE_USER" validate:"required"`
	Password SecretString `envconfig:"VERISURE_PASSWORD" validate:"required"`
}
