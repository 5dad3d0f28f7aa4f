package store

// Config holds tuning for writes to the CDM database.
type Config struct {
	// BatchSize is the number of rows per INSERT and the number of keys per IN clause.
	BatchSize int `mapstructure:"batch_size" default:"500"`
}
