package config

import (
	"fmt"
	"reflect"
	"strings"

	"vocab-loader/core/database"
	"vocab-loader/core/logger"
	"vocab-loader/core/reconcile"
	"vocab-loader/core/source"
	"vocab-loader/core/storage"
	"vocab-loader/core/store"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Database holds configuration for the CDM database connection.
	Database database.Config `mapstructure:"database"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Storage holds configuration for the object storage vocabulary releases are fetched from.
	Storage storage.Config `mapstructure:"storage"`
	// Vocab holds the locations of the vocabulary and STCM files.
	Vocab source.Config `mapstructure:"vocab"`
	// Store holds write tuning.
	Store store.Config `mapstructure:"store"`
	// Reconcile holds reconciliation defaults.
	Reconcile reconcile.Config `mapstructure:"reconcile"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. VOCAB_STCM_DIR -> vocab.stcm_dir)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if !config.Database.IsValidDriver() {
		return nil, fmt.Errorf("unsupported database driver %q (expected %s, %s or %s)",
			config.Database.Driver, database.DriverPostgres, database.DriverMySQL, database.DriverSQLite)
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
