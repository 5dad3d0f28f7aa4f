package database_test

import (
	"testing"

	"vocab-loader/core/database"

	"github.com/stretchr/testify/assert"
)

func TestConfig_IsValidDriver(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		want   bool
	}{
		{"Postgres", database.DriverPostgres, true},
		{"MySQL", database.DriverMySQL, true},
		{"SQLite", database.DriverSQLite, true},
		{"Invalid", "oracle", false},
		{"Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := database.Config{Driver: tt.driver}
			assert.Equal(t, tt.want, c.IsValidDriver())
		})
	}
}
