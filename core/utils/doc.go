// Package utils provides helpers for turning delimited-file cells into typed column values:
// integers, calendar dates and optional (nullable) strings.
package utils
