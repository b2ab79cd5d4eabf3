// Package env reads raw environment variables for the few call sites that
// run before the typed config loads, the migration CLI mostly.
package env

import "os"

// Get returns the named variable, or fallback when it is unset or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
