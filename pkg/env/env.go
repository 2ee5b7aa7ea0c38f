// Package env reads the few variables consulted outside the envconfig
// loader, such as the platform-injected PORT.
package env

import "os"

// Get returns the value of the named environment variable, or fallback when
// the variable is unset or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
