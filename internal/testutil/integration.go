package testutil

import (
	"os"
	"testing"
)

// RequireIntegration skips the test unless INTEGRATION=1.
func RequireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION") != "1" {
		t.Skip("set INTEGRATION=1 to run integration tests")
	}
}

// Env returns the environment variable or def when it is unset.
func Env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
