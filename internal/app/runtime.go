package app

import (
	"os"
	"strconv"
)

// TestModeEnv is set by the test guard package. The binary refuses to start
// under it so test runs never bind a port or dial Redis.
const TestModeEnv = "PACTUM_TEST_MODE"

// InTestMode reports whether the process runs under tests.
func InTestMode() bool {
	on, _ := strconv.ParseBool(os.Getenv(TestModeEnv))
	return on
}
