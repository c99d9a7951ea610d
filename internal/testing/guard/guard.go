// Package guard flips the process into test mode when imported, so packages
// under test never reach the real Pactum API or Redis by accident.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("PACTUM_TEST_MODE") == "" {
			_ = os.Setenv("PACTUM_TEST_MODE", "1")
		}
		if os.Getenv("PACTUM_API_URL") == "" {
			_ = os.Setenv("PACTUM_API_URL", "http://127.0.0.1:0/api")
		}
		if os.Getenv("EVENT_BUS") == "" {
			_ = os.Setenv("EVENT_BUS", "local")
		}
	})
}
