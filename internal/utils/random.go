package utils

import (
	"math/rand"
	"sync"
	"time"
)

var (
	seededRand *rand.Rand
	randMu     sync.Mutex
	randOnce   sync.Once
)

// GetRand returns a process-wide seeded random source. Callers must not
// retain the returned value across goroutines; use it for a single draw.
func GetRand() *rand.Rand {
	randOnce.Do(func() {
		seededRand = rand.New(rand.NewSource(time.Now().UnixNano()))
	})
	return seededRand
}

// Jitter returns a random duration in [0, max). Safe for concurrent use.
func Jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	randMu.Lock()
	defer randMu.Unlock()
	return time.Duration(GetRand().Int63n(int64(max)))
}
