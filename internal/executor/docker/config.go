package docker

import (
	"fmt"
	"time"
)

// Config holds the sandbox limits for JavaScript runs.
type Config struct {
	Image       string
	MemoryLimit int64   // bytes
	CPULimit    float64 // fraction of one CPU
	Timeout     time.Duration
	PoolSize    int   // warm containers kept ready
	MaxOutput   int64 // bytes kept per stream; the rest is dropped
}

// DefaultConfig returns limits suitable for short snippets on node:22-alpine.
func DefaultConfig() Config {
	return Config{
		Image:       "node:22-alpine",
		MemoryLimit: 128 * 1024 * 1024,
		CPULimit:    0.5,
		Timeout:     5 * time.Second,
		PoolSize:    2,
		MaxOutput:   64 * 1024,
	}
}

func (c Config) validate() error {
	switch {
	case c.Image == "":
		return fmt.Errorf("docker: image is required")
	case c.Timeout <= 0:
		return fmt.Errorf("docker: timeout must be positive, got %s", c.Timeout)
	case c.PoolSize < 1:
		return fmt.Errorf("docker: pool size must be at least 1, got %d", c.PoolSize)
	}
	return nil
}
