package worker

import (
	"github.com/cryptaliagy/iti1121-grading/pkg/logger"
)

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithSize sets the number of concurrent workers. Values below 1 are ignored.
func WithSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.size = n
		}
	}
}

// WithLogger sets a custom logger for the pool.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}
