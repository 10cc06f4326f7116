package linear

import (
	"github.com/YuminosukeSato/glsfit/pkg/log"
)

// Option は Model の構築を設定する関数
type Option func(*settings)

type settings struct {
	logger  log.Logger
	rankTol float64
	name    string
}

func defaultSettings() settings {
	return settings{
		rankTol: DefaultRankTolerance,
	}
}

// WithLogger sets the logger used for fit diagnostics
func WithLogger(l log.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithRankTolerance sets the relative singular value cutoff used for the design rank
func WithRankTolerance(tol float64) Option {
	return func(s *settings) {
		s.rankTol = tol
	}
}

// WithName overrides the model name reported in logs
func WithName(name string) Option {
	return func(s *settings) {
		s.name = name
	}
}
