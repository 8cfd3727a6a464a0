package server

import (
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/synapz-learn/signavatar/internal/gloss"
	"github.com/synapz-learn/signavatar/internal/history"
)

// ServerBuilderOption is a functional option for configuring a Server.
type ServerBuilderOption func(*Server)

// WithLogger sets the server and session logger.
//
// Parameters:
//   - logger: the logger; nil keeps slog.Default()
//
// Returns:
//   - ServerBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) ServerBuilderOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGlosser sets the glosser used for submissions that ask for gloss.
// Without one, gloss requests are upper-cased by gloss.Passthrough.
//
// Parameters:
//   - g: the glosser
//
// Returns:
//   - ServerBuilderOption: option function to apply
func WithGlosser(g gloss.Glosser) ServerBuilderOption {
	return func(s *Server) {
		if g != nil {
			s.glosser = g
		}
	}
}

// WithHistory sets the store that receives one entry per finished or interrupted sequence.
//
// Parameters:
//   - store: the history store
//
// Returns:
//   - ServerBuilderOption: option function to apply
func WithHistory(store history.Store) ServerBuilderOption {
	return func(s *Server) {
		if store != nil {
			s.history = store
		}
	}
}

// WithPlayback sets the initial step size and hold of every session.
//
// Parameters:
//   - step: per-frame rotation increment in radians
//   - hold: pause after each completed instruction list
//
// Returns:
//   - ServerBuilderOption: option function to apply
func WithPlayback(step float32, hold time.Duration) ServerBuilderOption {
	return func(s *Server) {
		if step > 0 && step <= 1 {
			s.stepSize = step
		}
		if hold >= 0 {
			s.hold = hold
		}
	}
}

// WithTickRate sets the session tick rate in ticks per second.
func WithTickRate(hz float64) ServerBuilderOption {
	return func(s *Server) {
		if hz > 0 {
			s.tickRate = hz
		}
	}
}

// WithResetOnPreempt returns the rig to its rest pose when a submission interrupts playback.
func WithResetOnPreempt(enabled bool) ServerBuilderOption {
	return func(s *Server) {
		s.resetOnPreempt = enabled
	}
}

// WithMaxTextBytes limits the size of submitted text.
func WithMaxTextBytes(n int64) ServerBuilderOption {
	return func(s *Server) {
		if n > 0 {
			s.maxTextBytes = n
		}
	}
}

// WithKeepalive sets the websocket ping interval and write timeout.
//
// Parameters:
//   - ping: interval between pings
//   - write: deadline for each frame write
//
// Returns:
//   - ServerBuilderOption: option function to apply
func WithKeepalive(ping, write time.Duration) ServerBuilderOption {
	return func(s *Server) {
		if ping > 0 {
			s.pingInterval = ping
		}
		if write > 0 {
			s.writeTimeout = write
		}
	}
}

// WithClock replaces the clock driving session tickers.
func WithClock(c clock.Clock) ServerBuilderOption {
	return func(s *Server) {
		if c != nil {
			s.clock = c
		}
	}
}
