package session

import (
	"fmt"

	"github.com/devicelab-dev/locus/pkg/config"
	"github.com/devicelab-dev/locus/pkg/core"
	"github.com/devicelab-dev/locus/pkg/locator"
)

// Session ties one driver to one configuration and one context stack.
// Sessions share nothing: two sessions in the same process are fully
// independent. A session is not safe for concurrent use; resolution runs
// single-threaded cooperative polling.
type Session struct {
	drv   core.Driver
	cfg   config.Config
	stack *ContextStack
}

// New creates a session over the driver. The configuration is treated as
// immutable from here on.
func New(drv core.Driver, cfg config.Config) *Session {
	return &Session{
		drv:   drv,
		cfg:   cfg,
		stack: NewStack(drv),
	}
}

// Driver returns the backend adapter.
func (s *Session) Driver() core.Driver { return s.drv }

// Config returns the session configuration.
func (s *Session) Config() config.Config { return s.cfg }

// Stack returns the session's context stack.
func (s *Session) Stack() *ContextStack { return s.stack }

// Snapshot computes the runtime dimensions from the live session: viewport
// bucket from the current window size, OS from the host unless overridden,
// backend from configuration or the driver name. Called once per resolution
// attempt; the result is never reused across attempts.
func (s *Session) Snapshot() (locator.Dimensions, error) {
	width, _, err := s.drv.WindowSize()
	if err != nil {
		return locator.Dimensions{}, fmt.Errorf("session: read window size: %w", err)
	}

	platform := s.cfg.Platform
	if platform == "" {
		platform = locator.PlatformWeb
	}
	osName := s.cfg.OS
	if osName == "" {
		osName = locator.HostOS()
	}
	backend := s.cfg.Backend
	if backend == "" {
		backend = s.drv.Name()
	}

	return locator.Dimensions{
		Platform: platform,
		OS:       osName,
		Viewport: s.cfg.Breakpoints.Bucket(width),
		Backend:  backend,
	}, nil
}
