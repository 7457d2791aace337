package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Mode selects the deployment topology and, with it, the backend.
type Mode string

const (
	ModeSingleTenant Mode = "single"
	ModeMultiTenant  Mode = "multi"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSingleTenant, ModeMultiTenant:
		return Mode(s), nil
	}
	return "", fmt.Errorf("store.ParseMode: unknown mode %q", s)
}

// Backend returns the backend that serves the mode.
func (m Mode) Backend() Backend {
	if m == ModeMultiTenant {
		return BackendPostgres
	}
	return BackendSQLite
}

func (m Mode) MultiTenant() bool { return m == ModeMultiTenant }

// Opener constructs a driver for a mode.
type Opener func(ctx context.Context, mode Mode) (Driver, error)

// Factory owns the process-wide driver. The first Instance call opens it;
// later calls with the same mode return the cached Adapter, and a call with a
// different mode closes the stale driver and opens a new one.
type Factory struct {
	open Opener

	mu      sync.Mutex
	mode    Mode
	driver  Driver
	adapter *Adapter
}

func NewFactory(open Opener) *Factory {
	return &Factory{open: open}
}

// Instance returns the Adapter for mode. A tenant context, when needed, rides
// in ctx of each Adapter call and is never stored by the factory.
func (f *Factory) Instance(ctx context.Context, mode Mode) (*Adapter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.adapter != nil && f.mode == mode {
		return f.adapter, nil
	}

	if f.driver != nil {
		log.Info().Str("from", string(f.mode)).Str("to", string(mode)).Msg("store: deployment mode changed, reopening backend")
		if err := f.driver.Close(); err != nil {
			log.Warn().Err(err).Str("backend", string(f.driver.Backend())).Msg("store: closing stale backend")
		}
		f.driver, f.adapter, f.mode = nil, nil, ""
	}

	d, err := f.open(ctx, mode)
	if err != nil {
		return nil, fmt.Errorf("store.Factory.Instance: %w", err)
	}

	f.driver = d
	f.adapter = NewAdapter(d)
	f.mode = mode
	log.Info().Str("mode", string(mode)).Str("backend", string(d.Backend())).Msg("store: backend ready")

	return f.adapter, nil
}

// Mode returns the mode of the cached instance, or "" before first use.
func (f *Factory) Mode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.driver == nil {
		return nil
	}
	err := f.driver.Close()
	f.driver, f.adapter, f.mode = nil, nil, ""
	if err != nil {
		return fmt.Errorf("store.Factory.Close: %w", err)
	}
	return nil
}
