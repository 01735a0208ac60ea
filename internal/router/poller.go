package router

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/InsideOutbtc/Nockchain-sub002/internal/venue"
)

const defaultPollInterval = 15 * time.Second

// Poller keeps every adapter's pool views fresh in the background. Refresh
// failures are logged and retried on the next tick; they never fail the
// process, since PoolInfo is best-effort by contract.
type Poller struct {
	log      zerolog.Logger
	adapters []venue.Adapter
	interval time.Duration
}

// NewPoller builds a poller; a non-positive interval falls back to the
// default cadence.
func NewPoller(log zerolog.Logger, adapters []venue.Adapter, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{
		log:      log.With().Str("component", "pool-poller").Logger(),
		adapters: adapters,
		interval: interval,
	}
}

// Start launches the refresh loop in a goroutine.
func (p *Poller) Start(ctx context.Context) {
	if p == nil {
		return
	}
	go p.loop(ctx)
}

func (p *Poller) loop(ctx context.Context) {
	p.Refresh(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}

// Refresh performs one refresh cycle across all adapters.
func (p *Poller) Refresh(ctx context.Context) {
	for _, a := range p.adapters {
		if !a.Ready() {
			continue
		}
		if err := a.RefreshPools(ctx); err != nil {
			p.log.Warn().Err(err).Str("venue", a.Name()).Msg("pool refresh failed")
			continue
		}
		p.log.Debug().Str("venue", a.Name()).Msg("pools refreshed")
	}
}
