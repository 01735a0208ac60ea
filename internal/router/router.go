// Package router aggregates venue adapters behind a single swap surface:
// quotes fan out to every ready venue in parallel, the best valid quote wins,
// and execution is delegated to the winning adapter.
package router

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/InsideOutbtc/Nockchain-sub002/internal/risk"
	"github.com/InsideOutbtc/Nockchain-sub002/internal/venue"
)

const (
	defaultQuoteTTL     = 2 * time.Second
	defaultPriceEpsilon = 1e-9
)

// Option configures Router construction.
type Option func(*Router)

// WithQuoteTTL overrides how old a quote may be before the router discards it.
func WithQuoteTTL(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.quoteTTL = d
		}
	}
}

// WithPriceEpsilon overrides the execution-price window within which two
// venues are considered tied.
func WithPriceEpsilon(e float64) Option {
	return func(r *Router) {
		if e > 0 {
			r.epsilon = e
		}
	}
}

// WithPriority sets the operator-configured venue ordering used as the final
// tie-break; earlier names win.
func WithPriority(names []string) Option {
	return func(r *Router) {
		r.priority = make(map[string]int, len(names))
		for i, n := range names {
			r.priority[n] = i
		}
	}
}

// WithLimits attaches execution guard-rails.
func WithLimits(l risk.Limits) Option {
	return func(r *Router) { r.limits = l }
}

// Router holds only transient references for routing decisions; all entity
// state stays inside the adapters that produced it.
type Router struct {
	log      zerolog.Logger
	adapters []venue.Adapter
	priority map[string]int
	epsilon  float64
	quoteTTL time.Duration
	limits   risk.Limits
}

// New constructs a router over the supplied adapters.
func New(log zerolog.Logger, adapters []venue.Adapter, opts ...Option) *Router {
	r := &Router{
		log:      log.With().Str("component", "router").Logger(),
		adapters: adapters,
		priority: make(map[string]int),
		epsilon:  defaultPriceEpsilon,
		quoteTTL: defaultQuoteTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Initialize brings every adapter up; a single venue failing to initialize
// fails the whole call since the operator asked for it explicitly.
func (r *Router) Initialize(ctx context.Context) error {
	for _, a := range r.adapters {
		if err := a.Initialize(ctx); err != nil {
			return err
		}
	}
	return nil
}

type venueQuote struct {
	adapter venue.Adapter
	quote   *venue.Quote
}

// collectQuotes fans the request out to every adapter concurrently and joins
// the results. One venue erroring never aborts the gather.
func (r *Router) collectQuotes(ctx context.Context, req venue.QuoteRequest) ([]venueQuote, []venue.VenueFailure) {
	var (
		mu       sync.Mutex
		quotes   []venueQuote
		failures []venue.VenueFailure
		wg       sync.WaitGroup
	)
	for _, a := range r.adapters {
		wg.Add(1)
		go func(a venue.Adapter) {
			defer wg.Done()
			q, err := a.GetSwapQuote(ctx, req)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				failures = append(failures, venue.VenueFailure{Venue: a.Name(), Reason: err.Error()})
			case !q.Valid:
				failures = append(failures, venue.VenueFailure{Venue: a.Name(), Reason: "quote invalid: price impact above venue maximum"})
			case q.Age(time.Now()) > r.quoteTTL:
				failures = append(failures, venue.VenueFailure{Venue: a.Name(), Reason: "quote stale"})
			default:
				quotes = append(quotes, venueQuote{adapter: a, quote: q})
			}
		}(a)
	}
	wg.Wait()
	// Failures are reported in a stable order for the operator.
	sort.Slice(failures, func(i, j int) bool { return failures[i].Venue < failures[j].Venue })
	return quotes, failures
}

// pickBest returns the winning quote: best execution price, ties within
// epsilon broken by lower price impact, then configured venue priority.
func (r *Router) pickBest(quotes []venueQuote) venueQuote {
	best := quotes[0]
	for _, cand := range quotes[1:] {
		diff := cand.quote.ExecutionPrice - best.quote.ExecutionPrice
		switch {
		case diff > r.epsilon:
			best = cand
		case math.Abs(diff) <= r.epsilon:
			if cand.quote.PriceImpactPct < best.quote.PriceImpactPct {
				best = cand
				break
			}
			if cand.quote.PriceImpactPct == best.quote.PriceImpactPct && r.rank(cand.quote.Venue) < r.rank(best.quote.Venue) {
				best = cand
			}
		}
	}
	return best
}

func (r *Router) rank(name string) int {
	if p, ok := r.priority[name]; ok {
		return p
	}
	return len(r.priority) + 1
}

// GetSwapQuote returns the best valid quote across venues, or
// NoRouteFoundError carrying every venue's reason.
func (r *Router) GetSwapQuote(ctx context.Context, req venue.QuoteRequest) (*venue.Quote, error) {
	quotes, failures := r.collectQuotes(ctx, req)
	if len(quotes) == 0 {
		return nil, &venue.NoRouteFoundError{Failures: failures}
	}
	best := r.pickBest(quotes)
	r.log.Debug().
		Str("venue", best.quote.Venue).
		Str("out", best.quote.OutAmount).
		Float64("impact_pct", best.quote.PriceImpactPct).
		Int("contenders", len(quotes)).
		Msg("route selected")
	return best.quote, nil
}

// ExecuteSwap routes to the venue with the best quote and delegates
// execution. The returned Trade carries the attempt's outcome; retry policy
// stays with the caller.
func (r *Router) ExecuteSwap(ctx context.Context, req venue.SwapRequest) (*venue.Trade, error) {
	if err := r.limits.Allow(req.Amount); err != nil {
		return nil, err
	}
	quotes, failures := r.collectQuotes(ctx, venue.QuoteRequest{
		InputMint:   req.InputMint,
		OutputMint:  req.OutputMint,
		Amount:      req.Amount,
		SlippageBps: req.SlippageBps,
	})
	if len(quotes) == 0 {
		return nil, &venue.NoRouteFoundError{Failures: failures}
	}
	best := r.pickBest(quotes)
	r.log.Info().
		Str("venue", best.quote.Venue).
		Str("in", best.quote.InAmount).
		Str("out", best.quote.OutAmount).
		Msg("executing swap on selected venue")
	return best.adapter.ExecuteSwap(ctx, req)
}

// Positions aggregates the tracked positions of every adapter.
func (r *Router) Positions(ctx context.Context) ([]venue.Position, error) {
	var out []venue.Position
	for _, a := range r.adapters {
		positions, err := a.GetPositions(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, positions...)
	}
	return out, nil
}

// Balances reports wallet balances once per adapter's view; venues share the
// wallet, so the first ready adapter's snapshot is authoritative.
func (r *Router) Balances(ctx context.Context) ([]venue.Balance, error) {
	var lastErr error
	for _, a := range r.adapters {
		balances, err := a.GetBalances(ctx)
		if err == nil {
			return balances, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// Pools aggregates every adapter's pool views.
func (r *Router) Pools(ctx context.Context) ([]venue.PoolInfo, error) {
	var out []venue.PoolInfo
	for _, a := range r.adapters {
		pools, err := a.GetAvailablePools(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, pools...)
	}
	return out, nil
}

// Adapter returns the adapter with the given venue name, or nil.
func (r *Router) Adapter(name string) venue.Adapter {
	for _, a := range r.adapters {
		if a.Name() == name {
			return a
		}
	}
	return nil
}
