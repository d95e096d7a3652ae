// Package radar builds the process-wide services once and hands them to
// the HTTP layer and tools.
package radar

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/stake-plus/solana-dao-radar/src/ai/core"
	_ "github.com/stake-plus/solana-dao-radar/src/ai/providers"
	"github.com/stake-plus/solana-dao-radar/src/browse"
	"github.com/stake-plus/solana-dao-radar/src/cache"
	"github.com/stake-plus/solana-dao-radar/src/config"
	"github.com/stake-plus/solana-dao-radar/src/data"
	"github.com/stake-plus/solana-dao-radar/src/describe"
	"github.com/stake-plus/solana-dao-radar/src/governance"
	"github.com/stake-plus/solana-dao-radar/src/notify"
	"github.com/stake-plus/solana-dao-radar/src/registry"
	"github.com/stake-plus/solana-dao-radar/src/rpcproxy"
	"github.com/stake-plus/solana-dao-radar/src/solana"
	"github.com/stake-plus/solana-dao-radar/src/splgov"
	"github.com/stake-plus/solana-dao-radar/src/summary"
	"github.com/stake-plus/solana-dao-radar/src/voting"
	"github.com/stake-plus/solana-dao-radar/src/webclient"
)

var logger = loggo.GetLogger("daoradar.radar")

const sweepEvery = time.Minute

// Services is the explicit context object every request handler draws from.
type Services struct {
	Config     config.Config
	Connector  *solana.Connector
	Governance *splgov.Client
	Registry   *registry.Cache
	Aggregator *governance.Aggregator
	Browse     *browse.Cache
	Votes      *voting.Pipeline
	Alerts     *notify.Tracker
	Describe   *describe.Fetcher
	Summary    *summary.Service
	Proxy      *rpcproxy.Proxy
	APILimiter *rpcproxy.Limiter
	Nonces     *data.Nonces

	store cache.Store
	clock clock.Clock
}

// Option adjusts construction, mostly for tests and tools.
type Option func(*options)

type options struct {
	store   cache.Store
	clock   clock.Clock
	alerter notify.Alerter
}

// WithStore backs every ephemeral cache with s instead of process memory.
func WithStore(s cache.Store) Option { return func(o *options) { o.store = s } }

func WithClock(c clock.Clock) Option { return func(o *options) { o.clock = c } }

// WithAlerter replaces the alert sink derived from the Discord config.
func WithAlerter(a notify.Alerter) Option { return func(o *options) { o.alerter = a } }

// New wires the services for cfg. Nothing here touches the network; the
// first RPC happens on the first request.
func New(cfg config.Config, opts ...Option) (*Services, error) {
	o := options{clock: clock.WallClock}
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		o.store = cache.NewMemoryStore(o.clock)
	}

	programID, err := solana.PublicKeyFromBase58(cfg.ProgramID)
	if err != nil {
		return nil, errors.Annotate(err, "governance program id")
	}

	conn := solana.NewConnector(cfg.RPCURL, solana.WithTimeout(cfg.RPCTimeout))
	gov := splgov.NewClient(conn, programID)

	reg := registry.NewCache(
		registry.NewHTTPSource(cfg.RegistryURL, cfg.RegistryImageBase, webclient.NewDefault(cfg.RPCTimeout)),
		cfg.RegistryTTL, o.clock,
	)
	agg := governance.NewFromClient(gov,
		governance.WithRegistry(reg),
		governance.WithConcurrency(cfg.Concurrency),
	)

	confirmer := solana.NewConfirmer(conn, solana.ConfirmerConfig{WebsocketURL: cfg.WSURL, Clock: o.clock})
	votes := voting.NewPipeline(gov, conn, confirmer,
		voting.WithProgramID(programID),
		voting.WithClock(o.clock),
	)

	alerter := o.alerter
	if alerter == nil {
		alerter, err = alerterFor(cfg)
		if err != nil {
			return nil, err
		}
	}

	s := &Services{
		Config:     cfg,
		Connector:  conn,
		Governance: gov,
		Registry:   reg,
		Aggregator: agg,
		Browse:     browse.NewCache(agg, o.store, cfg.BrowseTTL),
		Votes:      votes,
		Alerts:     notify.NewTracker(notify.NewCacheSeenStore(o.store), alerter),
		Describe:   describe.NewFetcher(describe.WithStore(o.store)),
		Summary:    summary.NewService(aiClient(cfg.AI), o.store),
		Proxy:      rpcproxy.New(conn.Endpoint(), rpcproxy.NewLimiter(cfg.ProxyCapacity, cfg.ProxyRefill, o.clock), nil),
		APILimiter: rpcproxy.NewLimiter(apiCapacity, apiRefill, o.clock),
		Nonces:     data.NewNonces(o.store),
		store:      o.store,
		clock:      o.clock,
	}
	return s, nil
}

// Per-caller budget for the non-proxy API routes.
const (
	apiCapacity = 60
	apiRefill   = 2
)

func alerterFor(cfg config.Config) (notify.Alerter, error) {
	if !cfg.Discord.Enabled() {
		return notify.LogAlerter{}, nil
	}
	session, err := notify.NewDiscordSession(cfg.Discord.Token)
	if err != nil {
		return nil, err
	}
	return notify.MultiAlerter{
		notify.LogAlerter{},
		notify.NewDiscordAlerter(session, cfg.Discord.ChannelID, cfg.AppURL),
	}, nil
}

// aiClient returns nil when no provider can be built; summaries then fall
// back to the description excerpt.
func aiClient(cfg config.AI) core.Client {
	client, err := core.NewClient(core.FactoryConfig{
		Provider:     cfg.Provider,
		Model:        cfg.Model,
		GroqKey:      cfg.GroqKey,
		OpenAIKey:    cfg.OpenAIKey,
		AnthropicKey: cfg.AnthropicKey,
	})
	switch {
	case errors.Is(err, core.ErrNoAPIKey):
		logger.Infof("no %s key, summaries use the fallback", cfg.Provider)
		return nil
	case err != nil:
		logger.Warningf("ai provider: %v", err)
		return nil
	}
	logger.Infof("summaries via %s (%s)", cfg.Provider, core.ResolveModelName(cfg.Provider, cfg.Model))
	return client
}

// Run drives the periodic housekeeping until ctx ends: idle limiter
// buckets, expired vote attempts and, for the memory store, expired keys.
func (s *Services) Run(ctx context.Context) {
	go s.Proxy.Limiter().Run(ctx)
	go s.APILimiter.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(sweepEvery):
			s.sweep()
		}
	}
}

func (s *Services) sweep() {
	if n, settled := s.Votes.Sweep(); n+settled > 0 {
		logger.Debugf("dropped %d expired vote attempts, %d settled views", n, settled)
	}
	if m, ok := s.store.(*cache.MemoryStore); ok {
		if n := m.Sweep(); n > 0 {
			logger.Debugf("evicted %d expired cache keys", n)
		}
	}
}
