// Package governance turns raw governance accounts into per-wallet and
// per-realm views: discovered DAOs with summed voting power, active proposal
// counts, sorted proposal lists and vote history.
package governance

import (
	"context"

	"github.com/juju/loggo/v2"

	"github.com/stake-plus/solana-dao-radar/src/registry"
	"github.com/stake-plus/solana-dao-radar/src/solana"
	"github.com/stake-plus/solana-dao-radar/src/splgov"
)

var logger = loggo.GetLogger("daoradar.governance")

const (
	DefaultConcurrency = 3
	// historyBatch is how many proposals one history lookup fetches at once.
	historyBatch = 5
	// activePreview caps the active proposals embedded in a DAOView.
	activePreview = 3
	UnnamedDAO    = "Unnamed DAO"
)

// Chain is the governance read surface the aggregator needs. *splgov.Client implements it.
type Chain interface {
	GetRealm(ctx context.Context, realm solana.PublicKey) (*splgov.ProgramAccount[splgov.Realm], error)
	GetRealms(ctx context.Context) ([]splgov.ProgramAccount[splgov.Realm], error)
	GetTokenOwnerRecordsByOwner(ctx context.Context, owner solana.PublicKey) ([]splgov.ProgramAccount[splgov.TokenOwnerRecord], error)
	GetAllProposals(ctx context.Context, realm solana.PublicKey) ([][]splgov.ProgramAccount[splgov.Proposal], error)
	GetProposal(ctx context.Context, proposal solana.PublicKey) (*splgov.ProgramAccount[splgov.Proposal], error)
	GetProposals(ctx context.Context, keys []solana.PublicKey) ([]*splgov.ProgramAccount[splgov.Proposal], error)
	GetTokenOwnerRecord(ctx context.Context, realm, mint, owner solana.PublicKey) (*splgov.ProgramAccount[splgov.TokenOwnerRecord], error)
	GetVoteRecordFor(ctx context.Context, proposal, tokenOwnerRecord solana.PublicKey) (*splgov.ProgramAccount[splgov.VoteRecord], error)
	GetVoteRecordsByVoter(ctx context.Context, voter solana.PublicKey) ([]splgov.ProgramAccount[splgov.VoteRecord], error)
}

// Registry supplies off-chain metadata; *registry.Cache implements it.
type Registry interface {
	GetMap(ctx context.Context) (map[string]registry.Entry, error)
}

// FeaturedRealm is one entry of the curated browse list.
type FeaturedRealm struct {
	Name   string `json:"name"`
	Pubkey string `json:"pubkey"`
}

// FeaturedRealms are well-known mainnet realms shown without a wallet.
var FeaturedRealms = []FeaturedRealm{
	{Name: "Mango DAO", Pubkey: "DPiH3H3c7t47BMxqTxLsuPQpEC6Kne8GA9VXbxpnZxFE"},
	{Name: "Marinade.Finance", Pubkey: "3gmcbygQUUDgmtDtx41R7xSf3K4oFXrH9icPNijyq9pS"},
	{Name: "Drift Protocol", Pubkey: "9nUyxzVL2FUMuWUiVZG66gwK15CJiM3PoLkfrnGfkvt6"},
	{Name: "Jupiter Aggregator", Pubkey: "2Z5BXuRCJPqYUCBGyQTwAXHeJoFAnbtvoXja19aZFLKY"},
	{Name: "Pyth DAO", Pubkey: "WQa9YVA3SVspDUjmnjMj4uygJpxR814mD931FhLxLvx"},
	{Name: "MonkeDAO", Pubkey: "m8BR9yA89AJ9f2u3KeAFasJSuXDnd3xYDJJkBvQ2iw6"},
	{Name: "Grape", Pubkey: "By2sVGZXwfQq6rAiAM3rNPJ9iQfb5e2QhnF4YjJ4Bip"},
	{Name: "Helium", Pubkey: "6qGHqcZY4zLCWFvvBKfr8tHQfkD8arz8mAQPt4TDvTy5"},
	{Name: "Squads", Pubkey: "6FYxSU9GE5imNLnqbUmJDktBfgVQeoVXVCVgtNuukS86"},
	{Name: "Solend", Pubkey: "5EuXAPZCpzZnqpzVRX5Ytizh9BFVtbz3H8Xk9H5onxHD"},
	{Name: "Raydium DAO", Pubkey: "GDBJ3qv4tJXiCbz5ASkSMYq6Xfb35MdXsMzgVaMnr9Q7"},
	{Name: "UXD Protocol", Pubkey: "DkSvNgykZPPFczhJVh8HDkhz25ByrDoPcB32q75AYu9k"},
}

// Aggregator is constructed once per process and shared by all requests.
type Aggregator struct {
	chain       Chain
	chainFor    func(programID solana.PublicKey) Chain
	registry    Registry
	featured    []FeaturedRealm
	concurrency int
}

type Option func(*Aggregator)

// WithConcurrency caps the in-flight per-realm lookups of one pass.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

func WithRegistry(r Registry) Option {
	return func(a *Aggregator) { a.registry = r }
}

func WithFeatured(f []FeaturedRealm) Option {
	return func(a *Aggregator) { a.featured = f }
}

// WithProgramChains resolves the chain used when a caller names a
// non-default governance program.
func WithProgramChains(f func(programID solana.PublicKey) Chain) Option {
	return func(a *Aggregator) { a.chainFor = f }
}

func NewAggregator(chain Chain, opts ...Option) *Aggregator {
	a := &Aggregator{
		chain:       chain,
		featured:    FeaturedRealms,
		concurrency: DefaultConcurrency,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// NewFromClient wires an aggregator to a governance client, including
// per-program clients that share its connection.
func NewFromClient(c *splgov.Client, opts ...Option) *Aggregator {
	base := []Option{WithProgramChains(func(p solana.PublicKey) Chain { return c.ForProgram(p) })}
	return NewAggregator(c, append(base, opts...)...)
}

func (a *Aggregator) program(programID string) (Chain, error) {
	if programID == "" || a.chainFor == nil {
		return a.chain, nil
	}
	pk, err := solana.PublicKeyFromBase58(programID)
	if err != nil {
		return nil, err
	}
	return a.chainFor(pk), nil
}

// registryMap tolerates registry failure; metadata is decoration only.
func (a *Aggregator) registryMap(ctx context.Context) map[string]registry.Entry {
	if a.registry == nil {
		return nil
	}
	m, err := a.registry.GetMap(ctx)
	if err != nil {
		logger.Warningf("registry unavailable: %v", err)
		return nil
	}
	return m
}
