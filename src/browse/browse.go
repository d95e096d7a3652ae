// Package browse serves the wallet-less realm listings from a short-lived
// store so repeated page loads do not rescan the chain.
package browse

import (
	"context"
	"encoding/json"
	"time"

	"github.com/juju/loggo/v2"

	"github.com/stake-plus/solana-dao-radar/src/cache"
	"github.com/stake-plus/solana-dao-radar/src/governance"
)

var logger = loggo.GetLogger("daoradar.browse")

const DefaultTTL = 30 * time.Minute

const (
	featuredKey = "featured"
	allKey      = "all"
)

// Source produces the listings on a miss. *governance.Aggregator implements it.
type Source interface {
	GetFeaturedOrganizations(ctx context.Context) ([]governance.DAOView, error)
	ListAllOrganizations(ctx context.Context) ([]governance.OrganizationSummary, error)
}

// projection is the only part of a listing that is stored.
type projection struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ActiveCount int    `json:"activeCount"`
}

type Cache struct {
	src   Source
	store cache.Store
	ttl   time.Duration
}

func NewCache(src Source, store cache.Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{src: src, store: cache.Prefixed(store, "browse"), ttl: ttl}
}

// Featured returns the curated realms. A hit is rehydrated into Minimal
// views that define only RealmID, Name and ActiveProposals.
func (c *Cache) Featured(ctx context.Context) ([]governance.DAOView, error) {
	if ps, ok := c.load(ctx, featuredKey); ok {
		views := make([]governance.DAOView, len(ps))
		for i, p := range ps {
			views[i] = governance.DAOView{RealmID: p.ID, Name: p.Name, ActiveProposals: p.ActiveCount, Minimal: true}
		}
		return views, nil
	}
	views, err := c.src.GetFeaturedOrganizations(ctx)
	if err != nil {
		return nil, err
	}
	ps := make([]projection, len(views))
	for i, v := range views {
		ps[i] = projection{ID: v.RealmID, Name: v.Name, ActiveCount: v.ActiveProposals}
	}
	c.save(ctx, featuredKey, ps)
	return views, nil
}

// All returns every realm of the program, sorted by name.
func (c *Cache) All(ctx context.Context) ([]governance.OrganizationSummary, error) {
	if ps, ok := c.load(ctx, allKey); ok {
		out := make([]governance.OrganizationSummary, len(ps))
		for i, p := range ps {
			out[i] = governance.OrganizationSummary{ID: p.ID, Name: p.Name}
		}
		return out, nil
	}
	orgs, err := c.src.ListAllOrganizations(ctx)
	if err != nil {
		return nil, err
	}
	ps := make([]projection, len(orgs))
	for i, o := range orgs {
		ps[i] = projection{ID: o.ID, Name: o.Name}
	}
	c.save(ctx, allKey, ps)
	return orgs, nil
}

// Invalidate drops both listings.
func (c *Cache) Invalidate(ctx context.Context) {
	for _, k := range []string{featuredKey, allKey} {
		if err := c.store.Delete(ctx, k); err != nil {
			logger.Warningf("drop %s listing: %v", k, err)
		}
	}
}

// load treats store failures and unreadable blobs as a miss.
func (c *Cache) load(ctx context.Context, key string) ([]projection, bool) {
	b, ok, err := c.store.Get(ctx, key)
	if err != nil {
		logger.Warningf("read %s listing: %v", key, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var ps []projection
	if err := json.Unmarshal(b, &ps); err != nil {
		logger.Warningf("%s listing unreadable: %v", key, err)
		return nil, false
	}
	return ps, true
}

// save replaces the stored listing whole, unless the pass was cancelled.
func (c *Cache) save(ctx context.Context, key string, ps []projection) {
	if ctx.Err() != nil {
		return
	}
	b, err := json.Marshal(ps)
	if err != nil {
		logger.Warningf("encode %s listing: %v", key, err)
		return
	}
	if err := c.store.Set(ctx, key, b, c.ttl); err != nil {
		logger.Warningf("store %s listing: %v", key, err)
	}
}
