// Package notify decides which active proposals a wallet has not been
// alerted about yet and emits one alert per batch of new ones.
package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/stake-plus/solana-dao-radar/src/cache"
)

var logger = loggo.GetLogger("daoradar.notify")

// SeenLimit bounds the remembered ids per wallet; the oldest are dropped first.
const SeenLimit = 500

// Alert is one active proposal as presented to the tracker.
type Alert struct {
	ProposalID   string `json:"proposalId"`
	ProposalName string `json:"proposalName"`
	DAOName      string `json:"daoName"`
	RealmID      string `json:"realmId"`
}

// SeenStore persists each wallet's seen ids as one ordered blob.
type SeenStore interface {
	Load(ctx context.Context, wallet string) ([]string, error)
	Save(ctx context.Context, wallet string, ids []string) error
}

// CacheSeenStore keeps seen sets in a cache.Store (memory or Redis) without expiry.
type CacheSeenStore struct {
	store cache.Store
}

func NewCacheSeenStore(store cache.Store) *CacheSeenStore {
	return &CacheSeenStore{store: cache.Prefixed(store, "seen")}
}

func (s *CacheSeenStore) Load(ctx context.Context, wallet string) ([]string, error) {
	b, ok, err := s.store.Get(ctx, wallet)
	if err != nil || !ok {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		// A corrupt blob is treated as empty rather than blocking alerts forever.
		logger.Warningf("seen set of %s unreadable, resetting: %v", wallet, err)
		return nil, nil
	}
	return ids, nil
}

func (s *CacheSeenStore) Save(ctx context.Context, wallet string, ids []string) error {
	b, err := json.Marshal(ids)
	if err != nil {
		return errors.Trace(err)
	}
	return s.store.Set(ctx, wallet, b, 0)
}

// Tracker diffs active proposals against the persisted seen set.
type Tracker struct {
	store   SeenStore
	alerter Alerter
	limit   int

	mu    sync.Mutex
	locks map[string]*walletLock
}

// walletLock serialises read-modify-write of one wallet's blob within this
// process. It is dropped once no caller holds or waits on it.
type walletLock struct {
	sync.Mutex
	refs int
}

func NewTracker(store SeenStore, alerter Alerter) *Tracker {
	if alerter == nil {
		alerter = LogAlerter{}
	}
	return &Tracker{store: store, alerter: alerter, limit: SeenLimit, locks: make(map[string]*walletLock)}
}

func (t *Tracker) lock(wallet string) {
	t.mu.Lock()
	l, ok := t.locks[wallet]
	if !ok {
		l = &walletLock{}
		t.locks[wallet] = l
	}
	l.refs++
	t.mu.Unlock()
	l.Lock()
}

func (t *Tracker) unlock(wallet string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l := t.locks[wallet]
	l.Unlock()
	if l.refs--; l.refs == 0 {
		delete(t.locks, wallet)
	}
}

// Diff returns the alerts in batch whose ids wallet has not seen, then marks
// every id in batch as seen. Calling it again with the same batch returns nothing.
func (t *Tracker) Diff(ctx context.Context, wallet string, batch []Alert) ([]Alert, error) {
	t.lock(wallet)
	defer t.unlock(wallet)

	seenIDs, err := t.store.Load(ctx, wallet)
	if err != nil {
		return nil, errors.Annotatef(err, "load seen set of %s", wallet)
	}
	seen := make(map[string]struct{}, len(seenIDs)+len(batch))
	for _, id := range seenIDs {
		seen[id] = struct{}{}
	}

	var fresh []Alert
	merged := seenIDs
	for _, a := range batch {
		if a.ProposalID == "" {
			continue
		}
		if _, ok := seen[a.ProposalID]; ok {
			continue
		}
		seen[a.ProposalID] = struct{}{}
		fresh = append(fresh, a)
		merged = append(merged, a.ProposalID)
	}
	if len(fresh) == 0 {
		return nil, nil
	}
	if len(merged) > t.limit {
		merged = merged[len(merged)-t.limit:]
	}
	if err := t.store.Save(ctx, wallet, merged); err != nil {
		return nil, errors.Annotatef(err, "save seen set of %s", wallet)
	}

	n := Notification{Wallet: wallet, Message: FormatAlert(fresh), Items: fresh}
	if err := t.alerter.Alert(ctx, n); err != nil {
		logger.Warningf("alert for %s: %v", wallet, err)
	}
	return fresh, nil
}
