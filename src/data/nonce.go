package data

import (
	"context"
	"time"

	"github.com/juju/errors"

	"github.com/stake-plus/solana-dao-radar/src/cache"
)

// NonceTTL bounds how long a sign-in challenge stays redeemable.
const NonceTTL = 5 * time.Minute

// Nonces keeps one outstanding sign-in challenge per wallet.
type Nonces struct {
	store cache.Store
}

func NewNonces(store cache.Store) *Nonces {
	return &Nonces{store: cache.Prefixed(store, "nonce")}
}

func (n *Nonces) Set(ctx context.Context, wallet, nonce string) error {
	return errors.Annotate(n.store.Set(ctx, wallet, []byte(nonce), NonceTTL), "store nonce")
}

// Take returns the wallet's nonce and removes it, so a challenge verifies once.
func (n *Nonces) Take(ctx context.Context, wallet string) (string, error) {
	b, ok, err := n.store.Take(ctx, wallet)
	if err != nil {
		return "", errors.Annotate(err, "take nonce")
	}
	if !ok {
		return "", errors.NotFoundf("challenge for %s", wallet)
	}
	return string(b), nil
}
