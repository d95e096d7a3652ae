package solana

import (
	"context"
	"sync"
)

// Connector hands out the one shared Client for an endpoint, built on first
// use. It also serves the RPC calls the governance, vote and confirmation
// paths make, so wiring it in does not construct the client early.
type Connector struct {
	endpoint string
	opts     []ClientOption

	once   sync.Once
	client *Client
}

func NewConnector(endpoint string, opts ...ClientOption) *Connector {
	return &Connector{endpoint: endpoint, opts: opts}
}

// Endpoint returns the RPC URL the connection will use.
func (c *Connector) Endpoint() string { return c.endpoint }

// Connection returns the shared client, constructing it at most once.
func (c *Connector) Connection() *Client {
	c.once.Do(func() {
		logger.Debugf("rpc connection created for %s", c.endpoint)
		c.client = NewClient(c.endpoint, c.opts...)
	})
	return c.client
}

func (c *Connector) GetAccountInfo(ctx context.Context, pk PublicKey) (*Account, error) {
	return c.Connection().GetAccountInfo(ctx, pk)
}

func (c *Connector) GetMultipleAccounts(ctx context.Context, keys []PublicKey) ([]*Account, error) {
	return c.Connection().GetMultipleAccounts(ctx, keys)
}

func (c *Connector) GetProgramAccounts(ctx context.Context, programID PublicKey, filters ...Filter) ([]KeyedAccount, error) {
	return c.Connection().GetProgramAccounts(ctx, programID, filters...)
}

func (c *Connector) GetLatestBlockhash(ctx context.Context) (LatestBlockhash, error) {
	return c.Connection().GetLatestBlockhash(ctx)
}

func (c *Connector) SendTransaction(ctx context.Context, tx *Transaction) (Signature, error) {
	return c.Connection().SendTransaction(ctx, tx)
}

func (c *Connector) GetSignatureStatuses(ctx context.Context, sigs ...Signature) ([]*SignatureStatus, error) {
	return c.Connection().GetSignatureStatuses(ctx, sigs...)
}
