package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/mr-tron/base58"

	"github.com/stake-plus/solana-dao-radar/src/logging"
	"github.com/stake-plus/solana-dao-radar/src/webclient"
)

var logger = loggo.GetLogger("daoradar.solana")

const (
	defaultTimeout  = 10 * time.Second
	defaultAttempts = 3
	commitment      = "confirmed"
)

// ---------- tiny JSON-RPC helpers ----------

type rpcReq struct {
	Jsonrpc string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResp struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// Client talks JSON-RPC to one ledger endpoint. Every call is bounded by the
// client timeout; 429/5xx responses are retried with backoff before the
// failure is surfaced as ErrRateLimited or ErrUnavailable.
type Client struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	attempts   int
	retryDelay time.Duration
	nextID     atomic.Uint64
}

// ClientOption customises a Client.
type ClientOption func(*Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithAttempts(n int, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.attempts = n
		c.retryDelay = delay
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient builds a client for endpoint.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   endpoint,
		timeout:    defaultTimeout,
		attempts:   defaultAttempts,
		retryDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = webclient.NewDefault(c.timeout + time.Second)
	}
	return c
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	payload, err := json.Marshal(rpcReq{
		Jsonrpc: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return errors.Annotatef(err, "encode %s", method)
	}

	status, body, err := webclient.DoWithRetry(ctx, c.attempts, c.retryDelay, func() (int, []byte, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return 0, nil, err
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp.StatusCode, nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, b, fmt.Errorf("status %d", resp.StatusCode)
		}
		return resp.StatusCode, b, nil
	})
	if err != nil {
		return classifyTransport(method, status, err)
	}

	var rsp rpcResp
	if err := json.Unmarshal(body, &rsp); err != nil {
		return errors.Annotatef(ErrUnavailable, "%s: malformed response: %v", method, err)
	}
	if rsp.Error != nil {
		if rsp.Error.Code == 429 || rsp.Error.Code == -32429 || logging.IsRateLimit(rsp.Error) {
			return errors.Annotatef(ErrRateLimited, "%s: %s", method, rsp.Error.Message)
		}
		return errors.Annotate(rsp.Error, method)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rsp.Result, out); err != nil {
		return errors.Annotatef(err, "decode %s result", method)
	}
	return nil
}

func classifyTransport(method string, status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return errors.Annotatef(ErrRateLimited, "%s", method)
	case errors.Is(err, context.DeadlineExceeded):
		return errors.Annotatef(ErrTimeout, "%s", method)
	case errors.Is(err, context.Canceled):
		return err
	case status >= 400 && status < 500:
		return errors.Annotatef(err, "%s: rejected", method)
	default:
		logger.Debugf("%s transport failure (status %d): %v", method, status, err)
		return errors.Annotatef(ErrUnavailable, "%s: %v", method, err)
	}
}

// ---------- accounts ----------

// Account is decoded account state.
type Account struct {
	Lamports   uint64
	Owner      PublicKey
	Data       []byte
	Executable bool
}

// KeyedAccount pairs an account with its address.
type KeyedAccount struct {
	Pubkey  PublicKey
	Account Account
}

type rpcAccount struct {
	Lamports   uint64    `json:"lamports"`
	Owner      PublicKey `json:"owner"`
	Data       []string  `json:"data"`
	Executable bool      `json:"executable"`
}

func (a rpcAccount) decode() (Account, error) {
	acc := Account{Lamports: a.Lamports, Owner: a.Owner, Executable: a.Executable}
	if len(a.Data) == 0 {
		return acc, nil
	}
	if len(a.Data) > 1 && a.Data[1] != "base64" {
		return acc, errors.Errorf("unexpected account encoding %q", a.Data[1])
	}
	raw, err := base64.StdEncoding.DecodeString(a.Data[0])
	if err != nil {
		return acc, errors.Annotate(err, "account data")
	}
	acc.Data = raw
	return acc, nil
}

// Filter is a getProgramAccounts filter: exactly one of Memcmp or DataSize is set.
type Filter struct {
	Memcmp   *Memcmp
	DataSize uint64
}

// Memcmp matches Bytes at Offset of the account data.
type Memcmp struct {
	Offset uint64
	Bytes  []byte
}

// MemcmpFilter is a convenience constructor.
func MemcmpFilter(offset uint64, b []byte) Filter {
	return Filter{Memcmp: &Memcmp{Offset: offset, Bytes: b}}
}

func (f Filter) MarshalJSON() ([]byte, error) {
	if f.Memcmp != nil {
		return json.Marshal(map[string]interface{}{
			"memcmp": map[string]interface{}{
				"offset": f.Memcmp.Offset,
				"bytes":  base58.Encode(f.Memcmp.Bytes),
			},
		})
	}
	return json.Marshal(map[string]interface{}{"dataSize": f.DataSize})
}

// GetAccountInfo returns the account at pk, or nil when it does not exist.
func (c *Client) GetAccountInfo(ctx context.Context, pk PublicKey) (*Account, error) {
	var res struct {
		Value *rpcAccount `json:"value"`
	}
	params := []interface{}{pk.String(), map[string]string{"encoding": "base64", "commitment": commitment}}
	if err := c.call(ctx, "getAccountInfo", params, &res); err != nil {
		return nil, err
	}
	if res.Value == nil {
		return nil, nil
	}
	acc, err := res.Value.decode()
	if err != nil {
		return nil, errors.Annotatef(err, "account %s", pk)
	}
	return &acc, nil
}

// GetMultipleAccounts returns accounts in key order; missing accounts are nil.
func (c *Client) GetMultipleAccounts(ctx context.Context, keys []PublicKey) ([]*Account, error) {
	addrs := make([]string, len(keys))
	for i, k := range keys {
		addrs[i] = k.String()
	}
	var res struct {
		Value []*rpcAccount `json:"value"`
	}
	params := []interface{}{addrs, map[string]string{"encoding": "base64", "commitment": commitment}}
	if err := c.call(ctx, "getMultipleAccounts", params, &res); err != nil {
		return nil, err
	}
	out := make([]*Account, len(res.Value))
	for i, v := range res.Value {
		if v == nil {
			continue
		}
		acc, err := v.decode()
		if err != nil {
			return nil, errors.Annotatef(err, "account %s", keys[i])
		}
		out[i] = &acc
	}
	return out, nil
}

// GetProgramAccounts lists accounts owned by programID that match every filter.
func (c *Client) GetProgramAccounts(ctx context.Context, programID PublicKey, filters ...Filter) ([]KeyedAccount, error) {
	cfg := map[string]interface{}{"encoding": "base64", "commitment": commitment}
	if len(filters) > 0 {
		cfg["filters"] = filters
	}
	var res []struct {
		Pubkey  PublicKey  `json:"pubkey"`
		Account rpcAccount `json:"account"`
	}
	if err := c.call(ctx, "getProgramAccounts", []interface{}{programID.String(), cfg}, &res); err != nil {
		return nil, err
	}
	out := make([]KeyedAccount, 0, len(res))
	for _, r := range res {
		acc, err := r.Account.decode()
		if err != nil {
			return nil, errors.Annotatef(err, "account %s", r.Pubkey)
		}
		out = append(out, KeyedAccount{Pubkey: r.Pubkey, Account: acc})
	}
	return out, nil
}

// ---------- transactions ----------

// LatestBlockhash is a recent blockhash and the last block height it is valid for.
type LatestBlockhash struct {
	Blockhash            Hash
	LastValidBlockHeight uint64
}

func (c *Client) GetLatestBlockhash(ctx context.Context) (LatestBlockhash, error) {
	var res struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getLatestBlockhash", []interface{}{map[string]string{"commitment": commitment}}, &res); err != nil {
		return LatestBlockhash{}, err
	}
	h, err := HashFromBase58(res.Value.Blockhash)
	if err != nil {
		return LatestBlockhash{}, err
	}
	return LatestBlockhash{Blockhash: h, LastValidBlockHeight: res.Value.LastValidBlockHeight}, nil
}

// SendTransaction broadcasts a fully signed transaction and returns its signature.
func (c *Client) SendTransaction(ctx context.Context, tx *Transaction) (Signature, error) {
	wire, err := tx.Serialize()
	if err != nil {
		return Signature{}, err
	}
	params := []interface{}{
		base64.StdEncoding.EncodeToString(wire),
		map[string]string{"encoding": "base64", "preflightCommitment": commitment},
	}
	var sigStr string
	if err := c.call(ctx, "sendTransaction", params, &sigStr); err != nil {
		return Signature{}, err
	}
	return SignatureFromBase58(sigStr)
}

// SignatureStatus mirrors one entry of getSignatureStatuses.
type SignatureStatus struct {
	Slot               uint64          `json:"slot"`
	Confirmations      *uint64         `json:"confirmations"`
	Err                json.RawMessage `json:"err"`
	ConfirmationStatus string          `json:"confirmationStatus"`
}

// Failed reports whether the transaction landed with an execution error.
func (s *SignatureStatus) Failed() bool {
	return len(s.Err) > 0 && string(s.Err) != "null"
}

// Confirmed reports whether the status has reached confirmed commitment.
func (s *SignatureStatus) Confirmed() bool {
	return s.ConfirmationStatus == "confirmed" || s.ConfirmationStatus == "finalized"
}

// GetSignatureStatuses returns one status per signature; unknown signatures are nil.
func (c *Client) GetSignatureStatuses(ctx context.Context, sigs ...Signature) ([]*SignatureStatus, error) {
	strs := make([]string, len(sigs))
	for i, s := range sigs {
		strs[i] = s.String()
	}
	var res struct {
		Value []*SignatureStatus `json:"value"`
	}
	params := []interface{}{strs, map[string]bool{"searchTransactionHistory": false}}
	if err := c.call(ctx, "getSignatureStatuses", params, &res); err != nil {
		return nil, err
	}
	return res.Value, nil
}

func (c *Client) GetSlot(ctx context.Context) (uint64, error) {
	var slot uint64
	err := c.call(ctx, "getSlot", []interface{}{map[string]string{"commitment": commitment}}, &slot)
	return slot, err
}
