// Package rpcproxy forwards a fixed set of JSON-RPC methods from browsers to
// the ledger node, with a token bucket per client address.
package rpcproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/stake-plus/solana-dao-radar/src/webclient"
)

var logger = loggo.GetLogger("daoradar.rpcproxy")

const (
	// MaxBody bounds an inbound request.
	MaxBody         = 1 << 20
	upstreamTimeout = 15 * time.Second
)

// AllowedMethods are the reads and writes the web client needs for governance.
var AllowedMethods = []string{
	"getAccountInfo",
	"getMultipleAccounts",
	"getProgramAccounts",
	"getLatestBlockhash",
	"sendTransaction",
	"getSignatureStatuses",
	"getTransaction",
	"getBalance",
	"getSlot",
}

// Response is what the proxy hands back to its HTTP layer.
type Response struct {
	Status int
	Body   []byte
}

func errorResponse(status int, msg string) Response {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return Response{Status: status, Body: b}
}

type Proxy struct {
	upstream string
	client   *http.Client
	limiter  *Limiter
	allowed  map[string]struct{}
}

func New(upstream string, limiter *Limiter, client *http.Client) *Proxy {
	if client == nil {
		client = webclient.NewDefault(upstreamTimeout)
	}
	if limiter == nil {
		limiter = NewLimiter(DefaultCapacity, DefaultRefill, nil)
	}
	allowed := make(map[string]struct{}, len(AllowedMethods))
	for _, m := range AllowedMethods {
		allowed[m] = struct{}{}
	}
	return &Proxy{upstream: upstream, client: client, limiter: limiter, allowed: allowed}
}

func (p *Proxy) Limiter() *Limiter { return p.limiter }

// Forward applies the rate limit and allowlist, then relays body unchanged.
func (p *Proxy) Forward(ctx context.Context, clientKey string, body []byte) Response {
	if clientKey == "" {
		clientKey = "unknown"
	}
	if !p.limiter.Allow(clientKey) {
		return errorResponse(http.StatusTooManyRequests, "Too many requests")
	}

	var req struct {
		Method any `json:"method"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return errorResponse(http.StatusBadRequest, "Invalid RPC request")
	}
	method, ok := req.Method.(string)
	if !ok || method == "" {
		return errorResponse(http.StatusBadRequest, "Invalid RPC request")
	}
	if _, ok := p.allowed[method]; !ok {
		return errorResponse(http.StatusForbidden, fmt.Sprintf("Method not allowed: %s", method))
	}

	status, out, err := p.relay(ctx, body)
	if err != nil {
		logger.Warningf("relay %s: %v", method, err)
		return errorResponse(http.StatusBadGateway, "RPC request failed")
	}
	return Response{Status: status, Body: out}
}

// relay treats anything other than a JSON body from a non-5xx reply as an upstream failure.
func (p *Proxy) relay(ctx context.Context, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.upstream, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return 0, nil, err
	}
	if resp.StatusCode >= 500 {
		return 0, nil, errors.Errorf("upstream status %d", resp.StatusCode)
	}
	if !json.Valid(out) {
		return 0, nil, errors.Errorf("upstream returned non-JSON (status %d)", resp.StatusCode)
	}
	return resp.StatusCode, out, nil
}
