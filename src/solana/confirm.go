package solana

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/juju/clock"
	"github.com/juju/errors"
)

const (
	defaultConfirmTimeout = 60 * time.Second
	defaultPollInterval   = 2 * time.Second
)

// StatusSource is the slice of the RPC client the confirmer polls.
type StatusSource interface {
	GetSignatureStatuses(ctx context.Context, sigs ...Signature) ([]*SignatureStatus, error)
}

// Confirmer blocks until a signature reaches confirmed commitment. It
// subscribes over websocket when a ws endpoint is configured and polls
// getSignatureStatuses otherwise (or when the subscription cannot be opened).
type Confirmer struct {
	statuses     StatusSource
	wsURL        string
	timeout      time.Duration
	pollInterval time.Duration
	clock        clock.Clock
}

// ConfirmerConfig tunes a Confirmer; zero values take defaults.
type ConfirmerConfig struct {
	WebsocketURL string
	Timeout      time.Duration
	PollInterval time.Duration
	Clock        clock.Clock
}

func NewConfirmer(statuses StatusSource, cfg ConfirmerConfig) *Confirmer {
	c := &Confirmer{
		statuses:     statuses,
		wsURL:        cfg.WebsocketURL,
		timeout:      cfg.Timeout,
		pollInterval: cfg.PollInterval,
		clock:        cfg.Clock,
	}
	if c.timeout <= 0 {
		c.timeout = defaultConfirmTimeout
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollInterval
	}
	if c.clock == nil {
		c.clock = clock.WallClock
	}
	return c
}

// Confirm waits for sig. Execution failures come back as *TransactionError,
// running out of time as ErrTimeout.
func (c *Confirmer) Confirm(ctx context.Context, sig Signature) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.wsURL != "" {
		err := c.subscribe(ctx, sig)
		if err == nil || !errors.Is(err, errSubscribe) {
			return mapDeadline(err, sig)
		}
		logger.Debugf("signature subscription unavailable, polling: %v", err)
	}
	return mapDeadline(c.poll(ctx, sig), sig)
}

func mapDeadline(err error, sig Signature) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Annotatef(ErrTimeout, "confirm %s", sig)
	}
	return err
}

// check returns done=true once the status is final one way or the other.
func check(st *SignatureStatus, sig Signature) (bool, error) {
	if st == nil {
		return false, nil
	}
	if st.Failed() {
		return true, &TransactionError{Signature: sig, Detail: string(st.Err)}
	}
	return st.Confirmed(), nil
}

func (c *Confirmer) poll(ctx context.Context, sig Signature) error {
	for {
		statuses, err := c.statuses.GetSignatureStatuses(ctx, sig)
		switch {
		case err == nil && len(statuses) > 0:
			if done, err := check(statuses[0], sig); done {
				return err
			}
		case err != nil && !IsTransient(err):
			return err
		case err != nil:
			logger.Debugf("status poll for %s: %v", sig, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(c.pollInterval):
		}
	}
}

const errSubscribe = errors.ConstError("signature subscription failed")

type wsNotification struct {
	ID     *uint64         `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
	Method string          `json:"method"`
	Params struct {
		Result struct {
			Value struct {
				Err json.RawMessage `json:"err"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

func (c *Confirmer) subscribe(ctx context.Context, sig Signature) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return errors.Annotatef(errSubscribe, "dial: %v", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	req := rpcReq{
		Jsonrpc: "2.0",
		ID:      1,
		Method:  "signatureSubscribe",
		Params:  []interface{}{sig.String(), map[string]string{"commitment": commitment}},
	}
	if err := conn.WriteJSON(req); err != nil {
		return errors.Annotatef(errSubscribe, "write: %v", err)
	}

	subscribed := false
	for {
		var msg wsNotification
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !subscribed {
				return errors.Annotatef(errSubscribe, "read: %v", err)
			}
			// Subscription dropped mid-wait; finish by polling.
			return c.poll(ctx, sig)
		}
		if msg.Error != nil {
			return errors.Annotatef(errSubscribe, "%v", msg.Error)
		}
		if msg.ID != nil && !subscribed {
			subscribed = true
			// The signature may have landed before the subscription existed.
			if statuses, err := c.statuses.GetSignatureStatuses(ctx, sig); err == nil && len(statuses) > 0 {
				if done, err := check(statuses[0], sig); done {
					return err
				}
			}
			continue
		}
		if msg.Method == "signatureNotification" {
			errRaw := msg.Params.Result.Value.Err
			if len(errRaw) > 0 && string(errRaw) != "null" {
				return &TransactionError{Signature: sig, Detail: string(errRaw)}
			}
			return nil
		}
	}
}
