// Package voting submits votes with an optimistic local view that is rolled
// back on any failure and reconciled against the chain on success.
package voting

import (
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/stake-plus/solana-dao-radar/src/solana"
	"github.com/stake-plus/solana-dao-radar/src/splgov"
)

var logger = loggo.GetLogger("daoradar.voting")

type State int

const (
	Idle State = iota
	Optimistic
	Submitting
	Confirmed
	// Failed is reported to the caller only; the tracker never stores it.
	Failed
)

var stateNames = [...]string{"idle", "optimistic", "submitting", "confirmed", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

const (
	ErrVoteInFlight = errors.ConstError("vote already in flight")
	ErrAlreadyVoted = errors.ConstError("vote already confirmed")
)

// VoteView is what the wallet sees for one proposal.
type VoteView struct {
	State      State                                     `json:"state"`
	Choice     splgov.VoteKind                           `json:"choice"`
	Optimistic bool                                      `json:"optimistic"`
	Record     *splgov.ProgramAccount[splgov.VoteRecord] `json:"record,omitempty"`
	Signature  string                                    `json:"signature,omitempty"`
}

type pairKey struct {
	proposal solana.PublicKey
	wallet   solana.PublicKey
}

type entry struct {
	view    VoteView
	settled time.Time
}

// Tracker holds the local vote views. An absent pair is Idle.
type Tracker struct {
	mu    sync.Mutex
	views map[pairKey]entry
}

func NewTracker() *Tracker {
	return &Tracker{views: make(map[pairKey]entry)}
}

// Get returns the view of (proposal, wallet); Idle when nothing is recorded.
func (t *Tracker) Get(proposal, wallet solana.PublicKey) VoteView {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.views[pairKey{proposal, wallet}]; ok {
		return e.view
	}
	return VoteView{State: Idle}
}

// begin moves an Idle pair to Optimistic with the chosen vote.
func (t *Tracker) begin(k pairKey, choice splgov.VoteKind) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.views[k]; ok {
		if e.view.State == Confirmed {
			return ErrAlreadyVoted
		}
		return ErrVoteInFlight
	}
	t.views[k] = entry{view: VoteView{State: Optimistic, Choice: choice, Optimistic: true}}
	return nil
}

func (t *Tracker) transition(k pairKey, from, to State) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.views[k]
	if !ok || e.view.State != from {
		return false
	}
	e.view.State = to
	t.views[k] = e
	return true
}

// confirm records a landed vote at now. A nil record keeps the optimistic
// placeholder.
func (t *Tracker) confirm(k pairKey, now time.Time, sig solana.Signature, rec *splgov.ProgramAccount[splgov.VoteRecord]) VoteView {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := t.views[k].view
	v.State = Confirmed
	v.Signature = sig.String()
	if rec != nil {
		v.Record = rec
		v.Optimistic = false
		if rec.Account.Vote.Kind != v.Choice {
			logger.Warningf("vote record %s shows %s, submitted %s", rec.Pubkey, rec.Account.Vote.Kind, v.Choice)
			v.Choice = rec.Account.Vote.Kind
		}
	}
	t.views[k] = entry{view: v, settled: now}
	return v
}

// rollback removes the pair, returning it to Idle.
func (t *Tracker) rollback(k pairKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.views, k)
}

// expire drops confirmed views settled before cutoff, leaving the chain as
// the only source for them. It reports how many were dropped.
func (t *Tracker) expire(cutoff time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for k, e := range t.views {
		if e.view.State == Confirmed && e.settled.Before(cutoff) {
			delete(t.views, k)
			n++
		}
	}
	return n
}

// size reports how many pairs hold a non-Idle view.
func (t *Tracker) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.views)
}
