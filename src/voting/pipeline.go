package voting

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/stake-plus/solana-dao-radar/src/solana"
	"github.com/stake-plus/solana-dao-radar/src/splgov"
)

// DefaultAttemptTTL bounds how long a built transaction waits for its
// signature; a blockhash is only accepted for roughly this long.
const DefaultAttemptTTL = 2 * time.Minute

// DefaultSettledTTL is how long a confirmed view is kept locally. Past it,
// reads of the vote go to the chain.
const DefaultSettledTTL = 10 * time.Minute

// Chain is the governance reads a vote needs. *splgov.Client implements it.
type Chain interface {
	GetProposal(ctx context.Context, proposal solana.PublicKey) (*splgov.ProgramAccount[splgov.Proposal], error)
	GetTokenOwnerRecord(ctx context.Context, realm, mint, owner solana.PublicKey) (*splgov.ProgramAccount[splgov.TokenOwnerRecord], error)
	GetVoteRecordFor(ctx context.Context, proposal, tokenOwnerRecord solana.PublicKey) (*splgov.ProgramAccount[splgov.VoteRecord], error)
}

// Network broadcasts transactions. *solana.Client implements it.
type Network interface {
	GetLatestBlockhash(ctx context.Context) (solana.LatestBlockhash, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// Confirmer blocks until a signature lands. *solana.Confirmer implements it.
type Confirmer interface {
	Confirm(ctx context.Context, sig solana.Signature) error
}

// Request is one user's vote on one proposal.
type Request struct {
	RealmID    string          `json:"realmId"`
	ProposalID string          `json:"proposalId"`
	Wallet     string          `json:"wallet"`
	Choice     splgov.VoteKind `json:"choice"`
}

// Attempt is a built, unsigned vote transaction awaiting the wallet.
type Attempt struct {
	ID        string          `json:"id"`
	Message   string          `json:"message"`
	Wallet    string          `json:"wallet"`
	Proposal  string          `json:"proposal"`
	Choice    splgov.VoteKind `json:"choice"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

type pending struct {
	key         pairKey
	choice      splgov.VoteKind
	tx          *solana.Transaction
	voterRecord solana.PublicKey
	expires     time.Time
}

type Pipeline struct {
	chain     Chain
	network   Network
	confirmer Confirmer
	tracker   *Tracker
	programID solana.PublicKey
	clock     clock.Clock
	ttl       time.Duration
	settled   time.Duration

	mu       sync.Mutex
	attempts map[string]*pending
}

type Option func(*Pipeline)

func WithProgramID(id solana.PublicKey) Option {
	return func(p *Pipeline) { p.programID = id }
}

func WithClock(c clock.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

func WithAttemptTTL(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.ttl = d
		}
	}
}

func WithSettledTTL(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.settled = d
		}
	}
}

func WithTracker(t *Tracker) Option {
	return func(p *Pipeline) { p.tracker = t }
}

func NewPipeline(chain Chain, network Network, confirmer Confirmer, opts ...Option) *Pipeline {
	p := &Pipeline{
		chain:     chain,
		network:   network,
		confirmer: confirmer,
		programID: splgov.DefaultProgramID,
		clock:     clock.WallClock,
		ttl:       DefaultAttemptTTL,
		settled:   DefaultSettledTTL,
		attempts:  make(map[string]*pending),
	}
	for _, o := range opts {
		o(p)
	}
	if p.tracker == nil {
		p.tracker = NewTracker()
	}
	return p
}

func (p *Pipeline) Tracker() *Tracker { return p.tracker }

// View returns the local vote view of wallet on proposal.
func (p *Pipeline) View(proposalID, wallet string) (VoteView, error) {
	proposal, err := solana.PublicKeyFromBase58(proposalID)
	if err != nil {
		return VoteView{}, err
	}
	owner, err := solana.PublicKeyFromBase58(wallet)
	if err != nil {
		return VoteView{}, err
	}
	return p.tracker.Get(proposal, owner), nil
}

// Begin records the optimistic vote before any network call, then builds the
// transaction. ErrVoteInFlight and ErrAlreadyVoted are returned as is; every
// other failure rolls the view back and is returned as a *SubmitError.
func (p *Pipeline) Begin(ctx context.Context, req Request) (*Attempt, error) {
	realm, proposal, wallet, err := parseRequest(req)
	if err != nil {
		return nil, Classify(err)
	}
	p.Sweep()

	k := pairKey{proposal: proposal, wallet: wallet}
	if err := p.tracker.begin(k, req.Choice); err != nil {
		return nil, err
	}

	pend, err := p.build(ctx, realm, k, req.Choice)
	if err != nil {
		p.tracker.rollback(k)
		logger.Warningf("vote on %s by %s not built: %v", proposal, wallet, err)
		return nil, Classify(err)
	}

	id := uuid.NewString()
	p.mu.Lock()
	p.attempts[id] = pend
	p.mu.Unlock()

	return &Attempt{
		ID:        id,
		Message:   pend.tx.EncodeMessage(),
		Wallet:    req.Wallet,
		Proposal:  req.ProposalID,
		Choice:    req.Choice,
		ExpiresAt: pend.expires,
	}, nil
}

func parseRequest(req Request) (realm, proposal, wallet solana.PublicKey, err error) {
	if req.Choice != splgov.VoteApprove && req.Choice != splgov.VoteDeny && req.Choice != splgov.VoteAbstain {
		return realm, proposal, wallet, errors.NotValidf("vote choice %s", req.Choice)
	}
	if realm, err = solana.PublicKeyFromBase58(req.RealmID); err != nil {
		return realm, proposal, wallet, errors.Annotate(err, "realm")
	}
	if proposal, err = solana.PublicKeyFromBase58(req.ProposalID); err != nil {
		return realm, proposal, wallet, errors.Annotate(err, "proposal")
	}
	if wallet, err = solana.PublicKeyFromBase58(req.Wallet); err != nil {
		return realm, proposal, wallet, errors.Annotate(err, "wallet")
	}
	return realm, proposal, wallet, nil
}

func (p *Pipeline) build(ctx context.Context, realm solana.PublicKey, k pairKey, choice splgov.VoteKind) (*pending, error) {
	prop, err := p.chain.GetProposal(ctx, k.proposal)
	if err != nil {
		return nil, err
	}
	if !prop.Account.State.IsActive() {
		return nil, errors.NotValidf("proposal %s in state %s", k.proposal, prop.Account.State)
	}
	voter, err := p.chain.GetTokenOwnerRecord(ctx, realm, prop.Account.GoverningTokenMint, k.wallet)
	if err != nil {
		return nil, err
	}
	if voter == nil {
		return nil, errors.NotFoundf("deposit of %s in realm %s", k.wallet, realm)
	}

	ix, err := splgov.CastVoteInstruction(splgov.CastVoteParams{
		ProgramID:             p.programID,
		Realm:                 realm,
		Governance:            prop.Account.Governance,
		Proposal:              k.proposal,
		ProposalOwnerRecord:   prop.Account.TokenOwnerRecord,
		VoterTokenOwnerRecord: voter.Pubkey,
		GovernanceAuthority:   k.wallet,
		GoverningTokenMint:    prop.Account.GoverningTokenMint,
		Payer:                 k.wallet,
	}, choice)
	if err != nil {
		return nil, err
	}
	bh, err := p.network.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, bh.Blockhash, k.wallet)
	if err != nil {
		return nil, err
	}
	return &pending{
		key:         k,
		choice:      choice,
		tx:          tx,
		voterRecord: voter.Pubkey,
		expires:     p.clock.Now().Add(p.ttl),
	}, nil
}

// Complete signs, broadcasts and confirms the attempt, then reconciles the
// view with the chain's vote record. On failure the view is back at Idle.
func (p *Pipeline) Complete(ctx context.Context, attemptID string, signer Signer) (VoteView, error) {
	p.mu.Lock()
	pend, ok := p.attempts[attemptID]
	delete(p.attempts, attemptID)
	p.mu.Unlock()
	if !ok {
		return VoteView{}, errors.NotFoundf("vote attempt %s", attemptID)
	}
	k := pend.key
	if p.clock.Now().After(pend.expires) {
		p.tracker.rollback(k)
		return VoteView{}, errors.NotFoundf("vote attempt %s (expired)", attemptID)
	}
	if !p.tracker.transition(k, Optimistic, Submitting) {
		return VoteView{}, errors.NotFoundf("optimistic vote of %s on %s", k.wallet, k.proposal)
	}

	fail := func(step string, err error) (VoteView, error) {
		p.tracker.rollback(k)
		se := Classify(err)
		logger.Warningf("vote on %s by %s failed at %s: %v", k.proposal, k.wallet, step, err)
		return VoteView{State: Failed, Choice: pend.choice}, se
	}

	if err := signer.Sign(ctx, pend.tx); err != nil {
		return fail("sign", err)
	}
	sig, err := p.network.SendTransaction(ctx, pend.tx)
	if err != nil {
		return fail("send", err)
	}
	if err := p.confirmer.Confirm(ctx, sig); err != nil {
		return fail("confirm", err)
	}

	rec, err := p.chain.GetVoteRecordFor(ctx, k.proposal, pend.voterRecord)
	if err != nil {
		logger.Warningf("vote %s landed but its record could not be read: %v", sig, err)
		rec = nil
	}
	view := p.tracker.confirm(k, p.clock.Now(), sig, rec)
	logger.Infof("vote %s by %s on %s confirmed (%s)", pend.choice, k.wallet, k.proposal, sig)
	return view, nil
}

// Submit runs Begin and Complete back to back with a local signer.
func (p *Pipeline) Submit(ctx context.Context, req Request, signer Signer) (VoteView, error) {
	a, err := p.Begin(ctx, req)
	if err != nil {
		return VoteView{}, err
	}
	return p.Complete(ctx, a.ID, signer)
}

// Sweep drops attempts whose signature never arrived, returning their pairs
// to Idle, and confirmed views older than the settled TTL. It reports both
// counts.
func (p *Pipeline) Sweep() (attempts, settled int) {
	now := p.clock.Now()
	p.mu.Lock()
	var expired []pairKey
	for id, a := range p.attempts {
		if now.After(a.expires) {
			expired = append(expired, a.key)
			delete(p.attempts, id)
		}
	}
	p.mu.Unlock()
	for _, k := range expired {
		if p.tracker.transition(k, Optimistic, Idle) {
			p.tracker.rollback(k)
		}
	}
	return len(expired), p.tracker.expire(now.Add(-p.settled))
}
