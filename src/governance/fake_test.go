package governance

import (
	"context"
	"sync"

	"github.com/juju/errors"

	"github.com/stake-plus/solana-dao-radar/src/registry"
	"github.com/stake-plus/solana-dao-radar/src/solana"
	"github.com/stake-plus/solana-dao-radar/src/splgov"
)

func pk(n byte) solana.PublicKey {
	var k solana.PublicKey
	k[0] = n
	k[31] = 7
	return k
}

func i64p(v int64) *int64 { return &v }

func amt(u uint64) splgov.Amount { return splgov.AmountFromUint64(u) }

func realmAcct(key solana.PublicKey, name string) *Realm {
	return &Realm{Pubkey: key, Account: splgov.Realm{AccountType: splgov.AccountRealmV2, Name: name}}
}

func torAcct(key, realm, owner solana.PublicKey, deposit uint64) TokenOwnerRecord {
	return TokenOwnerRecord{Pubkey: key, Account: splgov.TokenOwnerRecord{
		Realm:                       realm,
		GoverningTokenOwner:         owner,
		GoverningTokenDepositAmount: amt(deposit),
	}}
}

func proposalAcct(key solana.PublicKey, name string, state splgov.ProposalState, draftAt int64, votingAt *int64) Proposal {
	return Proposal{Pubkey: key, Account: splgov.Proposal{
		Name:     name,
		State:    state,
		DraftAt:  draftAt,
		VotingAt: votingAt,
	}}
}

// fakeChain serves governance accounts from maps and records what it was asked.
type fakeChain struct {
	realms       map[solana.PublicKey]*Realm
	realmErr     map[solana.PublicKey]error
	allRealms    []Realm
	records      map[solana.PublicKey][]TokenOwnerRecord
	recordsErr   error
	proposals    map[solana.PublicKey][][]Proposal
	proposalsErr map[solana.PublicKey]error
	byKey        map[solana.PublicKey]*Proposal
	failKeys     map[solana.PublicKey]bool
	deposits     map[[3]solana.PublicKey]*TokenOwnerRecord
	votes        map[[2]solana.PublicKey]*VoteRecord
	voterVotes   []VoteRecord

	mu         sync.Mutex
	batchCalls [][]solana.PublicKey
}

func (f *fakeChain) GetRealm(_ context.Context, key solana.PublicKey) (*Realm, error) {
	if err := f.realmErr[key]; err != nil {
		return nil, err
	}
	r, ok := f.realms[key]
	if !ok {
		return nil, errors.NotFoundf("realm %s", key)
	}
	return r, nil
}

func (f *fakeChain) GetRealms(context.Context) ([]Realm, error) {
	return f.allRealms, nil
}

func (f *fakeChain) GetTokenOwnerRecordsByOwner(_ context.Context, owner solana.PublicKey) ([]TokenOwnerRecord, error) {
	if f.recordsErr != nil {
		return nil, f.recordsErr
	}
	return f.records[owner], nil
}

func (f *fakeChain) GetAllProposals(_ context.Context, realm solana.PublicKey) ([][]Proposal, error) {
	if err := f.proposalsErr[realm]; err != nil {
		return nil, err
	}
	// Hand out copies so sorting by callers cannot disturb the fixture.
	out := make([][]Proposal, len(f.proposals[realm]))
	for i, b := range f.proposals[realm] {
		out[i] = append([]Proposal(nil), b...)
	}
	return out, nil
}

func (f *fakeChain) GetProposal(_ context.Context, key solana.PublicKey) (*Proposal, error) {
	p, ok := f.byKey[key]
	if !ok {
		return nil, errors.NotFoundf("proposal %s", key)
	}
	return p, nil
}

func (f *fakeChain) GetProposals(_ context.Context, keys []solana.PublicKey) ([]*Proposal, error) {
	f.mu.Lock()
	f.batchCalls = append(f.batchCalls, keys)
	f.mu.Unlock()
	out := make([]*Proposal, len(keys))
	for i, k := range keys {
		if f.failKeys[k] {
			return nil, solana.ErrUnavailable
		}
		out[i] = f.byKey[k]
	}
	return out, nil
}

func (f *fakeChain) GetTokenOwnerRecord(_ context.Context, realm, mint, owner solana.PublicKey) (*TokenOwnerRecord, error) {
	return f.deposits[[3]solana.PublicKey{realm, mint, owner}], nil
}

func (f *fakeChain) GetVoteRecordFor(_ context.Context, proposal, tor solana.PublicKey) (*VoteRecord, error) {
	return f.votes[[2]solana.PublicKey{proposal, tor}], nil
}

func (f *fakeChain) GetVoteRecordsByVoter(context.Context, solana.PublicKey) ([]VoteRecord, error) {
	return f.voterVotes, nil
}

type fakeRegistry struct {
	entries map[string]registry.Entry
	err     error
}

func (r fakeRegistry) GetMap(context.Context) (map[string]registry.Entry, error) {
	return r.entries, r.err
}
