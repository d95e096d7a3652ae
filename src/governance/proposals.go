package governance

import (
	"cmp"
	"context"
	"slices"

	"github.com/juju/errors"

	"github.com/stake-plus/solana-dao-radar/src/notify"
	"github.com/stake-plus/solana-dao-radar/src/solana"
	"github.com/stake-plus/solana-dao-radar/src/splgov"
	"github.com/stake-plus/solana-dao-radar/src/workers"
)

// SortProposals orders Voting proposals first, then each partition by
// effective timestamp descending. Ties keep their input order.
func SortProposals(ps []Proposal) {
	slices.SortStableFunc(ps, func(x, y Proposal) int {
		xa, ya := x.Account.State.IsActive(), y.Account.State.IsActive()
		if xa != ya {
			if xa {
				return -1
			}
			return 1
		}
		return cmp.Compare(y.Account.EffectiveTimestamp(), x.Account.EffectiveTimestamp())
	})
}

// GetOrganizationProposals drains every proposal batch of the realm and
// returns them sorted. programID may be empty for the default program.
func (a *Aggregator) GetOrganizationProposals(ctx context.Context, realmID, programID string) ([]Proposal, error) {
	realm, err := parseKey("realm", realmID)
	if err != nil {
		return nil, err
	}
	chain, err := a.program(programID)
	if err != nil {
		return nil, errors.Annotate(err, "program")
	}
	batches, err := chain.GetAllProposals(ctx, realm)
	if err != nil {
		return nil, err
	}
	var all []Proposal
	for _, b := range batches {
		all = append(all, b...)
	}
	SortProposals(all)
	return all, nil
}

// Tally is a proposal's vote weights as display numbers.
type Tally struct {
	Yes            float64 `json:"yes"`
	No             float64 `json:"no"`
	Abstain        float64 `json:"abstain"`
	YesPercent     float64 `json:"yesPercent"`
	NoPercent      float64 `json:"noPercent"`
	AbstainPercent float64 `json:"abstainPercent"`
}

func tallyOf(p *splgov.Proposal) Tally {
	t := Tally{Yes: SafeToNumber(p.YesVotes()), No: SafeToNumber(p.NoVotes())}
	if p.AbstainVoteWeight != nil {
		t.Abstain = SafeToNumber(*p.AbstainVoteWeight)
	}
	if total := t.Yes + t.No + t.Abstain; total > 0 {
		t.YesPercent = t.Yes / total * 100
		t.NoPercent = t.No / total * 100
		t.AbstainPercent = t.Abstain / total * 100
	}
	return t
}

// ProposalDetail is a single proposal prepared for display.
type ProposalDetail struct {
	Proposal
	StateLabel string `json:"stateLabel"`
	Active     bool   `json:"active"`
	Terminal   bool   `json:"terminal"`
	Timestamp  int64  `json:"timestamp"`
	Tally      Tally  `json:"tally"`
}

// GetProposal loads one proposal. An unknown proposal is NotFound.
func (a *Aggregator) GetProposal(ctx context.Context, proposalID string) (*ProposalDetail, error) {
	pk, err := parseKey("proposal", proposalID)
	if err != nil {
		return nil, err
	}
	p, err := a.chain.GetProposal(ctx, pk)
	if err != nil {
		return nil, err
	}
	return &ProposalDetail{
		Proposal:   *p,
		StateLabel: DisplayLabel(p.Account.State),
		Active:     p.Account.State.IsActive(),
		Terminal:   p.Account.State.IsTerminal(),
		Timestamp:  p.Account.EffectiveTimestamp(),
		Tally:      tallyOf(&p.Account),
	}, nil
}

// GetVoterRecord finds wallet's deposit record for (realm, mint). No
// deposit is reported as nil, nil.
func (a *Aggregator) GetVoterRecord(ctx context.Context, realmID, mintID, wallet string) (*TokenOwnerRecord, error) {
	realm, err := parseKey("realm", realmID)
	if err != nil {
		return nil, err
	}
	mint, err := parseKey("mint", mintID)
	if err != nil {
		return nil, err
	}
	owner, err := parseKey("wallet", wallet)
	if err != nil {
		return nil, err
	}
	return a.chain.GetTokenOwnerRecord(ctx, realm, mint, owner)
}

// GetVoteRecordFor returns the vote cast by a deposit record on a proposal, or nil.
func (a *Aggregator) GetVoteRecordFor(ctx context.Context, proposalID, voterRecordID string) (*VoteRecord, error) {
	proposal, err := parseKey("proposal", proposalID)
	if err != nil {
		return nil, err
	}
	tor, err := parseKey("token owner record", voterRecordID)
	if err != nil {
		return nil, err
	}
	return a.chain.GetVoteRecordFor(ctx, proposal, tor)
}

// VoteHistoryItem pairs a cast vote with its proposal when that could be loaded.
type VoteHistoryItem struct {
	VoteRecord VoteRecord `json:"voteRecord"`
	Proposal   *Proposal  `json:"proposal,omitempty"`
}

const DefaultHistoryLimit = 20

// GetUserVoteHistory returns up to limit of wallet's votes. Proposals are
// fetched in small batches; a failed batch leaves those items without one.
func (a *Aggregator) GetUserVoteHistory(ctx context.Context, wallet string, limit int) ([]VoteHistoryItem, error) {
	voter, err := parseKey("wallet", wallet)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	records, err := a.chain.GetVoteRecordsByVoter(ctx, voter)
	if err != nil {
		return nil, errors.Annotatef(err, "vote records of %s", wallet)
	}
	if len(records) > limit {
		records = records[:limit]
	}

	items := make([]VoteHistoryItem, len(records))
	var chunks [][]int
	for i := range records {
		items[i].VoteRecord = records[i]
		if i%historyBatch == 0 {
			chunks = append(chunks, nil)
		}
		chunks[len(chunks)-1] = append(chunks[len(chunks)-1], i)
	}

	results := workers.Run(ctx, chunks, func(ctx context.Context, idx []int) ([]*Proposal, error) {
		keys := make([]solana.PublicKey, len(idx))
		for j, i := range idx {
			keys[j] = records[i].Account.Proposal
		}
		return a.chain.GetProposals(ctx, keys)
	}, a.concurrency)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for c, r := range results {
		if r.Err != nil {
			logger.Warningf("vote history proposals for %s: %v", wallet, r.Err)
			continue
		}
		for j, i := range chunks[c] {
			if j < len(r.Value) {
				items[i].Proposal = r.Value[j]
			}
		}
	}
	return items, nil
}

// ActiveProposalAlerts flattens the Voting proposals of every realm wallet
// participates in, ready for the seen-set diff.
func (a *Aggregator) ActiveProposalAlerts(ctx context.Context, wallet string) ([]notify.Alert, error) {
	views, err := a.userOrganizations(ctx, wallet)
	if err != nil {
		return nil, err
	}
	var alerts []notify.Alert
	for _, v := range views {
		for _, p := range v.active {
			alerts = append(alerts, notify.Alert{
				ProposalID:   p.Pubkey.String(),
				ProposalName: p.Account.Name,
				DAOName:      v.Name,
				RealmID:      v.RealmID,
			})
		}
	}
	return alerts, nil
}
