package splgov

import (
	"github.com/juju/errors"

	"github.com/stake-plus/solana-dao-radar/src/solana"
)

// AccountType is the leading discriminator byte of every governance account.
type AccountType uint8

const (
	AccountUninitialized       AccountType = 0
	AccountRealmV1             AccountType = 1
	AccountTokenOwnerRecordV1  AccountType = 2
	AccountGovernanceV1        AccountType = 3
	AccountProgramGovernanceV1 AccountType = 4
	AccountProposalV1          AccountType = 5
	AccountSignatoryRecordV1   AccountType = 6
	AccountVoteRecordV1        AccountType = 7
	AccountMintGovernanceV1    AccountType = 9
	AccountTokenGovernanceV1   AccountType = 10
	AccountRealmConfig         AccountType = 11
	AccountVoteRecordV2        AccountType = 12
	AccountProposalV2          AccountType = 14
	AccountRealmV2             AccountType = 16
	AccountTokenOwnerRecordV2  AccountType = 17
	AccountGovernanceV2        AccountType = 18
	AccountProgramGovernanceV2 AccountType = 19
	AccountMintGovernanceV2    AccountType = 20
	AccountTokenGovernanceV2   AccountType = 21
)

var (
	realmTypes            = []AccountType{AccountRealmV1, AccountRealmV2}
	tokenOwnerRecordTypes = []AccountType{AccountTokenOwnerRecordV1, AccountTokenOwnerRecordV2}
	governanceTypes       = []AccountType{
		AccountGovernanceV1, AccountProgramGovernanceV1, AccountMintGovernanceV1, AccountTokenGovernanceV1,
		AccountGovernanceV2, AccountProgramGovernanceV2, AccountMintGovernanceV2, AccountTokenGovernanceV2,
	}
	proposalTypes   = []AccountType{AccountProposalV1, AccountProposalV2}
	voteRecordTypes = []AccountType{AccountVoteRecordV1, AccountVoteRecordV2}
)

func typeIn(t AccountType, set []AccountType) bool {
	for _, s := range set {
		if s == t {
			return true
		}
	}
	return false
}

// ProposalState is the lifecycle position of a proposal.
type ProposalState uint8

const (
	ProposalDraft ProposalState = iota
	ProposalSigningOff
	ProposalVoting
	ProposalSucceeded
	ProposalExecuting
	ProposalCompleted
	ProposalCancelled
	ProposalDefeated
	ProposalExecutingWithErrors
	ProposalVetoed
)

var proposalStateLabels = [...]string{
	"Draft", "SigningOff", "Voting", "Succeeded", "Executing",
	"Completed", "Cancelled", "Defeated", "ExecutingWithErrors", "Vetoed",
}

func (s ProposalState) Label() string {
	if int(s) < len(proposalStateLabels) {
		return proposalStateLabels[s]
	}
	return "Unknown"
}

func (s ProposalState) String() string { return s.Label() }

// IsTerminal reports states a proposal never leaves.
func (s ProposalState) IsTerminal() bool {
	switch s {
	case ProposalCompleted, ProposalCancelled, ProposalDefeated, ProposalVetoed:
		return true
	}
	return false
}

// IsActive is true only for Voting, the one vote-eligible state.
func (s ProposalState) IsActive() bool { return s == ProposalVoting }

func (s ProposalState) MarshalText() ([]byte, error) { return []byte(s.Label()), nil }

func (s *ProposalState) UnmarshalText(b []byte) error {
	for i, l := range proposalStateLabels {
		if l == string(b) {
			*s = ProposalState(i)
			return nil
		}
	}
	return errors.NotValidf("proposal state %q", string(b))
}

// VoteKind is the top-level choice of a vote.
type VoteKind uint8

const (
	VoteApprove VoteKind = iota
	VoteDeny
	VoteAbstain
	VoteVeto
)

var voteKindLabels = [...]string{"approve", "deny", "abstain", "veto"}

func (k VoteKind) String() string {
	if int(k) < len(voteKindLabels) {
		return voteKindLabels[k]
	}
	return "unknown"
}

func (k VoteKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *VoteKind) UnmarshalText(b []byte) error {
	for i, l := range voteKindLabels {
		if l == string(b) {
			*k = VoteKind(i)
			return nil
		}
	}
	return errors.NotValidf("vote kind %q", string(b))
}

// ProgramAccount pairs a decoded account with its address.
type ProgramAccount[T any] struct {
	Pubkey  solana.PublicKey `json:"pubkey"`
	Account T                `json:"account"`
}

type Realm struct {
	AccountType                   AccountType       `json:"accountType"`
	CommunityMint                 solana.PublicKey  `json:"communityMint"`
	CouncilMint                   *solana.PublicKey `json:"councilMint,omitempty"`
	MinCommunityWeightToCreateGov Amount            `json:"minCommunityWeightToCreateGovernance"`
	VotingProposalCount           uint16            `json:"votingProposalCount"`
	Authority                     *solana.PublicKey `json:"authority,omitempty"`
	Name                          string            `json:"name"`
}

// TokenOwnerRecord is a wallet's deposit of one governing mint in one realm.
type TokenOwnerRecord struct {
	AccountType                 AccountType       `json:"accountType"`
	Realm                       solana.PublicKey  `json:"realm"`
	GoverningTokenMint          solana.PublicKey  `json:"governingTokenMint"`
	GoverningTokenOwner         solana.PublicKey  `json:"governingTokenOwner"`
	GoverningTokenDepositAmount Amount            `json:"governingTokenDepositAmount"`
	OutstandingProposalCount    uint8             `json:"outstandingProposalCount"`
	GovernanceDelegate          *solana.PublicKey `json:"governanceDelegate,omitempty"`
}

type Governance struct {
	AccountType     AccountType      `json:"accountType"`
	Realm           solana.PublicKey `json:"realm"`
	GovernedAccount solana.PublicKey `json:"governedAccount"`
}

type ProposalOption struct {
	Label      string `json:"label"`
	VoteWeight Amount `json:"voteWeight"`
}

type Proposal struct {
	AccountType        AccountType      `json:"accountType"`
	Governance         solana.PublicKey `json:"governance"`
	GoverningTokenMint solana.PublicKey `json:"governingTokenMint"`
	State              ProposalState    `json:"state"`
	TokenOwnerRecord   solana.PublicKey `json:"tokenOwnerRecord"`
	Options            []ProposalOption `json:"options"`
	DenyVoteWeight     *Amount          `json:"denyVoteWeight,omitempty"`
	AbstainVoteWeight  *Amount          `json:"abstainVoteWeight,omitempty"`
	VetoVoteWeight     Amount           `json:"vetoVoteWeight"`
	DraftAt            int64            `json:"draftAt"`
	StartVotingAt      *int64           `json:"startVotingAt,omitempty"`
	SigningOffAt       *int64           `json:"signingOffAt,omitempty"`
	VotingAt           *int64           `json:"votingAt,omitempty"`
	VotingCompletedAt  *int64           `json:"votingCompletedAt,omitempty"`
	ExecutingAt        *int64           `json:"executingAt,omitempty"`
	ClosedAt           *int64           `json:"closedAt,omitempty"`
	MaxVoteWeight      *Amount          `json:"maxVoteWeight,omitempty"`
	MaxVotingTime      *uint32          `json:"maxVotingTime,omitempty"`
	Name               string           `json:"name"`
	DescriptionLink    string           `json:"descriptionLink"`
}

// EffectiveTimestamp is the voting start when known, else the draft time.
func (p *Proposal) EffectiveTimestamp() int64 {
	if p.VotingAt != nil && *p.VotingAt != 0 {
		return *p.VotingAt
	}
	return p.DraftAt
}

// YesVotes is the weight of the first option, the approve side of a
// single-choice proposal. Zero when there are no options.
func (p *Proposal) YesVotes() Amount {
	if len(p.Options) == 0 {
		return Amount{}
	}
	return p.Options[0].VoteWeight
}

// NoVotes is the deny tally, zero when the proposal has none.
func (p *Proposal) NoVotes() Amount {
	if p.DenyVoteWeight == nil {
		return Amount{}
	}
	return *p.DenyVoteWeight
}

type VoteChoice struct {
	Rank             uint8 `json:"rank"`
	WeightPercentage uint8 `json:"weightPercentage"`
}

type Vote struct {
	Kind    VoteKind     `json:"kind"`
	Choices []VoteChoice `json:"choices,omitempty"`
}

type VoteRecord struct {
	AccountType         AccountType      `json:"accountType"`
	Proposal            solana.PublicKey `json:"proposal"`
	GoverningTokenOwner solana.PublicKey `json:"governingTokenOwner"`
	IsRelinquished      bool             `json:"isRelinquished"`
	VoterWeight         Amount           `json:"voterWeight"`
	Vote                Vote             `json:"vote"`
}

func checkType(data []byte, kind string, allowed []AccountType) (AccountType, error) {
	if len(data) == 0 {
		return 0, errors.NotValidf("empty %s account", kind)
	}
	t := AccountType(data[0])
	if !typeIn(t, allowed) {
		return t, errors.NotValidf("%s account type %d", kind, t)
	}
	return t, nil
}

func finish(r *reader, kind string) error {
	if r.err != nil {
		return errors.Annotatef(r.err, "decode %s", kind)
	}
	return nil
}

// DecodeRealm reads a V1 or V2 realm. Both share the prefix this service uses.
func DecodeRealm(data []byte) (*Realm, error) {
	t, err := checkType(data, "realm", realmTypes)
	if err != nil {
		return nil, err
	}
	r := newReader(data)
	r.skip(1)
	realm := &Realm{AccountType: t, CommunityMint: r.pubkey()}
	r.skip(2 + 6)
	realm.MinCommunityWeightToCreateGov = r.amount()
	r.skip(1 + 8) // max voter weight source
	realm.CouncilMint = r.optPubkey()
	r.skip(6)
	realm.VotingProposalCount = r.u16()
	realm.Authority = r.optPubkey()
	realm.Name = r.str()
	return realm, finish(r, "realm")
}

func DecodeTokenOwnerRecord(data []byte) (*TokenOwnerRecord, error) {
	t, err := checkType(data, "token owner record", tokenOwnerRecordTypes)
	if err != nil {
		return nil, err
	}
	r := newReader(data)
	r.skip(1)
	rec := &TokenOwnerRecord{
		AccountType:                 t,
		Realm:                       r.pubkey(),
		GoverningTokenMint:          r.pubkey(),
		GoverningTokenOwner:         r.pubkey(),
		GoverningTokenDepositAmount: r.amount(),
	}
	r.skip(8) // vote counters
	rec.OutstandingProposalCount = r.u8()
	r.skip(7)
	rec.GovernanceDelegate = r.optPubkey()
	return rec, finish(r, "token owner record")
}

func DecodeGovernance(data []byte) (*Governance, error) {
	t, err := checkType(data, "governance", governanceTypes)
	if err != nil {
		return nil, err
	}
	r := newReader(data)
	r.skip(1)
	g := &Governance{AccountType: t, Realm: r.pubkey(), GovernedAccount: r.pubkey()}
	return g, finish(r, "governance")
}

func DecodeProposal(data []byte) (*Proposal, error) {
	t, err := checkType(data, "proposal", proposalTypes)
	if err != nil {
		return nil, err
	}
	r := newReader(data)
	r.skip(1)
	p := &Proposal{
		AccountType:        t,
		Governance:         r.pubkey(),
		GoverningTokenMint: r.pubkey(),
		State:              ProposalState(r.u8()),
		TokenOwnerRecord:   r.pubkey(),
	}
	r.skip(2) // signatories
	if t == AccountProposalV1 {
		decodeProposalV1(r, p)
	} else {
		decodeProposalV2(r, p)
	}
	return p, finish(r, "proposal")
}

func decodeProposalV1(r *reader, p *Proposal) {
	p.Options = []ProposalOption{{Label: "Yes", VoteWeight: r.amount()}}
	no := r.amount()
	p.DenyVoteWeight = &no
	r.skip(6) // instruction counters
	p.DraftAt = r.i64()
	p.SigningOffAt = r.optI64()
	p.VotingAt = r.optI64()
	r.optU64() // voting_at_slot
	p.VotingCompletedAt = r.optI64()
	p.ExecutingAt = r.optI64()
	p.ClosedAt = r.optI64()
	r.skip(1) // execution flags
	p.MaxVoteWeight = r.optAmount()
	if r.some() {
		r.skip(2) // vote threshold
	}
	p.Name = r.str()
	p.DescriptionLink = r.str()
}

func decodeProposalV2(r *reader, p *Proposal) {
	if r.u8() == 1 { // multi choice
		r.skip(4)
	}
	n := r.u32()
	if int(n) > len(r.buf) {
		r.err = errors.NotValidf("proposal option count %d", n)
		return
	}
	p.Options = make([]ProposalOption, 0, n)
	for i := uint32(0); i < n && r.err == nil; i++ {
		opt := ProposalOption{Label: r.str(), VoteWeight: r.amount()}
		r.skip(1 + 6) // vote result, transaction counters
		p.Options = append(p.Options, opt)
	}
	p.DenyVoteWeight = r.optAmount()
	r.skip(1)
	p.AbstainVoteWeight = r.optAmount()
	p.StartVotingAt = r.optI64()
	p.DraftAt = r.i64()
	p.SigningOffAt = r.optI64()
	p.VotingAt = r.optI64()
	r.optU64() // voting_at_slot
	p.VotingCompletedAt = r.optI64()
	p.ExecutingAt = r.optI64()
	p.ClosedAt = r.optI64()
	r.skip(1)
	p.MaxVoteWeight = r.optAmount()
	if r.some() {
		v := r.u32()
		p.MaxVotingTime = &v
	}
	if r.some() {
		if tag := r.u8(); tag < 2 {
			r.skip(1)
		}
	}
	r.skip(64)
	p.Name = r.str()
	p.DescriptionLink = r.str()
	p.VetoVoteWeight = r.amount()
}

func DecodeVoteRecord(data []byte) (*VoteRecord, error) {
	t, err := checkType(data, "vote record", voteRecordTypes)
	if err != nil {
		return nil, err
	}
	r := newReader(data)
	r.skip(1)
	vr := &VoteRecord{
		AccountType:         t,
		Proposal:            r.pubkey(),
		GoverningTokenOwner: r.pubkey(),
		IsRelinquished:      r.bool(),
	}
	if t == AccountVoteRecordV1 {
		switch tag := r.u8(); tag {
		case 0:
			vr.Vote.Kind = VoteApprove
			vr.Vote.Choices = []VoteChoice{{Rank: 0, WeightPercentage: 100}}
		case 1:
			vr.Vote.Kind = VoteDeny
		default:
			r.err = errors.NotValidf("v1 vote weight tag %d", tag)
		}
		vr.VoterWeight = r.amount()
		return vr, finish(r, "vote record")
	}
	vr.VoterWeight = r.amount()
	vr.Vote.Kind = VoteKind(r.u8())
	switch vr.Vote.Kind {
	case VoteApprove:
		n := r.u32()
		if int(n) > len(r.buf) {
			r.err = errors.NotValidf("vote choice count %d", n)
			break
		}
		for i := uint32(0); i < n && r.err == nil; i++ {
			vr.Vote.Choices = append(vr.Vote.Choices, VoteChoice{Rank: r.u8(), WeightPercentage: r.u8()})
		}
	case VoteDeny, VoteAbstain, VoteVeto:
	default:
		r.err = errors.NotValidf("vote kind %d", vr.Vote.Kind)
	}
	return vr, finish(r, "vote record")
}
