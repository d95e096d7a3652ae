package splgov

import (
	"github.com/juju/errors"

	"github.com/stake-plus/solana-dao-radar/src/solana"
)

const castVoteTag = 13

// CastVoteParams names the accounts a cast-vote instruction touches.
type CastVoteParams struct {
	ProgramID             solana.PublicKey
	Realm                 solana.PublicKey
	Governance            solana.PublicKey
	Proposal              solana.PublicKey
	ProposalOwnerRecord   solana.PublicKey
	VoterTokenOwnerRecord solana.PublicKey
	GovernanceAuthority   solana.PublicKey
	GoverningTokenMint    solana.PublicKey
	Payer                 solana.PublicKey
}

// EncodeVote serialises a vote in the program's instruction format. Approve
// is a single full-weight choice on the first option.
func EncodeVote(kind VoteKind) ([]byte, error) {
	w := &writer{}
	switch kind {
	case VoteApprove:
		w.u8(uint8(VoteApprove))
		w.u32(1)
		w.u8(0)   // rank
		w.u8(100) // weight percentage
	case VoteDeny, VoteAbstain:
		w.u8(uint8(kind))
	default:
		return nil, errors.NotValidf("vote kind %s", kind)
	}
	return w.bytes(), nil
}

// CastVoteInstruction builds the instruction that records kind on p.Proposal.
func CastVoteInstruction(p CastVoteParams, kind VoteKind) (solana.Instruction, error) {
	if p.ProgramID.IsZero() {
		p.ProgramID = DefaultProgramID
	}
	vote, err := EncodeVote(kind)
	if err != nil {
		return solana.Instruction{}, err
	}
	voteRecord, err := VoteRecordAddress(p.ProgramID, p.Proposal, p.VoterTokenOwnerRecord)
	if err != nil {
		return solana.Instruction{}, err
	}
	realmConfig, err := RealmConfigAddress(p.ProgramID, p.Realm)
	if err != nil {
		return solana.Instruction{}, err
	}
	return solana.Instruction{
		ProgramID: p.ProgramID,
		Accounts: []solana.AccountMeta{
			{PublicKey: p.Realm},
			{PublicKey: p.Governance, IsWritable: true},
			{PublicKey: p.Proposal, IsWritable: true},
			{PublicKey: p.ProposalOwnerRecord, IsWritable: true},
			{PublicKey: p.VoterTokenOwnerRecord, IsWritable: true},
			{PublicKey: p.GovernanceAuthority, IsSigner: true},
			{PublicKey: voteRecord, IsWritable: true},
			{PublicKey: p.GoverningTokenMint},
			{PublicKey: p.Payer, IsSigner: true, IsWritable: true},
			{PublicKey: solana.SystemProgramID},
			{PublicKey: realmConfig},
		},
		Data: append([]byte{castVoteTag}, vote...),
	}, nil
}
