package splgov

import (
	"encoding/binary"

	"github.com/stake-plus/solana-dao-radar/src/solana"
)

// enc builds borsh account images for decoder tests.
type enc struct{ b []byte }

func (e *enc) u8(v uint8) *enc   { e.b = append(e.b, v); return e }
func (e *enc) u16(v uint16) *enc { e.b = binary.LittleEndian.AppendUint16(e.b, v); return e }
func (e *enc) u32(v uint32) *enc { e.b = binary.LittleEndian.AppendUint32(e.b, v); return e }
func (e *enc) u64(v uint64) *enc { e.b = binary.LittleEndian.AppendUint64(e.b, v); return e }
func (e *enc) zeros(n int) *enc  { e.b = append(e.b, make([]byte, n)...); return e }
func (e *enc) none() *enc        { return e.u8(0) }
func (e *enc) key(pk solana.PublicKey) *enc {
	e.b = append(e.b, pk[:]...)
	return e
}
func (e *enc) str(s string) *enc {
	e.u32(uint32(len(s)))
	e.b = append(e.b, s...)
	return e
}
func (e *enc) someU64(v uint64) *enc { return e.u8(1).u64(v) }

func key(n byte) solana.PublicKey {
	var pk solana.PublicKey
	for i := range pk {
		pk[i] = n
	}
	return pk
}

func realmData(name string, community solana.PublicKey, council *solana.PublicKey) []byte {
	e := (&enc{}).u8(uint8(AccountRealmV2)).key(community)
	e.u8(0).u8(0).zeros(6).u64(1000).u8(0).u64(10_000_000_000)
	if council != nil {
		e.u8(1).key(*council)
	} else {
		e.none()
	}
	e.zeros(6).u16(2).none().str(name).zeros(128)
	return e.b
}

func torData(realm, mint, owner solana.PublicKey, deposit uint64) []byte {
	e := (&enc{}).u8(uint8(AccountTokenOwnerRecordV2)).key(realm).key(mint).key(owner).u64(deposit)
	e.u64(0).u8(0).u8(1).zeros(6).none()
	return e.b
}

func governanceData(realm solana.PublicKey) []byte {
	return (&enc{}).u8(uint8(AccountGovernanceV2)).key(realm).key(key(0xee)).zeros(100).b
}

type proposalFixture struct {
	governance solana.PublicKey
	state      ProposalState
	name       string
	draftAt    int64
	votingAt   *int64
	yes, no    uint64
}

func proposalV2Data(f proposalFixture) []byte {
	e := (&enc{}).u8(uint8(AccountProposalV2)).key(f.governance).key(key(0x10)).u8(uint8(f.state)).key(key(0x20))
	e.u8(1).u8(1)
	e.u8(0) // single choice
	e.u32(1).str("Approve").u64(f.yes).u8(0).u16(0).u16(0).u16(0)
	e.someU64(f.no)
	e.u8(0)  // reserved
	e.none() // abstain
	e.none() // start_voting_at
	e.u64(uint64(f.draftAt))
	e.none() // signing_off_at
	if f.votingAt != nil {
		e.someU64(uint64(*f.votingAt))
	} else {
		e.none()
	}
	e.none().none().none().none() // voting_at_slot, completed, executing, closed
	e.u8(0)
	e.someU64(5000)
	e.u8(1).u32(259200)
	e.u8(1).u8(0).u8(60) // YesVotePercentage(60)
	e.zeros(64)
	e.str(f.name).str("https://example.org/p")
	e.u64(0)
	return e.b
}

func proposalV1Data(governance solana.PublicKey, state ProposalState, yes, no uint64) []byte {
	e := (&enc{}).u8(uint8(AccountProposalV1)).key(governance).key(key(0x10)).u8(uint8(state)).key(key(0x20))
	e.u8(1).u8(1).u64(yes).u64(no).u16(0).u16(0).u16(0)
	e.u64(77)
	e.none().u8(1).u64(99).none().none().none().none()
	e.u8(0).none().u8(1).u8(0).u8(60)
	e.str("legacy").str("ipfs://cid")
	return e.b
}

func voteRecordV2Data(proposal, owner solana.PublicKey, weight uint64, kind VoteKind) []byte {
	e := (&enc{}).u8(uint8(AccountVoteRecordV2)).key(proposal).key(owner).u8(0).u64(weight).u8(uint8(kind))
	if kind == VoteApprove {
		e.u32(1).u8(0).u8(100)
	}
	return e.zeros(8).b
}

func i64p(v int64) *int64 { return &v }
