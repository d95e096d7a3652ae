package splgov

import (
	"context"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"golang.org/x/sync/errgroup"

	"github.com/stake-plus/solana-dao-radar/src/solana"
)

var logger = loggo.GetLogger("daoradar.splgov")

// DefaultProgramID is the mainnet governance program.
var DefaultProgramID = solana.MustPublicKey("GovER5Lthms3bLBqWub97yVrMmEogzX7xNjdXpPPCVZw")

// queryFanout bounds parallel getProgramAccounts calls issued by one query.
const queryFanout = 4

// RPC is the part of the ledger client the governance queries need.
type RPC interface {
	GetAccountInfo(ctx context.Context, pk solana.PublicKey) (*solana.Account, error)
	GetMultipleAccounts(ctx context.Context, keys []solana.PublicKey) ([]*solana.Account, error)
	GetProgramAccounts(ctx context.Context, programID solana.PublicKey, filters ...solana.Filter) ([]solana.KeyedAccount, error)
}

// Client reads governance accounts owned by one program.
type Client struct {
	rpc       RPC
	programID solana.PublicKey
}

func NewClient(rpc RPC, programID solana.PublicKey) *Client {
	if programID.IsZero() {
		programID = DefaultProgramID
	}
	return &Client{rpc: rpc, programID: programID}
}

// ForProgram returns a client sharing the connection but bound to another program.
func (c *Client) ForProgram(programID solana.PublicKey) *Client {
	if programID.IsZero() || programID == c.programID {
		return c
	}
	return &Client{rpc: c.rpc, programID: programID}
}

func (c *Client) ProgramID() solana.PublicKey { return c.programID }

func typeFilter(t AccountType) solana.Filter {
	return solana.MemcmpFilter(0, []byte{byte(t)})
}

func decodeAll[T any](accts []solana.KeyedAccount, kind string, decode func([]byte) (*T, error)) []ProgramAccount[T] {
	out := make([]ProgramAccount[T], 0, len(accts))
	for _, a := range accts {
		v, err := decode(a.Account.Data)
		if err != nil {
			logger.Warningf("skipping %s %s: %v", kind, a.Pubkey, err)
			continue
		}
		out = append(out, ProgramAccount[T]{Pubkey: a.Pubkey, Account: *v})
	}
	return out
}

// byTypes runs one filtered getProgramAccounts per account type and
// concatenates the results in type order.
func (c *Client) byTypes(ctx context.Context, types []AccountType, filters ...solana.Filter) ([]solana.KeyedAccount, error) {
	results := make([][]solana.KeyedAccount, len(types))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(queryFanout)
	for i, t := range types {
		i, t := i, t
		g.Go(func() error {
			fs := append([]solana.Filter{typeFilter(t)}, filters...)
			accts, err := c.rpc.GetProgramAccounts(gctx, c.programID, fs...)
			if err != nil {
				return errors.Annotatef(err, "account type %d", t)
			}
			results[i] = accts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []solana.KeyedAccount
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

func getOne[T any](ctx context.Context, c *Client, pk solana.PublicKey, kind string, decode func([]byte) (*T, error)) (*ProgramAccount[T], error) {
	acc, err := c.rpc.GetAccountInfo(ctx, pk)
	if err != nil {
		return nil, errors.Annotatef(err, "get %s %s", kind, pk)
	}
	if acc == nil {
		return nil, errors.NotFoundf("%s %s", kind, pk)
	}
	v, err := decode(acc.Data)
	if err != nil {
		return nil, errors.Annotatef(err, "%s %s", kind, pk)
	}
	return &ProgramAccount[T]{Pubkey: pk, Account: *v}, nil
}

func (c *Client) GetRealm(ctx context.Context, realm solana.PublicKey) (*ProgramAccount[Realm], error) {
	return getOne(ctx, c, realm, "realm", DecodeRealm)
}

// GetRealms lists every realm of the program.
func (c *Client) GetRealms(ctx context.Context) ([]ProgramAccount[Realm], error) {
	accts, err := c.byTypes(ctx, realmTypes)
	if err != nil {
		return nil, errors.Annotate(err, "list realms")
	}
	return decodeAll(accts, "realm", DecodeRealm), nil
}

// GetTokenOwnerRecordsByOwner lists the deposit records of owner across all realms.
func (c *Client) GetTokenOwnerRecordsByOwner(ctx context.Context, owner solana.PublicKey) ([]ProgramAccount[TokenOwnerRecord], error) {
	accts, err := c.byTypes(ctx, tokenOwnerRecordTypes, solana.MemcmpFilter(65, owner[:]))
	if err != nil {
		return nil, errors.Annotatef(err, "token owner records of %s", owner)
	}
	return decodeAll(accts, "token owner record", DecodeTokenOwnerRecord), nil
}

func (c *Client) GetGovernances(ctx context.Context, realm solana.PublicKey) ([]ProgramAccount[Governance], error) {
	accts, err := c.byTypes(ctx, governanceTypes, solana.MemcmpFilter(1, realm[:]))
	if err != nil {
		return nil, errors.Annotatef(err, "governances of %s", realm)
	}
	return decodeAll(accts, "governance", DecodeGovernance), nil
}

// GetProposalsByGovernance lists the proposals of one governance.
func (c *Client) GetProposalsByGovernance(ctx context.Context, governance solana.PublicKey) ([]ProgramAccount[Proposal], error) {
	// Proposals are the only account kinds keyed by governance at offset 1,
	// so one unfiltered-by-type query covers V1 and V2.
	accts, err := c.rpc.GetProgramAccounts(ctx, c.programID, solana.MemcmpFilter(1, governance[:]))
	if err != nil {
		return nil, errors.Annotatef(err, "proposals of %s", governance)
	}
	var props []solana.KeyedAccount
	for _, a := range accts {
		if len(a.Account.Data) > 0 && typeIn(AccountType(a.Account.Data[0]), proposalTypes) {
			props = append(props, a)
		}
	}
	return decodeAll(props, "proposal", DecodeProposal), nil
}

// GetAllProposals returns the proposals of realm as one batch per governance.
// Callers must drain every batch.
func (c *Client) GetAllProposals(ctx context.Context, realm solana.PublicKey) ([][]ProgramAccount[Proposal], error) {
	govs, err := c.GetGovernances(ctx, realm)
	if err != nil {
		return nil, err
	}
	batches := make([][]ProgramAccount[Proposal], len(govs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(queryFanout)
	for i, gov := range govs {
		i, gov := i, gov
		g.Go(func() error {
			props, err := c.GetProposalsByGovernance(gctx, gov.Pubkey)
			if err != nil {
				return err
			}
			batches[i] = props
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Annotatef(err, "proposals of realm %s", realm)
	}
	return batches, nil
}

func (c *Client) GetProposal(ctx context.Context, proposal solana.PublicKey) (*ProgramAccount[Proposal], error) {
	return getOne(ctx, c, proposal, "proposal", DecodeProposal)
}

// GetProposals fetches several proposals in one call. Missing or undecodable
// entries are nil.
func (c *Client) GetProposals(ctx context.Context, keys []solana.PublicKey) ([]*ProgramAccount[Proposal], error) {
	accts, err := c.rpc.GetMultipleAccounts(ctx, keys)
	if err != nil {
		return nil, errors.Annotate(err, "get proposals")
	}
	out := make([]*ProgramAccount[Proposal], len(keys))
	for i, a := range accts {
		if i >= len(keys) || a == nil {
			continue
		}
		p, err := DecodeProposal(a.Data)
		if err != nil {
			logger.Debugf("proposal %s: %v", keys[i], err)
			continue
		}
		out[i] = &ProgramAccount[Proposal]{Pubkey: keys[i], Account: *p}
	}
	return out, nil
}

func (c *Client) GetTokenOwnerRecordAt(ctx context.Context, pk solana.PublicKey) (*ProgramAccount[TokenOwnerRecord], error) {
	return getOne(ctx, c, pk, "token owner record", DecodeTokenOwnerRecord)
}

// GetTokenOwnerRecord looks up the deposit record of owner for (realm, mint).
// A wallet without a deposit yields nil and no error.
func (c *Client) GetTokenOwnerRecord(ctx context.Context, realm, mint, owner solana.PublicKey) (*ProgramAccount[TokenOwnerRecord], error) {
	addr, err := TokenOwnerRecordAddress(c.programID, realm, mint, owner)
	if err != nil {
		return nil, err
	}
	rec, err := c.GetTokenOwnerRecordAt(ctx, addr)
	if errors.Is(err, errors.NotFound) {
		return nil, nil
	}
	return rec, err
}

func (c *Client) GetVoteRecord(ctx context.Context, pk solana.PublicKey) (*ProgramAccount[VoteRecord], error) {
	return getOne(ctx, c, pk, "vote record", DecodeVoteRecord)
}

// GetVoteRecordFor returns the vote cast by tokenOwnerRecord on proposal, or nil.
func (c *Client) GetVoteRecordFor(ctx context.Context, proposal, tokenOwnerRecord solana.PublicKey) (*ProgramAccount[VoteRecord], error) {
	addr, err := VoteRecordAddress(c.programID, proposal, tokenOwnerRecord)
	if err != nil {
		return nil, err
	}
	rec, err := c.GetVoteRecord(ctx, addr)
	if errors.Is(err, errors.NotFound) {
		return nil, nil
	}
	return rec, err
}

// GetVoteRecordsByVoter lists every vote cast by voter's wallet.
func (c *Client) GetVoteRecordsByVoter(ctx context.Context, voter solana.PublicKey) ([]ProgramAccount[VoteRecord], error) {
	accts, err := c.byTypes(ctx, voteRecordTypes, solana.MemcmpFilter(33, voter[:]))
	if err != nil {
		return nil, errors.Annotatef(err, "vote records of %s", voter)
	}
	return decodeAll(accts, "vote record", DecodeVoteRecord), nil
}
