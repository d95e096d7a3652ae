package governance

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/juju/errors"

	"github.com/stake-plus/solana-dao-radar/src/registry"
	"github.com/stake-plus/solana-dao-radar/src/solana"
	"github.com/stake-plus/solana-dao-radar/src/splgov"
)

var (
	wallet  = pk(1)
	realmA  = pk(10)
	realmB  = pk(11)
	realmC  = pk(12)
	torA1   = pk(20)
	torA2   = pk(21)
	torB1   = pk(22)
	torC1   = pk(23)
	propA1  = pk(30)
	propA2  = pk(31)
	propA3  = pk(32)
	propA4  = pk(33)
	realmID = realmA.String()
)

// scenarioChain: wallet deposited twice in A, once (zero) in B whose proposal
// listing fails, and once in C whose realm account cannot be loaded.
func scenarioChain() *fakeChain {
	return &fakeChain{
		realms: map[solana.PublicKey]*Realm{
			realmA: realmAcct(realmA, "On-chain A"),
			realmB: realmAcct(realmB, "B"),
		},
		realmErr: map[solana.PublicKey]error{realmC: solana.ErrTimeout},
		records: map[solana.PublicKey][]TokenOwnerRecord{
			wallet: {
				torAcct(torA1, realmA, wallet, 100),
				torAcct(torB1, realmB, wallet, 0),
				torAcct(torA2, realmA, wallet, 250),
				torAcct(torC1, realmC, wallet, 5),
			},
		},
		proposals: map[solana.PublicKey][][]Proposal{
			realmA: {
				{
					proposalAcct(propA1, "one", splgov.ProposalVoting, 1, i64p(10)),
					proposalAcct(propA2, "two", splgov.ProposalDraft, 50, nil),
				},
				{
					proposalAcct(propA3, "three", splgov.ProposalVoting, 2, i64p(30)),
					proposalAcct(propA4, "four", splgov.ProposalSucceeded, 3, i64p(40)),
				},
			},
		},
		proposalsErr: map[solana.PublicKey]error{realmB: solana.ErrUnavailable},
	}
}

func TestGetUserOrganizations(t *testing.T) {
	c := qt.New(t)

	reg := fakeRegistry{entries: map[string]registry.Entry{realmID: {RealmID: realmID, DisplayName: "Registry A"}}}
	agg := NewAggregator(scenarioChain(), WithRegistry(reg))

	views, err := agg.GetUserOrganizations(context.Background(), wallet.String())
	c.Assert(err, qt.IsNil)
	c.Assert(views, qt.HasLen, 2)

	a := views[0]
	c.Check(a.RealmID, qt.Equals, realmID)
	c.Check(a.Name, qt.Equals, "Registry A")
	c.Check(a.Registry, qt.Not(qt.IsNil))
	c.Check(a.VotingPower, qt.Equals, float64(350))
	c.Check(a.VotingPowerRaw, qt.Equals, "350")
	c.Check(a.PrimaryRecord.Pubkey, qt.Equals, torA2)
	c.Check(a.ActiveProposals, qt.Equals, 2)
	c.Assert(a.ActiveList, qt.HasLen, 2)
	c.Check(a.ActiveList[0].Pubkey, qt.Equals, propA3)
	c.Check(a.ActiveList[1].Pubkey, qt.Equals, propA1)

	b := views[1]
	c.Check(b.Name, qt.Equals, "B")
	c.Check(b.VotingPower, qt.Equals, float64(0))
	c.Check(b.PrimaryRecord.Pubkey, qt.Equals, torB1)
	c.Check(b.ActiveProposals, qt.Equals, 0)
	c.Check(b.Registry, qt.IsNil)
}

func TestPrimaryRecordPrefersFirstOnTie(t *testing.T) {
	c := qt.New(t)

	total, primary := sumDeposits([]TokenOwnerRecord{
		torAcct(pk(1), realmA, wallet, 40),
		torAcct(pk(2), realmA, wallet, 40),
		torAcct(pk(3), realmA, wallet, 20),
	})
	c.Assert(total.ToDecimalString(), qt.Equals, "100")
	c.Assert(primary.Pubkey, qt.Equals, pk(1))

	total, primary = sumDeposits(nil)
	c.Assert(total.IsZero(), qt.IsTrue)
	c.Assert(primary, qt.IsNil)
}

func TestActivePreviewIsCapped(t *testing.T) {
	c := qt.New(t)

	chain := scenarioChain()
	var batch []Proposal
	for i := byte(0); i < 5; i++ {
		batch = append(batch, proposalAcct(pk(40+i), "p", splgov.ProposalVoting, int64(i), nil))
	}
	chain.proposals[realmA] = [][]Proposal{batch}
	agg := NewAggregator(chain)

	views, err := agg.GetUserOrganizations(context.Background(), wallet.String())
	c.Assert(err, qt.IsNil)
	c.Assert(views[0].ActiveProposals, qt.Equals, 5)
	c.Assert(views[0].ActiveList, qt.HasLen, 3)
	c.Assert(views[0].ActiveList[0].Pubkey, qt.Equals, pk(44))

	alerts, err := agg.ActiveProposalAlerts(context.Background(), wallet.String())
	c.Assert(err, qt.IsNil)
	c.Assert(alerts, qt.HasLen, 5)
	c.Assert(alerts[0].RealmID, qt.Equals, realmID)
	c.Assert(alerts[0].DAOName, qt.Equals, "On-chain A")
}

func permutations(n int) [][]int {
	if n == 0 {
		return [][]int{{}}
	}
	var out [][]int
	for _, rest := range permutations(n - 1) {
		for at := 0; at <= len(rest); at++ {
			perm := append(append(append([]int(nil), rest[:at]...), n-1), rest[at:]...)
			out = append(out, perm)
		}
	}
	return out
}

func TestActiveCountIgnoresListingOrder(t *testing.T) {
	c := qt.New(t)

	mixed := []Proposal{
		proposalAcct(pk(50), "v1", splgov.ProposalVoting, 1, i64p(10)),
		proposalAcct(pk(51), "v2", splgov.ProposalVoting, 2, i64p(20)),
		proposalAcct(pk(52), "lost", splgov.ProposalDefeated, 3, i64p(30)),
		proposalAcct(pk(53), "done", splgov.ProposalCompleted, 4, i64p(40)),
	}
	perms := permutations(len(mixed))
	c.Assert(perms, qt.HasLen, 24)

	for _, perm := range perms {
		var listed []Proposal
		for _, i := range perm {
			listed = append(listed, mixed[i])
		}
		for split := 0; split <= len(listed); split++ {
			chain := scenarioChain()
			chain.proposals[realmA] = [][]Proposal{listed[:split], listed[split:]}

			views, err := NewAggregator(chain).GetUserOrganizations(context.Background(), wallet.String())
			c.Assert(err, qt.IsNil)
			c.Assert(views[0].ActiveProposals, qt.Equals, 2, qt.Commentf("order %v split %d", perm, split))
			c.Assert(views[0].ActiveList[0].Pubkey, qt.Equals, pk(51))
			c.Assert(views[0].ActiveList[1].Pubkey, qt.Equals, pk(50))
		}
	}
}

func TestGetUserOrganizationsErrors(t *testing.T) {
	c := qt.New(t)

	agg := NewAggregator(scenarioChain())
	_, err := agg.GetUserOrganizations(context.Background(), "not a key")
	c.Assert(IsInvalidInput(err), qt.IsTrue)

	chain := scenarioChain()
	chain.recordsErr = solana.ErrRateLimited
	_, err = NewAggregator(chain).GetUserOrganizations(context.Background(), wallet.String())
	c.Assert(IsTransient(err), qt.IsTrue)

	views, err := NewAggregator(scenarioChain()).GetUserOrganizations(context.Background(), pk(99).String())
	c.Assert(err, qt.IsNil)
	c.Assert(views, qt.HasLen, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewAggregator(scenarioChain()).GetUserOrganizations(ctx, wallet.String())
	c.Assert(err, qt.Equals, context.Canceled)
}

func TestRegistryFailureFallsBackToChainNames(t *testing.T) {
	c := qt.New(t)

	agg := NewAggregator(scenarioChain(), WithRegistry(fakeRegistry{err: errors.New("down")}))
	views, err := agg.GetUserOrganizations(context.Background(), wallet.String())
	c.Assert(err, qt.IsNil)
	c.Assert(views[0].Name, qt.Equals, "On-chain A")
}

func TestGetFeaturedOrganizations(t *testing.T) {
	c := qt.New(t)

	featured := []FeaturedRealm{
		{Name: "Curated A", Pubkey: realmA.String()},
		{Name: "Missing", Pubkey: pk(77).String()},
		{Name: "Curated B", Pubkey: realmB.String()},
	}
	chain := scenarioChain()
	chain.realms[realmB] = realmAcct(realmB, "")
	agg := NewAggregator(chain, WithFeatured(featured))

	views, err := agg.GetFeaturedOrganizations(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(views, qt.HasLen, 2)
	c.Check(views[0].Name, qt.Equals, "On-chain A")
	c.Check(views[0].ActiveProposals, qt.Equals, 2)
	c.Check(views[0].VotingPower, qt.Equals, float64(0))
	c.Check(views[1].Name, qt.Equals, "Curated B")
}

func TestListAllOrganizations(t *testing.T) {
	c := qt.New(t)

	chain := &fakeChain{allRealms: []Realm{
		*realmAcct(pk(5), "beta"),
		*realmAcct(pk(4), "alpha"),
		*realmAcct(pk(3), "  "),
		*realmAcct(pk(2), "Alpha"),
	}}
	got, err := NewAggregator(chain).ListAllOrganizations(context.Background())
	c.Assert(err, qt.IsNil)

	first, second := pk(2).String(), pk(4).String()
	if first > second {
		first, second = second, first
	}
	var ids, names []string
	for _, o := range got {
		ids = append(ids, o.ID)
		names = append(names, o.Name)
	}
	c.Assert(ids[:2], qt.DeepEquals, []string{first, second})
	c.Assert(names[2:], qt.DeepEquals, []string{"beta", UnnamedDAO})
}

func TestGetOrganization(t *testing.T) {
	c := qt.New(t)

	agg := NewAggregator(scenarioChain())
	org, err := agg.GetOrganization(context.Background(), realmID)
	c.Assert(err, qt.IsNil)
	c.Assert(org.Name, qt.Equals, "On-chain A")

	_, err = agg.GetOrganization(context.Background(), pk(88).String())
	c.Assert(IsNotFound(err), qt.IsTrue)
}
