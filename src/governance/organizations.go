package governance

import (
	"context"
	"slices"
	"strings"

	"github.com/juju/errors"

	"github.com/stake-plus/solana-dao-radar/src/registry"
	"github.com/stake-plus/solana-dao-radar/src/solana"
	"github.com/stake-plus/solana-dao-radar/src/splgov"
	"github.com/stake-plus/solana-dao-radar/src/workers"
)

type (
	Realm            = splgov.ProgramAccount[splgov.Realm]
	TokenOwnerRecord = splgov.ProgramAccount[splgov.TokenOwnerRecord]
	Proposal         = splgov.ProgramAccount[splgov.Proposal]
	VoteRecord       = splgov.ProgramAccount[splgov.VoteRecord]
)

// DAOView is one realm as seen by one wallet. Views rehydrated by the
// browse cache set Minimal and carry only RealmID, Name and ActiveProposals.
type DAOView struct {
	RealmID         string            `json:"realmId"`
	Name            string            `json:"name"`
	Realm           *Realm            `json:"realm,omitempty"`
	VotingPower     float64           `json:"votingPower"`
	VotingPowerRaw  string            `json:"votingPowerRaw,omitempty"`
	ActiveProposals int               `json:"activeProposals"`
	ActiveList      []Proposal        `json:"activeList,omitempty"`
	PrimaryRecord   *TokenOwnerRecord `json:"primaryRecord,omitempty"`
	Registry        *registry.Entry   `json:"registry,omitempty"`
	Minimal         bool              `json:"minimal,omitempty"`

	active []Proposal
}

// OrganizationSummary is the id/name pair of the all-realms listing.
type OrganizationSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Organization is a single realm with its registry metadata.
type Organization struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Realm    Realm           `json:"realm"`
	Registry *registry.Entry `json:"registry,omitempty"`
}

func displayName(reg map[string]registry.Entry, id, onChain, fallback string) (string, *registry.Entry) {
	var entry *registry.Entry
	if e, ok := reg[id]; ok {
		entry = &e
		if e.DisplayName != "" {
			return e.DisplayName, entry
		}
	}
	switch {
	case onChain != "":
		return onChain, entry
	case fallback != "":
		return fallback, entry
	}
	return UnnamedDAO, entry
}

// realmGroup is one realm with the wallet's deposit records in it.
type realmGroup struct {
	realm   solana.PublicKey
	records []TokenOwnerRecord
}

// groupByRealm keeps realms in order of first appearance.
func groupByRealm(records []TokenOwnerRecord) []realmGroup {
	idx := make(map[solana.PublicKey]int)
	var groups []realmGroup
	for _, r := range records {
		i, ok := idx[r.Account.Realm]
		if !ok {
			i = len(groups)
			idx[r.Account.Realm] = i
			groups = append(groups, realmGroup{realm: r.Account.Realm})
		}
		groups[i].records = append(groups[i].records, r)
	}
	return groups
}

// sumDeposits totals every record and picks the one with the strictly
// largest deposit as primary, falling back to the first record when all are zero.
func sumDeposits(records []TokenOwnerRecord) (splgov.Amount, *TokenOwnerRecord) {
	var total, largest splgov.Amount
	var primary *TokenOwnerRecord
	for i := range records {
		amt := records[i].Account.GoverningTokenDepositAmount
		total = total.Add(amt)
		if amt.Cmp(largest) > 0 {
			largest = amt
			primary = &records[i]
		}
	}
	if primary == nil && len(records) > 0 {
		primary = &records[0]
	}
	return total, primary
}

// GetUserOrganizations discovers every realm wallet has deposited into.
// A realm that fails to load is logged and omitted; a malformed wallet or a
// failed record listing is returned as an error.
func (a *Aggregator) GetUserOrganizations(ctx context.Context, wallet string) ([]DAOView, error) {
	views, err := a.userOrganizations(ctx, wallet)
	if err != nil {
		return nil, err
	}
	for i := range views {
		if len(views[i].ActiveList) > activePreview {
			views[i].ActiveList = views[i].ActiveList[:activePreview]
		}
	}
	return views, nil
}

func (a *Aggregator) userOrganizations(ctx context.Context, wallet string) ([]DAOView, error) {
	owner, err := parseKey("wallet", wallet)
	if err != nil {
		return nil, err
	}
	records, err := a.chain.GetTokenOwnerRecordsByOwner(ctx, owner)
	if err != nil {
		return nil, errors.Annotatef(err, "deposit records of %s", wallet)
	}
	groups := groupByRealm(records)
	reg := a.registryMap(ctx)

	results := workers.Run(ctx, groups, func(ctx context.Context, g realmGroup) (DAOView, error) {
		return a.loadUserRealm(ctx, g, reg)
	}, a.concurrency)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	views := make([]DAOView, 0, len(results))
	for i, r := range results {
		if r.Err != nil {
			logger.Warningf("omitting realm %s for %s: %v", groups[i].realm, wallet, r.Err)
			continue
		}
		views = append(views, r.Value)
	}
	return views, nil
}

func (a *Aggregator) loadUserRealm(ctx context.Context, g realmGroup, reg map[string]registry.Entry) (DAOView, error) {
	realm, err := a.chain.GetRealm(ctx, g.realm)
	if err != nil {
		return DAOView{}, err
	}
	total, primary := sumDeposits(g.records)
	id := g.realm.String()
	name, entry := displayName(reg, id, realm.Account.Name, "")
	active := a.activeProposals(ctx, a.chain, g.realm)
	return DAOView{
		RealmID:         id,
		Name:            name,
		Realm:           realm,
		VotingPower:     SafeToNumber(total),
		VotingPowerRaw:  total.ToDecimalString(),
		ActiveProposals: len(active),
		ActiveList:      active,
		PrimaryRecord:   primary,
		Registry:        entry,
		active:          active,
	}, nil
}

// activeProposals lists the realm's proposals in Voting state, newest first.
// A failed listing counts as none.
func (a *Aggregator) activeProposals(ctx context.Context, chain Chain, realm solana.PublicKey) []Proposal {
	batches, err := chain.GetAllProposals(ctx, realm)
	if err != nil {
		logger.Warningf("active proposals of %s: %v", realm, err)
		return nil
	}
	var active []Proposal
	for _, batch := range batches {
		for _, p := range batch {
			if p.Account.State.IsActive() {
				active = append(active, p)
			}
		}
	}
	SortProposals(active)
	return active
}

// GetFeaturedOrganizations loads the curated realms without voting power.
func (a *Aggregator) GetFeaturedOrganizations(ctx context.Context) ([]DAOView, error) {
	reg := a.registryMap(ctx)
	results := workers.Run(ctx, a.featured, func(ctx context.Context, f FeaturedRealm) (DAOView, error) {
		pk, err := parseKey("realm", f.Pubkey)
		if err != nil {
			return DAOView{}, err
		}
		realm, err := a.chain.GetRealm(ctx, pk)
		if err != nil {
			return DAOView{}, err
		}
		name, entry := displayName(reg, f.Pubkey, realm.Account.Name, f.Name)
		active := a.activeProposals(ctx, a.chain, pk)
		count := len(active)
		if count > activePreview {
			active = active[:activePreview]
		}
		return DAOView{
			RealmID:         f.Pubkey,
			Name:            name,
			Realm:           realm,
			ActiveProposals: count,
			ActiveList:      active,
			Registry:        entry,
		}, nil
	}, a.concurrency)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	views := make([]DAOView, 0, len(results))
	for i, r := range results {
		if r.Err != nil {
			logger.Warningf("omitting featured realm %s: %v", a.featured[i].Pubkey, r.Err)
			continue
		}
		views = append(views, r.Value)
	}
	return views, nil
}

// ListAllOrganizations returns every realm of the program sorted by name.
func (a *Aggregator) ListAllOrganizations(ctx context.Context) ([]OrganizationSummary, error) {
	realms, err := a.chain.GetRealms(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "list realms")
	}
	out := make([]OrganizationSummary, 0, len(realms))
	for _, r := range realms {
		name := strings.TrimSpace(r.Account.Name)
		if name == "" {
			name = UnnamedDAO
		}
		out = append(out, OrganizationSummary{ID: r.Pubkey.String(), Name: name})
	}
	slices.SortStableFunc(out, func(x, y OrganizationSummary) int {
		if c := strings.Compare(strings.ToLower(x.Name), strings.ToLower(y.Name)); c != 0 {
			return c
		}
		return strings.Compare(x.ID, y.ID)
	})
	return out, nil
}

// GetOrganization loads one realm. An unknown realm is NotFound.
func (a *Aggregator) GetOrganization(ctx context.Context, realmID string) (*Organization, error) {
	pk, err := parseKey("realm", realmID)
	if err != nil {
		return nil, err
	}
	realm, err := a.chain.GetRealm(ctx, pk)
	if err != nil {
		return nil, err
	}
	name, entry := displayName(a.registryMap(ctx), realmID, realm.Account.Name, "")
	return &Organization{ID: realmID, Name: name, Realm: *realm, Registry: entry}, nil
}
