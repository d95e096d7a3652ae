package webserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stake-plus/solana-dao-radar/src/governance"
	"github.com/stake-plus/solana-dao-radar/src/registry"
)

// OrgSource is the aggregator surface the DAO routes read.
type OrgSource interface {
	GetUserOrganizations(ctx context.Context, wallet string) ([]governance.DAOView, error)
	GetOrganization(ctx context.Context, realmID string) (*governance.Organization, error)
	GetOrganizationProposals(ctx context.Context, realmID, programID string) ([]governance.Proposal, error)
	GetVoterRecord(ctx context.Context, realmID, mintID, wallet string) (*governance.TokenOwnerRecord, error)
}

// BrowseSource serves the signed-out listings.
type BrowseSource interface {
	Featured(ctx context.Context) ([]governance.DAOView, error)
	All(ctx context.Context) ([]governance.OrganizationSummary, error)
}

type RegistrySource interface {
	GetAll(ctx context.Context) ([]registry.Entry, error)
}

type DAOs struct {
	orgs     OrgSource
	browse   BrowseSource
	registry RegistrySource
}

func NewDAOs(orgs OrgSource, browse BrowseSource, reg RegistrySource) DAOs {
	return DAOs{orgs: orgs, browse: browse, registry: reg}
}

func (d DAOs) Registry(c *gin.Context) {
	entries, err := d.registry.GetAll(c)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (d DAOs) Featured(c *gin.Context) {
	views, err := d.browse.Featured(c)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"daos": views})
}

func (d DAOs) All(c *gin.Context) {
	orgs, err := d.browse.All(c)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"daos": orgs})
}

func (d DAOs) ForWallet(c *gin.Context) {
	views, err := d.orgs.GetUserOrganizations(c, c.Param("wallet"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"daos": views})
}

func (d DAOs) Get(c *gin.Context) {
	org, err := d.orgs.GetOrganization(c, c.Param("realm"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, org)
}

// Proposals lists a realm's proposals; ?program= selects a non-default
// governance program.
func (d DAOs) Proposals(c *gin.Context) {
	ps, err := d.orgs.GetOrganizationProposals(c, c.Param("realm"), c.Query("program"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposals": ps})
}

func (d DAOs) Voter(c *gin.Context) {
	rec, err := d.orgs.GetVoterRecord(c, c.Param("realm"), c.Param("mint"), c.Param("wallet"))
	if err != nil {
		writeError(c, err)
		return
	}
	// null when the wallet never deposited
	c.JSON(http.StatusOK, gin.H{"record": rec})
}
