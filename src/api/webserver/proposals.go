package webserver

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/juju/errors"

	"github.com/stake-plus/solana-dao-radar/src/governance"
)

type ProposalSource interface {
	GetProposal(ctx context.Context, proposalID string) (*governance.ProposalDetail, error)
	GetVoteRecordFor(ctx context.Context, proposalID, voterRecordID string) (*governance.VoteRecord, error)
	GetUserVoteHistory(ctx context.Context, wallet string, limit int) ([]governance.VoteHistoryItem, error)
}

// Describer resolves a proposal's description link to display text.
type Describer interface {
	Fetch(ctx context.Context, link string) string
}

type Proposals struct {
	src      ProposalSource
	describe Describer
}

func NewProposals(src ProposalSource, d Describer) Proposals {
	return Proposals{src: src, describe: d}
}

func (p Proposals) Get(c *gin.Context) {
	detail, err := p.src.GetProposal(c, c.Param("proposal"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"proposal":    detail,
		"description": p.describe.Fetch(c, detail.Account.DescriptionLink),
	})
}

func (p Proposals) VoteRecord(c *gin.Context) {
	rec, err := p.src.GetVoteRecordFor(c, c.Param("proposal"), c.Param("record"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": rec})
}

func (p Proposals) History(c *gin.Context) {
	limit := governance.DefaultHistoryLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			badRequest(c, errors.NotValidf("limit %q", v))
			return
		}
		limit = n
	}
	items, err := p.src.GetUserVoteHistory(c, c.Param("wallet"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"votes": items})
}
