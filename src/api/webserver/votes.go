package webserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stake-plus/solana-dao-radar/src/solana"
	"github.com/stake-plus/solana-dao-radar/src/splgov"
	"github.com/stake-plus/solana-dao-radar/src/voting"
)

// VotePipeline is the two-step vote flow: build an unsigned transaction,
// then broadcast it once the wallet has signed.
type VotePipeline interface {
	Begin(ctx context.Context, req voting.Request) (*voting.Attempt, error)
	Complete(ctx context.Context, attemptID string, signer voting.Signer) (voting.VoteView, error)
	View(proposalID, wallet string) (voting.VoteView, error)
}

type Votes struct{ pipeline VotePipeline }

func NewVotes(p VotePipeline) Votes { return Votes{pipeline: p} }

// Begin builds the vote for the signed-in wallet. The response carries the
// base64 message the wallet must sign.
func (v Votes) Begin(c *gin.Context) {
	var req struct {
		RealmID    string           `json:"realmId"    binding:"required"`
		ProposalID string           `json:"proposalId" binding:"required"`
		Choice     *splgov.VoteKind `json:"choice"     binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	attempt, err := v.pipeline.Begin(c, voting.Request{
		RealmID:    req.RealmID,
		ProposalID: req.ProposalID,
		Wallet:     c.GetString(walletKey),
		Choice:     *req.Choice,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, attempt)
}

// Signature completes an attempt. An empty signature means the user
// declined in the wallet, which rolls the optimistic vote back.
func (v Votes) Signature(c *gin.Context) {
	var req struct {
		Signature string `json:"signature"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	wallet, err := solana.PublicKeyFromBase58(c.GetString(walletKey))
	if err != nil {
		writeError(c, err)
		return
	}
	view, err := v.pipeline.Complete(c, c.Param("attempt"), voting.SignatureSigner{Wallet: wallet, Signature: req.Signature})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (v Votes) View(c *gin.Context) {
	view, err := v.pipeline.View(c.Param("proposal"), c.GetString(walletKey))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
