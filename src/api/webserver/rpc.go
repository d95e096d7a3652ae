package webserver

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stake-plus/solana-dao-radar/src/rpcproxy"
	"github.com/stake-plus/solana-dao-radar/src/summary"
)

const maxRPCBody = 1 << 20

type Forwarder interface {
	Forward(ctx context.Context, clientKey string, body []byte) rpcproxy.Response
}

type Summarizer interface {
	Summarize(ctx context.Context, title, description string) (summary.Result, error)
}

type RPC struct {
	proxy   Forwarder
	summary Summarizer
}

func NewRPC(proxy Forwarder, s Summarizer) RPC {
	return RPC{proxy: proxy, summary: s}
}

// Proxy relays one JSON-RPC call to the upstream node.
func (r RPC) Proxy(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxRPCBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid RPC request"})
		return
	}
	resp := r.proxy.Forward(c, c.ClientIP(), body)
	c.Data(resp.Status, "application/json", resp.Body)
}

func (r RPC) Summarize(c *gin.Context) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := r.summary.Summarize(c, req.Title, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
