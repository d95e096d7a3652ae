package webserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stake-plus/solana-dao-radar/src/notify"
)

type AlertSource interface {
	ActiveProposalAlerts(ctx context.Context, wallet string) ([]notify.Alert, error)
}

type SeenDiffer interface {
	Diff(ctx context.Context, wallet string, batch []notify.Alert) ([]notify.Alert, error)
}

type Notifications struct {
	alerts AlertSource
	seen   SeenDiffer
}

func NewNotifications(alerts AlertSource, seen SeenDiffer) Notifications {
	return Notifications{alerts: alerts, seen: seen}
}

// Check returns the signed-in wallet's active proposals it has not been
// told about yet, and marks them seen.
func (n Notifications) Check(c *gin.Context) {
	wallet := c.GetString(walletKey)
	batch, err := n.alerts.ActiveProposalAlerts(c, wallet)
	if err != nil {
		writeError(c, err)
		return
	}
	fresh, err := n.seen.Diff(c, wallet, batch)
	if err != nil {
		writeError(c, err)
		return
	}
	if fresh == nil {
		fresh = []notify.Alert{}
	}
	resp := gin.H{"new": fresh}
	if len(fresh) > 0 {
		resp["message"] = notify.FormatAlert(fresh)
	}
	c.JSON(http.StatusOK, resp)
}
