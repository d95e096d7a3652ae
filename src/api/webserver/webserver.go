package webserver

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/juju/loggo/v2"

	"github.com/stake-plus/solana-dao-radar/src/radar"
)

var logger = loggo.GetLogger("daoradar.webserver")

// logWriter feeds gin's access log lines into loggo.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	logger.Infof("%s", strings.TrimSpace(string(p)))
	return len(p), nil
}

// Routes holds the handler groups and the settings the router needs.
type Routes struct {
	Auth          Auth
	DAOs          DAOs
	Proposals     Proposals
	Votes         Votes
	Notifications Notifications
	RPC           RPC
	Admin         Admin

	JWTSecret []byte
	CORS      []string
	Admins    []string
	Limiter   RateLimiter
}

// New builds the engine over the process services.
func New(s *radar.Services) *gin.Engine {
	return Engine(RoutesFor(s))
}

func RoutesFor(s *radar.Services) Routes {
	return Routes{
		Auth:          NewAuth(s.Nonces, []byte(s.Config.JWTSecret)),
		DAOs:          NewDAOs(s.Aggregator, s.Browse, s.Registry),
		Proposals:     NewProposals(s.Aggregator, s.Describe),
		Votes:         NewVotes(s.Votes),
		Notifications: NewNotifications(s.Aggregator, s.Alerts),
		RPC:           NewRPC(s.Proxy, s.Summary),
		Admin: NewAdmin(
			InvalidatorFunc(func(context.Context) { s.Registry.Invalidate() }),
			s.Browse,
		),
		JWTSecret: []byte(s.Config.JWTSecret),
		CORS:      s.Config.CORS,
		Admins:    s.Config.Admins,
		Limiter:   s.APILimiter,
	}
}

func Engine(routes Routes) *gin.Engine {
	g := gin.New()
	// handlers pass *gin.Context to services; cancellation must reach them
	g.ContextWithFallback = true
	g.Use(gin.LoggerWithWriter(logWriter{}), gin.Recovery())
	attachRoutes(g, routes)
	return g
}
