package webserver

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func attachRoutes(r *gin.Engine, rt Routes) {
	cc := cors.Config{
		AllowOrigins:     rt.CORS,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}
	if len(cc.AllowOrigins) == 0 {
		// no origins configured: any origin, without credentials
		cc.AllowOrigins, cc.AllowAllOrigins, cc.AllowCredentials = nil, true, false
	}
	r.Use(cors.New(cc))

	v1 := r.Group("/v1")
	{
		// The proxy applies its own per-IP bucket.
		v1.POST("/rpc", rt.RPC.Proxy)

		open := v1.Group("", RateLimitMiddleware(rt.Limiter))
		open.POST("/auth/challenge", rt.Auth.Challenge)
		open.POST("/auth/verify", rt.Auth.Verify)

		open.GET("/registry", rt.DAOs.Registry)
		open.GET("/daos", rt.DAOs.All)
		open.GET("/daos/featured", rt.DAOs.Featured)
		open.GET("/daos/:realm", rt.DAOs.Get)
		open.GET("/daos/:realm/proposals", rt.DAOs.Proposals)
		open.GET("/daos/:realm/voter/:mint/:wallet", rt.DAOs.Voter)
		open.GET("/wallets/:wallet/daos", rt.DAOs.ForWallet)
		open.GET("/wallets/:wallet/votes", rt.Proposals.History)
		open.GET("/proposals/:proposal", rt.Proposals.Get)
		open.GET("/proposals/:proposal/votes/:record", rt.Proposals.VoteRecord)
		open.POST("/summarize", rt.RPC.Summarize)

		secured := v1.Group("", JWTMiddleware(rt.JWTSecret), RateLimitMiddleware(rt.Limiter))
		secured.POST("/notifications", rt.Notifications.Check)
		secured.POST("/votes", rt.Votes.Begin)
		secured.POST("/votes/:attempt/signature", rt.Votes.Signature)
		secured.GET("/votes/:proposal", rt.Votes.View)

		admin := secured.Group("/admin", AdminMiddleware(rt.Admins))
		admin.POST("/cache/refresh", rt.Admin.Refresh)
	}
}
