package webserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Invalidator drops a cached listing so the next read refetches it.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// InvalidatorFunc adapts a plain function to Invalidator.
type InvalidatorFunc func(ctx context.Context)

func (f InvalidatorFunc) Invalidate(ctx context.Context) { f(ctx) }

type Admin struct {
	caches []Invalidator
}

func NewAdmin(caches ...Invalidator) Admin {
	return Admin{caches: caches}
}

// Refresh empties the registry and browse caches.
func (a Admin) Refresh(c *gin.Context) {
	for _, inv := range a.caches {
		inv.Invalidate(c)
	}
	logger.Infof("admin %s refreshed %d caches", c.GetString(walletKey), len(a.caches))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AdminMiddleware admits only wallets on the configured admin list.
func AdminMiddleware(admins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(admins))
	for _, a := range admins {
		allowed[a] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := allowed[c.GetString(walletKey)]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"err": "admin access required"})
			return
		}
		c.Next()
	}
}
