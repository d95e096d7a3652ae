package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/juju/errors"

	"github.com/stake-plus/solana-dao-radar/src/governance"
	"github.com/stake-plus/solana-dao-radar/src/voting"
)

var submitStatus = map[voting.Category]int{
	voting.CategoryInvalidInput: http.StatusBadRequest,
	voting.CategoryRejected:     http.StatusBadRequest,
	voting.CategorySimulation:   http.StatusUnprocessableEntity,
	voting.CategoryRateLimited:  http.StatusTooManyRequests,
	voting.CategoryTimeout:      http.StatusGatewayTimeout,
	voting.CategoryNetwork:      http.StatusServiceUnavailable,
	voting.CategoryUnknown:      http.StatusBadGateway,
}

func retryable(cat voting.Category) bool {
	switch cat {
	case voting.CategoryRateLimited, voting.CategoryTimeout, voting.CategoryNetwork:
		return true
	}
	return false
}

// writeError maps a service error onto a status and the {"err": ...} body
// the API uses everywhere.
func writeError(c *gin.Context, err error) {
	var se *voting.SubmitError
	switch {
	case errors.As(err, &se):
		status, ok := submitStatus[se.Category]
		if !ok {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"err": se.Message, "category": se.Category, "retry": retryable(se.Category)})
	case errors.Is(err, voting.ErrVoteInFlight), errors.Is(err, voting.ErrAlreadyVoted):
		c.JSON(http.StatusConflict, gin.H{"err": err.Error()})
	case governance.IsInvalidInput(err):
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
	case governance.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"err": err.Error()})
	case governance.IsTransient(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"err": "upstream unavailable", "retry": true})
	default:
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "internal error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
}
