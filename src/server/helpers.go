package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"meme-market/src/helpers"
)

// -----------------------------------------------------------------------------
// Uniform responses
// -----------------------------------------------------------------------------

func success(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func fail(c *gin.Context, kind helpers.ErrorKind) {
	c.JSON(http.StatusOK, gin.H{"status": "fail", "reason": kind})
}

// -----------------------------------------------------------------------------

// tradeResponse maps business rule failures to {status: fail}; anything else is a 500.
func (s *MarketServer) tradeResponse(c *gin.Context, err error) {
	switch {
	case err == nil:
		success(c)
	case helpers.IsBusinessError(err):
		fail(c, helpers.KindOf(err))
	default:
		s.internalError(c, "execute trade", err)
	}
}

func (s *MarketServer) internalError(c *gin.Context, action string, err error) {
	s.Logger.Error("Failed to %s: %v", action, err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"status": "fail"})
}
