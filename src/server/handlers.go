package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"meme-market/src/auth"
	"meme-market/src/helpers"
	"meme-market/src/models"
	"meme-market/src/utils"
)

const (
	stockParam   = "meme"
	apiKeyCookie = "api_key"
)

// -----------------------------------------------------------------------------
// Pages
// -----------------------------------------------------------------------------

func (s *MarketServer) getIndex(c *gin.Context) {
	stocks, err := s.Ledger.Stocks(c.Request.Context())
	if err != nil {
		s.Logger.Error("Failed to list stocks for index: %v", err)
		stocks = nil
	}
	user, _ := auth.CurrentUser(c)

	c.HTML(http.StatusOK, "index.html", gin.H{
		"Title":  s.Config.Name,
		"User":   user,
		"Stocks": stocks,
	})
}

// -----------------------------------------------------------------------------
// Identity
// -----------------------------------------------------------------------------

func (s *MarketServer) getLogin(c *gin.Context) {
	if s.Config.Debug {
		user, err := s.Auth.LoginLocal(c.Request.Context())
		if err != nil {
			s.internalError(c, "log in local user", err)
			return
		}
		s.signIn(c, user)
		return
	}
	if s.OAuth == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "fail"})
		return
	}

	state, err := utils.RandomToken(utils.StateBytes)
	if err != nil {
		s.internalError(c, "generate oauth state", err)
		return
	}
	if err := auth.SetState(c, state); err != nil {
		s.internalError(c, "save oauth state", err)
		return
	}
	c.Redirect(http.StatusFound, s.OAuth.AuthCodeURL(state))
}

// -----------------------------------------------------------------------------

func (s *MarketServer) getOAuthAuthorized(c *gin.Context) {
	if s.OAuth == nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	code := c.Query("code")
	if reason := c.Query("error"); reason != "" || code == "" {
		s.Logger.Info("Sign in denied: %s", reason)
		c.Redirect(http.StatusFound, "/")
		return
	}
	if !auth.CheckState(c, c.Query("state")) {
		s.Logger.Warning("OAuth callback with unexpected state from %s", c.ClientIP())
		c.Redirect(http.StatusFound, "/")
		return
	}

	ctx := c.Request.Context()
	profile, err := s.OAuth.Exchange(ctx, code)
	if err != nil {
		s.internalError(c, "complete oauth exchange", err)
		return
	}
	user, err := s.Auth.Login(ctx, profile.ID, profile.Name)
	if err != nil {
		s.internalError(c, "log in "+profile.ID, err)
		return
	}
	s.signIn(c, user)
}

// -----------------------------------------------------------------------------

func (s *MarketServer) signIn(c *gin.Context, user *models.MUser) {
	if err := auth.SignIn(c, user); err != nil {
		s.internalError(c, "save session", err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(apiKeyCookie, user.APIKey, 0, "/", "", false, false)
	c.Redirect(http.StatusFound, "/")
}

func (s *MarketServer) getLogout(c *gin.Context) {
	if err := auth.SignOut(c); err != nil {
		s.internalError(c, "clear session", err)
		return
	}
	c.SetCookie(apiKeyCookie, "", -1, "/", "", false, false)
	c.Redirect(http.StatusFound, "/")
}

// -----------------------------------------------------------------------------
// Private API
// -----------------------------------------------------------------------------

func (s *MarketServer) getMe(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	summary, err := s.Ledger.Summary(c.Request.Context(), user)
	if err != nil {
		s.internalError(c, "summarize user "+user.ExternalID, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *MarketServer) getBuy(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	_, err := s.Ledger.Buy(c.Request.Context(), user.ExternalID, c.Query(stockParam))
	s.tradeResponse(c, err)
}

func (s *MarketServer) getSell(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	_, err := s.Ledger.Sell(c.Request.Context(), user.ExternalID, c.Query(stockParam))
	s.tradeResponse(c, err)
}

// -----------------------------------------------------------------------------
// Public API
// -----------------------------------------------------------------------------

func (s *MarketServer) getStock(c *gin.Context) {
	view, err := s.Ledger.Stock(c.Request.Context(), c.Query(stockParam))
	if errors.Is(err, helpers.ErrStockNotFound) {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	if err != nil {
		s.internalError(c, "load stock", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *MarketServer) getStocks(c *gin.Context) {
	stocks, err := s.Ledger.Stocks(c.Request.Context())
	if err != nil {
		s.internalError(c, "list stocks", err)
		return
	}
	c.JSON(http.StatusOK, stocks)
}

func (s *MarketServer) getHistory(c *gin.Context) {
	history, err := s.Ledger.History(c.Request.Context(), c.Query(stockParam))
	if err != nil {
		s.internalError(c, "load history", err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (s *MarketServer) getStats(c *gin.Context) {
	stats, err := s.Ledger.Stats(c.Request.Context(), c.Query(stockParam))
	if errors.Is(err, helpers.ErrStockNotFound) {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	if err != nil {
		s.internalError(c, "summarize history", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *MarketServer) getRecent(c *gin.Context) {
	c.JSON(http.StatusOK, s.Ledger.Recent())
}

// -----------------------------------------------------------------------------

func (s *MarketServer) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": s.Hub.Connections(),
		"recent":      s.Ledger.RecentCount(),
	})
}
