package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"meme-market/src/auth"
	"meme-market/src/interfaces"
	"meme-market/src/ledger"
	"meme-market/src/logger"
	"meme-market/src/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var _ interfaces.IDataExchanger = (*MarketServer)(nil)

// -----------------------------------------------------------------------------
// MarketServer
// -----------------------------------------------------------------------------

type MarketServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	Ledger *ledger.Ledger
	Auth   *auth.Service
	OAuth  *auth.OAuthProvider // nil in debug mode
	Hub    *Hub

	engine *gin.Engine
	http   *http.Server
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewMarketServer(cfg *models.MConfig, l *ledger.Ledger, authSvc *auth.Service, oauth *auth.OAuthProvider, log *logger.Logger) (*MarketServer, error) {
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &MarketServer{
		Config: cfg,
		Logger: log,
		Ledger: l,
		Auth:   authSvc,
		OAuth:  oauth,
		Hub:    NewHub(l.Recent, log.Named("hub")),
		engine: gin.New(),
	}

	s.engine.SetHTMLTemplate(tmpl)
	s.engine.Use(gin.Recovery(), s.requestLogger(), corsMiddleware(cfg.Cors.AllowedOrigins))
	s.engine.Use(auth.SessionMiddleware(cfg.Auth.SecretKey), authSvc.Resolve())

	s.setupRoutes()
	return s, nil
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *MarketServer) setupRoutes() {
	s.engine.GET("/", s.getIndex)

	// identity
	s.engine.GET("/login", s.getLogin)
	s.engine.GET(auth.CallbackPath, s.getOAuthAuthorized)
	s.engine.GET("/logout", auth.RequireLogin("/login"), s.getLogout)

	// private
	private := s.engine.Group("/api", auth.RequireUser())
	private.GET("/me", s.getMe)
	private.GET("/buy", s.getBuy)
	private.GET("/sell", s.getSell)

	// public
	s.engine.GET("/api/stock", s.getStock)
	s.engine.GET("/api/stocks", s.getStocks)
	s.engine.GET("/api/history", s.getHistory)
	s.engine.GET("/api/stats", s.getStats)
	s.engine.GET("/api/recent", s.getRecent)
	s.engine.GET("/api/health", s.getHealth)

	// live trades
	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router, mainly for tests.
func (s *MarketServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start runs the trade feed hub and serves HTTP until Stop is called.
func (s *MarketServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.Logger.Info("Starting server on %s", addr)

	go s.Hub.Run()

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *MarketServer) Stop(ctx context.Context) error {
	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}
	s.Hub.Stop()
	s.Logger.Info("Server stopped")
	return err
}

// -----------------------------------------------------------------------------
// Trade publisher
// -----------------------------------------------------------------------------

// Publish pushes a committed trade to connected WebSocket clients.
func (s *MarketServer) Publish(ctx context.Context, txn models.MTransaction) error {
	return s.Hub.Publish(ctx, txn)
}

// Close is a no-op; the hub is stopped with the server.
func (s *MarketServer) Close() error {
	return nil
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *MarketServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// corsMiddleware echoes allowed origins back so browsers may send cookies.
// An empty list or "*" allows every origin.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	allowAll := len(allowed) == 0
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		set[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			if _, ok := set[origin]; ok || allowAll {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				c.Writer.Header().Add("Vary", "Origin")
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
