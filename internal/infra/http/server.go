package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/config"
	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/escrow"
	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/infra/db"
	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/infra/metrics"
	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/usecase"
)

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine

	chain    *usecase.Chain
	machine  *escrow.Machine
	profiles ProfileStore
	cache    ProfileCacheInvalidator
	audit    AuditSink

	adminAPIKey string
}

type ServerDeps struct {
	Store       *db.Store
	Chain       *usecase.Chain
	Machine     *escrow.Machine
	Profiles    ProfileStore
	Cache       ProfileCacheInvalidator
	Audit       AuditSink
	AdminAPIKey string
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:         cfg,
		store:       deps.Store,
		r:           r,
		chain:       deps.Chain,
		machine:     deps.Machine,
		profiles:    deps.Profiles,
		cache:       deps.Cache,
		audit:       deps.Audit,
		adminAPIKey: deps.AdminAPIKey,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		dbMode := "no-db"
		if s.store.Available() {
			dbMode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": dbMode})
	})
	s.r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := s.r.Group("/v1")
	{
		v1.POST("/verify", s.handleVerify)
		v1.GET("/escrows/:escrow_id", s.handleGetEscrow)

		v1.POST("/admin/profiles", s.handleAdminCreateProfile)
	}

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

func (s *Server) Run() error {
	return s.r.Run(s.cfg.HTTPAddr)
}

// Handler exposes the router for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.r
}
