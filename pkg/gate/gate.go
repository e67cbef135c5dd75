// Package gate serves the main page to visitors who pass every validator
// and a decoy page to everyone else.
package gate

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/gokaycavdar/go-geogate/pkg/config"
	"github.com/gokaycavdar/go-geogate/pkg/metrics"
	"github.com/gokaycavdar/go-geogate/pkg/models"
)

const (
	// CookieName marks a visitor who already passed validation.
	CookieName = "valid_visitor"

	// DebugParam forces a page when debug pages are enabled.
	DebugParam = "debug_page"
)

// Pages.
const (
	PageMain = "main"
	PageFake = "fake"
)

// Reasons a page was served.
const (
	ReasonDebug     = "debug"
	ReasonCookie    = "cookie"
	ReasonValidated = "validated"
	ReasonRejected  = "rejected"
)

type Gate struct {
	validators   []Validator
	extractor    IPExtractor
	mainTemplate string
	fakeTemplate string
	debugPages   bool
	cookieTTL    time.Duration
	metrics      *metrics.Metrics
}

// New builds a Gate. Validators run in the given order.
func New(cfg config.GateConfig, extractor IPExtractor, m *metrics.Metrics, validators ...Validator) *Gate {
	return &Gate{
		validators:   validators,
		extractor:    extractor,
		mainTemplate: cfg.MainTemplate,
		fakeTemplate: cfg.FakeTemplate,
		debugPages:   cfg.DebugPages,
		cookieTTL:    cfg.CookieTTL,
		metrics:      m,
	}
}

// Handle is the gin handler for visitor pages.
func (g *Gate) Handle(c *gin.Context) {
	if g.debugPages {
		if page, ok := c.GetQuery(DebugParam); ok {
			g.debug(c, page)
			return
		}
	}

	if value, err := c.Cookie(CookieName); err == nil && value == "1" {
		g.serve(c, PageMain, ReasonCookie)
		return
	}

	visitor := models.NewVisitor(g.extractor.ClientIP(c.Request), c.Request.Header)
	log.Debug("Validating visitor", "ip", visitor.IPAddress, "referrer", visitor.Referer, "user_agent", visitor.UserAgent)

	ok, failed := validateAll(c.Request.Context(), visitor, g.validators)
	if !ok {
		log.Info("Visitor rejected", "ip", visitor.IPAddress, "validator", failed)
		g.serve(c, PageFake, ReasonRejected)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "1", int(g.cookieTTL/time.Second), "/", "", false, true)
	g.serve(c, PageMain, ReasonValidated)
}

func (g *Gate) debug(c *gin.Context, page string) {
	switch page {
	case PageMain, PageFake:
		g.serve(c, page, ReasonDebug)
	default:
		c.String(http.StatusBadRequest, "unknown %s %q", DebugParam, page)
	}
}

func (g *Gate) serve(c *gin.Context, page, reason string) {
	g.metrics.ObservePage(page, reason)

	path := g.fakeTemplate
	if page == PageMain {
		path = g.mainTemplate
	}

	// The same URL answers differently per visitor.
	c.Header("Cache-Control", "no-store")
	c.File(path)
}
