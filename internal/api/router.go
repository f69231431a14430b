package api

import (
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/httprate"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/unrolled/secure"

	"github.com/deeprisk/fee-risk-system/internal/api/handler"
	"github.com/deeprisk/fee-risk-system/internal/api/middleware"
	"github.com/deeprisk/fee-risk-system/internal/core/ports"
	"github.com/deeprisk/fee-risk-system/internal/infrastructure/http/handlers"
)

const defaultLoginRateLimit = 10

// GatewayDeps are the collaborators of the edge service.
type GatewayDeps struct {
	Logger      zerolog.Logger
	ServiceName string
	Development bool

	Validator ports.TokenValidator
	Auth      *handler.AuthHandler
	Risk      *handler.RiskHandler

	// QueryService is where every other /api/* request is proxied.
	QueryService *url.URL
	// LoginRateLimit is the number of login attempts allowed per IP per minute.
	LoginRateLimit int
	Readiness      map[string]handlers.Check
}

// NewGatewayRouter builds the edge service. Identity is resolved in Pre, so
// no route below runs for a request with a bad credential.
func NewGatewayRouter(d GatewayDeps) *echo.Echo {
	e := newEcho(d.Logger)

	e.Pre(middleware.Edge(middleware.EdgeConfig{
		Validator: d.Validator,
		AllowList: middleware.NewAllowList(middleware.DefaultAllowList...),
		Logger:    d.Logger,
	}))

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Logger))
	e.Use(echo.WrapMiddleware(secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		IsDevelopment:      d.Development,
	}).Handler))

	registerProbes(e, d.ServiceName, d.Readiness)

	// --- Auth routes ---
	limit := d.LoginRateLimit
	if limit <= 0 {
		limit = defaultLoginRateLimit
	}
	e.POST("/api/auth/login", d.Auth.Login, echo.WrapMiddleware(httprate.LimitByIP(limit, time.Minute)))
	e.POST("/api/auth/register", d.Auth.Register, middleware.RequirePrivileged())

	// --- Async risk assessment ---
	risk := e.Group("/async-risk-assessment")
	risk.POST("/assess", d.Risk.Submit)
	risk.POST("/result", d.Risk.Result, middleware.RequirePrivileged())
	risk.GET("/:id", d.Risk.Poll)

	// --- Everything else under /api goes to the fee query service ---
	if d.QueryService != nil {
		proxy := echomiddleware.ProxyWithConfig(echomiddleware.ProxyConfig{
			Balancer: echomiddleware.NewRoundRobinBalancer([]*echomiddleware.ProxyTarget{
				{Name: "fee-query", URL: d.QueryService},
			}),
			ErrorHandler: func(c echo.Context, err error) error {
				d.Logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("upstream request failed")
				return echo.NewHTTPError(http.StatusBadGateway, "upstream unavailable")
			},
		})
		e.Any("/api/*", func(c echo.Context) error { return echo.ErrNotFound }, proxy)
	}

	return e
}

// QueryDeps are the collaborators of the fee query service.
type QueryDeps struct {
	Logger      zerolog.Logger
	ServiceName string

	// Verifier re-checks the forwarded credential when set.
	Verifier    ports.TokenValidator
	Settlements *handler.SettlementHandler
	Readiness   map[string]handlers.Check
}

// NewQueryRouter builds the downstream fee query service. It trusts the
// gateway's propagation headers and fails closed without them.
func NewQueryRouter(d QueryDeps) *echo.Echo {
	e := newEcho(d.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Logger))
	e.Use(middleware.Identity(middleware.IdentityConfig{
		AllowList: middleware.NewAllowList("/health", "/health/ready", "/metrics"),
		Verifier:  d.Verifier,
		Logger:    d.Logger,
	}))

	registerProbes(e, d.ServiceName, d.Readiness)

	e.POST("/api/settlements/search", d.Settlements.Search)
	e.POST("/api/cache/clear", d.Settlements.ClearCache, middleware.RequirePrivileged())

	return e
}

func newEcho(log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)
	return e
}

func registerProbes(e *echo.Echo, service string, checks map[string]handlers.Check) {
	e.GET("/health", handlers.NewHealthHandler(service).Liveness)             // liveness  – is the process alive?
	e.GET("/health/ready", handlers.NewHealthDependenciesHandler(checks).Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
