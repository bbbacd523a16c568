package bootstrap

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/lawfirm-intake/internal/api/router"
	appconfig "github.com/wolfman30/lawfirm-intake/internal/config"
	"github.com/wolfman30/lawfirm-intake/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/lawfirm-intake/internal/http/middleware"
	"github.com/wolfman30/lawfirm-intake/pkg/logging"
)

// BuildHTTPHandler assembles the public and admin routes over rt. The
// returned limiter should have its cleanup loop started by the caller.
func BuildHTTPHandler(rt *Runtime, cfg *appconfig.Config, gatherer prometheus.Gatherer, logger *logging.Logger) (http.Handler, *httpmiddleware.RateLimiter) {
	if logger == nil {
		logger = logging.Default()
	}
	limiter := httpmiddleware.NewRateLimiter(cfg.IntakeRateLimit, cfg.IntakeRateBurst)

	routerCfg := &router.Config{
		Logger:        logger,
		Intake:        handlers.NewIntakeHandler(rt.Pipeline, cfg.DefaultAcquisitionSrc, logger.WithComponent("intake")),
		AdminRecords:  handlers.NewAdminRecordsHandler(rt.Records, cfg.DisplayLocation(), logger.WithComponent("admin")),
		IntakeLimiter: limiter,
		AdminSession: handlers.NewAdminSessionHandler(handlers.AdminSessionConfig{
			Password:     cfg.AdminPassword,
			Secret:       cfg.AdminSessionSecret,
			TTL:          cfg.AdminSessionTTL,
			SecureCookie: cfg.Env != "development",
		}, logger.WithComponent("admin")),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}
	if gatherer != nil {
		routerCfg.MetricsHandler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	return router.New(routerCfg), limiter
}
