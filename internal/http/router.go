package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/smarteventhub/internal/auth"
	"github.com/geocoder89/smarteventhub/internal/cache"
	"github.com/geocoder89/smarteventhub/internal/config"
	"github.com/geocoder89/smarteventhub/internal/http/handlers"
	"github.com/geocoder89/smarteventhub/internal/http/middlewares"
	"github.com/geocoder89/smarteventhub/internal/observability"
	"github.com/geocoder89/smarteventhub/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20 // request bodies are JSON only, uploads go elsewhere

// NewRouter wires middlewares, repositories and handlers into the HTTP
// surface. The certificate dispatcher is built by the caller because the
// worker binary shares its mailer wiring.
func NewRouter(
	cfg config.Config,
	log *slog.Logger,
	pool *pgxpool.Pool,
	eventCache *cache.EventCache,
	dispatcher handlers.CertificateDispatcher,
	prom *observability.Prom,
	promReg *prometheus.Registry,
) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(otelgin.Middleware("smarteventhub"))
	r.Use(prom.GinMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware([]string{cfg.FrontendURL}))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// health
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))

	// wire up repositories
	eventsRepo := postgres.NewEventsRepo(pool, prom)
	participantsRepo := postgres.NewParticipantsRepo(pool, prom)
	accountsRepo := postgres.NewAccountsRepo(pool, prom)
	jobsRepo := postgres.NewJobsRepo(pool, prom)

	// wire up handlers
	jwt := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL)
	authMw := middlewares.NewAuthMiddleware(jwt)

	authHandler := handlers.NewAuthHandler(accountsRepo, jwt)
	eventsHandler := handlers.NewEventsHandler(eventsRepo, participantsRepo, eventCache, cfg.FrontendURL)
	participantsHandler := handlers.NewParticipantsHandler(participantsRepo, eventsRepo, jobsRepo, eventCache, log)
	certificatesHandler := handlers.NewCertificatesHandler(dispatcher, eventsRepo)

	// rate limits: the public surface is limited by IP, the management
	// surface by account
	publicLimit := middlewares.NewRateLimiter(30, time.Minute)
	loginLimit := middlewares.NewRateLimiter(10, time.Minute)
	apiLimit := middlewares.NewRateLimiter(240, time.Minute)

	// unauthenticated surface
	pub := r.Group("/public", publicLimit.RateLimiterMiddleware(middlewares.KeyByIP))
	{
		pub.GET("/events/:shareId", eventsHandler.PublicGetByShareID)
		pub.POST("/events/:shareId/register", participantsHandler.PublicRegister)
	}

	authGroup := r.Group("/auth", loginLimit.RateLimiterMiddleware(middlewares.KeyByIP))
	{
		authGroup.POST("/signup", authHandler.SignUp)
		authGroup.POST("/login", authHandler.Login)
	}

	// management surface
	api := r.Group("/",
		authMw.RequireAuth(),
		apiLimit.RateLimiterMiddleware(middlewares.KeyByAccountOrIP),
	)

	manageEvents := authMw.RequireCapability(middlewares.CapManageEvents)

	api.POST("/events", manageEvents, eventsHandler.CreateEvent)
	api.GET("/events", manageEvents, eventsHandler.ListEvents)
	api.GET("/events/:id", manageEvents, eventsHandler.GetEventById)
	api.PUT("/events/:id", manageEvents, eventsHandler.UpdateEvent)
	api.DELETE("/events/:id", manageEvents, eventsHandler.DeleteEvent)
	api.GET("/events/:id/share-link", manageEvents, eventsHandler.ShareLink)

	api.GET("/events/:id/participants", manageEvents, participantsHandler.ListParticipants)
	api.GET("/events/:id/participants/export",
		authMw.RequireCapability(middlewares.CapExportParticipants),
		participantsHandler.ExportParticipantsCSV,
	)

	dispatchCerts := authMw.RequireCapability(middlewares.CapDispatchCertificates)

	api.POST("/events/:id/certificates", dispatchCerts, certificatesHandler.SendAll)
	api.POST("/events/:id/certificates/selected", dispatchCerts, certificatesHandler.SendSelected)

	manageManagers := authMw.RequireCapability(middlewares.CapManageManagers)

	api.POST("/managers", manageManagers, authHandler.CreateEventManager)
	api.GET("/managers", manageManagers, authHandler.ListEventManagers)
	api.DELETE("/managers/:id", manageManagers, authHandler.DeleteEventManager)

	return r
}
