package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/carbidz-backend/api/controllers"
	"github.com/angelmondragon/carbidz-backend/api/middleware"
	"github.com/angelmondragon/carbidz-backend/api/responses"
	"github.com/angelmondragon/carbidz-backend/internal/auctions"
	"github.com/angelmondragon/carbidz-backend/internal/bidding"
	"github.com/angelmondragon/carbidz-backend/internal/search"
	"github.com/angelmondragon/carbidz-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/carbidz-backend/pkg/errors"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/carbidz-backend/pkg/redis"
)

// Base carries what every service router needs.
type Base struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency pkgredis.IdempotencyStore
	Gatherer    prometheus.Gatherer
}

func NewAuctionRouter(base Base, svc auctions.Service) http.Handler {
	r := newRouter(base)
	logg := base.Logger
	r.Route("/api/auctions", func(r chi.Router) {
		r.Get("/", controllers.ListAuctions(svc, logg))
		r.Get("/{id}", controllers.GetAuction(svc, logg))
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(base.Config.JWT, logg))
			r.With(middleware.Idempotency(base.Idempotency, logg)).Post("/", controllers.CreateAuction(svc, logg))
			r.Put("/{id}", controllers.UpdateAuction(svc, logg))
			r.Delete("/{id}", controllers.DeleteAuction(svc, logg))
		})
	})
	return r
}

func NewBiddingRouter(base Base, svc bidding.Service) http.Handler {
	r := newRouter(base)
	logg := base.Logger
	r.Route("/api/bids", func(r chi.Router) {
		r.Get("/{auctionId}", controllers.ListBids(svc, logg))
		r.With(
			middleware.Auth(base.Config.JWT, logg),
			middleware.Idempotency(base.Idempotency, logg),
		).Post("/", controllers.PlaceBid(svc, logg))
	})
	return r
}

func NewSearchRouter(base Base, svc search.Service) http.Handler {
	r := newRouter(base)
	r.Get("/api/search", controllers.SearchAuctions(svc, base.Logger))
	return r
}

func newRouter(base Base) chi.Router {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(base.Logger),
		middleware.RequestID(base.Logger),
		middleware.Logging(base.Logger),
		middleware.CORS(base.Config.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(base.Config))
		r.Get("/ready", controllers.HealthReady(base.Config, base.Logger, map[string]controllers.Pinger{
			"db":    base.DB,
			"redis": base.Redis,
		}))
	})

	gatherer := base.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), base.Logger, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), base.Logger, w, pkgerrors.New(pkgerrors.CodeValidation, "method not allowed"))
	})
	return r
}
