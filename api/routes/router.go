package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/streetconnect/streetconnect-backend/api/controllers"
	"github.com/streetconnect/streetconnect-backend/api/middleware"
	"github.com/streetconnect/streetconnect-backend/internal/catalog"
	"github.com/streetconnect/streetconnect-backend/internal/groupbuys"
	"github.com/streetconnect/streetconnect-backend/pkg/config"
	"github.com/streetconnect/streetconnect-backend/pkg/db"
	"github.com/streetconnect/streetconnect-backend/pkg/enums"
	"github.com/streetconnect/streetconnect-backend/pkg/logger"
	"github.com/streetconnect/streetconnect-backend/pkg/redis"
)

// RouterParams collect everything the HTTP surface depends on.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            db.Pinger
	Redis         redis.Pinger
	GroupBuys     groupbuys.Service
	Ledger        groupbuys.Participation
	Catalog       catalog.Service
	MetricsGather prometheus.Gatherer
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.Redis))
	})

	gatherer := params.MetricsGather
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Get("/ping", controllers.PrivatePing())

		r.Route("/group-buys", func(r chi.Router) {
			r.Get("/", controllers.GroupBuyList(params.GroupBuys, logg))
			r.Get("/{groupBuyId}", controllers.GroupBuyDetail(params.GroupBuys, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.UserRoleVendor.String(), logg))
				r.Post("/", controllers.GroupBuyCreate(params.GroupBuys, logg))
				r.Get("/mine", controllers.GroupBuyListMine(params.GroupBuys, logg))
				r.Post("/{groupBuyId}/join", controllers.GroupBuyJoin(params.Ledger, logg))
				r.Post("/{groupBuyId}/amend", controllers.GroupBuyAmend(params.Ledger, logg))
				r.Post("/{groupBuyId}/withdraw", controllers.GroupBuyWithdraw(params.Ledger, logg))
				r.Post("/{groupBuyId}/cancel", controllers.GroupBuyCancel(params.GroupBuys, logg))
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(params.Catalog, logg))
			r.Get("/{productId}", controllers.ProductDetail(params.Catalog, logg))
		})

		r.Route("/supplier/products", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleSupplier.String(), logg))
			r.Get("/", controllers.ProductListMine(params.Catalog, logg))
			r.Post("/", controllers.ProductCreate(params.Catalog, logg))
			r.Patch("/{productId}", controllers.ProductUpdate(params.Catalog, logg))
			r.Delete("/{productId}", controllers.ProductDelete(params.Catalog, logg))
		})
	})

	return r
}
