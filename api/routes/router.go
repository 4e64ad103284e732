package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dealerbridge/dealerdesk-backend/api/controllers"
	"github.com/dealerbridge/dealerdesk-backend/api/middleware"
	"github.com/dealerbridge/dealerdesk-backend/internal/notifications"
	"github.com/dealerbridge/dealerdesk-backend/internal/orders"
	"github.com/dealerbridge/dealerdesk-backend/pkg/config"
	"github.com/dealerbridge/dealerdesk-backend/pkg/db"
	"github.com/dealerbridge/dealerdesk-backend/pkg/logger"
	"github.com/dealerbridge/dealerdesk-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	ordersSvc orders.Service,
	notificationsRepo *notifications.Repo,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Post("/", controllers.CreateOrder(ordersSvc, logg))
		r.Post("/quote", controllers.QuoteOrder(ordersSvc, logg))
		r.Post("/{orderId}/approve", controllers.ApproveOrder(ordersSvc, logg))
		r.Post("/{orderId}/reject", controllers.RejectOrder(ordersSvc, logg))
		r.Post("/{orderId}/cancel", controllers.CancelOrder(ordersSvc, logg))
		r.Patch("/{orderId}/status", controllers.UpdateOrderStatus(ordersSvc, logg))
	})

	r.Route("/api/v1/notifications", func(r chi.Router) {
		r.Get("/", controllers.ListNotifications(notificationsRepo, logg))
		r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsRepo, logg))
	})

	return r
}
