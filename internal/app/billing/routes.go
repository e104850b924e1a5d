package billing

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/trainrup/billing/internal/http/handlers/admin/block"
	"github.com/trainrup/billing/internal/http/handlers/admin/subscriptionupdate"
	"github.com/trainrup/billing/internal/http/handlers/admin/unblock"
	"github.com/trainrup/billing/internal/http/handlers/auth/login"
	"github.com/trainrup/billing/internal/http/handlers/auth/register"
	"github.com/trainrup/billing/internal/http/handlers/client/clientcreate"
	"github.com/trainrup/billing/internal/http/handlers/health"
	"github.com/trainrup/billing/internal/http/handlers/mpesa/callback"
	"github.com/trainrup/billing/internal/http/handlers/mpesa/initiate"
	"github.com/trainrup/billing/internal/http/handlers/payment/paymentcreate"
	"github.com/trainrup/billing/internal/http/handlers/payment/paymentlist"
	"github.com/trainrup/billing/internal/http/handlers/payment/paymentmarkfailed"
	"github.com/trainrup/billing/internal/http/handlers/payment/paymentmarkpaid"
	"github.com/trainrup/billing/internal/http/handlers/payment/paymentoverdue"
	"github.com/trainrup/billing/internal/http/handlers/payment/paymentread"
	"github.com/trainrup/billing/internal/http/handlers/payment/paymentreceipt"
	"github.com/trainrup/billing/internal/http/handlers/payment/paymentrefund"
	"github.com/trainrup/billing/internal/http/handlers/payment/paymentremove"
	"github.com/trainrup/billing/internal/http/handlers/payment/paymentstatistics"
	"github.com/trainrup/billing/internal/http/handlers/subscription/status"
	"github.com/trainrup/billing/internal/http/middlewarectx"
	authservice "github.com/trainrup/billing/internal/services/auth"
	clientservice "github.com/trainrup/billing/internal/services/client"
	coordinatorservice "github.com/trainrup/billing/internal/services/coordinator"
	paymentservice "github.com/trainrup/billing/internal/services/payment"
	subscriptionservice "github.com/trainrup/billing/internal/services/subscription"
	"github.com/trainrup/billing/internal/storage/repository"
)

// RegisterRoutes wires every endpoint of the service. The gateway
// callback stays outside the authenticated group: the gateway carries no
// bearer token, correlation happens by checkout request id.
func RegisterRoutes(r chi.Router, logger *slog.Logger, db *repository.Storage,
	authSvc *authservice.Service,
	paymentSvc *paymentservice.Service,
	coordinatorSvc *coordinatorservice.Service,
	subscriptionSvc *subscriptionservice.Service,
	clientSvc *clientservice.Service,
) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Open endpoints
		r.Post("/register", register.New(logger, authSvc).ServeHTTP)
		r.Post("/login", login.New(logger, authSvc).ServeHTTP)
		r.Post("/payments/mpesa/callback", callback.New(logger, coordinatorSvc).ServeHTTP)
		r.Get("/health", health.New(logger, db).ServeHTTP)

		// Authenticated group: valid token, unblocked account, active
		// subscription.
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authSvc, logger))
			r.Use(middlewarectx.AccessGateMiddleware(db, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))

			r.Post("/payments", paymentcreate.New(logger, paymentSvc).ServeHTTP)
			r.Get("/payments", paymentlist.New(logger, paymentSvc).ServeHTTP)
			r.Get("/payments/overdue", paymentoverdue.New(logger, paymentSvc).ServeHTTP)
			r.Get("/payments/statistics", paymentstatistics.New(logger, paymentSvc).ServeHTTP)
			r.Get("/payments/{id}", paymentread.New(logger, paymentSvc).ServeHTTP)
			r.Delete("/payments/{id}", paymentremove.New(logger, paymentSvc).ServeHTTP)
			r.Post("/payments/{id}/mark-paid", paymentmarkpaid.New(logger, paymentSvc).ServeHTTP)
			r.Post("/payments/{id}/mark-failed", paymentmarkfailed.New(logger, paymentSvc).ServeHTTP)
			r.Post("/payments/{id}/refund", paymentrefund.New(logger, paymentSvc).ServeHTTP)
			r.Get("/payments/{id}/receipt", paymentreceipt.New(logger, paymentSvc).ServeHTTP)
			r.Post("/payments/{id}/mpesa", initiate.New(logger, coordinatorSvc).ServeHTTP)

			r.Post("/clients", clientcreate.New(logger, clientSvc).ServeHTTP)

			r.Get("/subscription/status", status.New(logger, subscriptionSvc).ServeHTTP)
			r.Get("/subscription/status/{uid}", status.New(logger, subscriptionSvc).ServeHTTP)

			r.Patch("/admin/trainers/{uid}/subscription", subscriptionupdate.New(logger, subscriptionSvc).ServeHTTP)
			r.Post("/admin/trainers/{uid}/block", block.New(logger, subscriptionSvc).ServeHTTP)
			r.Post("/admin/trainers/{uid}/unblock", unblock.New(logger, subscriptionSvc).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
