package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"ecofund/internal/http/handlers"
	"ecofund/internal/middleware"
)

// Options carries the request-pipeline settings of the router.
type Options struct {
	JWTSecret       string
	CORSOrigins     []string
	RateLimitPerMin int
	CountryLookup   middleware.CountryLookup
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(
		chimw.RealIP,
		middleware.RequestID,
		middleware.Logger(app.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.CORSOrigins),
	)

	requireAuth := middleware.AuthJWT(opts.JWTSecret)
	paymentLimit := middleware.RateLimit(opts.RateLimitPerMin, time.Minute)
	clientInfo := middleware.ClientInfo(opts.CountryLookup)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Get("/openapi.json", app.OpenAPIJSON)
		r.Get("/docs", app.OpenAPIDocs)

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", app.CampaignsList)
			r.Get("/stats", app.CampaignsStats)
			r.Get("/{id}", app.CampaignsGet)
			r.Get("/{id}/donations", app.CampaignDonations)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth, middleware.RequireAdmin)
				r.Post("/", app.CampaignsCreate)
				r.Put("/{id}", app.CampaignsUpdate)
				r.Delete("/{id}", app.CampaignsDelete)
				r.Post("/{id}/recompute", app.CampaignsRecompute)
				r.Post("/{id}/updates", app.CampaignsAddUpdate)
			})
		})

		r.Route("/donations", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/my", app.DonationsMine)
			r.Get("/{id}", app.DonationsGet)
			r.Get("/{id}/receipt", app.DonationsReceipt)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/stats", app.DonationsStats)
				r.With(clientInfo).Post("/pledges", app.DonationsPledge)
				r.Patch("/{id}/status", app.DonationsUpdateStatus)
				r.Post("/{id}/refund", app.DonationsRefund)
			})
		})

		r.Route("/payments", func(r chi.Router) {
			// Provider callbacks authenticate by signature, not bearer token.
			r.Post("/webhook", app.PaymentsWebhook)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth, paymentLimit, clientInfo)
				r.Post("/checkout-session", app.PaymentsCheckoutSession)
				r.Post("/payment-success", app.PaymentsSuccess)
				r.Get("/payment-status/{sessionId}", app.PaymentsStatus)
			})
		})
	})

	return r
}
