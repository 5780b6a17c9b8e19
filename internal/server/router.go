package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	cashcontroller "comanda/internal/cash/controller"
	ordercontroller "comanda/internal/order/controller"
	settingscontroller "comanda/internal/settings/controller"
	tablecontroller "comanda/internal/table/controller"
)

type Handlers struct {
	Orders   *ordercontroller.OrderController
	Tables   *tablecontroller.TableController
	Cash     *cashcontroller.CashController
	Settings *settingscontroller.SettingsController
	Realtime http.HandlerFunc
	Metrics  http.Handler
}

func NewRouter(h Handlers, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", h.Metrics)
	r.Get("/ws", h.Realtime)

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.Orders.List)
		r.Post("/", h.Orders.Create)
		r.Post("/checkout", h.Orders.Checkout)
		r.Post("/transitions/check", h.Orders.CheckTransitions)
		r.Route("/{orderId}", func(r chi.Router) {
			r.Get("/", h.Orders.Get)
			r.Patch("/status", h.Orders.UpdateStatus)
			r.Post("/auto-progress", h.Orders.ToggleAutoProgress)
			r.Post("/items", h.Orders.AddItems)
			r.Post("/close", h.Orders.CloseAccount)
		})
	})

	r.Route("/tables", func(r chi.Router) {
		r.Get("/", h.Tables.List)
		r.Patch("/{tableId}", h.Tables.UpdateStatus)
	})

	r.Route("/cash/sessions", func(r chi.Router) {
		r.Get("/", h.Cash.ListSessions)
		r.Post("/", h.Cash.OpenSession)
		r.Get("/active", h.Cash.GetActiveSession)
		r.Post("/{sessionId}/close", h.Cash.CloseSession)
		r.Post("/{sessionId}/adjustments", h.Cash.AddAdjustment)
	})

	r.Get("/settings/order-flow", h.Settings.GetOrderFlow)
	r.Put("/settings/order-flow", h.Settings.UpdateOrderFlow)
	r.Get("/settings/store-hours", h.Settings.GetStoreHours)
	r.Put("/settings/store-hours", h.Settings.UpdateStoreHours)

	return r
}

// requestLogger logs one line per request. The websocket endpoint is logged on upgrade only.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
