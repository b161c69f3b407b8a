package workers

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gobetrelay/config"
	"gobetrelay/workers/handlers"
)

func NewRouter(api *handlers.API, cfg *config.Configuration, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	r.Get("/state", handlers.State)
	r.Get("/health", api.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Get("/balance", api.Balance)
	r.Get("/balance/plain", api.BalancePlain)
	r.Get("/markets", api.ListMarkets)

	r.Route("/universal", func(r chi.Router) {
		r.Get("/supported-chains", api.SupportedChains)
		r.Get("/quote", api.Quote)
		r.Get("/address", api.Address)
		r.Post("/verify-signature", api.VerifySignature)
		r.With(RateLimit(cfg.Server.RateLimitPerMin)).Post("/place-bet", api.PlaceBet)
	})
	r.Post("/bridge/verify", api.BridgeVerify)

	r.Get("/stats/{status}", api.GetRelaysByStatus)

	return r
}

// Worker_HTTP serves until ctx is cancelled, then shuts the server down
func Worker_HTTP(ctx context.Context, handler http.Handler, cfg *config.Configuration, logger *zap.Logger) error {
	logger.Info("Starting HTTP service", zap.String("listen", cfg.Server.Listen), zap.Bool("ssl", cfg.Server.UseSSL))

	server := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Server.UseSSL {
		cert, err := tls.LoadX509KeyPair("certchain.pem", "privatekey.pem")
		if err != nil {
			return err
		}
		server.Addr = ":443"
		server.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.Server.UseSSL {
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Info("HTTP service started")

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Info("HTTP service stopped")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP service shutdown error", zap.Error(err))
		return err
	}
	logger.Info("HTTP service shutdown normal")
	return nil
}

// CORS answers preflight requests before routing, so mounted subrouters need no OPTIONS routes
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		CORSHeaders(w, r)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func CORSHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Origin, X-Requested-With")
}
