package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/compass-hr/pricing-engine/internal/model"
	"github.com/compass-hr/pricing-engine/internal/pricing"
	"github.com/compass-hr/pricing-engine/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pricing API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.RealIP)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", handleHealth)
		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/pricing", handlePricing(env))
			r.Get("/requests", handleListRequests(env))
			r.Get("/requests/{hash}", handleGetRequest(env))
			r.Get("/requests/{hash}/versions", handleListVersions(env))
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handlePricing(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pricing.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, pricing.CodeValidation, "invalid request body", nil)
			return
		}

		resp, err := env.Engine.Price(r.Context(), req)
		if err != nil {
			writePricingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func handleListRequests(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.RequestFilter{
			Requester: r.URL.Query().Get("requester"),
			Limit:     queryInt(r, "limit", 50),
			Offset:    queryInt(r, "offset", 0),
		}

		requests, err := env.Store.ListRequests(r.Context(), filter)
		if err != nil {
			zap.L().Error("list requests failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, pricing.CodeInternal, "failed to list requests", nil)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"requests": requests, "count": len(requests)})
	}
}

func handleGetRequest(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hash := chi.URLParam(r, "hash")

		req, err := env.Store.GetRequestByHash(r.Context(), hash)
		if err != nil {
			zap.L().Error("get request failed", zap.String("hash", hash), zap.Error(err))
			writeError(w, http.StatusInternalServerError, pricing.CodeInternal, "failed to load request", nil)
			return
		}
		if req == nil {
			writeError(w, http.StatusNotFound, pricing.CodeNoMatches, "no request with that hash", nil)
			return
		}

		writeJSON(w, http.StatusOK, req)
	}
}

func handleListVersions(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hash := chi.URLParam(r, "hash")

		req, err := env.Store.GetRequestByHash(r.Context(), hash)
		if err != nil {
			zap.L().Error("get request failed", zap.String("hash", hash), zap.Error(err))
			writeError(w, http.StatusInternalServerError, pricing.CodeInternal, "failed to load request", nil)
			return
		}
		if req == nil {
			writeError(w, http.StatusNotFound, pricing.CodeNoMatches, "no request with that hash", nil)
			return
		}

		versions, err := env.Store.ListResultVersions(r.Context(), req.ID)
		if err != nil {
			zap.L().Error("list versions failed", zap.String("hash", hash), zap.Error(err))
			writeError(w, http.StatusInternalServerError, pricing.CodeInternal, "failed to list versions", nil)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"request": req, "versions": versions})
	}
}

// writePricingError maps the engine's error taxonomy onto HTTP statuses.
func writePricingError(w http.ResponseWriter, err error) {
	code := pricing.CodeOf(err)

	var status int
	switch code {
	case pricing.CodeValidation:
		status = http.StatusBadRequest
	case pricing.CodeNoMatches:
		status = http.StatusNotFound
	case pricing.CodeNoDataAvailable:
		status = http.StatusUnprocessableEntity
	case pricing.CodeSourceUnavailable:
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
		zap.L().Error("pricing failed", zap.Error(err))
	}

	writeError(w, status, code, eris.Cause(err).Error(), pricing.PartialMatches(err))
}

func writeError(w http.ResponseWriter, status int, code pricing.Code, msg string, partial []model.MatchedJob) {
	body := map[string]any{"error": code, "message": msg}
	if len(partial) > 0 {
		body["partial_matches"] = partial
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
