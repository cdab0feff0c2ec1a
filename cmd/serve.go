package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-cli/internal/model"
	"github.com/sells-group/catalog-cli/internal/monitoring"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ingestion API server",
	Long:  "Accepts datasource fragments over HTTP, triggers batch aggregation passes, and exposes pipeline stats.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}

		alerter := monitoring.NewAlerter(cfg.Monitoring, cfg.Indexation.QueueMaxSize)
		checker := monitoring.NewChecker(env.Metrics, alerter, cfg.Monitoring)
		go checker.Run(ctx)

		router := newRouter(env)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
			env.Close(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newRouter builds the HTTP surface of the aggregation engine.
func newRouter(env *pipelineEnv) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/fragments", func(w http.ResponseWriter, r *http.Request) {
		var frag model.Fragment
		if err := json.NewDecoder(r.Body).Decode(&frag); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if frag.Timestamp.IsZero() {
			frag.Timestamp = time.Now().UTC()
		}

		if err := env.Facade.OnFragment(r.Context(), &frag); err != nil {
			if err2 := frag.Validate(); err2 != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err2.Error()})
				return
			}
			zap.L().Error("fragment ingestion failed",
				zap.String("gtin", frag.GTIN),
				zap.String("datasource", frag.Datasource),
				zap.Error(err),
			)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "ingestion failed"})
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status": "accepted",
			"gtin":   frag.GTIN,
		})
	})

	r.Post("/aggregate/{vertical}", func(w http.ResponseWriter, r *http.Request) {
		verticalID := chi.URLParam(r, "vertical")
		if env.Verticals.ConfigByID(verticalID) == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown vertical: " + verticalID})
			return
		}

		// Batch passes over a full vertical can outlive the request.
		go func() {
			if err := env.Facade.BatchVertical(context.WithoutCancel(r.Context()), verticalID); err != nil {
				zap.L().Error("batch pass failed",
					zap.String("vertical", verticalID),
					zap.Error(err),
				)
			}
		}()
		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":   "accepted",
			"vertical": verticalID,
		})
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, env.Metrics.Collect())
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
