package commands

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/modulaur/modulaur/pkg/host"
	"github.com/modulaur/modulaur/pkg/stores"
)

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the host API over HTTP",
		Long: `Start the host and expose its operations over a local HTTP API:
extension listing and lifecycle, page listing, and resolved page views.
Intended for the desktop shell and for local tooling.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, tel, cleanup, err := newServiceWithTelemetry(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := tel.StartMetricsServer(); err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			server := &http.Server{
				Addr:         addr,
				Handler:      newAPIRouter(svc),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 30 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", addr).Msg("API server listening")
				errCh <- server.ListenAndServe()
			}()

			select {
			case <-cmd.Context().Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")

	return cmd
}

func newAPIRouter(svc *host.Service) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	}).Methods("GET")

	api.HandleFunc("/plugins", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, svc.List())
	}).Methods("GET")

	api.HandleFunc("/plugins/{id}", func(w http.ResponseWriter, req *http.Request) {
		info, err := svc.Get(mux.Vars(req)["id"])
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}).Methods("GET")

	api.HandleFunc("/plugins/{id}/reload", func(w http.ResponseWriter, req *http.Request) {
		id := mux.Vars(req)["id"]
		if err := svc.Reload(req.Context(), id); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"reloaded": id})
	}).Methods("POST")

	api.HandleFunc("/plugins/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := mux.Vars(req)["id"]
		removed := svc.Unload(id)
		writeJSON(w, http.StatusOK, map[string]any{"unloaded": id, "units": removed})
	}).Methods("DELETE")

	api.HandleFunc("/reload", func(w http.ResponseWriter, req *http.Request) {
		loaded, err := svc.ReloadAll(req.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"loaded": loaded})
	}).Methods("POST")

	api.HandleFunc("/plugins/{id}/styles", func(w http.ResponseWriter, req *http.Request) {
		css, ok := svc.Styles(mux.Vars(req)["id"])
		if !ok {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		_, _ = w.Write(css)
	}).Methods("GET")

	api.HandleFunc("/pages", func(w http.ResponseWriter, req *http.Request) {
		pages, err := svc.Pages().ListPages(req.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, pages)
	}).Methods("GET")

	api.HandleFunc("/pages/{id}/view", func(w http.ResponseWriter, req *http.Request) {
		view, err := svc.RenderPage(req.Context(), mux.Vars(req)["id"])
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, stores.ErrNotFound) {
				status = http.StatusNotFound
			}
			writeError(w, status, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}).Methods("GET")

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
