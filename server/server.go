// Package server exposes a cache.Manager over HTTP.
package server

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xhit/go-str2duration/v2"

	"github.com/agentuity/go-objectcache/cache"
	"github.com/agentuity/go-objectcache/logger"
)

// MaxBodySize is the largest value accepted by PUT.
const MaxBodySize = 1 << 20

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type handler struct {
	cache *cache.Manager
	log   logger.Logger
}

// New returns the HTTP API for m. Metrics gathered from reg are served on
// /metrics; a nil reg leaves the route out.
func New(m *cache.Manager, reg prometheus.Gatherer, log logger.Logger) http.Handler {
	h := &handler{cache: m, log: log.WithPrefix("[server]")}
	r := mux.NewRouter()
	r.Use(h.logRequests)

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)

	r.HandleFunc("/v1/cache", h.clear).Methods(http.MethodDelete)
	r.HandleFunc("/v1/cache/{key:.+}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/v1/cache/{key:.+}", h.exists).Methods(http.MethodHead)
	r.HandleFunc("/v1/cache/{key:.+}", h.put).Methods(http.MethodPut)
	r.HandleFunc("/v1/cache/{key:.+}", h.unset).Methods(http.MethodDelete)

	if reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}

// Run serves handler on addr until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, addr string, handler http.Handler, log logger.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		log.Info("listening on %s", addr)
		errs <- srv.ListenAndServe()
	}()
	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return errors.Wrap(err, "failed to shut down server")
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.log.Debug("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(started))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *handler) fail(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed: %s", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	val, found, err := cache.Get[any](r.Context(), h.cache, key)
	if err != nil {
		h.fail(w, http.StatusInternalServerError, err)
		return
	}
	if !found {
		h.fail(w, http.StatusNotFound, errors.Newf("%q not found", key))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "value": val})
}

func (h *handler) exists(w http.ResponseWriter, r *http.Request) {
	if h.cache.Exists(r.Context(), mux.Vars(r)["key"]) {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *handler) put(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	ttl := cache.NoExpiry
	if v := r.URL.Query().Get("ttl"); v != "" {
		d, err := str2duration.ParseDuration(v)
		if err != nil {
			h.fail(w, http.StatusBadRequest, errors.Newf("invalid ttl %q", v))
			return
		}
		ttl = d
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(w, http.StatusRequestEntityTooLarge, errors.Newf("value exceeds %d bytes", MaxBodySize))
			return
		}
		h.fail(w, http.StatusBadRequest, err)
		return
	}
	var val any
	if err := json.Unmarshal(body, &val); err != nil {
		h.fail(w, http.StatusBadRequest, errors.Wrap(err, "body must be a JSON document"))
		return
	}
	if err := h.cache.Put(r.Context(), key, val, ttl); err != nil {
		h.fail(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// unset keeps the key with a null value unless purge is requested.
func (h *handler) unset(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	purge, _ := strconv.ParseBool(r.URL.Query().Get("purge"))
	if !purge {
		if err := h.cache.Unset(r.Context(), key); err != nil {
			h.fail(w, http.StatusInternalServerError, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	found, err := h.cache.Delete(r.Context(), key)
	if err != nil {
		h.fail(w, http.StatusInternalServerError, err)
		return
	}
	if !found {
		h.fail(w, http.StatusNotFound, errors.Newf("%q not found", key))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Clear(r.Context()); err != nil {
		h.fail(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
