// Package httpapi serves the ingest endpoint and the read-only views over the
// live telemetry buffer.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/ghalamif/MotionFlow/internal/app/ingest"
	"github.com/ghalamif/MotionFlow/internal/app/poller"
	"github.com/ghalamif/MotionFlow/internal/app/telemetry"
	"github.com/ghalamif/MotionFlow/internal/ports"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// MaxBodyBytes caps one ingest request body.
const MaxBodyBytes = 16 << 20

// Ingester accepts one raw batch payload.
type Ingester interface {
	Accept(raw []byte) (ingest.Result, error)
}

// LiveSource yields the latest poller frame.
type LiveSource interface {
	Latest() (poller.Frame, bool)
}

type Server struct {
	ingester Ingester
	store    *telemetry.Store
	live     LiveSource
	obs      ports.Observability
	now      func() time.Time

	srv *http.Server
}

// New builds the API. live may be nil, in which case /api/live always
// answers 503.
func New(addr string, ingester Ingester, store *telemetry.Store, live LiveSource, obs ports.Observability) *Server {
	s := &Server{
		ingester: ingester,
		store:    store,
		live:     live,
		obs:      obs,
		now:      time.Now,
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/data", s.handleData)
	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/channels", s.handleChannels)
	mux.HandleFunc("GET /api/channels/{name}", s.handleChannel)
	mux.HandleFunc("GET /api/live", s.handleLive)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusOK, "ok")
	})
	return mux
}

// Start serves in the background. Listener errors other than a clean close
// are logged as critical.
func (s *Server) Start() {
	go func() {
		s.obs.LogInfo("http_api_listening", ports.Field{Key: "addr", Value: s.srv.Addr})
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.obs.LogCritical("http_api_exited", err, ports.Field{Key: "addr", Value: s.srv.Addr})
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleData checks the method itself so that any non-POST gets the same
// 400 failure as a malformed body rather than the mux's 405.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeText(w, http.StatusBadRequest, "failure")
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		s.obs.LogError("ingest_body_read_failed", err, ports.Field{Key: "remote", Value: r.RemoteAddr})
		writeText(w, http.StatusBadRequest, "failure")
		return
	}

	res, err := s.ingester.Accept(raw)
	if err != nil {
		s.obs.LogError("ingest_rejected", err,
			ports.Field{Key: "remote", Value: r.RemoteAddr},
			ports.Field{Key: "bytes", Value: len(raw)})
		writeText(w, http.StatusBadRequest, "failure")
		return
	}
	if res.Ignored > 0 {
		s.obs.LogInfo("ingest_unknown_sensors", ports.Field{Key: "ignored", Value: res.Ignored})
	}
	writeText(w, http.StatusOK, "success")
}

type snapshotResponse struct {
	TakenAt  time.Time         `json:"taken_at"`
	Capacity int               `json:"capacity"`
	Channels map[string]Series `json:"channels"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, snapshotResponse{
		TakenAt:  s.now(),
		Capacity: s.store.Capacity(),
		Channels: toSeries(s.store.Snapshot()),
	})
}

type channelInfo struct {
	Name   string `json:"name"`
	Length int    `json:"length"`
}

func (s *Server) handleChannels(w http.ResponseWriter, _ *http.Request) {
	lengths := s.store.Lengths()
	names := s.store.Names()
	out := make([]channelInfo, 0, len(names))
	for _, name := range names {
		out = append(out, channelInfo{Name: name, Length: lengths[name]})
	}
	writeJSON(w, http.StatusOK, map[string]any{"channels": out})
}

type channelResponse struct {
	Name    string `json:"name"`
	Samples Series `json:"samples"`
}

func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	samples, ok := s.store.Channel(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown channel "+name)
		return
	}
	writeJSON(w, http.StatusOK, channelResponse{Name: name, Samples: samples})
}

type liveResponse struct {
	Seq      uint64            `json:"seq"`
	TakenAt  time.Time         `json:"taken_at"`
	Channels map[string]Series `json:"channels"`
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	if s.live == nil {
		writeError(w, http.StatusServiceUnavailable, "live view disabled")
		return
	}
	f, ok := s.live.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no frame yet")
		return
	}
	writeJSON(w, http.StatusOK, liveResponse{
		Seq:      f.Seq,
		TakenAt:  f.TakenAt,
		Channels: toSeries(f.Channels),
	})
}

func toSeries(snap telemetry.Snapshot) map[string]Series {
	out := make(map[string]Series, len(snap))
	for name, samples := range snap {
		out[name] = samples
	}
	return out
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonAPI.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
