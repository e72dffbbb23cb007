// Package server exposes the tracker over HTTP: the current note, scale
// generation, a WebSocket stream of detected notes and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/0xlemi/notetracker/internal/pitch"
)

// eventBuffer is how many detected notes a slow client may fall behind
// before events are dropped for it.
const eventBuffer = 16

// NoteSource is the part of the tracker the server reads from.
type NoteSource interface {
	Snapshot() pitch.Note
	Subscribe(fn func(name string)) (unsubscribe func())
}

// Event is one detected note as streamed on /api/events.
type Event struct {
	Note string    `json:"note"`
	Time time.Time `json:"time"`
}

// ScaleResponse is the body of /api/scale.
type ScaleResponse struct {
	Root      string   `json:"root"`
	Intervals []int    `json:"intervals"`
	Notes     []string `json:"notes"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server serves the tracker API.
type Server struct {
	src   NoteSource
	sharp bool
	http  *http.Server
}

// New creates a server listening on addr. sharp selects the default spelling
// for generated scales.
func New(addr string, src NoteSource, sharp bool) *Server {
	s := &Server{src: src, sharp: sharp}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/api/note", s.handleNote).Methods(http.MethodGet)
	router.HandleFunc("/api/scale", s.handleScale).Methods(http.MethodGet)
	router.HandleFunc("/api/events", s.handleEvents).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet},
	}).Handler(router)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %q: %w", s.http.Addr, err)
	}
	slog.Info("http server listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: serve: %w", err)
	}
	return nil
}

func (s *Server) handleNote(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.src.Snapshot())
}

// handleScale serves GET /api/scale?root=C&intervals=2,4,5&sharp=false
func (s *Server) handleScale(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	root := q.Get("root")
	if root == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "root is required"})
		return
	}

	sharp := s.sharp
	if v := q.Get("sharp"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("sharp %q is not a boolean", v)})
			return
		}
		sharp = b
	}

	intervals := []int{}
	if v := q.Get("intervals"); v != "" {
		for _, field := range strings.Split(v, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(field))
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("interval %q is not an integer", field)})
				return
			}
			intervals = append(intervals, n)
		}
	}

	notes, err := pitch.GenerateScale(root, sharp, intervals...)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pitch.ErrUnknownNote) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, ScaleResponse{Root: root, Intervals: intervals, Notes: notes})
}

// handleEvents upgrades to a WebSocket and streams every detected note until
// the client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		slog.Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	events := make(chan Event, eventBuffer)
	unsubscribe := s.src.Subscribe(func(name string) {
		select {
		case events <- Event{Note: name, Time: time.Now()}:
		default:
			slog.Debug("dropping note event for slow client", "note", name)
		}
	})
	defer unsubscribe()

	// Incoming frames are discarded; the returned context ends when the
	// client closes.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			data, err := json.Marshal(ev)
			if err != nil {
				slog.Error("marshal note event", "err", err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				slog.Debug("websocket write failed", "err", err)
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write json response", "err", err)
	}
}
