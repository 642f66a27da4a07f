// Package server exposes rooms over HTTP: a websocket per player per room
// and a small REST surface for room administration.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lazharichir/pokerroom/hands"
	"github.com/lazharichir/pokerroom/history"
	"github.com/lazharichir/pokerroom/room"
	"github.com/lazharichir/pokerroom/server/connection"
	"github.com/lazharichir/pokerroom/server/events"
	"github.com/lazharichir/pokerroom/server/handlers"
	"github.com/lazharichir/pokerroom/server/protocol"
	"github.com/lazharichir/pokerroom/store"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Options configure a Server. Zero values pick the defaults.
type Options struct {
	// AllowedOrigins lists the browser origins allowed to open sockets and
	// call the API. Empty allows any origin.
	AllowedOrigins []string

	// Defaults fills the timing of rooms created without one
	Defaults room.Timing

	History history.Recorder
	Logger  *zap.Logger
}

// Server represents the poker room server
type Server struct {
	rooms      *room.Manager
	conns      *connection.Manager
	router     *handlers.Router
	dispatcher *events.Dispatcher
	history    history.Recorder
	opts       Options
	logger     *zap.Logger
	upgrader   websocket.Upgrader
}

// New creates a server for the rooms of m. Rooms already loaded are wired
// now; later ones are wired through the manager's hooks.
func New(m *room.Manager, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.History == nil {
		opts.History = history.Discard{}
	}
	conns := connection.NewManager(opts.Logger)
	s := &Server{
		rooms:      m,
		conns:      conns,
		router:     handlers.NewRouter(m, conns, opts.Logger),
		dispatcher: events.NewDispatcher(conns, opts.Logger),
		history:    opts.History,
		opts:       opts,
		logger:     opts.Logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	for _, r := range m.Rooms() {
		s.attach(r)
	}
	m.AddHook(s.onRoom)
	return s
}

func (s *Server) attach(r *room.Room) {
	s.dispatcher.Attach(r)
	r.Subscribe(history.Handler(s.history, s.logger))
}

// onRoom keeps sessions in line with the registry. Sessions of a reloaded
// or removed room are told why and disconnected; clients join again to
// resync.
func (s *Server) onRoom(kind room.HookKind, r *room.Room) {
	switch kind {
	case room.HookCreated:
		s.attach(r)
	case room.HookReloaded:
		farewell := protocol.NewError(handlers.CodeRoomReloaded, "room state was reloaded, join again")
		ids := s.conns.DisconnectRoom(r.ID(), &farewell)
		s.logger.Info("sessions dropped for reload", zap.String("room_id", r.ID()), zap.Int("sessions", len(ids)))
	case room.HookEvicted, room.HookDeleted:
		farewell := protocol.NewError(handlers.CodeRoomClosed, "room closed")
		s.conns.DisconnectRoom(r.ID(), &farewell)
		s.dispatcher.Detach(r.ID())
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || s.originAllowed(origin)
}

func (s *Server) originAllowed(origin string) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range s.opts.AllowedOrigins {
		if o == origin {
			return true
		}
	}
	return false
}

// corsMiddleware adds CORS headers to all responses
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "rooms": len(s.rooms.Rooms())})
	})
	r.Get("/ws/rooms/{roomID}", s.handleWebSocket)

	r.Route("/api/rooms", func(r chi.Router) {
		r.Use(s.corsMiddleware)
		r.Get("/", s.handleListRooms)
		r.Post("/", s.handleCreateRoom)
		r.Route("/{roomID}", func(r chi.Router) {
			r.Get("/", s.handleGetRoom)
			r.Delete("/", s.handleDeleteRoom)
			r.Get("/history", s.handleHistory)
		})
	})
	return r
}

// ListenAndServe serves until ctx is done, then shuts down and drops every
// live session.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close disconnects every session. Websockets are hijacked, so shutting
// the HTTP server down does not reach them.
func (s *Server) Close() {
	farewell := protocol.NewError(handlers.CodeRoomClosed, "server shutting down")
	for _, r := range s.rooms.Rooms() {
		s.conns.DisconnectRoom(r.ID(), &farewell)
	}
}

// playerID identifies the caller: the playerId query parameter when given,
// else a fresh anonymous id.
func playerID(r *http.Request) (string, error) {
	id := r.URL.Query().Get("playerId")
	if id == "" {
		return uuid.NewString(), nil
	}
	if err := store.ValidateID(id); err != nil {
		return "", err
	}
	return id, nil
}

// handleWebSocket upgrades a request to a session in one room. The session
// is greeted with its player id and must send JoinRoom before anything else.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if _, err := s.rooms.GetRoom(roomID); err != nil {
		writeError(w, http.StatusNotFound, handlers.CodeRoomNotFound, err.Error())
		return
	}
	pid, err := playerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, handlers.CodeBadMessage, err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Info("websocket upgrade", zap.String("room_id", roomID), zap.Error(err))
		return
	}

	logger := s.logger.With(zap.String("room_id", roomID), zap.String("player_id", pid))
	client := connection.NewClient(conn, roomID, pid, logger)
	logger.Debug("client connected", zap.String("session", client.ID()), zap.String("remote", r.RemoteAddr))

	go client.WritePump()
	_ = client.Send(protocol.NewWelcome(pid))

	ctx := r.Context()
	client.ReadPump(func(data []byte) {
		_ = s.router.HandleRaw(ctx, client, data)
	})
	s.router.Disconnect(client)
	logger.Debug("client disconnected", zap.String("session", client.ID()))
}

func (s *Server) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	rooms := s.rooms.Rooms()
	out := make([]room.Info, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Info())
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateRoomRequest is a room config; omitted fields get defaults.
type CreateRoomRequest = room.Config

func (s *Server) withDefaults(cfg room.Config) room.Config {
	if cfg.Variant == "" {
		cfg.Variant = hands.TexasHoldem
	}
	if cfg.MaxPlayers == 0 {
		cfg.MaxPlayers = 6
	}
	if cfg.MinBuyIn == 0 {
		cfg.MinBuyIn = cfg.BigBlind * 10
	}
	d, t := s.opts.Defaults, &cfg.Timing
	if t.ReservationDuration == 0 {
		t.ReservationDuration = d.ReservationDuration
	}
	if t.ActionTimeout == 0 {
		t.ActionTimeout = d.ActionTimeout
	}
	if t.TimeBank == 0 {
		t.TimeBank = d.TimeBank
	}
	if t.ShowdownDelay == 0 {
		t.ShowdownDelay = d.ShowdownDelay
	}
	if t.NextHandDelay == 0 {
		t.NextHandDelay = d.NextHandDelay
	}
	return cfg
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, handlers.CodeBadMessage, "invalid request body")
		return
	}
	rm, err := s.rooms.CreateRoom(r.Context(), s.withDefaults(req))
	switch {
	case errors.Is(err, room.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, "INVALID_CONFIG", err.Error())
		return
	case errors.Is(err, room.ErrRoomExists):
		writeError(w, http.StatusConflict, "ROOM_EXISTS", err.Error())
		return
	case err != nil:
		s.logger.Error("create room", zap.Error(err))
		writeError(w, http.StatusInternalServerError, handlers.CodeInternal, "could not create room")
		return
	}
	writeJSON(w, http.StatusCreated, rm.Info())
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	rm, err := s.rooms.GetRoom(chi.URLParam(r, "roomID"))
	if err != nil {
		writeError(w, http.StatusNotFound, handlers.CodeRoomNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, struct {
		room.Info
		Connected []string `json:"connected"`
	}{rm.Info(), s.conns.Connections(rm.ID())})
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	err := s.rooms.DeleteRoom(r.Context(), chi.URLParam(r, "roomID"))
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, handlers.CodeRoomNotFound, err.Error())
	case err != nil:
		s.logger.Error("delete room", zap.Error(err))
		writeError(w, http.StatusInternalServerError, handlers.CodeInternal, "could not delete room")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, handlers.CodeBadMessage, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	entries, err := s.history.LoadEvents(r.Context(), chi.URLParam(r, "roomID"), limit)
	if err != nil {
		s.logger.Error("load history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, handlers.CodeInternal, "could not load history")
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, protocol.ErrorPayload{Code: code, Message: message})
}
