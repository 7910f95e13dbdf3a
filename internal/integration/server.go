// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package integration

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"rvolution/internal/entity"
	"rvolution/internal/hub"
	"rvolution/internal/logger"
	"rvolution/internal/rvolution"
)

// Server exposes the driver over HTTP: a REST surface for device
// management and a WebSocket event stream for entity state and commands.
type Server struct {
	daemon     *hub.Daemon
	jwtService *JWTService
	replies    *ReplyCache
	server     *http.Server
	logger     zerolog.Logger

	mutex sync.Mutex
	conns map[*wsClient]struct{}
}

// wsClient wraps a WebSocket connection with a write lock so the
// broadcast path and the command reply path do not interleave frames.
type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsClient) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// APIResponse represents a REST response envelope
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AddDeviceRequest represents a device registration request
type AddDeviceRequest struct {
	Name           string `json:"name"`
	Address        string `json:"address"`
	Family         string `json:"family"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// commandMessage is a WebSocket frame sent by clients to drive an entity
type commandMessage struct {
	ID       string         `json:"id"`
	Kind     string         `json:"kind"`
	EntityID string         `json:"entity_id"`
	CmdID    string         `json:"cmd_id"`
	Params   map[string]any `json:"params,omitempty"`
}

// replyMessage acknowledges a commandMessage with its status code
type replyMessage struct {
	ID   string            `json:"id"`
	Kind string            `json:"kind"`
	Code entity.StatusCode `json:"code"`
}

// eventMessage carries entity attribute changes to all connected clients
type eventMessage struct {
	Kind       string         `json:"kind"`
	EntityID   string         `json:"entity_id"`
	Attributes map[string]any `json:"attributes"`
}

// NewServer creates the integration API server
func NewServer(daemon *hub.Daemon, listenAddress, apiSecret string) *Server {
	s := &Server{
		daemon:     daemon,
		jwtService: NewJWTService(apiSecret),
		replies:    NewReplyCache(256, time.Minute),
		logger:     logger.Component("integration_api"),
		conns:      make(map[*wsClient]struct{}),
	}

	router := mux.NewRouter()

	// Health check is unauthenticated so supervisors can probe it
	router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.Use(s.authMiddleware)
	api.HandleFunc("/devices", s.handleDeviceList).Methods("GET")
	api.HandleFunc("/devices", s.handleDeviceAdd).Methods("POST")
	api.HandleFunc("/devices/{id}", s.handleDeviceRemove).Methods("DELETE")
	api.HandleFunc("/devices/{id}", s.handleDeviceRename).Methods("PATCH")
	api.HandleFunc("/entities", s.handleEntityList).Methods("GET")

	router.HandleFunc("/ws", s.handleWebSocket).Methods("GET")

	s.server = &http.Server{
		Addr:    listenAddress,
		Handler: router,
	}

	// Entity attribute changes fan out to every WebSocket client
	daemon.SetAttributeListener(s.broadcastAttributes)

	return s
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the API server
func (s *Server) Start() error {
	s.logger.Info().
		Str("address", s.server.Addr).
		Msg("Starting integration API server")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Integration API server error")
		}
	}()

	return nil
}

// Stop shuts down the API server and closes all WebSocket connections
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping integration API server")

	s.mutex.Lock()
	for client := range s.conns {
		client.conn.Close()
	}
	s.conns = make(map[*wsClient]struct{})
	s.mutex.Unlock()

	return s.server.Shutdown(ctx)
}

// authMiddleware validates the bearer token on REST requests
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.sendError(w, http.StatusUnauthorized, "Missing bearer token", nil)
			return
		}
		if _, err := s.jwtService.ValidateToken(token); err != nil {
			s.sendError(w, http.StatusUnauthorized, "Invalid bearer token", err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts a token from the Authorization header, falling
// back to the token query parameter for WebSocket clients that cannot
// set headers.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// handleHealth returns the health status of the driver
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, "Driver is healthy", map[string]any{
		"status":       "healthy",
		"device_count": s.daemon.Registry().Count(),
	})
}

// handleDeviceList returns all registered devices in slot order
func (s *Server) handleDeviceList(w http.ResponseWriter, r *http.Request) {
	devices := s.daemon.Registry().List()

	type deviceView struct {
		hub.DeviceConfig
		ConnectionState string `json:"connection_state"`
	}

	views := make([]deviceView, 0, len(devices))
	for _, d := range devices {
		view := deviceView{DeviceConfig: d}
		if state, err := s.daemon.ConnectionState(d.ID); err == nil {
			view.ConnectionState = string(state)
		}
		views = append(views, view)
	}

	s.sendSuccess(w, "Device list retrieved successfully", map[string]any{
		"devices": views,
		"count":   len(views),
	})
}

// handleDeviceAdd validates the request, probes the device, and
// registers it in the lowest free slot
func (s *Server) handleDeviceAdd(w http.ResponseWriter, r *http.Request) {
	var req AddDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid JSON format", err)
		return
	}

	family := rvolution.Family(req.Family)
	if !family.Valid() {
		s.sendError(w, http.StatusBadRequest, "Unknown device family", nil)
		return
	}

	timeout := time.Duration(req.TimeoutSeconds) * time.Second
	client := rvolution.NewClient(req.Address, family, timeout)

	// Probe before committing a slot so unreachable devices never
	// enter the registry
	ctx, cancel := context.WithTimeout(r.Context(), rvolution.DefaultTimeout)
	defer cancel()

	info, err := client.FetchInfo(ctx)
	if err != nil {
		s.sendError(w, http.StatusBadGateway, "Device probe failed", err)
		return
	}

	slot, err := s.daemon.AddDevice(hub.DeviceConfig{
		Name:    req.Name,
		Address: req.Address,
		Family:  family,
		Timeout: req.TimeoutSeconds,
		Enabled: true,
	})
	if err != nil {
		switch {
		case errors.Is(err, hub.ErrCapacityExceeded):
			s.sendError(w, http.StatusConflict, "Device registry is full", err)
		case errors.Is(err, hub.ErrDuplicateDevice):
			s.sendError(w, http.StatusConflict, "Device already registered", err)
		default:
			s.sendError(w, http.StatusInternalServerError, "Failed to register device", err)
		}
		return
	}

	s.logger.Info().
		Int("slot", slot).
		Str("address", req.Address).
		Str("model", info.ModelName).
		Msg("Device registered")

	s.sendSuccess(w, "Device registered successfully", map[string]any{
		"slot":  slot,
		"model": info.ModelName,
	})
}

// handleDeviceRemove unregisters a device and stops its poller
func (s *Server) handleDeviceRemove(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.daemon.RemoveDevice(id); err != nil {
		if errors.Is(err, hub.ErrDeviceNotFound) {
			s.sendError(w, http.StatusNotFound, "Device not found", err)
			return
		}
		s.sendError(w, http.StatusInternalServerError, "Failed to remove device", err)
		return
	}

	s.sendSuccess(w, "Device removed successfully", map[string]any{"id": id})
}

// handleDeviceRename updates a device's display name
func (s *Server) handleDeviceRename(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid JSON format", err)
		return
	}
	if req.Name == "" {
		s.sendError(w, http.StatusBadRequest, "Name must not be empty", nil)
		return
	}

	if err := s.daemon.RenameDevice(id, req.Name); err != nil {
		if errors.Is(err, hub.ErrDeviceNotFound) {
			s.sendError(w, http.StatusNotFound, "Device not found", err)
			return
		}
		s.sendError(w, http.StatusInternalServerError, "Failed to rename device", err)
		return
	}

	s.sendSuccess(w, "Device renamed successfully", map[string]any{"id": id, "name": req.Name})
}

// handleEntityList returns all entities with their current attributes
func (s *Server) handleEntityList(w http.ResponseWriter, r *http.Request) {
	type entityView struct {
		ID             string         `json:"id"`
		Name           string         `json:"name"`
		Attributes     map[string]any `json:"attributes"`
		SimpleCommands []string       `json:"simple_commands,omitempty"`
	}

	entities := s.daemon.Entities()
	views := make([]entityView, 0, len(entities))
	for _, e := range entities {
		view := entityView{
			ID:         e.ID(),
			Name:       e.Name(),
			Attributes: e.Attributes(),
		}
		if remote, ok := e.(*entity.Remote); ok {
			view.SimpleCommands = remote.SimpleCommands()
		}
		views = append(views, view)
	}

	s.sendSuccess(w, "Entity list retrieved successfully", map[string]any{
		"entities": views,
		"count":    len(views),
	})
}

// handleWebSocket upgrades the connection and serves the event stream.
// Authentication happens after the upgrade so the handshake is never
// answered with a plain HTTP error.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("remote_addr", r.RemoteAddr).
			Msg("Failed to upgrade to WebSocket")
		return
	}

	client := &wsClient{conn: conn}
	defer func() {
		s.unregisterClient(client)
		conn.Close()
	}()

	token := bearerToken(r)
	if token == "" {
		client.writeJSON(map[string]any{"kind": "error", "error": "authentication required"})
		return
	}
	if _, err := s.jwtService.ValidateToken(token); err != nil {
		s.logger.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("WebSocket authentication failed")
		client.writeJSON(map[string]any{"kind": "error", "error": "authentication failed"})
		return
	}

	s.registerClient(client)
	s.logger.Info().
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket client connected")

	s.readLoop(r.Context(), client)

	s.logger.Debug().
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket client disconnected")
}

// readLoop serves command messages from one client until it disconnects
func (s *Server) readLoop(ctx context.Context, client *wsClient) {
	for {
		var msg commandMessage
		if err := client.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}

		if msg.Kind != "command" {
			client.writeJSON(replyMessage{ID: msg.ID, Kind: "reply", Code: entity.StatusBadRequest})
			continue
		}

		// Retransmitted messages replay the original reply instead of
		// firing the IR command again
		if code, found := s.replies.Check(msg.ID); found {
			client.writeJSON(replyMessage{ID: msg.ID, Kind: "reply", Code: code})
			continue
		}

		code := s.daemon.HandleEntityCommand(ctx, msg.EntityID, msg.CmdID, msg.Params)
		s.replies.Store(msg.ID, code)

		if err := client.writeJSON(replyMessage{ID: msg.ID, Kind: "reply", Code: code}); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to write WebSocket reply")
			return
		}
	}
}

// broadcastAttributes pushes an attribute change event to all clients
func (s *Server) broadcastAttributes(entityID string, changed map[string]any) {
	event := eventMessage{
		Kind:       "entity_change",
		EntityID:   entityID,
		Attributes: changed,
	}

	s.mutex.Lock()
	clients := make([]*wsClient, 0, len(s.conns))
	for client := range s.conns {
		clients = append(clients, client)
	}
	s.mutex.Unlock()

	for _, client := range clients {
		if err := client.writeJSON(event); err != nil {
			s.logger.Debug().Err(err).Msg("Dropping WebSocket client after failed broadcast")
			s.unregisterClient(client)
			client.conn.Close()
		}
	}
}

func (s *Server) registerClient(client *wsClient) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.conns[client] = struct{}{}
}

func (s *Server) unregisterClient(client *wsClient) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.conns, client)
}

// sendSuccess sends a successful response
func (s *Server) sendSuccess(w http.ResponseWriter, message string, data any) {
	response := APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// sendError sends an error response
func (s *Server) sendError(w http.ResponseWriter, statusCode int, message string, err error) {
	response := APIResponse{
		Success: false,
		Message: message,
	}

	if err != nil {
		response.Error = err.Error()
		s.logger.Error().Err(err).Str("message", message).Msg("API error")
	} else {
		s.logger.Warn().Str("message", message).Msg("API client error")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}
