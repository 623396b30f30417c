package transport

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/sbsp/playback-engine/internal/config"
	"github.com/sbsp/playback-engine/internal/controller"
	"github.com/sbsp/playback-engine/internal/event"
	"github.com/sbsp/playback-engine/internal/manager"
	"github.com/sbsp/playback-engine/internal/model"
	"github.com/sbsp/playback-engine/internal/pubsub"
)

// Version is set at build time.
var Version = "0.1.0"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origin enforcement happens at the CORS layer
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const wsPingInterval = 10 * time.Second

// ModelHandle is the subset of manager.ShowModelHandle the transport layer
// needs: enqueue ModelCommands, read a snapshot for new clients.
type ModelHandle interface {
	Send(cmd manager.ModelCommand) error
	Snapshot() *model.ShowModel
}

// Server wires the HTTP/WebSocket surface to the Controller, the
// ShowModelHandle, and the UiEvent broadcast hub.
type Server struct {
	router *chi.Mux

	controlCh chan<- controller.Command
	model     ModelHandle
	watch     *controller.StateWatch
	hub       *pubsub.Hub
}

// NewServer builds the router and registers every route.
func NewServer(cfg *config.Config, controlCh chan<- controller.Command, model ModelHandle, watch *controller.StateWatch, hub *pubsub.Hub) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		controlCh: controlCh,
		model:     model,
		watch:     watch,
		hub:       hub,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin, "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		Debug:            cfg.IsDevelopment(),
	})
	s.router.Use(corsMiddleware.Handler)

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/snapshot", s.handleSnapshot)
	s.router.Get("/ws", s.handleWebsocket)

	return s
}

// Router returns the http.Handler to hand to an http.Server.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":    "ok",
		"version":   Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	resp := snapshotResponse{
		Model: s.model.Snapshot(),
		State: s.watch.Get(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("transport: encode snapshot failed: %v", err)
	}
}

// handleWebsocket upgrades the connection and runs two goroutines: one
// reading WsCommand frames off the socket, one fanning out WsFeedback
// frames from the UiEvent hub and the ShowState watch.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("transport: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := s.hub.Subscribe(32)
	defer s.hub.Unsubscribe(sub)

	watchID, stateCh := s.watch.Subscribe(8)
	defer s.watch.Unsubscribe(watchID)

	done := make(chan struct{})
	go s.readLoop(conn, done)

	s.writeLoop(conn, sub.Ch, stateCh, done)
}

func (s *Server) readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.dispatch(conn, raw)
	}
}

func (s *Server) dispatch(conn *websocket.Conn, raw []byte) {
	controlCmd, modelCmd, unsupported, err := decodeWsCommand(raw)
	if err != nil {
		s.sendError(conn, err.Error())
		return
	}
	if unsupported != "" {
		s.sendError(conn, unsupported+" is not implemented: the asset-analysis service is an external collaborator")
		return
	}
	if controlCmd != nil {
		select {
		case s.controlCh <- controlCmd:
		default:
			s.sendError(conn, "controller command queue full")
		}
		return
	}
	if modelCmd != nil {
		if err := s.model.Send(modelCmd); err != nil {
			s.sendError(conn, err.Error())
		}
	}
}

func (s *Server) sendError(conn *websocket.Conn, message string) {
	frame, err := encodeErrorFeedback(message)
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, frame)
}

func (s *Server) writeLoop(conn *websocket.Conn, events <-chan event.UiEvent, states <-chan controller.ShowState, done <-chan struct{}) {
	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			frame, err := encodeEventFeedback(evt)
			if err != nil {
				log.Printf("transport: encode event feedback failed: %v", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case st, ok := <-states:
			if !ok {
				return
			}
			frame, err := encodeStateFeedback(st)
			if err != nil {
				log.Printf("transport: encode state feedback failed: %v", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
