// Package rest exposes the request/response side of the chat: room
// listing and creation, history, profiles and attachment upload. It also
// mounts the realtime endpoint, health and metrics on the same router.
package rest

import (
	"chat-relay/auth"
	"chat-relay/repositories"
	"chat-relay/services"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Dependencies struct {
	Authenticator  auth.IAuthenticator
	Chats          services.IChatService
	Creator        services.IChatCreationCoordinator
	Messages       services.IMessageService
	Profiles       services.IProfileService
	Files          repositories.FileStore
	MaxUploadBytes int64
	// Realtime serves the websocket upgrade on /ws.
	Realtime http.Handler
	Gatherer prometheus.Gatherer
}

type Server struct {
	log *slog.Logger
	Dependencies
}

func NewServer(log *slog.Logger, deps Dependencies) *Server {
	return &Server{log: log, Dependencies: deps}
}

// Router wires every route. The /api subtree requires a bearer token.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	if s.Realtime != nil {
		r.Handle("/ws", s.Realtime).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.logRequests, s.authenticate)
	api.HandleFunc("/chats", s.listChats).Methods(http.MethodGet)
	api.HandleFunc("/chats", s.createChat).Methods(http.MethodPost)
	api.HandleFunc("/chats/{roomId}", s.chatDetails).Methods(http.MethodGet)
	api.HandleFunc("/chats/{roomId}/messages", s.history).Methods(http.MethodGet)
	api.HandleFunc("/chats/{roomId}/messages", s.postMessage).Methods(http.MethodPost)
	api.HandleFunc("/user-profile", s.getProfile).Methods(http.MethodGet)
	api.HandleFunc("/update-profile", s.updateProfile).Methods(http.MethodPut)
	api.HandleFunc("/users/search", s.searchUsers).Methods(http.MethodGet)
	api.HandleFunc("/upload-attachment", s.uploadAttachment).Methods(http.MethodPost)
	api.HandleFunc("/attachments/{storedName}", s.downloadAttachment).Methods(http.MethodGet)
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
