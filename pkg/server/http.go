package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/astromechza/collabodux-go/pkg/jsonvalue"
	"github.com/astromechza/collabodux-go/pkg/transport"
	"github.com/astromechza/collabodux-go/pkg/viz"
)

type snapshotResponse struct {
	VTag  string          `json:"vtag"`
	State jsonvalue.Value `json:"state,omitzero"`
}

// NewRouter serves the authority over http. /sync upgrades to the sync websocket.
func NewRouter(a *Authority) http.Handler {
	s := &server{authority: a, upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}}

	r := mux.NewRouter()
	r.Use(func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			m := httpsnoop.CaptureMetrics(handler, writer, request)
			slog.Info("handled", "method", request.Method, "url", request.URL, "duration", m.Duration, "status", m.Code)
		})
	})

	r.Methods(http.MethodGet).Path("/healthz").HandlerFunc(s.healthz)
	r.Methods(http.MethodGet).Path("/state").HandlerFunc(s.getState)
	r.Methods(http.MethodGet).Path("/state.svg").HandlerFunc(s.getStateSvg)
	r.Methods(http.MethodGet).Path("/sync").HandlerFunc(s.sync)
	return r
}

type server struct {
	authority *Authority
	upgrader  websocket.Upgrader
}

func (s *server) healthz(writer http.ResponseWriter, _ *http.Request) {
	writer.WriteHeader(http.StatusOK)
}

func (s *server) getState(writer http.ResponseWriter, _ *http.Request) {
	state, vtag := s.authority.Snapshot()
	writer.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(writer).Encode(snapshotResponse{VTag: vtag, State: state}); err != nil {
		slog.Error("failed to write out", "err", err)
	}
}

func (s *server) getStateSvg(writer http.ResponseWriter, _ *http.Request) {
	state, _ := s.authority.Snapshot()
	writer.Header().Set("Content-Type", "image/svg+xml")
	if err := viz.RenderValueToSvg(writer, state); err != nil {
		slog.Error("failed to render", "err", err)
		writer.WriteHeader(http.StatusInternalServerError)
	}
}

func (s *server) sync(writer http.ResponseWriter, request *http.Request) {
	ws, err := s.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		slog.Error("failed to upgrade", "err", err)
		return
	}
	conn := transport.NewConn(ws)
	session := s.authority.Connect(conn)
	defer s.authority.Disconnect(session)

	if err := conn.Run(request.Context(), func(raw []byte) error {
		if err := s.authority.HandleMessage(session, raw); err != nil {
			conn.Close()
			return err
		}
		return nil
	}); err != nil {
		slog.Error("connection failed", "session", session, "err", err)
	}
}
