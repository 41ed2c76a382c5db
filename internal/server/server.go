package server

import (
	"encoding/json"
	"html/template"
	"io"
	"net/http"
	"time"

	"news_hub/internal/dispatch"
	"news_hub/internal/logger"
	"news_hub/internal/registry"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Максимальный размер конверта в теле запроса или кадре websocket.
const maxEnvelopeSize = 4 << 20

// Server хранит зависимости HTTP-обработчиков.
type Server struct {
	dispatcher *dispatch.Dispatcher
	registry   *registry.Registry
	name       string
	version    string
	started    time.Time
	upgrader   websocket.Upgrader
}

// NewServer создаёт новый экземпляр Server.
func NewServer(d *dispatch.Dispatcher, reg *registry.Registry, name, version string) *Server {
	return &Server{
		dispatcher: d,
		registry:   reg,
		name:       name,
		version:    version,
		started:    time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Routes собирает маршруты и оборачивает их в middleware.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /mcp", s.HandleEnvelope)
	mux.HandleFunc("GET /ws", s.HandleWebsocket)
	mux.HandleFunc("GET /health", s.HealthCheck)
	mux.HandleFunc("GET /favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /{$}", s.StatusPage)

	return RequestIDMiddleware(LoggingMiddleware(mux))
}

// HandleEnvelope принимает один конверт и отвечает одним конвертом.
// Неразобранное тело даёт 400 с конвертом ошибки.
func (s *Server) HandleEnvelope(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEnvelopeSize))
	if err != nil {
		writeEnvelope(w, http.StatusRequestEntityTooLarge, s.dispatcher.DispatchBytes(r.Context(), nil))
		return
	}

	req, err := dispatch.Decode(body)
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, s.dispatcher.DispatchBytes(r.Context(), body))
		return
	}
	writeEnvelope(w, http.StatusOK, s.dispatcher.Dispatch(r.Context(), req))
}

func writeEnvelope(w http.ResponseWriter, status int, env dispatch.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		logger.Log.WithError(err).Warn("Failed to encode response")
	}
}

// HandleWebsocket обслуживает соединение: каждый текстовый кадр - один
// конверт, на каждый отвечаем одним кадром.
func (s *Server) HandleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxEnvelopeSize)

	log := logger.Log.WithFields(logger.Fields{
		"request_id":  RequestID(r.Context()),
		"remote_addr": r.RemoteAddr,
	})
	log.Info("Websocket client connected")

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("Websocket read failed")
			}
			break
		}
		if kind != websocket.TextMessage {
			continue
		}

		resp := s.dispatcher.DispatchBytes(r.Context(), data)
		out, err := dispatch.Encode(resp)
		if err != nil {
			log.WithError(err).Error("Failed to encode response")
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
			log.WithError(err).Warn("Websocket write failed")
			break
		}
	}
	log.Info("Websocket client disconnected")
}

// HealthCheck отвечает 200 OK с кратким состоянием сервиса.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":     "healthy",
		"server":     s.name,
		"version":    s.version,
		"feeds":      s.registry.TotalFeeds(),
		"categories": len(s.registry.CategoryNames()),
		"uptime":     time.Since(s.started).Round(time.Second).String(),
	})
}

var statusTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>{{.Name}}</title></head>
<body>
	<h1>{{.Name}} {{.Version}}</h1>
	<p>Server is running. Send envelopes to <code>POST /mcp</code> or over <code>/ws</code>.</p>
	<h2>Actions</h2>
	<ul>{{range .Actions}}<li>{{.}}</li>{{end}}</ul>
	<h2>Feeds ({{.TotalFeeds}})</h2>
	{{range $category, $sources := .Categories}}
	<h3>{{$category}}</h3>
	<ul>{{range $sources}}<li><a href="{{.URL}}">{{.Name}}</a>{{if .Description}} - {{.Description}}{{end}}</li>{{end}}</ul>
	{{end}}
	<p><a href="/health">/health</a> · <a href="/metrics">/metrics</a></p>
</body>
</html>
`))

// StatusPage - главная страница для человека.
func (s *Server) StatusPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := statusTemplate.Execute(w, map[string]any{
		"Name":       s.name,
		"Version":    s.version,
		"Actions":    s.dispatcher.Enabled(),
		"TotalFeeds": s.registry.TotalFeeds(),
		"Categories": s.registry.Categories(),
	})
	if err != nil {
		logger.Log.WithError(err).Error("Failed to render status page")
	}
}
