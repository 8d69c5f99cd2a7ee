package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xhad/ragchat/internal/types"
	"github.com/xhad/ragchat/pkg/rag"
	"github.com/xhad/ragchat/pkg/source"
)

// Message is the WebSocket frame in both directions. Clients send
// {"type":"chat","content":"question"}; the server answers with status,
// progress, response and error frames.
type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

type ChatRequest struct {
	Question string `json:"question"`
	TopK     *int   `json:"top_k,omitempty"`
}

type ChatResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

type Config struct {
	AllowedOrigins []string
	DefaultTopK    int
	// Crawl settings for URLs pasted into a WebSocket chat.
	MaxDepth  int
	RateLimit float64
	Logger    *log.Logger
}

type Server struct {
	service  *rag.Service
	config   Config
	logger   *log.Logger
	upgrader websocket.Upgrader
}

func New(service *rag.Service, config Config) *Server {
	if config.DefaultTopK <= 0 {
		config.DefaultTopK = rag.DefaultTopK
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"*"}
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{service: service, config: config, logger: logger}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.originAllowed(origin)
		},
	}
	return s
}

// Handler returns the API with CORS, request ID and access log middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /documents/count", s.handleCount)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	return s.withRequestID(s.withAccessLog(s.withCORS(mux)))
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("Starting server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Printf("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "RAG Chatbot API is running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Health(r.Context()))
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.service.Count(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	topK := s.config.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}

	answer, err := s.service.Ask(r.Context(), req.Question, topK)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Answer: answer.Text, Sources: answer.Sources})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrConfig):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrEmptyRetrieval):
		return http.StatusNotFound
	case errors.Is(err, types.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, types.ErrEmbedding), errors.Is(err, types.ErrStore):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	detail := err.Error()
	if errors.Is(err, types.ErrEmptyRetrieval) {
		detail = "No relevant documents found"
	}
	if status >= http.StatusInternalServerError {
		s.logger.Printf("[%s] %s %s: %v", requestID(r.Context()), r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// wsConn serialises writes; gorilla connections allow one writer at a time.
type wsConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.WriteJSON(msg)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	conn := &wsConn{Conn: raw}
	defer conn.Close()

	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Printf("Error reading message: %v", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.sendMessage(conn, "error", fmt.Sprintf("invalid message: %v", err), nil)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleMessage(ctx, conn, msg)
		}()
	}
}

var urlRegex = regexp.MustCompile(`https?://[^\s]+`)

func (s *Server) handleMessage(ctx context.Context, conn *wsConn, msg Message) {
	query := strings.TrimSpace(msg.Content)

	if link := urlRegex.FindString(query); link != "" {
		s.ingestURL(ctx, conn, link)

		query = strings.TrimSpace(strings.Replace(query, link, "", 1))
		if query == "" {
			return
		}
	}

	s.sendMessage(conn, "status", "Searching documents...", nil)

	topK := s.config.DefaultTopK
	if data, ok := msg.Data.(map[string]interface{}); ok {
		if k, ok := data["top_k"].(float64); ok {
			topK = int(k)
		}
	}

	answer, err := s.service.Ask(ctx, query, topK)
	if err != nil {
		if errors.Is(err, types.ErrEmptyRetrieval) {
			s.sendMessage(conn, "error", "No relevant documents found", nil)
			return
		}
		s.sendMessage(conn, "error", fmt.Sprintf("Error: %v", err), nil)
		return
	}

	s.sendMessage(conn, "response", answer.Text, map[string]interface{}{"sources": answer.Sources})
}

// ingestURL crawls link into the store. The store's populate guard still
// applies, so a populated store is left unchanged.
func (s *Server) ingestURL(ctx context.Context, conn *wsConn, link string) {
	s.sendMessage(conn, "status", fmt.Sprintf("Processing URL: %s", link), nil)

	var processedCount int32
	website, err := source.NewWebsite(source.WebsiteConfig{
		BaseURL:   link,
		MaxDepth:  s.config.MaxDepth,
		RateLimit: s.config.RateLimit,
		Logger:    s.logger,
		OnProgress: func(string) {
			n := atomic.AddInt32(&processedCount, 1)
			s.sendMessage(conn, "progress", fmt.Sprintf("Scraped %d pages", n), nil)
		},
	})
	if err != nil {
		s.sendMessage(conn, "error", fmt.Sprintf("Failed to initialize scraper: %v", err), nil)
		return
	}

	result, err := s.service.Populate(ctx, website)
	if err != nil {
		s.sendMessage(conn, "error", fmt.Sprintf("Failed to ingest URL: %v", err), nil)
		return
	}
	if result.Skipped {
		s.sendMessage(conn, "status", "Store already populated, skipping ingestion", nil)
		return
	}
	s.sendMessage(conn, "status", fmt.Sprintf("Ingested %d documents as %d chunks", result.Documents, result.ChunksAdded), result)
}

func (s *Server) sendMessage(conn *wsConn, msgType, content string, data interface{}) {
	if err := conn.send(Message{Type: msgType, Content: content, Data: data}); err != nil {
		s.logger.Printf("Error sending message: %v", err)
	}
}
