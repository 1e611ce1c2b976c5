// Package web serves the browser chat page and its JSON endpoints.
package web

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/csv"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Mzubac125/azure-sql-chatbot/internal/agent"
	"github.com/Mzubac125/azure-sql-chatbot/internal/chat"
	"github.com/Mzubac125/azure-sql-chatbot/internal/observability"
	"github.com/Mzubac125/azure-sql-chatbot/internal/schema"
)

const (
	schemaTimeout = 30 * time.Second
	healthTimeout = 5 * time.Second

	connectedBanner = "Connected to database successfully!"
	errorPrefix     = "❌ Error: "
)

var exampleQueries = []string{
	"Show me the count of mortgages by branch",
	"How many members do we have per portfolio manager",
	"What's the total revenue by branch?",
}

// Asker answers one question.
type Asker interface {
	Ask(ctx context.Context, question string) (agent.Answer, error)
}

// Server holds the page surface's dependencies.
type Server struct {
	agent    Asker
	db       *sql.DB
	schema   *schema.Cache
	sessions *Sessions
	tmpl     *template.Template
	logger   *zap.Logger
}

// NewServer wires the page surface. A nil sessions store gets one with the
// default TTL; the caller runs its sweeper.
func NewServer(asker Asker, db *sql.DB, cache *schema.Cache, sessions *Sessions, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sessions == nil {
		sessions = NewSessions(DefaultSessionTTL)
	}
	return &Server{
		agent:    asker,
		db:       db,
		schema:   cache,
		sessions: sessions,
		tmpl:     template.Must(template.New("index").Parse(indexHTML)),
		logger:   logger,
	}
}

// Routes returns the router with middleware attached.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(observability.TraceMiddleware)
	r.Use(observability.LoggingMiddleware(s.logger))
	r.Use(observability.MetricsMiddleware)

	r.Get("/", s.handleIndex)
	r.Post("/ask", s.handleAsk)
	r.Post("/clear", s.handleClear)
	r.Get("/export", s.handleExportCSV)
	r.Post("/api/ask", s.handleAPIAsk)
	r.Get("/schema", s.handleSchema)
	r.Post("/schema/refresh", s.handleSchemaRefresh)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

type pageTurn struct {
	User    bool
	Content string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var turns []chat.Turn
	if tr := s.sessions.Lookup(r); tr != nil {
		turns = tr.Turns()
	}
	data := struct {
		Banner   string
		Turns    []pageTurn
		Examples []string
	}{
		Banner:   connectedBanner,
		Turns:    make([]pageTurn, len(turns)),
		Examples: exampleQueries,
	}
	for i, t := range turns {
		data.Turns[i] = pageTurn{User: t.Role == chat.RoleUser, Content: t.Content}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, data); err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	if question := strings.TrimSpace(r.PostFormValue("question")); question != "" {
		_, _ = s.ask(r.Context(), s.sessions.Get(w, r), question)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ask records the question and its outcome on tr. Failures become an
// assistant turn so the page keeps working.
func (s *Server) ask(ctx context.Context, tr *chat.Transcript, question string) (agent.Answer, error) {
	tr.Append(chat.RoleUser, question)
	ans, err := s.agent.Ask(ctx, question)
	if err != nil {
		tr.Append(chat.RoleAssistant, errorPrefix+err.Error())
	} else {
		tr.Append(chat.RoleAssistant, ans.Text)
	}
	s.logger.Debug("chat turn",
		zap.String("trace_id", observability.TraceIDFromContext(ctx)),
		zap.Int("turns", tr.Len()),
		zap.Bool("failed", err != nil))
	return ans, err
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if tr := s.sessions.Lookup(r); tr != nil {
		tr.Clear()
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer string `json:"answer,omitempty"`
	Error  string `json:"error,omitempty"`
	Steps  int    `json:"steps,omitempty"`
	Tokens int    `json:"tokens,omitempty"`
}

func (s *Server) handleAPIAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, askResponse{Error: "invalid JSON body"})
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		respondJSON(w, http.StatusBadRequest, askResponse{Error: agent.ErrEmptyQuestion.Error()})
		return
	}

	ans, err := s.ask(r.Context(), s.sessions.Get(w, r), question)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, agent.ErrDatabaseUnavailable) {
			status = http.StatusServiceUnavailable
		}
		respondJSON(w, status, askResponse{Error: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, askResponse{Answer: ans.Text, Steps: ans.Steps, Tokens: ans.Tokens})
}

// handleExportCSV downloads the session transcript.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	var turns []chat.Turn
	if tr := s.sessions.Lookup(r); tr != nil {
		turns = tr.Turns()
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=chat_history.csv")

	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if err := csvWriter.Write([]string{"role", "content"}); err != nil {
		return
	}
	for _, t := range turns {
		if err := csvWriter.Write([]string{string(t.Role), t.Content}); err != nil {
			return
		}
	}
}

type schemaResponse struct {
	Tables      []schema.Table `json:"tables"`
	TableCount  int            `json:"tableCount"`
	LastRefresh string         `json:"lastRefresh"`
}

// handleSchema returns the cached schema as JSON, or as the text the
// describe tool shows the model when format=text.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, s.schema.ToText())
		return
	}
	respondJSON(w, http.StatusOK, s.schemaSnapshot())
}

func (s *Server) handleSchemaRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), schemaTimeout)
	defer cancel()

	if err := s.schema.Load(ctx, s.db); err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.logger.Info("schema refreshed", zap.Int("tables", s.schema.TableCount()))
	respondJSON(w, http.StatusOK, s.schemaSnapshot())
}

func (s *Server) schemaSnapshot() schemaResponse {
	resp := schemaResponse{
		Tables:     s.schema.GetTables(),
		TableCount: s.schema.TableCount(),
	}
	if last := s.schema.GetLastRefresh(); !last.IsZero() {
		resp.LastRefresh = last.Format(time.RFC3339)
	}
	return resp
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

//go:embed templates/index.html
var indexHTML string
