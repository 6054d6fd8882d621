package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"telegram-food-bot/menu"
	"telegram-food-bot/orders"
)

//go:embed web/menu.html
var menuPage []byte

const maxUpdateBytes = 1 << 20

type updateHandler interface {
	HandleUpdate(ctx context.Context, u update)
}

// Server is the HTTP surface: health, the Web App menu page, read-only APIs
// and the optional Telegram webhook.
type Server struct {
	catalog *menu.Catalog
	journal orders.Journal
	// bot is nil unless updates arrive by webhook.
	bot updateHandler
	log *slog.Logger
}

func NewServer(catalog *menu.Catalog, journal orders.Journal, bot updateHandler, log *slog.Logger) *Server {
	return &Server{catalog: catalog, journal: journal, bot: bot, log: log}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/", s.index)
	r.Get("/health", s.health)
	r.Get("/menu", s.menuPage)
	r.Get("/api/menu", s.menu)
	r.Get("/api/orders", s.orders)
	if s.bot != nil {
		r.Post("/webhook", s.webhook)
	}
	return r
}

func (s *Server) index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Bot is running!"))
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) menuPage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(menuPage)
}

type menuItem struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
	Price string `json:"price"`
}

type menuResponse struct {
	Currency string     `json:"currency"`
	Symbol   string     `json:"symbol"`
	Items    []menuItem `json:"items"`
}

func (s *Server) menu(w http.ResponseWriter, _ *http.Request) {
	currency := s.catalog.Currency()
	resp := menuResponse{Currency: currency.Code, Symbol: currency.Symbol}
	for _, it := range s.catalog.Items() {
		resp.Items = append(resp.Items, menuItem{
			Key:   it.Key,
			Name:  it.Name,
			Emoji: it.Emoji,
			Price: it.Price.StringFixed(2),
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) orders(w http.ResponseWriter, r *http.Request) {
	records, err := s.journal.List(r.Context())
	if err != nil {
		s.log.Error("failed to list orders", "action", "journal_list_failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if records == nil {
		records = []orders.Record{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) webhook(w http.ResponseWriter, r *http.Request) {
	var u update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBytes)).Decode(&u); err != nil {
		s.log.Warn("bad webhook body", "action", "webhook_rejected", "error", err)
		s.writeError(w, http.StatusBadRequest, "invalid update")
		return
	}
	s.bot.HandleUpdate(r.Context(), u)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", "action", "response_encoding_failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request handled",
			"action", "http_request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
