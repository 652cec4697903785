// Package http exposes the billing core to presentation clients as a small
// JSON API plus a PDF download endpoint. Everything except login sits behind
// the session gate.
package http

import (
	"context"
	"net/http"

	"aluguel/internal/core"
)

// PropertyStore is the property and configuration surface the server needs.
type PropertyStore interface {
	CreateProperty(ctx context.Context, label, address, locality string) (int64, error)
	UpdateProperty(ctx context.Context, id int64, label, address, locality string) error
	GetProperty(ctx context.Context, id int64) (core.Property, error)
	ListProperties(ctx context.Context) ([]core.Property, error)
	LoadConfiguration(ctx context.Context, propertyID int64) (core.Configuration, error)
	SaveConfiguration(ctx context.Context, cfg core.Configuration) error
}

// LedgerStore is the monthly ledger surface the server needs.
type LedgerStore interface {
	UpsertLedger(ctx context.Context, rec core.LedgerRecord) error
	GetLedger(ctx context.Context, propertyID int64, month string) (core.LedgerRecord, error)
	PrefillLedger(ctx context.Context, propertyID int64, month string) (core.LedgerRecord, error)
	ListLedger(ctx context.Context, propertyID int64) ([]core.LedgerRecord, error)
}

// SessionGate authorizes presentation sessions. The stores above know
// nothing about it.
type SessionGate interface {
	Login(code string) (string, bool)
	IsAuthorized(token string) bool
	Logout(token string)
}

type Server struct {
	http.Server
	props  PropertyStore
	ledger LedgerStore
	gate   SessionGate
}

func NewServer(addr string, props PropertyStore, ledger LedgerStore, gate SessionGate) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: withTrace(mux),
		},
		props:  props,
		ledger: ledger,
		gate:   gate,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.withAuth(s.handleLogout))

	mux.HandleFunc("GET /api/properties", s.withAuth(s.handleListProperties))
	mux.HandleFunc("POST /api/properties", s.withAuth(s.handleCreateProperty))
	mux.HandleFunc("PUT /api/properties/{id}", s.withAuth(s.handleUpdateProperty))

	mux.HandleFunc("GET /api/properties/{id}/config", s.withAuth(s.handleLoadConfiguration))
	mux.HandleFunc("PUT /api/properties/{id}/config", s.withAuth(s.handleSaveConfiguration))

	mux.HandleFunc("GET /api/properties/{id}/ledger", s.withAuth(s.handleListLedger))
	mux.HandleFunc("GET /api/properties/{id}/ledger/{month}", s.withAuth(s.handleGetLedger))
	mux.HandleFunc("PUT /api/properties/{id}/ledger/{month}", s.withAuth(s.handleUpsertLedger))
	mux.HandleFunc("GET /api/properties/{id}/ledger/{month}/prefill", s.withAuth(s.handlePrefillLedger))
	mux.HandleFunc("GET /api/properties/{id}/ledger/{month}/statement", s.withAuth(s.handleStatement))

	return s
}

const sessionHeader = "X-Session-Token"

// withAuth rejects requests whose session token is missing, unknown or
// expired.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.gate.IsAuthorized(r.Header.Get(sessionHeader)) {
			writeError(w, http.StatusUnauthorized, "session required")
			return
		}
		next(w, r)
	}
}
