package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aluguel/internal/auth"
	"aluguel/internal/core"
)

// memStore is an in-memory stand-in for the SQLite repository, mirroring its
// validation and prefill semantics.
type memStore struct {
	nextID int64
	props  map[int64]core.Property
	cfgs   map[int64]core.Configuration
	ledger map[string]core.LedgerRecord
}

func newMemStore() *memStore {
	return &memStore{
		props:  make(map[int64]core.Property),
		cfgs:   make(map[int64]core.Configuration),
		ledger: make(map[string]core.LedgerRecord),
	}
}

func ledgerKey(propertyID int64, month string) string {
	return fmt.Sprintf("%d|%s", propertyID, month)
}

func (m *memStore) CreateProperty(_ context.Context, label, address, locality string) (int64, error) {
	p := core.Property{Label: label, Address: address, Locality: locality}
	if err := p.Normalize(); err != nil {
		return 0, err
	}
	m.nextID++
	p.ID = m.nextID
	m.props[p.ID] = p
	m.cfgs[p.ID] = core.Configuration{PropertyID: p.ID, DueDay: core.DefaultDueDay}
	return p.ID, nil
}

func (m *memStore) UpdateProperty(_ context.Context, id int64, label, address, locality string) error {
	p := core.Property{ID: id, Label: label, Address: address, Locality: locality}
	if err := p.Normalize(); err != nil {
		return err
	}
	if _, ok := m.props[id]; !ok {
		return core.ErrNotFound
	}
	m.props[id] = p
	return nil
}

func (m *memStore) GetProperty(_ context.Context, id int64) (core.Property, error) {
	p, ok := m.props[id]
	if !ok {
		return core.Property{}, core.ErrNotFound
	}
	return p, nil
}

func (m *memStore) ListProperties(_ context.Context) ([]core.Property, error) {
	var out []core.Property
	for id := int64(1); id <= m.nextID; id++ {
		if p, ok := m.props[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) LoadConfiguration(_ context.Context, propertyID int64) (core.Configuration, error) {
	if _, ok := m.props[propertyID]; !ok {
		return core.Configuration{}, core.ErrNotFound
	}
	cfg, ok := m.cfgs[propertyID]
	if !ok {
		cfg = core.Configuration{PropertyID: propertyID, DueDay: core.DefaultDueDay}
		m.cfgs[propertyID] = cfg
	}
	return cfg, nil
}

func (m *memStore) SaveConfiguration(_ context.Context, cfg core.Configuration) error {
	if _, ok := m.props[cfg.PropertyID]; !ok {
		return core.ErrNotFound
	}
	cfg.Normalize()
	m.cfgs[cfg.PropertyID] = cfg
	return nil
}

func (m *memStore) UpsertLedger(_ context.Context, rec core.LedgerRecord) error {
	month, err := core.NormalizeMonth(rec.Month)
	if err != nil {
		return err
	}
	if _, ok := m.props[rec.PropertyID]; !ok {
		return core.ErrNotFound
	}
	rec.Month = month
	rec.UpdatedAt = time.Now()
	if old, ok := m.ledger[ledgerKey(rec.PropertyID, month)]; ok {
		rec.CreatedAt = old.CreatedAt
	} else {
		rec.CreatedAt = rec.UpdatedAt
	}
	m.ledger[ledgerKey(rec.PropertyID, month)] = rec
	return nil
}

func (m *memStore) GetLedger(_ context.Context, propertyID int64, month string) (core.LedgerRecord, error) {
	normalized, err := core.NormalizeMonth(month)
	if err != nil {
		return core.LedgerRecord{}, err
	}
	rec, ok := m.ledger[ledgerKey(propertyID, normalized)]
	if !ok {
		return core.LedgerRecord{}, core.ErrNotFound
	}
	return rec, nil
}

func (m *memStore) PrefillLedger(ctx context.Context, propertyID int64, month string) (core.LedgerRecord, error) {
	normalized, err := core.NormalizeMonth(month)
	if err != nil {
		return core.LedgerRecord{}, err
	}
	if rec, err := m.GetLedger(ctx, propertyID, normalized); err == nil {
		return rec, nil
	}
	var latest core.LedgerRecord
	for _, rec := range m.ledger {
		if rec.PropertyID == propertyID && rec.Month > latest.Month {
			latest = rec
		}
	}
	latest.PropertyID = propertyID
	latest.Month = normalized
	latest.CreatedAt = time.Time{}
	latest.UpdatedAt = time.Time{}
	return latest, nil
}

func (m *memStore) ListLedger(_ context.Context, propertyID int64) ([]core.LedgerRecord, error) {
	var out []core.LedgerRecord
	for _, rec := range m.ledger {
		if rec.PropertyID == propertyID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func newTestServer() (*Server, *memStore) {
	store := newMemStore()
	gate := auth.NewGate([]string{"133"}, time.Hour)
	return NewServer(":0", store, store, gate), store
}

func doJSON(t *testing.T, srv *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set(sessionHeader, token)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func login(t *testing.T, srv *Server) string {
	t.Helper()
	rr := doJSON(t, srv, http.MethodPost, "/api/login", "", `{"code":"133"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("login status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp["token"]
}

func TestHealthIsOpen(t *testing.T) {
	srv, _ := newTestServer()
	rr := doJSON(t, srv, http.MethodGet, "/healthz", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing request id header")
	}
}

func TestLoginGate(t *testing.T) {
	srv, _ := newTestServer()

	rr := doJSON(t, srv, http.MethodPost, "/api/login", "", `{"code":"000"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad code expected 401, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/properties", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("no token expected 401, got %d", rr.Code)
	}

	token := login(t, srv)
	rr = doJSON(t, srv, http.MethodGet, "/api/properties", token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("with token expected 200, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/logout", token, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("logout expected 204, got %d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodGet, "/api/properties", token, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("after logout expected 401, got %d", rr.Code)
	}
}

func TestPropertyEndpoints(t *testing.T) {
	srv, _ := newTestServer()
	token := login(t, srv)

	rr := doJSON(t, srv, http.MethodPost, "/api/properties", token,
		`{"label":"Unit A","address":"Street 1","locality":"City X"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/properties", token,
		`{"label":"  ","address":"Street 1","locality":"City X"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("blank label expected 422, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPut, "/api/properties/1", token,
		`{"label":"Unit A2","address":"Street 2","locality":"City Y"}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("update expected 204, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPut, "/api/properties/999", token,
		`{"label":"X","address":"Y","locality":"Z"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("update missing expected 404, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/properties", token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list expected 200, got %d", rr.Code)
	}
	var props []propertyPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &props); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(props) != 1 || props[0].Label != "Unit A2" {
		t.Fatalf("unexpected list: %+v", props)
	}
}

func TestConfigurationEndpoints(t *testing.T) {
	srv, _ := newTestServer()
	token := login(t, srv)
	doJSON(t, srv, http.MethodPost, "/api/properties", token,
		`{"label":"Unit A","address":"Street 1","locality":"City X"}`)

	rr := doJSON(t, srv, http.MethodGet, "/api/properties/1/config", token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("load expected 200, got %d", rr.Code)
	}
	var cfg configPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.DueDay != 5 {
		t.Fatalf("expected default due day, got %d", cfg.DueDay)
	}

	rr = doJSON(t, srv, http.MethodPut, "/api/properties/1/config", token,
		`{"landlord_name":"Alice","due_day":10,"bank":"Banco X"}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("save expected 204, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/properties/1/config", token, "")
	if err := json.Unmarshal(rr.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.LandlordName != "Alice" || cfg.DueDay != 10 || cfg.Bank != "Banco X" {
		t.Fatalf("save not applied: %+v", cfg)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/properties/999/config", token, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing property expected 404, got %d", rr.Code)
	}
}

func TestLedgerEndpoints(t *testing.T) {
	srv, _ := newTestServer()
	token := login(t, srv)
	doJSON(t, srv, http.MethodPost, "/api/properties", token,
		`{"label":"Unit A","address":"Street 1","locality":"City X"}`)

	// amounts as number, string, and garbage (coerced to zero)
	rr := doJSON(t, srv, http.MethodPut, "/api/properties/1/ledger/2026-03", token,
		`{"rent":{"amount":1500,"note":"march"},
		  "condo_fee":{"amount":"300,00"},
		  "property_tax":{"amount":50},
		  "water":{"amount":40},
		  "fire_insurance":{"amount":20},
		  "other_fees":{"amount":"not-a-number"},
		  "other_discounts":{"amount":80}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("upsert expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var rec ledgerPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec.Month != "2026-03" || rec.DisplayMonth != "03/2026" {
		t.Fatalf("month fields: %+v", rec)
	}
	if rec.Subtotal != 1910 || rec.Total != 1830 {
		t.Fatalf("totals: subtotal=%v total=%v", rec.Subtotal, rec.Total)
	}
	if rec.OtherFees.Amount != 0 {
		t.Fatalf("garbage amount must coerce to zero, got %v", rec.OtherFees.Amount)
	}
	if rec.Rent.Note != "march" {
		t.Fatalf("note lost: %+v", rec.Rent)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/properties/1/ledger/2026-03", token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get expected 200, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/properties/1/ledger/2026-04", token, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("absent month expected 404, got %d", rr.Code)
	}

	// prefill falls back to the March values for the unsaved April
	rr = doJSON(t, srv, http.MethodGet, "/api/properties/1/ledger/2026-04/prefill", token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("prefill expected 200, got %d", rr.Code)
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode prefill: %v", err)
	}
	if rec.Month != "2026-04" || rec.Rent.Amount != 1500 {
		t.Fatalf("prefill template: %+v", rec)
	}

	rr = doJSON(t, srv, http.MethodPut, "/api/properties/1/ledger/2026-13", token, `{}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad month expected 422, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPut, "/api/properties/999/ledger/2026-03", token, `{}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown property expected 404, got %d", rr.Code)
	}
}

func TestStatementEndpoint(t *testing.T) {
	srv, _ := newTestServer()
	token := login(t, srv)
	doJSON(t, srv, http.MethodPost, "/api/properties", token,
		`{"label":"Unit A","address":"Street 1","locality":"City X"}`)

	rr := doJSON(t, srv, http.MethodGet, "/api/properties/1/ledger/2026-03/statement", token, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("statement for absent month expected 404, got %d", rr.Code)
	}

	doJSON(t, srv, http.MethodPut, "/api/properties/1/ledger/2026-03", token,
		`{"rent":{"amount":1500}}`)

	rr = doJSON(t, srv, http.MethodGet, "/api/properties/1/ledger/2026-03/statement", token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("statement expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type: %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "Boleto_Unit_A_2026-03.pdf") {
		t.Fatalf("content disposition: %q", cd)
	}
	if !strings.HasPrefix(rr.Body.String(), "%PDF-") {
		t.Fatalf("body is not a PDF")
	}
}
