package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"aluguel/internal/core"
	"aluguel/internal/statement"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, ok := s.gate.Login(req.Code)
	if !ok {
		slog.WarnContext(r.Context(), "Login rejected")
		writeError(w, http.StatusUnauthorized, "invalid access code")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.gate.Logout(r.Header.Get(sessionHeader))
	w.WriteHeader(http.StatusNoContent)
}

type propertyPayload struct {
	ID       int64  `json:"id"`
	Label    string `json:"label"`
	Address  string `json:"address"`
	Locality string `json:"locality"`
}

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	props, err := s.props.ListProperties(r.Context())
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	out := make([]propertyPayload, 0, len(props))
	for _, p := range props {
		out = append(out, propertyPayload{ID: p.ID, Label: p.Label, Address: p.Address, Locality: p.Locality})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateProperty(w http.ResponseWriter, r *http.Request) {
	var req propertyPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := s.props.CreateProperty(r.Context(), req.Label, req.Address, req.Locality)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleUpdateProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req propertyPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.props.UpdateProperty(r.Context(), id, req.Label, req.Address, req.Locality); err != nil {
		s.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type configPayload struct {
	LandlordName   string `json:"landlord_name"`
	LandlordDoc    string `json:"landlord_doc"`
	TenantName     string `json:"tenant_name"`
	TenantDoc      string `json:"tenant_doc"`
	DueDay         int    `json:"due_day"`
	Bank           string `json:"bank"`
	Branch         string `json:"branch"`
	Account        string `json:"account"`
	AccountType    string `json:"account_type"`
	Holder         string `json:"holder"`
	HolderDoc      string `json:"holder_doc"`
	PixKey         string `json:"pix_key"`
	ReceiptContact string `json:"receipt_contact"`
}

func (s *Server) handleLoadConfiguration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cfg, err := s.props.LoadConfiguration(r.Context(), id)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, configPayload{
		LandlordName:   cfg.LandlordName,
		LandlordDoc:    cfg.LandlordDoc,
		TenantName:     cfg.TenantName,
		TenantDoc:      cfg.TenantDoc,
		DueDay:         cfg.DueDay,
		Bank:           cfg.Bank,
		Branch:         cfg.Branch,
		Account:        cfg.Account,
		AccountType:    cfg.AccountType,
		Holder:         cfg.Holder,
		HolderDoc:      cfg.HolderDoc,
		PixKey:         cfg.PixKey,
		ReceiptContact: cfg.ReceiptContact,
	})
}

func (s *Server) handleSaveConfiguration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req configPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := s.props.SaveConfiguration(r.Context(), core.Configuration{
		PropertyID:     id,
		LandlordName:   req.LandlordName,
		LandlordDoc:    req.LandlordDoc,
		TenantName:     req.TenantName,
		TenantDoc:      req.TenantDoc,
		DueDay:         req.DueDay,
		Bank:           req.Bank,
		Branch:         req.Branch,
		Account:        req.Account,
		AccountType:    req.AccountType,
		Holder:         req.Holder,
		HolderDoc:      req.HolderDoc,
		PixKey:         req.PixKey,
		ReceiptContact: req.ReceiptContact,
	})
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// flexAmount accepts a JSON number or string and coerces anything invalid,
// negative or absent to zero. Charge entry must never fail on a bad amount.
type flexAmount struct {
	core.Money
}

func (a *flexAmount) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		a.Money = core.MoneyFromFloat(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		a.Money = core.ParseAmount(s)
		return nil
	}
	a.Money = core.Money{}
	return nil
}

type chargeInput struct {
	Amount flexAmount `json:"amount"`
	Note   string     `json:"note"`
}

func (c chargeInput) line() core.ChargeLine {
	return core.ChargeLine{Amount: c.Amount.Money, Note: c.Note}
}

type chargeOutput struct {
	Amount float64 `json:"amount"`
	Note   string  `json:"note"`
}

func outLine(l core.ChargeLine) chargeOutput {
	return chargeOutput{Amount: l.Amount.Float(), Note: l.Note}
}

type ledgerPayload struct {
	Month          string       `json:"month"`
	DisplayMonth   string       `json:"display_month"`
	Rent           chargeOutput `json:"rent"`
	CondoFee       chargeOutput `json:"condo_fee"`
	PropertyTax    chargeOutput `json:"property_tax"`
	Water          chargeOutput `json:"water"`
	FireInsurance  chargeOutput `json:"fire_insurance"`
	OtherFees      chargeOutput `json:"other_fees"`
	OtherDiscounts chargeOutput `json:"other_discounts"`
	Subtotal       float64      `json:"subtotal"`
	Total          float64      `json:"total"`
	CreatedAt      string       `json:"created_at,omitempty"`
	UpdatedAt      string       `json:"updated_at,omitempty"`
}

func ledgerOut(rec core.LedgerRecord) ledgerPayload {
	out := ledgerPayload{
		Month:          rec.Month,
		DisplayMonth:   core.MonthToDisplay(rec.Month),
		Rent:           outLine(rec.Rent),
		CondoFee:       outLine(rec.CondoFee),
		PropertyTax:    outLine(rec.PropertyTax),
		Water:          outLine(rec.Water),
		FireInsurance:  outLine(rec.FireInsurance),
		OtherFees:      outLine(rec.OtherFees),
		OtherDiscounts: outLine(rec.OtherDiscounts),
		Subtotal:       rec.Subtotal().Float(),
		Total:          rec.Total().Float(),
	}
	if !rec.CreatedAt.IsZero() {
		out.CreatedAt = rec.CreatedAt.Format(time.RFC3339)
	}
	if !rec.UpdatedAt.IsZero() {
		out.UpdatedAt = rec.UpdatedAt.Format(time.RFC3339)
	}
	return out
}

func (s *Server) handleListLedger(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := s.props.GetProperty(r.Context(), id); err != nil {
		s.storeError(w, r, err)
		return
	}
	list, err := s.ledger.ListLedger(r.Context(), id)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	out := make([]ledgerPayload, 0, len(list))
	for _, rec := range list {
		out = append(out, ledgerOut(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, err := s.ledger.GetLedger(r.Context(), id, r.PathValue("month"))
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ledgerOut(rec))
}

func (s *Server) handlePrefillLedger(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := s.props.GetProperty(r.Context(), id); err != nil {
		s.storeError(w, r, err)
		return
	}
	rec, err := s.ledger.PrefillLedger(r.Context(), id, r.PathValue("month"))
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ledgerOut(rec))
}

func (s *Server) handleUpsertLedger(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Rent           chargeInput `json:"rent"`
		CondoFee       chargeInput `json:"condo_fee"`
		PropertyTax    chargeInput `json:"property_tax"`
		Water          chargeInput `json:"water"`
		FireInsurance  chargeInput `json:"fire_insurance"`
		OtherFees      chargeInput `json:"other_fees"`
		OtherDiscounts chargeInput `json:"other_discounts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rec := core.LedgerRecord{
		PropertyID:     id,
		Month:          r.PathValue("month"),
		Rent:           req.Rent.line(),
		CondoFee:       req.CondoFee.line(),
		PropertyTax:    req.PropertyTax.line(),
		Water:          req.Water.line(),
		FireInsurance:  req.FireInsurance.line(),
		OtherFees:      req.OtherFees.line(),
		OtherDiscounts: req.OtherDiscounts.line(),
	}
	if err := s.ledger.UpsertLedger(r.Context(), rec); err != nil {
		s.storeError(w, r, err)
		return
	}
	saved, err := s.ledger.GetLedger(r.Context(), id, rec.Month)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ledgerOut(saved))
}

// handleStatement re-reads the persisted configuration and record, renders
// the statement and returns it with a suggested download name.
func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	prop, err := s.props.GetProperty(r.Context(), id)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	cfg, err := s.props.LoadConfiguration(r.Context(), id)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	rec, err := s.ledger.GetLedger(r.Context(), id, r.PathValue("month"))
	if err != nil {
		s.storeError(w, r, err)
		return
	}

	out, err := statement.Render(prop, cfg, rec)
	if err != nil {
		s.storeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", statement.Filename(prop, rec)))
	w.WriteHeader(http.StatusOK)
	w.Write(out)

	slog.InfoContext(r.Context(), "Statement rendered",
		"property_id", id, "month", rec.Month, "bytes", len(out))
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid property id")
		return 0, false
	}
	return id, true
}

// storeError maps store failures onto HTTP statuses: not-found to 404,
// validation to 422, everything else to 500.
func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case core.IsValidation(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Store operation failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
