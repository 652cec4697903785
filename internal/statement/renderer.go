// Package statement renders the monthly payment statement document.
//
// Rendering is a pure function of a Property, its Configuration and one
// LedgerRecord: no I/O, no store access, safe to call concurrently. Missing
// or blank fields render as empty strings; an incomplete statement is still
// useful output, so rendering never fails on data content.
package statement

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"aluguel/internal/core"
)

const title = "BOLETO / DEMONSTRATIVO DE COBRANÇA – ALUGUEL"

const genericReceiptLine = "Favor enviar o comprovante de pagamento após a quitação."

// row is one line of the charge table.
type row struct {
	Desc   string
	Note   string
	Amount string
	Bold   bool
}

// tableRows builds the line-item table: the six charges, then subtotal,
// discount and total.
func tableRows(rec core.LedgerRecord) []row {
	return []row{
		{Desc: "Aluguel Mensal", Note: rec.Rent.Note, Amount: rec.Rent.Amount.FormatBRL()},
		{Desc: "Condomínio", Note: rec.CondoFee.Note, Amount: rec.CondoFee.Amount.FormatBRL()},
		{Desc: "IPTU (parcela mensal)", Note: rec.PropertyTax.Note, Amount: rec.PropertyTax.Amount.FormatBRL()},
		{Desc: "Consumo de água", Note: rec.Water.Note, Amount: rec.Water.Amount.FormatBRL()},
		{Desc: "Seguro de incêndio", Note: rec.FireInsurance.Note, Amount: rec.FireInsurance.Amount.FormatBRL()},
		{Desc: "Outras taxas", Note: rec.OtherFees.Note, Amount: rec.OtherFees.Amount.FormatBRL()},
		{Desc: "Subtotal", Amount: rec.Subtotal().FormatBRL()},
		{Desc: "Outros Descontos", Note: rec.OtherDiscounts.Note, Amount: rec.OtherDiscounts.Amount.FormatBRL()},
		{Desc: "TOTAL A PAGAR", Amount: rec.Total().FormatBRL(), Bold: true},
	}
}

// dueLine combines the configuration's fixed due day with the record's month.
func dueLine(cfg core.Configuration, rec core.LedgerRecord) string {
	day := cfg.DueDay
	if day <= 0 {
		day = core.DefaultDueDay
	}
	return fmt.Sprintf("Vencimento: dia %02d / %s", day, core.MonthToDisplay(rec.Month))
}

func paymentLines(cfg core.Configuration) []string {
	return []string{
		"Banco: " + cfg.Bank,
		"Agência: " + cfg.Branch,
		"Conta: " + cfg.Account,
		"Tipo: " + cfg.AccountType,
		"Titular: " + cfg.Holder,
		"CPF/CNPJ: " + cfg.HolderDoc,
		"PIX (se houver): " + cfg.PixKey,
	}
}

func receiptLine(cfg core.Configuration) string {
	if contact := strings.TrimSpace(cfg.ReceiptContact); contact != "" {
		return "Comprovante: enviar para " + contact
	}
	return genericReceiptLine
}

// Filename suggests a download name for the rendered document: fixed prefix,
// the property label with spaces replaced by underscores, and the stored
// month token.
func Filename(p core.Property, rec core.LedgerRecord) string {
	return "Boleto_" + strings.ReplaceAll(p.Label, " ", "_") + "_" + rec.Month + ".pdf"
}

// Render produces the single-page A4 statement as a byte buffer.
func Render(p core.Property, cfg core.Configuration, rec core.LedgerRecord) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(13, 13, 13)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 15)
	pdf.CellFormat(0, 9, tr(title), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Helvetica", "", 10)
	block := func(lines ...string) {
		for _, l := range lines {
			pdf.CellFormat(0, 5, tr(l), "", 1, "L", false, 0, "")
		}
		pdf.Ln(3)
	}

	block("Imóvel: "+p.Address, p.Locality)
	block("Locador: "+cfg.LandlordName, "CPF/CNPJ: "+cfg.LandlordDoc)
	block("Locatário: "+cfg.TenantName, "CPF/CNPJ: "+cfg.TenantDoc)
	block("Referência: Aluguel referente a " + core.MonthToDisplay(rec.Month))
	pdf.Ln(2)

	colW := [3]float64{60, 82, 42}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(220, 220, 220)
	pdf.CellFormat(colW[0], 7, tr("Descrição"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(colW[1], 7, tr("Observação"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(colW[2], 7, tr("Valor (R$)"), "1", 1, "R", true, 0, "")

	for _, r := range tableRows(rec) {
		if r.Bold {
			pdf.SetFont("Helvetica", "B", 10)
		} else {
			pdf.SetFont("Helvetica", "", 10)
		}
		pdf.CellFormat(colW[0], 7, tr(r.Desc), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[1], 7, tr(r.Note), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[2], 7, tr(r.Amount), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(5)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 5, tr(dueLine(cfg, rec)), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	pdf.CellFormat(0, 5, tr("Dados para Pagamento / Depósito"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, l := range paymentLines(cfg) {
		pdf.CellFormat(0, 5, tr(l), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	pdf.CellFormat(0, 5, tr(receiptLine(cfg)), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
