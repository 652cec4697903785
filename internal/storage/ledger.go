package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"aluguel/internal/core"
)

const ledgerColumns = `
	property_id, month,
	rent_cents, rent_note,
	condo_fee_cents, condo_fee_note,
	property_tax_cents, property_tax_note,
	water_cents, water_note,
	fire_insurance_cents, fire_insurance_note,
	other_fees_cents, other_fees_note,
	discounts_cents, discounts_note,
	created_at, updated_at`

// UpsertLedger inserts or overwrites the record for (rec.PropertyID,
// rec.Month). All seven amount/note pairs are replaced wholesale; created_at
// is set only on first insert, updated_at on every write. Calling twice with
// identical data leaves one record with unchanged values.
func (r *Repository) UpsertLedger(ctx context.Context, rec core.LedgerRecord) error {
	month, err := core.NormalizeMonth(rec.Month)
	if err != nil {
		return err
	}

	if _, err := r.GetProperty(ctx, rec.PropertyID); err != nil {
		return err
	}

	now := formatTime(time.Now())
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO ledger_entries (`+ledgerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (property_id, month) DO UPDATE SET
			rent_cents = excluded.rent_cents,
			rent_note = excluded.rent_note,
			condo_fee_cents = excluded.condo_fee_cents,
			condo_fee_note = excluded.condo_fee_note,
			property_tax_cents = excluded.property_tax_cents,
			property_tax_note = excluded.property_tax_note,
			water_cents = excluded.water_cents,
			water_note = excluded.water_note,
			fire_insurance_cents = excluded.fire_insurance_cents,
			fire_insurance_note = excluded.fire_insurance_note,
			other_fees_cents = excluded.other_fees_cents,
			other_fees_note = excluded.other_fees_note,
			discounts_cents = excluded.discounts_cents,
			discounts_note = excluded.discounts_note,
			updated_at = excluded.updated_at`,
		rec.PropertyID, month,
		rec.Rent.Amount.Cents, rec.Rent.Note,
		rec.CondoFee.Amount.Cents, rec.CondoFee.Note,
		rec.PropertyTax.Amount.Cents, rec.PropertyTax.Note,
		rec.Water.Amount.Cents, rec.Water.Note,
		rec.FireInsurance.Amount.Cents, rec.FireInsurance.Note,
		rec.OtherFees.Amount.Cents, rec.OtherFees.Note,
		rec.OtherDiscounts.Amount.Cents, rec.OtherDiscounts.Note,
		now, now)
	if err != nil {
		return fmt.Errorf("upsert ledger entry: %w", err)
	}

	slog.InfoContext(ctx, "Ledger entry saved",
		"property_id", rec.PropertyID,
		"month", month,
		"total_cents", rec.Total().Cents)
	return nil
}

// GetLedger returns the record for the exact (propertyID, month) key.
func (r *Repository) GetLedger(ctx context.Context, propertyID int64, month string) (core.LedgerRecord, error) {
	normalized, err := core.NormalizeMonth(month)
	if err != nil {
		return core.LedgerRecord{}, err
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT `+ledgerColumns+`
		FROM ledger_entries WHERE property_id = ? AND month = ?`,
		propertyID, normalized)
	rec, err := scanLedger(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LedgerRecord{}, fmt.Errorf("ledger %d/%s: %w", propertyID, normalized, core.ErrNotFound)
	}
	if err != nil {
		return core.LedgerRecord{}, fmt.Errorf("get ledger entry: %w", err)
	}
	return rec, nil
}

// LatestLedger returns the record with the greatest month token for the
// property. Month tokens are zero-padded YYYY-MM, so lexicographic order is
// chronological order.
func (r *Repository) LatestLedger(ctx context.Context, propertyID int64) (core.LedgerRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+ledgerColumns+`
		FROM ledger_entries WHERE property_id = ?
		ORDER BY month DESC LIMIT 1`, propertyID)
	rec, err := scanLedger(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LedgerRecord{}, fmt.Errorf("ledger %d: %w", propertyID, core.ErrNotFound)
	}
	if err != nil {
		return core.LedgerRecord{}, fmt.Errorf("latest ledger entry: %w", err)
	}
	return rec, nil
}

// PrefillLedger returns the values a client should use to populate entry
// fields for the target month: the month's own record when it exists,
// otherwise the latest saved record as a template, otherwise zero values.
// The own-record-first ordering is load-bearing: reversing it would resurrect
// stale values over an already-saved month.
func (r *Repository) PrefillLedger(ctx context.Context, propertyID int64, month string) (core.LedgerRecord, error) {
	normalized, err := core.NormalizeMonth(month)
	if err != nil {
		return core.LedgerRecord{}, err
	}

	rec, err := r.GetLedger(ctx, propertyID, normalized)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.LedgerRecord{}, err
	}

	rec, err = r.LatestLedger(ctx, propertyID)
	if errors.Is(err, core.ErrNotFound) {
		return core.LedgerRecord{PropertyID: propertyID, Month: normalized}, nil
	}
	if err != nil {
		return core.LedgerRecord{}, err
	}

	// Template only: re-key to the target month and drop the timestamps of
	// the record it was copied from.
	rec.Month = normalized
	rec.CreatedAt = time.Time{}
	rec.UpdatedAt = time.Time{}
	return rec, nil
}

// ListLedger returns every record of the property, most recent month first.
func (r *Repository) ListLedger(ctx context.Context, propertyID int64) ([]core.LedgerRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+ledgerColumns+`
		FROM ledger_entries WHERE property_id = ?
		ORDER BY month DESC`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var out []core.LedgerRecord
	for rows.Next() {
		rec, err := scanLedger(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLedger(row rowScanner) (core.LedgerRecord, error) {
	var rec core.LedgerRecord
	var createdAt, updatedAt string
	err := row.Scan(
		&rec.PropertyID, &rec.Month,
		&rec.Rent.Amount.Cents, &rec.Rent.Note,
		&rec.CondoFee.Amount.Cents, &rec.CondoFee.Note,
		&rec.PropertyTax.Amount.Cents, &rec.PropertyTax.Note,
		&rec.Water.Amount.Cents, &rec.Water.Note,
		&rec.FireInsurance.Amount.Cents, &rec.FireInsurance.Note,
		&rec.OtherFees.Amount.Cents, &rec.OtherFees.Note,
		&rec.OtherDiscounts.Amount.Cents, &rec.OtherDiscounts.Note,
		&createdAt, &updatedAt)
	if err != nil {
		return core.LedgerRecord{}, err
	}
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)
	return rec, nil
}
