// Package storage persists properties, billing configurations and monthly
// ledger entries in a single SQLite database.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"aluguel/internal/core"

	_ "modernc.org/sqlite"
)

// Repository is the durable store behind every operation. Each method opens
// its own implicit transaction and commits before returning; concurrent
// writers to the same key resolve to last-commit-wins.
type Repository struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at dbPath, applies schema
// migrations, imports any legacy single- or multi-property data, and seeds
// seedCount default properties when the store ends up empty.
func Open(dbPath string, seedCount int) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if err := importLegacy(db, seedCount); err != nil {
		db.Close()
		return nil, fmt.Errorf("import legacy data: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateProperty inserts a property together with its default configuration
// and returns the new id.
func (r *Repository) CreateProperty(ctx context.Context, label, address, locality string) (int64, error) {
	p := core.Property{Label: label, Address: address, Locality: locality}
	if err := p.Normalize(); err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO properties (label, address, locality) VALUES (?, ?, ?)`,
		p.Label, p.Address, p.Locality)
	if err != nil {
		return 0, fmt.Errorf("insert property: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("property id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO billing_configs (property_id, due_day) VALUES (?, ?)`,
		id, core.DefaultDueDay); err != nil {
		return 0, fmt.Errorf("insert default config: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Property created", "id", id, "label", p.Label)
	return id, nil
}

// UpdateProperty overwrites the three identity fields of an existing property.
func (r *Repository) UpdateProperty(ctx context.Context, id int64, label, address, locality string) error {
	p := core.Property{ID: id, Label: label, Address: address, Locality: locality}
	if err := p.Normalize(); err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE properties SET label = ?, address = ?, locality = ? WHERE id = ?`,
		p.Label, p.Address, p.Locality, id)
	if err != nil {
		return fmt.Errorf("update property: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("property %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// GetProperty returns one property by id.
func (r *Repository) GetProperty(ctx context.Context, id int64) (core.Property, error) {
	var p core.Property
	err := r.db.QueryRowContext(ctx,
		`SELECT id, label, address, locality FROM properties WHERE id = ?`, id).
		Scan(&p.ID, &p.Label, &p.Address, &p.Locality)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Property{}, fmt.Errorf("property %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Property{}, fmt.Errorf("get property: %w", err)
	}
	return p, nil
}

// ListProperties returns all properties ordered by id ascending.
func (r *Repository) ListProperties(ctx context.Context) ([]core.Property, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, label, address, locality FROM properties ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	var out []core.Property
	for rows.Next() {
		var p core.Property
		if err := rows.Scan(&p.ID, &p.Label, &p.Address, &p.Locality); err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LoadConfiguration returns the configuration of a property, creating the
// default one first when missing. An existing property never gets not-found
// from this call.
func (r *Repository) LoadConfiguration(ctx context.Context, propertyID int64) (core.Configuration, error) {
	cfg, err := r.scanConfiguration(ctx, propertyID)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return core.Configuration{}, fmt.Errorf("load configuration: %w", err)
	}

	if _, err := r.GetProperty(ctx, propertyID); err != nil {
		return core.Configuration{}, err
	}

	if _, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO billing_configs (property_id, due_day) VALUES (?, ?)`,
		propertyID, core.DefaultDueDay); err != nil {
		return core.Configuration{}, fmt.Errorf("create default configuration: %w", err)
	}

	cfg, err = r.scanConfiguration(ctx, propertyID)
	if err != nil {
		return core.Configuration{}, fmt.Errorf("reload configuration: %w", err)
	}
	return cfg, nil
}

func (r *Repository) scanConfiguration(ctx context.Context, propertyID int64) (core.Configuration, error) {
	var c core.Configuration
	err := r.db.QueryRowContext(ctx, `
		SELECT property_id, landlord_name, landlord_doc, tenant_name, tenant_doc,
		       due_day, bank, branch, account, account_type,
		       holder, holder_doc, pix_key, receipt_contact
		FROM billing_configs WHERE property_id = ?`, propertyID).
		Scan(&c.PropertyID, &c.LandlordName, &c.LandlordDoc, &c.TenantName, &c.TenantDoc,
			&c.DueDay, &c.Bank, &c.Branch, &c.Account, &c.AccountType,
			&c.Holder, &c.HolderDoc, &c.PixKey, &c.ReceiptContact)
	return c, err
}

// SaveConfiguration overwrites every configuration field of the property.
func (r *Repository) SaveConfiguration(ctx context.Context, cfg core.Configuration) error {
	cfg.Normalize()

	if _, err := r.GetProperty(ctx, cfg.PropertyID); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO billing_configs (
			property_id, landlord_name, landlord_doc, tenant_name, tenant_doc,
			due_day, bank, branch, account, account_type,
			holder, holder_doc, pix_key, receipt_contact
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (property_id) DO UPDATE SET
			landlord_name = excluded.landlord_name,
			landlord_doc = excluded.landlord_doc,
			tenant_name = excluded.tenant_name,
			tenant_doc = excluded.tenant_doc,
			due_day = excluded.due_day,
			bank = excluded.bank,
			branch = excluded.branch,
			account = excluded.account,
			account_type = excluded.account_type,
			holder = excluded.holder,
			holder_doc = excluded.holder_doc,
			pix_key = excluded.pix_key,
			receipt_contact = excluded.receipt_contact`,
		cfg.PropertyID, cfg.LandlordName, cfg.LandlordDoc, cfg.TenantName, cfg.TenantDoc,
		cfg.DueDay, cfg.Bank, cfg.Branch, cfg.Account, cfg.AccountType,
		cfg.Holder, cfg.HolderDoc, cfg.PixKey, cfg.ReceiptContact)
	if err != nil {
		return fmt.Errorf("save configuration: %w", err)
	}

	slog.InfoContext(ctx, "Configuration saved", "property_id", cfg.PropertyID, "due_day", cfg.DueDay)
	return nil
}

const timeLayout = time.RFC3339

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
