package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"aluguel/internal/core"
)

// ErrMigrationIntegrity marks a legacy row that cannot be mapped into the
// current schema. Startup must fail on it: running with a partially imported
// database would corrupt every later read.
var ErrMigrationIntegrity = errors.New("migration integrity failure")

// Stable defaults used when seeding an empty database or when a legacy
// configuration carries no address. Kept verbatim from the deployments this
// store replaces.
const (
	defaultLabel    = "Abraham Palatnik 100/301/7"
	defaultAddress  = "Rua Abraham Palatnik, 100 – Apto 301 – Bloco 7"
	defaultLocality = "Recreio dos Bandeirantes – Rio de Janeiro/RJ"
)

// importLegacy copies data from any of the legacy layouts into the current
// tables. It only acts when the properties table is empty, which makes the
// whole step idempotent: once properties exist, every later startup is a
// no-op. Three legacy shapes are accepted:
//
//  1. multi-property: apartamentos / configs / lancamentos keyed by
//     (apartamento_id, mes)
//  2. single-property: a config table with one row (id=1) and a lancamentos
//     table keyed by mes alone
//  3. nothing: seed seedCount default properties
//
// Ledger copies use INSERT OR IGNORE (first-write-wins), so a partially
// completed earlier run is safe to repeat.
func importLegacy(db *sql.DB, seedCount int) error {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM properties`).Scan(&count); err != nil {
		return fmt.Errorf("count properties: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	switch {
	case tableExists(tx, "apartamentos"):
		if err := importMultiProperty(tx); err != nil {
			return err
		}
	case tableExists(tx, "config"):
		if err := importSingleProperty(tx); err != nil {
			return err
		}
	default:
		if err := seedDefaults(tx, seedCount); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func importMultiProperty(tx *sql.Tx) error {
	slog.Info("Importing legacy multi-property data")

	apts, err := readRowMaps(tx, `SELECT * FROM apartamentos ORDER BY id ASC`)
	if err != nil {
		return fmt.Errorf("read legacy apartamentos: %w", err)
	}
	if len(apts) == 0 {
		return seedDefaults(tx, 1)
	}

	for _, apt := range apts {
		id, err := strconv.ParseInt(apt["id"], 10, 64)
		if err != nil {
			return fmt.Errorf("%w: apartamento without usable id", ErrMigrationIntegrity)
		}
		if _, err := tx.Exec(
			`INSERT INTO properties (id, label, address, locality) VALUES (?, ?, ?, ?)`,
			id,
			fallback(apt["apelido"], defaultLabel),
			fallback(apt["imovel"], defaultAddress),
			fallback(apt["bairro"], defaultLocality)); err != nil {
			return fmt.Errorf("copy apartamento %d: %w", id, err)
		}
		if err := copyLegacyConfig(tx, id, readLegacyConfig(tx, id)); err != nil {
			return err
		}
	}

	if tableExists(tx, "lancamentos") {
		return copyLegacyLedger(tx, 0)
	}
	return nil
}

func importSingleProperty(tx *sql.Tx) error {
	slog.Info("Importing legacy single-property data")

	rows, err := readRowMaps(tx, `SELECT * FROM config WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("read legacy config: %w", err)
	}
	if len(rows) == 0 {
		return seedDefaults(tx, 1)
	}
	old := rows[0]

	res, err := tx.Exec(
		`INSERT INTO properties (label, address, locality) VALUES (?, ?, ?)`,
		"Imóvel 1",
		fallback(strings.TrimSpace(old["imovel"]), defaultAddress),
		fallback(strings.TrimSpace(old["bairro"]), defaultLocality))
	if err != nil {
		return fmt.Errorf("create property from legacy config: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("property id: %w", err)
	}

	if err := copyLegacyConfig(tx, id, old); err != nil {
		return err
	}

	if tableExists(tx, "lancamentos") {
		return copyLegacyLedger(tx, id)
	}
	return nil
}

// copyLegacyConfig writes a billing_configs row for propertyID from the
// legacy column map. Missing fields default to empty; a missing or
// non-positive due day defaults to 5.
func copyLegacyConfig(tx *sql.Tx, propertyID int64, old map[string]string) error {
	dueDay := core.DefaultDueDay
	if d, err := strconv.Atoi(old["vencimento_dia"]); err == nil && d > 0 {
		dueDay = d
	}
	_, err := tx.Exec(`
		INSERT OR IGNORE INTO billing_configs (
			property_id, landlord_name, landlord_doc, tenant_name, tenant_doc,
			due_day, bank, branch, account, account_type,
			holder, holder_doc, pix_key, receipt_contact
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		propertyID,
		old["locador_nome"], old["locador_doc"],
		old["locatario_nome"], old["locatario_doc"],
		dueDay,
		old["banco"], old["agencia"], old["conta"], old["tipo_conta"],
		old["titular"], old["titular_doc"], old["pix"], old["contato_comprovante"])
	if err != nil {
		return fmt.Errorf("copy config for property %d: %w", propertyID, err)
	}
	return nil
}

// readLegacyConfig fetches the configs row of one apartamento; an absent row
// yields an empty map, which copyLegacyConfig turns into defaults.
func readLegacyConfig(tx *sql.Tx, apartamentoID int64) map[string]string {
	rows, err := readRowMaps(tx,
		`SELECT * FROM configs WHERE apartamento_id = `+strconv.FormatInt(apartamentoID, 10))
	if err != nil || len(rows) == 0 {
		return map[string]string{}
	}
	return rows[0]
}

// copyLegacyLedger copies every legacy lancamentos row. When the legacy table
// carries an apartamento_id column the row keeps its property; otherwise all
// rows belong to singleID. Field names are mapped through a fixed
// compatibility table: taxa_admin stands in for consumo_agua and desconto for
// outros_descontos when the current-named column is absent.
func copyLegacyLedger(tx *sql.Tx, singleID int64) error {
	old, err := readRowMaps(tx, `SELECT * FROM lancamentos`)
	if err != nil {
		return fmt.Errorf("read legacy lancamentos: %w", err)
	}

	now := formatTime(time.Now())
	for _, row := range old {
		month, err := core.NormalizeMonth(row["mes"])
		if err != nil {
			return fmt.Errorf("%w: lancamento with unusable month %q", ErrMigrationIntegrity, row["mes"])
		}

		propertyID := singleID
		if v, ok := row["apartamento_id"]; ok {
			propertyID, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: lancamento %s without usable apartamento_id", ErrMigrationIntegrity, month)
			}
		}
		if propertyID == 0 {
			return fmt.Errorf("%w: lancamento %s without owning property", ErrMigrationIntegrity, month)
		}

		createdAt := fallback(row["created_at"], now)
		updatedAt := fallback(row["updated_at"], now)

		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO ledger_entries (`+ledgerColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			propertyID, month,
			legacyCents(row, "aluguel"), row["aluguel_obs"],
			legacyCents(row, "condominio"), row["condominio_obs"],
			legacyCents(row, "iptu"), row["iptu_obs"],
			legacyCents(row, "consumo_agua", "taxa_admin"), row["consumo_agua_obs"],
			legacyCents(row, "seguro_incendio"), row["seguro_incendio_obs"],
			legacyCents(row, "outras_taxas"), row["outras_taxas_obs"],
			legacyCents(row, "outros_descontos", "desconto"), row["outros_descontos_obs"],
			createdAt, updatedAt); err != nil {
			return fmt.Errorf("copy lancamento %d/%s: %w", propertyID, month, err)
		}
	}

	slog.Info("Legacy ledger imported", "rows", len(old))
	return nil
}

func seedDefaults(tx *sql.Tx, seedCount int) error {
	if seedCount < 1 {
		seedCount = 1
	}
	slog.Info("Seeding default properties", "count", seedCount)

	for i := 1; i <= seedCount; i++ {
		label := defaultLabel
		if i > 1 {
			label = fmt.Sprintf("Imóvel %d", i)
		}
		res, err := tx.Exec(
			`INSERT INTO properties (label, address, locality) VALUES (?, ?, ?)`,
			label, defaultAddress, defaultLocality)
		if err != nil {
			return fmt.Errorf("seed property %d: %w", i, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("seed property id: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT INTO billing_configs (property_id, due_day) VALUES (?, ?)`,
			id, core.DefaultDueDay); err != nil {
			return fmt.Errorf("seed config %d: %w", i, err)
		}
	}
	return nil
}

// legacyCents reads the first present key as a currency value in whole
// units and converts it to cents. Absent and unparseable values are zero.
func legacyCents(row map[string]string, keys ...string) int64 {
	for _, k := range keys {
		v, ok := row[k]
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return core.MoneyFromFloat(f).Cents
	}
	return 0
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func tableExists(tx *sql.Tx, name string) bool {
	var n string
	err := tx.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	return err == nil
}

// readRowMaps runs a query with unknown columns and returns each row as a
// column-name → string map. NULLs become empty strings. Legacy tables have
// no fixed shape, so everything is read through this.
func readRowMaps(tx *sql.Tx, query string) ([]map[string]string, error) {
	rows, err := tx.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]string
	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		m := make(map[string]string, len(cols))
		for i, c := range cols {
			m[c] = vals[i].String
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
