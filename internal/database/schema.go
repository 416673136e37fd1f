package database

import (
	"context"
	"fmt"
)

// schema returns the CREATE statements for a driver. Every statement is
// idempotent so Migrate can run on each start.
func schema(driver Driver) []string {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	ts := "TEXT"
	date := "TEXT"
	boolean := "INTEGER"
	if driver == DriverPostgres {
		id = "BIGSERIAL PRIMARY KEY"
		ts = "TIMESTAMPTZ"
		date = "DATE"
		boolean = "BOOLEAN"
	}
	t := func(v bool) string {
		switch {
		case driver == DriverPostgres && v:
			return "TRUE"
		case driver == DriverPostgres:
			return "FALSE"
		case v:
			return "1"
		default:
			return "0"
		}
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS properties (
			id ` + id + `,
			address TEXT NOT NULL,
			city TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL DEFAULT '',
			zip_code TEXT NOT NULL DEFAULT '',
			bsa_account_number TEXT NOT NULL UNIQUE,
			owner_name TEXT NOT NULL DEFAULT '',
			tenant_name TEXT NOT NULL DEFAULT '',
			is_active ` + boolean + ` NOT NULL DEFAULT ` + t(true) + `,
			created_at ` + ts + ` NOT NULL,
			updated_at ` + ts + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_properties_active ON properties(is_active)`,

		`CREATE TABLE IF NOT EXISTS water_bills (
			id ` + id + `,
			property_id BIGINT NOT NULL REFERENCES properties(id),
			amount_due BIGINT NOT NULL,
			previous_balance BIGINT,
			current_charges BIGINT,
			late_fees BIGINT,
			payments_received BIGINT,
			statement_date ` + date + `,
			due_date ` + date + `,
			water_usage_gallons BIGINT,
			status TEXT NOT NULL DEFAULT 'unknown',
			scraped_at ` + ts + ` NOT NULL,
			raw_data TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bills_property ON water_bills(property_id, scraped_at)`,

		`CREATE TABLE IF NOT EXISTS scraping_logs (
			id ` + id + `,
			run_id TEXT NOT NULL,
			started_at ` + ts + ` NOT NULL,
			completed_at ` + ts + `,
			success ` + boolean + ` NOT NULL DEFAULT ` + t(false) + `,
			properties_scraped INTEGER NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT '',
			details TEXT NOT NULL DEFAULT '{}'
		)`,

		`CREATE TABLE IF NOT EXISTS telegram_users (
			id ` + id + `,
			telegram_id BIGINT NOT NULL UNIQUE,
			username TEXT NOT NULL DEFAULT '',
			first_name TEXT NOT NULL DEFAULT '',
			is_admin ` + boolean + ` NOT NULL DEFAULT ` + t(false) + `,
			notifications_enabled ` + boolean + ` NOT NULL DEFAULT ` + t(true) + `,
			created_at ` + ts + ` NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS tenants (
			id ` + id + `,
			property_id BIGINT NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			is_primary ` + boolean + ` NOT NULL DEFAULT ` + t(false) + `,
			is_active ` + boolean + ` NOT NULL DEFAULT ` + t(true) + `,
			is_section8 ` + boolean + ` NOT NULL DEFAULT ` + t(false) + `,
			lease_start_date ` + date + `,
			current_rent BIGINT,
			created_at ` + ts + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tenants_property ON tenants(property_id)`,
	}
}

// Migrate creates every table that does not exist yet.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema(s.driver) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}

// ListTables returns the names of the tables in the database, sorted.
func (s *SQLStore) ListTables(ctx context.Context) ([]string, error) {
	query := `SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`
	if s.driver == DriverPostgres {
		query = `SELECT table_name FROM information_schema.tables
			WHERE table_schema = current_schema()
			ORDER BY table_name`
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}
