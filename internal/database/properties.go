package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/bluedeer/waterbill/internal/model"
)

const propertyColumns = `p.id, p.address, p.city, p.state, p.zip_code, p.bsa_account_number,
	p.owner_name, p.tenant_name, p.is_active, p.created_at, p.updated_at`

// PropertyDetails carries values learned from the portal. Empty fields leave
// the stored value unchanged.
type PropertyDetails struct {
	Address   string
	City      string
	State     string
	ZipCode   string
	OwnerName string
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(row rowScanner, extra ...any) (*model.Property, error) {
	var p model.Property
	var created, updated string
	dest := append([]any{
		&p.ID, &p.Address, &p.City, &p.State, &p.ZipCode, &p.AccountNumber,
		&p.OwnerName, &p.TenantName, &p.Active, &created, &updated,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	p.CreatedAt = parseTimestamp(created)
	p.UpdatedAt = parseTimestamp(updated)
	return &p, nil
}

// AddProperty starts tracking p and sets its ID. An account that was removed
// earlier is reactivated; an account that is still active returns
// ErrDuplicateAccount.
func (s *SQLStore) AddProperty(ctx context.Context, p *model.Property) error {
	p.AccountNumber = strings.TrimSpace(p.AccountNumber)

	existing, err := s.GetPropertyByAccount(ctx, p.AccountNumber)
	switch {
	case err == nil && existing.Active:
		return fmt.Errorf("%w: %s", ErrDuplicateAccount, p.AccountNumber)
	case err == nil:
		if _, err := s.exec(ctx,
			`UPDATE properties SET is_active = ?, updated_at = ? WHERE id = ?`,
			true, formatTimestamp(s.now()), existing.ID); err != nil {
			return fmt.Errorf("failed to reactivate property: %w", err)
		}
		existing.Active = true
		*p = *existing
		return nil
	case !errors.Is(err, ErrNotFound):
		return err
	}

	now := s.now()
	p.CreatedAt, p.UpdatedAt, p.Active = now, now, true
	id, err := s.insert(ctx, `
	INSERT INTO properties (address, city, state, zip_code, bsa_account_number,
		owner_name, tenant_name, is_active, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Address, p.City, p.State, p.ZipCode, p.AccountNumber,
		p.OwnerName, p.TenantName, true, formatTimestamp(now), formatTimestamp(now),
	)
	if err != nil {
		return fmt.Errorf("failed to insert property: %w", err)
	}
	p.ID = id
	return nil
}

// GetProperty returns the property with the given ID, active or not.
func (s *SQLStore) GetProperty(ctx context.Context, id int64) (*model.Property, error) {
	p, err := scanProperty(s.queryRow(ctx,
		`SELECT `+propertyColumns+` FROM properties p WHERE p.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("property %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return p, nil
}

// GetPropertyByAccount returns the property tracking accountNumber, active or not.
func (s *SQLStore) GetPropertyByAccount(ctx context.Context, accountNumber string) (*model.Property, error) {
	p, err := scanProperty(s.queryRow(ctx,
		`SELECT `+propertyColumns+` FROM properties p WHERE p.bsa_account_number = ?`,
		strings.TrimSpace(accountNumber)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", accountNumber, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return p, nil
}

// FindProperties returns active properties whose address contains the
// query, ignoring case.
func (s *SQLStore) FindProperties(ctx context.Context, addressQuery string) ([]model.Property, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(addressQuery))) + "%"
	return s.listProperties(ctx,
		`SELECT `+propertyColumns+` FROM properties p
		WHERE p.is_active AND LOWER(p.address) LIKE ? ESCAPE '\'
		ORDER BY p.address`, pattern)
}

// likeEscaper quotes the LIKE wildcards in user input.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListActiveProperties returns every tracked property ordered by address.
func (s *SQLStore) ListActiveProperties(ctx context.Context) ([]model.Property, error) {
	return s.listProperties(ctx,
		`SELECT `+propertyColumns+` FROM properties p WHERE p.is_active ORDER BY p.address`)
}

func (s *SQLStore) listProperties(ctx context.Context, query string, args ...any) ([]model.Property, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	var props []model.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		props = append(props, *p)
	}
	return props, rows.Err()
}

// CountActiveProperties returns the number of tracked properties.
func (s *SQLStore) CountActiveProperties(ctx context.Context) (int, error) {
	var n int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM properties WHERE is_active`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count properties: %w", err)
	}
	return n, nil
}

// DeactivateProperty stops tracking a property. Its bills are kept.
// Deactivating an inactive property succeeds; an unknown id returns ErrNotFound.
func (s *SQLStore) DeactivateProperty(ctx context.Context, id int64) error {
	res, err := s.exec(ctx,
		`UPDATE properties SET is_active = ?, updated_at = ? WHERE id = ?`,
		false, formatTimestamp(s.now()), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate property: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("property %d: %w", id, ErrNotFound)
	}
	return nil
}

// UpdatePropertyDetails stores the non-empty fields of d.
func (s *SQLStore) UpdatePropertyDetails(ctx context.Context, id int64, d PropertyDetails) error {
	res, err := s.exec(ctx, `
	UPDATE properties SET
		address = COALESCE(NULLIF(?, ''), address),
		city = COALESCE(NULLIF(?, ''), city),
		state = COALESCE(NULLIF(?, ''), state),
		zip_code = COALESCE(NULLIF(?, ''), zip_code),
		owner_name = COALESCE(NULLIF(?, ''), owner_name),
		updated_at = ?
	WHERE id = ?`,
		d.Address, d.City, d.State, d.ZipCode, d.OwnerName, formatTimestamp(s.now()), id)
	if err != nil {
		return fmt.Errorf("failed to update property: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("property %d: %w", id, ErrNotFound)
	}
	return nil
}
