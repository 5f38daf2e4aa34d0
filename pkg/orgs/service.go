package orgs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresService implements the Service interface using PostgreSQL
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

// uniqueViolation is the PostgreSQL error code for constraint conflicts
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}

// CreateOrganization creates an organization and its first membership:
// the creator becomes owner in the same transaction.
func (s *PostgresService) CreateOrganization(ctx context.Context, org *Organization, creatorID string) error {
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	if org.Slug == "" {
		org.Slug = generateSlug(org.Name)
	}

	metadataJSON, err := json.Marshal(org.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO organizations (id, name, slug, logo_url, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, query, org.ID, org.Name, org.Slug, org.LogoURL, metadataJSON).
		Scan(&org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}

	query = `
		INSERT INTO memberships (id, organization_id, user_id, role)
		VALUES ($1, $2, $3, 'owner')
	`
	if _, err := tx.ExecContext(ctx, query, uuid.NewString(), org.ID, creatorID); err != nil {
		return fmt.Errorf("failed to create owner membership: %w", err)
	}

	return tx.Commit()
}

// GetOrganization retrieves an organization by ID
func (s *PostgresService) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	query := `
		SELECT id, name, slug, logo_url, metadata, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`
	return s.scanOrganization(s.db.QueryRowContext(ctx, query, id))
}

// GetOrganizationBySlug retrieves an organization by slug
func (s *PostgresService) GetOrganizationBySlug(ctx context.Context, slug string) (*Organization, error) {
	query := `
		SELECT id, name, slug, logo_url, metadata, created_at, updated_at
		FROM organizations
		WHERE slug = $1
	`
	return s.scanOrganization(s.db.QueryRowContext(ctx, query, slug))
}

func (s *PostgresService) scanOrganization(row *sql.Row) (*Organization, error) {
	org := &Organization{}
	var logoURL sql.NullString
	var metadataJSON []byte
	err := row.Scan(&org.ID, &org.Name, &org.Slug, &logoURL, &metadataJSON, &org.CreatedAt, &org.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	if logoURL.Valid {
		org.LogoURL = logoURL.String
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &org.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return org, nil
}

// ListOrganizationsForUser lists organizations the user is a member of
func (s *PostgresService) ListOrganizationsForUser(ctx context.Context, userID string) ([]*Organization, error) {
	query := `
		SELECT o.id, o.name, o.slug, o.logo_url, o.metadata, o.created_at, o.updated_at
		FROM organizations o
		JOIN memberships m ON o.id = m.organization_id
		WHERE m.user_id = $1
		ORDER BY o.created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var out []*Organization
	for rows.Next() {
		org := &Organization{}
		var logoURL sql.NullString
		var metadataJSON []byte
		if err := rows.Scan(&org.ID, &org.Name, &org.Slug, &logoURL, &metadataJSON,
			&org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		if logoURL.Valid {
			org.LogoURL = logoURL.String
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &org.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		out = append(out, org)
	}
	return out, rows.Err()
}

// UpdateOrganization updates mutable organization fields
func (s *PostgresService) UpdateOrganization(ctx context.Context, id string, updates *UpdateOrganizationRequest) error {
	setClauses := []string{}
	args := []interface{}{}
	argPos := 1

	if updates.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argPos))
		args = append(args, *updates.Name)
		argPos++
	}
	if updates.LogoURL != nil {
		setClauses = append(setClauses, fmt.Sprintf("logo_url = $%d", argPos))
		args = append(args, *updates.LogoURL)
		argPos++
	}
	if updates.Metadata != nil {
		metadataJSON, err := json.Marshal(updates.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		setClauses = append(setClauses, fmt.Sprintf("metadata = $%d", argPos))
		args = append(args, metadataJSON)
		argPos++
	}

	if len(setClauses) == 0 {
		return nil // Nothing to update
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)
	query := fmt.Sprintf("UPDATE organizations SET %s WHERE id = $%d", strings.Join(setClauses, ", "), argPos)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOrganization deletes an organization, cascading to memberships,
// teams, team members and invitations in one transaction.
func (s *PostgresService) DeleteOrganization(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	statements := []string{
		`DELETE FROM invitations WHERE organization_id = $1`,
		`DELETE FROM team_members WHERE team_id IN (SELECT id FROM teams WHERE organization_id = $1)`,
		`DELETE FROM teams WHERE organization_id = $1`,
		`DELETE FROM memberships WHERE organization_id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("failed to cascade delete: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// generateSlug derives a url-safe slug from an organization name
func generateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, slug)
	return slug
}
