package orgs

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateInvitation creates a pending invitation. At most one pending
// invitation may exist per (organization, email); the check runs in the
// same transaction as the insert.
func (s *PostgresService) CreateInvitation(ctx context.Context, inv *Invitation) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	inv.Email = strings.ToLower(inv.Email)
	if inv.ExpiresAt.IsZero() {
		inv.ExpiresAt = time.Now().Add(DefaultInvitationTTL)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM invitations
			WHERE organization_id = $1 AND email = $2
		)
	`
	if err := tx.QueryRowContext(ctx, query, inv.OrganizationID, inv.Email).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check pending invitations: %w", err)
	}
	if exists {
		return ErrDuplicateInvitation
	}

	query = `
		INSERT INTO invitations (id, organization_id, email, role, inviter_id, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err = tx.QueryRowContext(ctx, query, inv.ID, inv.OrganizationID, inv.Email,
		inv.Role, inv.InviterID, inv.ExpiresAt).Scan(&inv.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateInvitation
		}
		return fmt.Errorf("failed to create invitation: %w", err)
	}

	return tx.Commit()
}

// GetInvitation retrieves an invitation by id
func (s *PostgresService) GetInvitation(ctx context.Context, id string) (*Invitation, error) {
	query := `
		SELECT id, organization_id, email, role, inviter_id, expires_at, created_at
		FROM invitations
		WHERE id = $1
	`
	inv := &Invitation{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&inv.ID, &inv.OrganizationID, &inv.Email, &inv.Role, &inv.InviterID,
		&inv.ExpiresAt, &inv.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

// ListInvitations lists pending invitations for an organization
func (s *PostgresService) ListInvitations(ctx context.Context, organizationID string) ([]*Invitation, error) {
	query := `
		SELECT id, organization_id, email, role, inviter_id, expires_at, created_at
		FROM invitations
		WHERE organization_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*Invitation
	for rows.Next() {
		inv := &Invitation{}
		if err := rows.Scan(
			&inv.ID, &inv.OrganizationID, &inv.Email, &inv.Role, &inv.InviterID,
			&inv.ExpiresAt, &inv.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

// AcceptInvitation converts an invitation into a membership and removes
// the invitation row. An expired invitation is removed and rejected;
// either way the transition is terminal.
func (s *PostgresService) AcceptInvitation(ctx context.Context, id, userID, email string) (*Membership, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	inv := &Invitation{}
	query := `
		SELECT id, organization_id, email, role, expires_at
		FROM invitations
		WHERE id = $1
		FOR UPDATE
	`
	err = tx.QueryRowContext(ctx, query, id).Scan(
		&inv.ID, &inv.OrganizationID, &inv.Email, &inv.Role, &inv.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}

	if !strings.EqualFold(inv.Email, email) {
		return nil, ErrInvitationMismatch
	}

	if time.Now().After(inv.ExpiresAt) {
		if _, err := tx.ExecContext(ctx, `DELETE FROM invitations WHERE id = $1`, id); err != nil {
			return nil, fmt.Errorf("failed to remove expired invitation: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit: %w", err)
		}
		return nil, ErrInvitationExpired
	}

	m := &Membership{}
	query = `
		INSERT INTO memberships (id, organization_id, user_id, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (organization_id, user_id) DO NOTHING
		RETURNING id, organization_id, user_id, role, created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, query, uuid.NewString(), inv.OrganizationID, userID, inv.Role).Scan(
		&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrAlreadyMember
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM invitations WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to remove invitation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return m, nil
}

// RejectInvitation removes a pending invitation addressed to email
func (s *PostgresService) RejectInvitation(ctx context.Context, id, email string) error {
	query := `DELETE FROM invitations WHERE id = $1 AND lower(email) = lower($2)`
	result, err := s.db.ExecContext(ctx, query, id, email)
	if err != nil {
		return fmt.Errorf("failed to reject invitation: %w", err)
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

// CancelInvitation removes a pending invitation from the organization side
func (s *PostgresService) CancelInvitation(ctx context.Context, id, organizationID string) error {
	query := `DELETE FROM invitations WHERE id = $1 AND organization_id = $2`
	result, err := s.db.ExecContext(ctx, query, id, organizationID)
	if err != nil {
		return fmt.Errorf("failed to cancel invitation: %w", err)
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

// CleanupExpiredInvitations removes invitations past their expiry. The
// acceptance path enforces expiry on its own; this sweep only keeps the
// table tidy and runs from a scheduled job, not the request path.
func (s *PostgresService) CleanupExpiredInvitations(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM invitations WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired invitations: %w", err)
	}
	return result.RowsAffected()
}
