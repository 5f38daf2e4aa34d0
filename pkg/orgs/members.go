package orgs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/wardenhq/warden/pkg/auth"
)

// FindMembership returns the membership row for (organization, user), or
// ErrNotFound when the user is not a member.
func (s *PostgresService) FindMembership(ctx context.Context, organizationID, userID string) (*Membership, error) {
	query := `
		SELECT id, organization_id, user_id, role, created_at, updated_at
		FROM memberships
		WHERE organization_id = $1 AND user_id = $2
	`
	m := &Membership{}
	err := s.db.QueryRowContext(ctx, query, organizationID, userID).Scan(
		&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find membership: %w", err)
	}
	return m, nil
}

// ListMembershipsForUser lists all memberships held by a user
func (s *PostgresService) ListMembershipsForUser(ctx context.Context, userID string) ([]*Membership, error) {
	query := `
		SELECT id, organization_id, user_id, role, created_at, updated_at
		FROM memberships
		WHERE user_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var memberships []*Membership
	for rows.Next() {
		m := &Membership{}
		if err := rows.Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

// ListMembersForOrganization lists members with directory details
func (s *PostgresService) ListMembersForOrganization(ctx context.Context, organizationID string) ([]*Member, error) {
	query := `
		SELECT id, organization_id, user_id, role, created_at, updated_at, name, email
		FROM org_members_view
		WHERE organization_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		member := &Member{}
		var name, email sql.NullString
		if err := rows.Scan(
			&member.ID, &member.OrganizationID, &member.UserID, &member.Role,
			&member.CreatedAt, &member.UpdatedAt, &name, &email,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		if name.Valid {
			member.Name = name.String
		}
		if email.Valid {
			member.Email = email.String
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

// AddMember adds a user to an organization. The unique constraint on
// (organization_id, user_id) is the source of truth for duplicates.
func (s *PostgresService) AddMember(ctx context.Context, organizationID, userID string, role auth.OrgRole) (*Membership, error) {
	query := `
		INSERT INTO memberships (id, organization_id, user_id, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (organization_id, user_id) DO NOTHING
		RETURNING id, organization_id, user_id, role, created_at, updated_at
	`
	m := &Membership{}
	err := s.db.QueryRowContext(ctx, query, uuid.NewString(), organizationID, userID, role).Scan(
		&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrAlreadyMember
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}
	return m, nil
}

// UpdateMemberRole changes a member's role. Owner protection: a row
// currently holding owner, or a promotion to owner, can only be touched
// when the acting member is an owner themselves.
func (s *PostgresService) UpdateMemberRole(ctx context.Context, organizationID, userID string, role, actorRole auth.OrgRole) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current auth.OrgRole
	query := `
		SELECT role FROM memberships
		WHERE organization_id = $1 AND user_id = $2
		FOR UPDATE
	`
	err = tx.QueryRowContext(ctx, query, organizationID, userID).Scan(&current)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get current role: %w", err)
	}

	if (current == auth.OrgRoleOwner || role == auth.OrgRoleOwner) && actorRole != auth.OrgRoleOwner {
		return ErrOwnerRoleProtected
	}

	query = `
		UPDATE memberships SET role = $1, updated_at = NOW()
		WHERE organization_id = $2 AND user_id = $3
	`
	if _, err := tx.ExecContext(ctx, query, role, organizationID, userID); err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}

	return tx.Commit()
}

// RemoveMember removes a user from an organization
func (s *PostgresService) RemoveMember(ctx context.Context, organizationID, userID string) error {
	query := `DELETE FROM memberships WHERE organization_id = $1 AND user_id = $2`
	result, err := s.db.ExecContext(ctx, query, organizationID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
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
