package orgs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// CreateTeam creates a team within an organization
func (s *PostgresService) CreateTeam(ctx context.Context, team *Team) error {
	if team.ID == "" {
		team.ID = uuid.NewString()
	}
	query := `
		INSERT INTO teams (id, organization_id, name)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, team.ID, team.OrganizationID, team.Name).
		Scan(&team.CreatedAt, &team.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

// GetTeam retrieves a team by id
func (s *PostgresService) GetTeam(ctx context.Context, id string) (*Team, error) {
	query := `
		SELECT id, organization_id, name, created_at, updated_at
		FROM teams
		WHERE id = $1
	`
	team := &Team{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&team.ID, &team.OrganizationID, &team.Name, &team.CreatedAt, &team.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

// ListTeams lists the teams in an organization
func (s *PostgresService) ListTeams(ctx context.Context, organizationID string) ([]*Team, error) {
	query := `
		SELECT id, organization_id, name, created_at, updated_at
		FROM teams
		WHERE organization_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []*Team
	for rows.Next() {
		team := &Team{}
		if err := rows.Scan(&team.ID, &team.OrganizationID, &team.Name,
			&team.CreatedAt, &team.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

// DeleteTeam removes a team and its member rows
func (s *PostgresService) DeleteTeam(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM team_members WHERE team_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete team members: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
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

// AddTeamMember adds a user to a team. The user must already be a member
// of the team's organization; the insert enforces it with a guard query.
func (s *PostgresService) AddTeamMember(ctx context.Context, teamID, userID string) (*TeamMember, error) {
	query := `
		INSERT INTO team_members (id, team_id, user_id)
		SELECT $1, $2, $3
		WHERE EXISTS (
			SELECT 1 FROM teams t
			JOIN memberships m ON m.organization_id = t.organization_id
			WHERE t.id = $2 AND m.user_id = $3
		)
		ON CONFLICT (team_id, user_id) DO NOTHING
		RETURNING id, team_id, user_id, created_at
	`
	tm := &TeamMember{}
	err := s.db.QueryRowContext(ctx, query, uuid.NewString(), teamID, userID).Scan(
		&tm.ID, &tm.TeamID, &tm.UserID, &tm.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("failed to add team member: %w", err)
	}
	return tm, nil
}

// RemoveTeamMember removes a user from a team
func (s *PostgresService) RemoveTeamMember(ctx context.Context, teamID, userID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove team member: %w", err)
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

// ListTeamMembers lists the members of a team
func (s *PostgresService) ListTeamMembers(ctx context.Context, teamID string) ([]*TeamMember, error) {
	query := `
		SELECT id, team_id, user_id, created_at
		FROM team_members
		WHERE team_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	var members []*TeamMember
	for rows.Next() {
		tm := &TeamMember{}
		if err := rows.Scan(&tm.ID, &tm.TeamID, &tm.UserID, &tm.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		members = append(members, tm)
	}
	return members, rows.Err()
}
