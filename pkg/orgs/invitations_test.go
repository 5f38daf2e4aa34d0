package orgs

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/pkg/auth"
)

func TestCreateInvitation(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewPostgresService(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("org-1", "new@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("INSERT INTO invitations").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now().UTC()))
	mock.ExpectCommit()

	inv := &Invitation{
		OrganizationID: "org-1",
		Email:          "New@Example.com",
		Role:           auth.OrgRoleMember,
		InviterID:      "user-1",
	}
	err = svc.CreateInvitation(ctx, inv)
	require.NoError(t, err)

	assert.NotEmpty(t, inv.ID)
	assert.Equal(t, "new@example.com", inv.Email)
	// Default expiry sits seven days out
	assert.WithinDuration(t, time.Now().Add(DefaultInvitationTTL), inv.ExpiresAt, time.Minute)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInvitation_DuplicatePending(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewPostgresService(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("org-1", "dupe@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	inv := &Invitation{OrganizationID: "org-1", Email: "dupe@example.com", Role: auth.OrgRoleMember}
	err = svc.CreateInvitation(ctx, inv)
	assert.ErrorIs(t, err, ErrDuplicateInvitation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptInvitation(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewPostgresService(db)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, organization_id, email, role, expires_at").
		WithArgs("inv-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "email", "role", "expires_at"}).
			AddRow("inv-1", "org-1", "new@example.com", "admin", now.Add(time.Hour)))
	mock.ExpectQuery("INSERT INTO memberships").
		WillReturnRows(membershipRows("org-1", "user-9", auth.OrgRoleAdmin))
	mock.ExpectExec("DELETE FROM invitations").WithArgs("inv-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	m, err := svc.AcceptInvitation(ctx, "inv-1", "user-9", "New@Example.com")
	require.NoError(t, err)
	assert.Equal(t, auth.OrgRoleAdmin, m.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptInvitation_Expired(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewPostgresService(db)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, organization_id, email, role, expires_at").
		WithArgs("inv-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "email", "role", "expires_at"}).
			AddRow("inv-1", "org-1", "late@example.com", "member", now.Add(-time.Hour)))
	mock.ExpectExec("DELETE FROM invitations").WithArgs("inv-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// The expired row is removed even though acceptance fails
	_, err = svc.AcceptInvitation(ctx, "inv-1", "user-9", "late@example.com")
	assert.ErrorIs(t, err, ErrInvitationExpired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptInvitation_EmailMismatch(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewPostgresService(db)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, organization_id, email, role, expires_at").
		WithArgs("inv-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "email", "role", "expires_at"}).
			AddRow("inv-1", "org-1", "invited@example.com", "member", now.Add(time.Hour)))
	mock.ExpectRollback()

	_, err = svc.AcceptInvitation(ctx, "inv-1", "user-9", "other@example.com")
	assert.ErrorIs(t, err, ErrInvitationMismatch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptInvitation_AlreadyMember(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewPostgresService(db)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, organization_id, email, role, expires_at").
		WithArgs("inv-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "email", "role", "expires_at"}).
			AddRow("inv-1", "org-1", "new@example.com", "member", now.Add(time.Hour)))
	mock.ExpectQuery("INSERT INTO memberships").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err = svc.AcceptInvitation(ctx, "inv-1", "user-9", "new@example.com")
	assert.ErrorIs(t, err, ErrAlreadyMember)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectInvitation_NotFound(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewPostgresService(db)

	mock.ExpectExec("DELETE FROM invitations").
		WithArgs("inv-1", "someone@example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = svc.RejectInvitation(ctx, "inv-1", "someone@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanupExpiredInvitations(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewPostgresService(db)

	mock.ExpectExec("DELETE FROM invitations WHERE expires_at").
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := svc.CleanupExpiredInvitations(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
