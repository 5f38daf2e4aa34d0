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

func membershipRows(orgID, userID string, role auth.OrgRole) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "organization_id", "user_id", "role", "created_at", "updated_at"}).
		AddRow("mem-1", orgID, userID, string(role), now, now)
}

func TestFindMembership(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewPostgresService(db)

	mock.ExpectQuery("SELECT id, organization_id, user_id, role, created_at, updated_at").
		WithArgs("org-1", "user-1").
		WillReturnRows(membershipRows("org-1", "user-1", auth.OrgRoleAdmin))

	m, err := svc.FindMembership(ctx, "org-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, auth.OrgRoleAdmin, m.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindMembership_NotAMember(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewPostgresService(db)

	mock.ExpectQuery("SELECT id, organization_id, user_id, role, created_at, updated_at").
		WithArgs("org-1", "stranger").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = svc.FindMembership(ctx, "org-1", "stranger")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddMember(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewPostgresService(db)

	mock.ExpectQuery("INSERT INTO memberships").
		WillReturnRows(membershipRows("org-1", "user-2", auth.OrgRoleMember))

	m, err := svc.AddMember(ctx, "org-1", "user-2", auth.OrgRoleMember)
	require.NoError(t, err)
	assert.Equal(t, "user-2", m.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddMember_AlreadyMember(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewPostgresService(db)

	// ON CONFLICT DO NOTHING yields no row when the pair already exists
	mock.ExpectQuery("INSERT INTO memberships").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = svc.AddMember(ctx, "org-1", "user-2", auth.OrgRoleMember)
	assert.ErrorIs(t, err, ErrAlreadyMember)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMemberRole(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewPostgresService(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT role FROM memberships").
		WithArgs("org-1", "user-2").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("member"))
	mock.ExpectExec("UPDATE memberships SET role").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = svc.UpdateMemberRole(ctx, "org-1", "user-2", auth.OrgRoleAdmin, auth.OrgRoleOwner)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMemberRole_OwnerProtectedFromDemotion(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewPostgresService(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT role FROM memberships").
		WithArgs("org-1", "the-owner").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("owner"))
	mock.ExpectRollback()

	// An org admin may not demote the owner
	err = svc.UpdateMemberRole(ctx, "org-1", "the-owner", auth.OrgRoleMember, auth.OrgRoleAdmin)
	assert.ErrorIs(t, err, ErrOwnerRoleProtected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMemberRole_OwnerProtectedFromPromotion(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewPostgresService(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT role FROM memberships").
		WithArgs("org-1", "user-2").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("member"))
	mock.ExpectRollback()

	// Only an owner may hand out the owner role
	err = svc.UpdateMemberRole(ctx, "org-1", "user-2", auth.OrgRoleOwner, auth.OrgRoleAdmin)
	assert.ErrorIs(t, err, ErrOwnerRoleProtected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveMember_NotFound(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewPostgresService(db)

	mock.ExpectExec("DELETE FROM memberships").
		WithArgs("org-1", "stranger").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = svc.RemoveMember(ctx, "org-1", "stranger")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMembersForOrganization(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewPostgresService(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "organization_id", "user_id", "role", "created_at", "updated_at", "name", "email"}).
		AddRow("mem-1", "org-1", "user-1", "owner", now, now, "Alice", "alice@example.com").
		AddRow("mem-2", "org-1", "user-2", "member", now, now, nil, nil)
	mock.ExpectQuery("FROM org_members_view").
		WithArgs("org-1").
		WillReturnRows(rows)

	members, err := svc.ListMembersForOrganization(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "Alice", members[0].Name)
	assert.Empty(t, members[1].Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}
