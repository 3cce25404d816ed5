package repository

import (
	"context"
	"regexp"
	"testing"

	"zeroai/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_GetByIDSQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	tests := []struct {
		name         string
		userID       string
		mockBehavior func()
		wantCode     string
	}{
		{
			name:   "Success",
			userID: "u1",
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE id = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs("u1", 1).
					WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email"}).AddRow("u1", "alice", "a@example.com"))
			},
		},
		{
			name:   "Not Found",
			userID: "u2",
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE id = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs("u2", 1).
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
			},
			wantCode: models.CodeUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByID(ctx, tt.userID)
			if tt.wantCode != "" {
				assert.True(t, models.IsCode(err, tt.wantCode))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "alice", user.Username)
			assert.Equal(t, []string{}, user.Followers)
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateUniqueViolationSQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.User{Username: "bob", Email: "b@example.com", Password: "hash"})
	assert.True(t, models.IsCode(err, models.CodeDuplicateEmail))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_EmailLifecycle(t *testing.T) {
	repo := NewUserRepository(setupSQLiteDB(t))
	ctx := context.Background()

	missing, err := repo.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	user := &models.User{Username: "carol", Email: "c@example.com", Password: "hash"}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEmpty(t, user.ID)

	found, err := repo.GetByEmail(ctx, "c@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, []string{}, found.Followings)

	err = repo.Create(ctx, &models.User{Username: "carol2", Email: "c@example.com", Password: "hash"})
	assert.True(t, models.IsCode(err, models.CodeDuplicateEmail))

	byIDs, err := repo.GetByIDs(ctx, []string{user.ID, user.ID, "ghost", ""})
	require.NoError(t, err)
	assert.Len(t, byIDs, 1)
	assert.Equal(t, "carol", byIDs[user.ID].Username)
}
