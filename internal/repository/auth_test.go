package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func setupAuthMock(t *testing.T) (*SQLAuthRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewSQLAuthRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

func TestUserExists_True(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	username := "user1"
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`)).
		WithArgs(username).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.UserExists(context.Background(), username)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Errorf("expected user to exist, got false")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUserExists_Error(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`)).
		WithArgs("user3").
		WillReturnError(errors.New("query failed"))

	if _, err := repo.UserExists(context.Background(), "user3"); err == nil {
		t.Errorf("expected error, got nil")
	}
}

func TestRegisterUser(t *testing.T) {
	cases := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"created", 1, true},
		{"taken", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock, cleanup := setupAuthMock(t)
			defer cleanup()

			mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users (username, password_hash, created_at) VALUES ($1, $2, $3)`)).
				WithArgs("newuser", "hash", sqlmock.AnyArg()).
				WillReturnResult(sqlmock.NewResult(0, tc.affected))

			created, err := repo.RegisterUser(context.Background(), "newuser", "hash")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if created != tc.want {
				t.Errorf("RegisterUser = %v; want %v", created, tc.want)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestRegisterUser_Error(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO users").WillReturnError(errors.New("insert failed"))

	if _, err := repo.RegisterUser(context.Background(), "dupuser", "hash"); err == nil {
		t.Errorf("expected error, got nil")
	}
}

func TestPasswordHash(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	q := regexp.QuoteMeta(`SELECT password_hash FROM users WHERE username = $1`)
	mock.ExpectQuery(q).WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"password_hash"}).AddRow("h"))
	mock.ExpectQuery(q).WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"password_hash"}))

	hash, err := repo.PasswordHash(context.Background(), "alice")
	if err != nil || hash != "h" {
		t.Errorf("PasswordHash(alice) = %q, %v", hash, err)
	}
	if _, err := repo.PasswordHash(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("PasswordHash(ghost) error = %v; want ErrNotFound", err)
	}
}
