package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

func TestCreateUser(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (username, password_hash)`)).
		WithArgs("paul", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	user, err := s.CreateUser(context.Background(), "  paul ", "blackbird")
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	if user.ID != 1 || user.Username != "paul" {
		t.Fatalf("unexpected user %#v", user)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (username, password_hash)`)).
		WithArgs("paul", sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := s.CreateUser(context.Background(), "paul", "blackbird")
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestCreateUserRequiresFields(t *testing.T) {
	s, _ := newMockStore(t)

	if _, err := s.CreateUser(context.Background(), " ", "pw"); err == nil {
		t.Fatalf("expected error for blank username")
	}
	if _, err := s.CreateUser(context.Background(), "john", ""); err == nil {
		t.Fatalf("expected error for blank password")
	}
}

func TestAuthenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("yellow-submarine"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	tests := []struct {
		name     string
		password string
		rows     *sqlmock.Rows
		queryErr error
		wantErr  error
	}{
		{
			name:     "valid credentials",
			password: "yellow-submarine",
			rows:     sqlmock.NewRows([]string{"id", "username", "password_hash"}).AddRow(int64(5), "ringo", hash),
		},
		{
			name:     "wrong password",
			password: "octopus-garden",
			rows:     sqlmock.NewRows([]string{"id", "username", "password_hash"}).AddRow(int64(5), "ringo", hash),
			wantErr:  ErrInvalidCredentials,
		},
		{
			name:     "unknown user",
			password: "yellow-submarine",
			queryErr: sql.ErrNoRows,
			wantErr:  ErrInvalidCredentials,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			s, mock := newMockStore(t)

			exp := mock.ExpectQuery(regexp.QuoteMeta(`FROM users`)).WithArgs("ringo")
			if tc.queryErr != nil {
				exp.WillReturnError(tc.queryErr)
			} else {
				exp.WillReturnRows(tc.rows)
			}

			user, err := s.Authenticate(context.Background(), "ringo", tc.password)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authenticate error: %v", err)
			}
			if user.ID != 5 || user.Username != "ringo" {
				t.Fatalf("unexpected user %#v", user)
			}
		})
	}
}
