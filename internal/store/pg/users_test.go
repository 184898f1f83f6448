package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"homegrid.io/internal/auth"
)

var userCols = []string{"id", "email", "name", "coalesce", "role", "password_hash", "created_at"}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return NewWithDB(db), mock, func() { _ = db.Close() }
}

func TestFindUserByEmail(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	created := time.Now().UTC()
	mock.ExpectQuery("select id, email, name, coalesce.*from users.*where email").
		WithArgs("agent@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(7), "agent@example.com", "Agent", "555-0101", "agent", "$2a$hash", created))

	u, err := store.FindUserByEmail(context.Background(), "agent@example.com")
	if err != nil {
		t.Fatalf("FindUserByEmail: %v", err)
	}
	if u.ID != 7 || u.Role != auth.RoleAgent || u.Phone != "555-0101" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindUserNotFound(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery("select id, email, name, coalesce.*from users.*where id").
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)

	if _, err := store.FindUser(context.Background(), 42); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery("insert into users").
		WithArgs("dup@example.com", "Dup", "", "agent", "$2a$hash").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	_, err := store.CreateUser(context.Background(), auth.User{
		Email: "dup@example.com", Name: "Dup", Role: auth.RoleAgent, PasswordHash: "$2a$hash",
	})
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestUpdateUserBuildsPartialSet(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectExec(`update users set name = \$1, phone = nullif\(\$2, ''\) where id = \$3`).
		WithArgs("Renamed", "555-0102", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("select id, email, name, coalesce.*from users.*where id").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(7), "agent@example.com", "Renamed", "555-0102", "agent", "$2a$hash", time.Now().UTC()))

	name, phone := "Renamed", "555-0102"
	u, err := store.UpdateUser(context.Background(), 7, auth.UserUpdate{Name: &name, Phone: &phone})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if u.Name != "Renamed" {
		t.Fatalf("name = %q", u.Name)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateUserMissingRow(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectExec(`update users set email = \$1 where id = \$2`).
		WithArgs("new@example.com", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	email := "new@example.com"
	if _, err := store.UpdateUser(context.Background(), 42, auth.UserUpdate{Email: &email}); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteUser(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectExec("delete from users where id").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("delete from users where id").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeleteUser(context.Background(), 7); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if err := store.DeleteUser(context.Background(), 7); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("second delete = %v, want ErrNotFound", err)
	}
}

func TestListAgentsFiltersByRole(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery("select id, email, name, coalesce.*from users.*where role.*order by email").
		WithArgs(auth.RoleAgent).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(1), "a@example.com", "A", "", "agent", "h1", time.Now().UTC()).
			AddRow(int64(2), "b@example.com", "B", "", "agent", "h2", time.Now().UTC()))

	agents, err := store.ListAgents(context.Background())
	if err != nil {
		t.Fatalf("ListAgents: %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("len = %d, want 2", len(agents))
	}
}
