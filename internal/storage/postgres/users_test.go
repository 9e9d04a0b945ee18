package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmockv3 "github.com/pashagolub/pgxmock/v3"

	domainErrors "github.com/polkiloo/orderboard/internal/domain/errors"
	"github.com/polkiloo/orderboard/internal/domain/model"
)

func TestUserRepository(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &userRepository{storage: storage}
	createdAt := time.Now()
	cols := []string{"id", "login", "password_hash", "role", "created_at"}

	mock.ExpectQuery("INSERT INTO users").WithArgs("user", "hash", model.RoleOwner).WillReturnRows(
		pgxmockv3.NewRows([]string{"id", "created_at"}).AddRow(int64(1), createdAt),
	)
	u, err := repo.Create(context.Background(), "user", "hash", model.RoleOwner)
	if err != nil || u.ID != 1 || u.Role != model.RoleOwner {
		t.Fatalf("unexpected user %+v err=%v", u, err)
	}

	mock.ExpectQuery("INSERT INTO users").WithArgs("user", "hash", model.RoleStaff).WillReturnError(&pgconn.PgError{Code: "23505"})
	if _, err := repo.Create(context.Background(), "user", "hash", model.RoleStaff); !errors.Is(err, domainErrors.ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}

	mock.ExpectQuery("INSERT INTO users").WithArgs("user", "hash", model.RoleStaff).WillReturnError(errors.New("other"))
	if _, err := repo.Create(context.Background(), "user", "hash", model.RoleStaff); err == nil {
		t.Fatal("expected error")
	}

	mock.ExpectQuery("SELECT id, login, password_hash, role, created_at FROM users WHERE login=").WithArgs("user").WillReturnRows(
		pgxmockv3.NewRows(cols).AddRow(int64(1), "user", "hash", model.RoleManager, createdAt))
	if u, err := repo.GetByLogin(context.Background(), "user"); err != nil || u.Role != model.RoleManager {
		t.Fatalf("unexpected user %+v err=%v", u, err)
	}

	mock.ExpectQuery("SELECT id, login, password_hash, role, created_at FROM users WHERE login=").WithArgs("missing").WillReturnError(pgx.ErrNoRows)
	if _, err := repo.GetByLogin(context.Background(), "missing"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	mock.ExpectQuery("SELECT id, login, password_hash, role, created_at FROM users WHERE id=").WithArgs(int64(1)).WillReturnRows(
		pgxmockv3.NewRows(cols).AddRow(int64(1), "user", "hash", model.RoleStaff, createdAt))
	if u, err := repo.GetByID(context.Background(), 1); err != nil || u.Login != "user" {
		t.Fatalf("unexpected user %+v err=%v", u, err)
	}

	mock.ExpectQuery("SELECT id, login, password_hash, role, created_at FROM users WHERE id=").WithArgs(int64(3)).WillReturnError(errors.New("boom"))
	if _, err := repo.GetByID(context.Background(), 3); err == nil || errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected raw error, got %v", err)
	}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).WillReturnRows(pgxmockv3.NewRows([]string{"count"}).AddRow(int64(2)))
	if n, err := repo.Count(context.Background()); err != nil || n != 2 {
		t.Fatalf("unexpected count %d err=%v", n, err)
	}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).WillReturnError(errors.New("count"))
	if _, err := repo.Count(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestSettingsRepository(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &settingsRepository{storage: storage}
	cols := []string{"owner_sound", "owner_popup", "owner_system", "manager_sound", "manager_popup", "manager_system"}

	mock.ExpectQuery("FROM notification_settings WHERE id=1").WillReturnRows(
		pgxmockv3.NewRows(cols).AddRow(true, false, true, false, true, false))
	s, err := repo.NotificationSettings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := model.NotificationSettings{OwnerSound: true, OwnerSystem: true, ManagerPopup: true}
	if *s != want {
		t.Fatalf("unexpected settings %+v", s)
	}

	mock.ExpectQuery("FROM notification_settings WHERE id=1").WillReturnError(pgx.ErrNoRows)
	s, err = repo.NotificationSettings(context.Background())
	if err != nil || *s != model.DefaultNotificationSettings() {
		t.Fatalf("expected defaults, got %+v err=%v", s, err)
	}

	mock.ExpectQuery("FROM notification_settings WHERE id=1").WillReturnError(errors.New("boom"))
	if _, err := repo.NotificationSettings(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}
