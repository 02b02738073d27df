package pgstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"

	"github.com/pershin-daniil/facultymeet/pkg/metrics"
	"github.com/pershin-daniil/facultymeet/pkg/models"
)

//go:embed migrations
var migrations embed.FS

const retries = 3

type Store struct {
	log *logrus.Entry
	db  *sqlx.DB
}

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrMeetingNotFound = errors.New("meeting not found")
	ErrEmailTaken      = errors.New("email already registered")
	// ErrStaleWrite means a guarded update found the meeting in another status.
	ErrStaleWrite = errors.New("meeting changed concurrently")
)

func NewStore(ctx context.Context, log *logrus.Logger, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &Store{
		log: log.WithField("component", "pgstore"),
		db:  db,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Migrate(direction migrate.MigrationDirection) error {
	assetDir := func(path string) ([]string, error) {
		dirEntry, err := migrations.ReadDir(path)
		if err != nil {
			return nil, err
		}
		entries := make([]string, 0, len(dirEntry))
		for _, e := range dirEntry {
			entries = append(entries, e.Name())
		}
		return entries, nil
	}
	asset := migrate.AssetMigrationSource{
		Asset:    migrations.ReadFile,
		AssetDir: assetDir,
		Dir:      "migrations",
	}
	n, err := migrate.Exec(s.db.DB, "postgres", asset, direction)
	if err != nil {
		return fmt.Errorf("err applying migrations: %w", err)
	}
	s.log.Infof("applied %d migrations", n)
	return nil
}

func (s *Store) observe(method string, start time.Time, err error) {
	metrics.PgDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, ErrUserNotFound) && !errors.Is(err, ErrMeetingNotFound) {
		metrics.PgErrCount.WithLabelValues(method).Inc()
	}
}

func (s *Store) GetUsers(ctx context.Context) (users []models.User, err error) {
	defer func(start time.Time) { s.observe("GetUsers", start, err) }(time.Now())
	for i := 0; i < retries; i++ {
		users = nil
		if err = s.db.SelectContext(ctx, &users, `SELECT * FROM users ORDER BY name`); err != nil {
			continue
		}
		return users, nil
	}
	return nil, fmt.Errorf("err getting users: %w", err)
}

func (s *Store) GetUsersByUIDs(ctx context.Context, uids []string) (users []models.User, err error) {
	if len(uids) == 0 {
		return nil, nil
	}
	defer func(start time.Time) { s.observe("GetUsersByUIDs", start, err) }(time.Now())
	query, args, err := sqlx.In(`SELECT * FROM users WHERE uid IN (?)`, uids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)
	for i := 0; i < retries; i++ {
		users = nil
		if err = s.db.SelectContext(ctx, &users, query, args...); err != nil {
			continue
		}
		return users, nil
	}
	return nil, fmt.Errorf("err getting users by uid: %w", err)
}

// GetUsersByDesignations matches designations case-insensitively.
func (s *Store) GetUsersByDesignations(ctx context.Context, designations []string) (users []models.User, err error) {
	if len(designations) == 0 {
		return nil, nil
	}
	defer func(start time.Time) { s.observe("GetUsersByDesignations", start, err) }(time.Now())
	upper := make([]string, 0, len(designations))
	for _, d := range designations {
		upper = append(upper, strings.ToUpper(d))
	}
	query, args, err := sqlx.In(`SELECT * FROM users WHERE upper(designation) IN (?)`, upper)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)
	for i := 0; i < retries; i++ {
		users = nil
		if err = s.db.SelectContext(ctx, &users, query, args...); err != nil {
			continue
		}
		return users, nil
	}
	return nil, fmt.Errorf("err getting users by designation: %w", err)
}

func (s *Store) CreateUser(ctx context.Context, user models.User) (createdUser models.User, err error) {
	defer func(start time.Time) { s.observe("CreateUser", start, err) }(time.Now())
	query := `
INSERT INTO users (uid, name, email, department, designation, phone_number, password_hash)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (email) DO NOTHING
RETURNING *;`
	for i := 0; i < retries; i++ {
		err = s.db.GetContext(ctx, &createdUser, query, user.UID, user.Name, user.Email, user.Department,
			user.Designation, user.PhoneNumber, user.PasswordHash)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return models.User{}, ErrEmailTaken
		case err != nil:
			continue
		}
		return createdUser, nil
	}
	return models.User{}, fmt.Errorf("err creating user: %w", err)
}

func (s *Store) GetUser(ctx context.Context, uid string) (models.User, error) {
	return s.getUserBy(ctx, "GetUser", `SELECT * FROM users WHERE uid = $1;`, uid)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.getUserBy(ctx, "GetUserByEmail", `SELECT * FROM users WHERE lower(email) = lower($1);`, email)
}

func (s *Store) GetUserByTelegramID(ctx context.Context, telegramID int64) (models.User, error) {
	return s.getUserBy(ctx, "GetUserByTelegramID", `SELECT * FROM users WHERE telegram_id = $1;`, telegramID)
}

func (s *Store) getUserBy(ctx context.Context, method, query string, arg interface{}) (user models.User, err error) {
	defer func(start time.Time) { s.observe(method, start, err) }(time.Now())
	for i := 0; i < retries; i++ {
		err = s.db.GetContext(ctx, &user, query, arg)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return models.User{}, ErrUserNotFound
		case err != nil:
			continue
		}
		return user, nil
	}
	return models.User{}, fmt.Errorf("err getting user %v: %w", arg, err)
}

func (s *Store) UpdateUser(ctx context.Context, uid string, user models.User) (updatedUser models.User, err error) {
	defer func(start time.Time) { s.observe("UpdateUser", start, err) }(time.Now())
	query := `
UPDATE users
SET name         = $2,
    department   = $3,
    phone_number = $4,
    updated_at   = now()
WHERE uid = $1
RETURNING *;`
	for i := 0; i < retries; i++ {
		err = s.db.GetContext(ctx, &updatedUser, query, uid, user.Name, user.Department, user.PhoneNumber)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return models.User{}, ErrUserNotFound
		case err != nil:
			continue
		}
		return updatedUser, nil
	}
	return models.User{}, fmt.Errorf("err updating user %s: %w", uid, err)
}

func (s *Store) UpdateDesignation(ctx context.Context, uid, designation string) (updatedUser models.User, err error) {
	defer func(start time.Time) { s.observe("UpdateDesignation", start, err) }(time.Now())
	query := `
UPDATE users
SET designation = $2,
    updated_at  = now()
WHERE uid = $1
RETURNING *;`
	for i := 0; i < retries; i++ {
		err = s.db.GetContext(ctx, &updatedUser, query, uid, designation)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return models.User{}, ErrUserNotFound
		case err != nil:
			continue
		}
		return updatedUser, nil
	}
	return models.User{}, fmt.Errorf("err updating designation of %s: %w", uid, err)
}

func (s *Store) LinkTelegram(ctx context.Context, uid string, telegramID int64) (err error) {
	defer func(start time.Time) { s.observe("LinkTelegram", start, err) }(time.Now())
	for i := 0; i < retries; i++ {
		var res sql.Result
		res, err = s.db.ExecContext(ctx, `UPDATE users SET telegram_id = $2, updated_at = now() WHERE uid = $1`, uid, telegramID)
		if err != nil {
			continue
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrUserNotFound
		}
		return nil
	}
	return fmt.Errorf("err linking telegram for %s: %w", uid, err)
}

func (s *Store) ResetTables(ctx context.Context, tables []string) error {
	_, err := s.db.ExecContext(ctx, `TRUNCATE TABLE `+strings.Join(tables, `, `)+` CASCADE`)
	return err
}
