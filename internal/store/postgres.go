package store

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/ayush/feedback-app/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Postgres error codes, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// constraintFields maps unique constraints to the form field they guard.
var constraintFields = map[string]string{
	"users_pkey":      "username",
	"users_email_key": "email",
}

// dbtx is the part of pgxpool.Pool the queries run through.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore handles user and feedback CRUD against PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
	db   dbtx
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, db: pool}
}

// withTx runs fn in a transaction, committing when it returns nil and
// rolling back otherwise.
func withTx(ctx context.Context, db dbtx, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()

	return fn(tx)
}

// Migrate applies the embedded goose migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO users (username, password, email, first_name, last_name)
		 VALUES ($1, $2, $3, $4, $5)`,
		u.Username, u.Password, u.Email, u.FirstName, u.LastName,
	)
	if err != nil {
		return fmt.Errorf("create user: %w", classify(err))
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRow(ctx,
		`SELECT username, password, email, first_name, last_name FROM users WHERE username = $1`, username,
	).Scan(&u.Username, &u.Password, &u.Email, &u.FirstName, &u.LastName)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", classify(err))
	}
	return &u, nil
}

// DeleteUser removes the user and every feedback row they own in one
// transaction.
func (s *PostgresStore) DeleteUser(ctx context.Context, username string) error {
	err := withTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM feedback WHERE username = $1`, username); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE username = $1`, username)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete user: %w", classify(err))
	}
	return nil
}

func (s *PostgresStore) CreateFeedback(ctx context.Context, f *models.Feedback) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO feedback (title, content, username)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		f.Title, f.Content, f.Username,
	).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("create feedback: %w", classify(err))
	}
	return nil
}

func (s *PostgresStore) GetFeedback(ctx context.Context, id int64) (*models.Feedback, error) {
	var f models.Feedback
	err := s.db.QueryRow(ctx,
		`SELECT id, title, content, username FROM feedback WHERE id = $1`, id,
	).Scan(&f.ID, &f.Title, &f.Content, &f.Username)
	if err != nil {
		return nil, fmt.Errorf("get feedback: %w", classify(err))
	}
	return &f, nil
}

func (s *PostgresStore) ListFeedback(ctx context.Context, username string) ([]models.Feedback, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, title, content, username FROM feedback WHERE username = $1 ORDER BY id`, username,
	)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Feedback, error) {
		var f models.Feedback
		err := row.Scan(&f.ID, &f.Title, &f.Content, &f.Username)
		return f, err
	})
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return items, nil
}

// UpdateFeedback rewrites title and content. The owner is part of the match,
// so a row can never move to another user.
func (s *PostgresStore) UpdateFeedback(ctx context.Context, f *models.Feedback) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE feedback SET title = $1, content = $2 WHERE id = $3 AND username = $4`,
		f.Title, f.Content, f.ID, f.Username,
	)
	if err != nil {
		return fmt.Errorf("update feedback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update feedback: %w", ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) DeleteFeedback(ctx context.Context, id int64, username string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM feedback WHERE id = $1 AND username = $2`, id, username)
	if err != nil {
		return fmt.Errorf("delete feedback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete feedback: %w", ErrNotFound)
	}
	return nil
}

// classify maps driver errors onto the store's sentinel errors.
func classify(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			field, ok := constraintFields[pgErr.ConstraintName]
			if !ok {
				field = pgErr.ConstraintName
			}
			return &DuplicateError{Field: field}
		case pgForeignKeyViolation:
			return ErrNotFound
		}
	}
	return err
}
