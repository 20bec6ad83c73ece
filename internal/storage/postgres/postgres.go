package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Chu-rill/Huddle/internal/config"
	"github.com/Chu-rill/Huddle/internal/models"
	"github.com/Chu-rill/Huddle/internal/storage"
	"github.com/Chu-rill/Huddle/internal/storage/postgres/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	dsn := dsn(cfg)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	if err := runMigrations(ctx, dsn); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

func runMigrations(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}

func (r *PostgresRepo) SaveUser(ctx context.Context, email, username string, passHash []byte) (models.User, error) {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users (email, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at;
	`

	var u models.User
	u.Email = email
	u.Username = username
	u.PassHash = passHash

	// nil passHash inserts NULL: OAuth-only accounts have no password
	err := r.pool.QueryRow(ctx, query, email, username, passHash).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.User{}, storage.ErrUserExists
		}

		return models.User{}, fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return u, nil
}

func (r *PostgresRepo) User(ctx context.Context, email string) (models.User, error) {
	query := `
		SELECT id, email, username, password_hash, is_verified, created_at
		FROM users
		WHERE email = $1;
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *PostgresRepo) UserByID(ctx context.Context, id int64) (models.User, error) {
	query := `
		SELECT id, email, username, password_hash, is_verified, created_at
		FROM users
		WHERE id = $1;
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *PostgresRepo) scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.PassHash,
		&u.IsVerified,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, err
	}

	return u, nil
}

func (r *PostgresRepo) SetEmailVerified(ctx context.Context, email string) error {
	query := `UPDATE users SET is_verified = TRUE WHERE email = $1`

	_, err := r.pool.Exec(ctx, query, email)

	return err
}

func (r *PostgresRepo) SaveSession(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	const query = `
		INSERT INTO sessions (user_id, token, expires_at)
		VALUES ($1, $2, $3)
	`

	_, err := r.pool.Exec(ctx, query, userID, token, expiresAt)
	return err
}

// SessionByToken возвращает сессию вместе с её владельцем.
func (r *PostgresRepo) SessionByToken(ctx context.Context, token string) (models.Session, models.User, error) {
	const query = `
		SELECT s.id, s.token, s.user_id, s.expires_at, s.revoked, s.created_at,
		       u.id, u.email, u.username, u.password_hash, u.is_verified, u.created_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = $1;
	`

	var (
		s models.Session
		u models.User
	)

	err := r.pool.QueryRow(ctx, query, token).Scan(
		&s.ID, &s.Token, &s.UserID, &s.ExpiresAt, &s.Revoked, &s.CreatedAt,
		&u.ID, &u.Email, &u.Username, &u.PassHash, &u.IsVerified, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, models.User{}, storage.ErrSessionNotFound
		}

		return models.Session{}, models.User{}, err
	}

	return s, u, nil
}

func (r *PostgresRepo) SessionsByUser(ctx context.Context, userID int64) ([]models.Session, error) {
	const query = `
		SELECT id, token, user_id, expires_at, revoked, created_at
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC;
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session

	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.Token, &s.UserID, &s.ExpiresAt, &s.Revoked, &s.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

func (r *PostgresRepo) DeleteSession(ctx context.Context, id int64) error {
	query := `DELETE FROM sessions WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, id)

	return err
}

func (r *PostgresRepo) DeleteSessions(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := `DELETE FROM sessions WHERE id = ANY($1)`

	_, err := r.pool.Exec(ctx, query, ids)

	return err
}

func (r *PostgresRepo) DeleteExpiredSessions(ctx context.Context, userID int64) error {
	query := `DELETE FROM sessions WHERE user_id = $1 AND expires_at < NOW()`

	_, err := r.pool.Exec(ctx, query, userID)

	return err
}

func (r *PostgresRepo) RevokeSession(ctx context.Context, id int64) error {
	query := `UPDATE sessions SET revoked = TRUE WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, id)

	return err
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

// * dsn формирует конфигурацию базы данных.
func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
