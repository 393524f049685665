package store

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS contact_submissions (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		username TEXT,
		full_name TEXT,
		avatar_url TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS visitors (
		id BIGSERIAL PRIMARY KEY,
		hashed_ip TEXT NOT NULL,
		user_agent TEXT,
		path TEXT,
		occurred_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS visitors_timestamp ON visitors(occurred_at)`,
	`CREATE TABLE IF NOT EXISTS interactions (
		id BIGSERIAL PRIMARY KEY,
		kind TEXT NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS interactions_kind ON interactions(kind, occurred_at)`,
	`CREATE TABLE IF NOT EXISTS terminal_commands (
		id BIGSERIAL PRIMARY KEY,
		command TEXT NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

type Postgres struct {
	db *pgxpool.Pool
}

// OpenPostgres connects to a Postgres database, typically a hosted one
// reached through a transaction-mode pooler.
func OpenPostgres(ctx context.Context, connString string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse database url")
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour

	// Transaction-mode poolers cannot hold prepared statements across transactions.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect to database")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "database unreachable")
	}
	return &Postgres{db: pool}, nil
}

func (p *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := p.db.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to apply postgres schema")
		}
	}
	return nil
}

func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}

func (p *Postgres) InsertContact(ctx context.Context, c *ContactSubmission) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	err := p.db.QueryRow(ctx, `
		INSERT INTO contact_submissions (name, email, message, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, c.Name, c.Email, c.Message, c.CreatedAt).Scan(&c.ID)
	return errors.Wrap(err, "failed to insert contact submission")
}

func (p *Postgres) ListContacts(ctx context.Context) ([]ContactSubmission, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, name, email, message, created_at
		FROM contact_submissions
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list contact submissions")
	}
	defer rows.Close()

	var out []ContactSubmission
	for rows.Next() {
		var c ContactSubmission
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Message, &c.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan contact submission")
		}
		c.CreatedAt = c.CreatedAt.UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateUser(ctx context.Context, u *User, prof *Profile) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	return pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO users (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
			u.ID, u.Email, u.PasswordHash, u.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if stderrors.As(err, &pgErr) && pgErr.Code == "23505" {
				return errors.Wrapf(ErrDuplicate, "user %s", u.Email)
			}
			return errors.Wrap(err, "failed to insert user")
		}
		_, err = tx.Exec(ctx, `INSERT INTO profiles (id, username, full_name, avatar_url) VALUES ($1, $2, $3, $4)`,
			prof.ID, prof.Username, prof.FullName, prof.AvatarURL)
		return errors.Wrap(err, "failed to insert profile")
	})
}

func (p *Postgres) UserByEmail(ctx context.Context, email string) (*User, error) {
	return scanPgUser(p.db.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = $1`, email))
}

func (p *Postgres) UserByID(ctx context.Context, id string) (*User, error) {
	return scanPgUser(p.db.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE id = $1`, id))
}

func scanPgUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load user")
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func (p *Postgres) Profile(ctx context.Context, id string) (*Profile, error) {
	var prof Profile
	var username, fullName, avatar *string
	err := p.db.QueryRow(ctx,
		`SELECT id, username, full_name, avatar_url FROM profiles WHERE id = $1`, id).
		Scan(&prof.ID, &username, &fullName, &avatar)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load profile")
	}
	prof.Username, prof.FullName, prof.AvatarURL = deref(username), deref(fullName), deref(avatar)
	return &prof, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (p *Postgres) CreateSession(ctx context.Context, s Session) error {
	_, err := p.db.Exec(ctx, `INSERT INTO sessions (token, user_id, expires_at) VALUES ($1, $2, $3)`,
		s.Token, s.UserID, s.ExpiresAt)
	return errors.Wrap(err, "failed to create session")
}

func (p *Postgres) SessionUser(ctx context.Context, token string, now time.Time) (*User, error) {
	return scanPgUser(p.db.QueryRow(ctx, `
		SELECT u.id, u.email, u.password_hash, u.created_at
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token = $1 AND s.expires_at > $2`, token, now))
}

func (p *Postgres) DeleteSession(ctx context.Context, token string) error {
	_, err := p.db.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return errors.Wrap(err, "failed to delete session")
}

func (p *Postgres) PurgeSessions(ctx context.Context, before time.Time) (int64, error) {
	return p.exec(ctx, "purge sessions", `DELETE FROM sessions WHERE expires_at <= $1`, before)
}

func (p *Postgres) RecordVisit(ctx context.Context, v Visit) error {
	if v.Timestamp.IsZero() {
		v.Timestamp = time.Now()
	}
	_, err := p.db.Exec(ctx,
		`INSERT INTO visitors (hashed_ip, user_agent, path, occurred_at) VALUES ($1, $2, $3, $4)`,
		v.HashedIP, v.UserAgent, v.Path, v.Timestamp)
	return errors.Wrap(err, "failed to record visit")
}

func (p *Postgres) RecentVisits(ctx context.Context, limit int) ([]Visit, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), occurred_at
		FROM visitors
		ORDER BY occurred_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list visits")
	}
	defer rows.Close()

	var out []Visit
	for rows.Next() {
		var v Visit
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &v.Timestamp); err != nil {
			return nil, errors.Wrap(err, "failed to scan visit")
		}
		v.Timestamp = v.Timestamp.UTC()
		out = append(out, v)
	}
	return out, rows.Err()
}

func (p *Postgres) PageViews(ctx context.Context, since time.Time) ([]DayCount, error) {
	rows, err := p.db.Query(ctx, `
		SELECT to_char(occurred_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		FROM visitors
		WHERE occurred_at >= $1
		GROUP BY day
		ORDER BY day`, since)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count page views")
	}
	defer rows.Close()

	var out []DayCount
	for rows.Next() {
		var d DayCount
		if err := rows.Scan(&d.Day, &d.Count); err != nil {
			return nil, errors.Wrap(err, "failed to scan page views")
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) CountVisits(ctx context.Context, from, to time.Time) (int64, error) {
	return p.count(ctx, "count visits",
		`SELECT COUNT(*) FROM visitors WHERE occurred_at >= $1 AND occurred_at < $2`, from, to)
}

func (p *Postgres) PurgeVisits(ctx context.Context, before time.Time) (int64, error) {
	return p.exec(ctx, "purge visits", `DELETE FROM visitors WHERE occurred_at < $1`, before)
}

func (p *Postgres) RecordInteraction(ctx context.Context, kind string, at time.Time) error {
	_, err := p.db.Exec(ctx, `INSERT INTO interactions (kind, occurred_at) VALUES ($1, $2)`, kind, at)
	return errors.Wrap(err, "failed to record interaction")
}

func (p *Postgres) InteractionCounts(ctx context.Context, since time.Time) (map[string]int64, error) {
	rows, err := p.db.Query(ctx,
		`SELECT kind, COUNT(*) FROM interactions WHERE occurred_at >= $1 GROUP BY kind`, since)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count interactions")
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, errors.Wrap(err, "failed to scan interactions")
		}
		out[kind] = n
	}
	return out, rows.Err()
}

func (p *Postgres) CountInteractions(ctx context.Context, kind string, from, to time.Time) (int64, error) {
	return p.count(ctx, "count interactions",
		`SELECT COUNT(*) FROM interactions WHERE kind = $1 AND occurred_at >= $2 AND occurred_at < $3`, kind, from, to)
}

func (p *Postgres) RecordCommand(ctx context.Context, command string, at time.Time) error {
	_, err := p.db.Exec(ctx, `INSERT INTO terminal_commands (command, occurred_at) VALUES ($1, $2)`, command, at)
	return errors.Wrap(err, "failed to record terminal command")
}

func (p *Postgres) CommandCounts(ctx context.Context, limit int) ([]CommandCount, error) {
	rows, err := p.db.Query(ctx, `
		SELECT command, COUNT(*) AS n
		FROM terminal_commands
		GROUP BY command
		ORDER BY n DESC, command
		LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count terminal commands")
	}
	defer rows.Close()

	var out []CommandCount
	for rows.Next() {
		var c CommandCount
		if err := rows.Scan(&c.Command, &c.Count); err != nil {
			return nil, errors.Wrap(err, "failed to scan terminal commands")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) count(ctx context.Context, what, query string, args ...any) (n int64, err error) {
	err = p.db.QueryRow(ctx, query, args...).Scan(&n)
	return n, errors.Wrapf(err, "failed to %s", what)
}

func (p *Postgres) exec(ctx context.Context, what, query string, args ...any) (int64, error) {
	tag, err := p.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to %s", what)
	}
	return tag.RowsAffected(), nil
}
