package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// Timestamps are stored as unix seconds; day grouping uses date(ts, 'unixepoch').
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS contact_submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at INTEGER NOT NULL
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
		expires_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS visitors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hashed_ip TEXT NOT NULL,
		user_agent TEXT,
		path TEXT,
		timestamp INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS visitors_timestamp ON visitors(timestamp)`,
	`CREATE TABLE IF NOT EXISTS interactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS interactions_kind ON interactions(kind, timestamp)`,
	`CREATE TABLE IF NOT EXISTS terminal_commands (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		command TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	)`,
}

type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens the database at path. ":memory:" gives a private
// in-memory database.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = "portfolio.db"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite database %s", path)
	}
	// One connection keeps :memory: databases shared and serialises writers.
	db.SetMaxOpenConns(1)
	if _, err = db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable foreign keys")
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Migrate(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to apply sqlite schema")
		}
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) InsertContact(ctx context.Context, c *ContactSubmission) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO contact_submissions (name, email, message, created_at) VALUES (?, ?, ?, ?)`,
		c.Name, c.Email, c.Message, c.CreatedAt.Unix())
	if err != nil {
		return errors.Wrap(err, "failed to insert contact submission")
	}
	c.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLite) ListContacts(ctx context.Context) ([]ContactSubmission, error) {
	rows, err := s.db.QueryContext(ctx, `
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
		var created int64
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Message, &created); err != nil {
			return nil, errors.Wrap(err, "failed to scan contact submission")
		}
		c.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLite) CreateUser(ctx context.Context, u *User, p *Profile) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt.Unix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errors.Wrapf(ErrDuplicate, "user %s", u.Email)
		}
		return errors.Wrap(err, "failed to insert user")
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO profiles (id, username, full_name, avatar_url) VALUES (?, ?, ?, ?)`,
		p.ID, p.Username, p.FullName, p.AvatarURL)
	if err != nil {
		return errors.Wrap(err, "failed to insert profile")
	}
	return errors.Wrap(tx.Commit(), "failed to commit user")
}

func (s *SQLite) UserByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email))
}

func (s *SQLite) UserByID(ctx context.Context, id string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE id = ?`, id))
}

func (s *SQLite) scanUser(row *sql.Row) (*User, error) {
	var u User
	var created int64
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &created)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load user")
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	return &u, nil
}

func (s *SQLite) Profile(ctx context.Context, id string) (*Profile, error) {
	var p Profile
	var username, fullName, avatar sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, full_name, avatar_url FROM profiles WHERE id = ?`, id).
		Scan(&p.ID, &username, &fullName, &avatar)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load profile")
	}
	p.Username, p.FullName, p.AvatarURL = username.String, fullName.String, avatar.String
	return &p, nil
}

func (s *SQLite) CreateSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		sess.Token, sess.UserID, sess.ExpiresAt.Unix())
	return errors.Wrap(err, "failed to create session")
}

func (s *SQLite) SessionUser(ctx context.Context, token string, now time.Time) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.password_hash, u.created_at
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token = ? AND s.expires_at > ?`, token, now.Unix()))
}

func (s *SQLite) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return errors.Wrap(err, "failed to delete session")
}

func (s *SQLite) PurgeSessions(ctx context.Context, before time.Time) (int64, error) {
	return s.exec(ctx, "purge sessions", `DELETE FROM sessions WHERE expires_at <= ?`, before.Unix())
}

func (s *SQLite) RecordVisit(ctx context.Context, v Visit) error {
	if v.Timestamp.IsZero() {
		v.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO visitors (hashed_ip, user_agent, path, timestamp) VALUES (?, ?, ?, ?)`,
		v.HashedIP, v.UserAgent, v.Path, v.Timestamp.Unix())
	return errors.Wrap(err, "failed to record visit")
}

func (s *SQLite) RecentVisits(ctx context.Context, limit int) ([]Visit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), timestamp
		FROM visitors
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list visits")
	}
	defer rows.Close()

	var out []Visit
	for rows.Next() {
		var v Visit
		var ts int64
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &ts); err != nil {
			return nil, errors.Wrap(err, "failed to scan visit")
		}
		v.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLite) PageViews(ctx context.Context, since time.Time) ([]DayCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date(timestamp, 'unixepoch') AS day, COUNT(*)
		FROM visitors
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day`, since.Unix())
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

func (s *SQLite) CountVisits(ctx context.Context, from, to time.Time) (int64, error) {
	return s.count(ctx, "count visits",
		`SELECT COUNT(*) FROM visitors WHERE timestamp >= ? AND timestamp < ?`, from.Unix(), to.Unix())
}

func (s *SQLite) PurgeVisits(ctx context.Context, before time.Time) (int64, error) {
	return s.exec(ctx, "purge visits", `DELETE FROM visitors WHERE timestamp < ?`, before.Unix())
}

func (s *SQLite) RecordInteraction(ctx context.Context, kind string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO interactions (kind, timestamp) VALUES (?, ?)`, kind, at.Unix())
	return errors.Wrap(err, "failed to record interaction")
}

func (s *SQLite) InteractionCounts(ctx context.Context, since time.Time) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, COUNT(*) FROM interactions WHERE timestamp >= ? GROUP BY kind`, since.Unix())
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

func (s *SQLite) CountInteractions(ctx context.Context, kind string, from, to time.Time) (int64, error) {
	return s.count(ctx, "count interactions",
		`SELECT COUNT(*) FROM interactions WHERE kind = ? AND timestamp >= ? AND timestamp < ?`,
		kind, from.Unix(), to.Unix())
}

func (s *SQLite) RecordCommand(ctx context.Context, command string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO terminal_commands (command, timestamp) VALUES (?, ?)`, command, at.Unix())
	return errors.Wrap(err, "failed to record terminal command")
}

func (s *SQLite) CommandCounts(ctx context.Context, limit int) ([]CommandCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT command, COUNT(*) AS n
		FROM terminal_commands
		GROUP BY command
		ORDER BY n DESC, command
		LIMIT ?`, limit)
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

func (s *SQLite) count(ctx context.Context, what, query string, args ...any) (n int64, err error) {
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, errors.Wrapf(err, "failed to %s", what)
}

func (s *SQLite) exec(ctx context.Context, what, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to %s", what)
	}
	return res.RowsAffected()
}
