// Package store persists contact submissions, accounts and site analytics.
// SQLite is the default backend; Postgres covers hosted deployments.
package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// Interaction kinds recorded by the site.
const (
	InteractionResume   = "resume_download"
	InteractionTerminal = "terminal"
	InteractionContact  = "contact_form"
	sectionViewPrefix   = "section_view:"
)

// SectionView is the interaction kind recorded when a section first reveals.
func SectionView(section string) string {
	return sectionViewPrefix + section
}

type ContactSubmission struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Profile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
}

type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// Visit is one tracked page view. The IP is stored hashed.
type Visit struct {
	ID        int64     `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// DayCount is the number of events on one UTC day (YYYY-MM-DD).
type DayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

type CommandCount struct {
	Command string `json:"command"`
	Count   int64  `json:"count"`
}

// Store is the backend capability the site consumes.
type Store interface {
	InsertContact(ctx context.Context, c *ContactSubmission) error
	ListContacts(ctx context.Context) ([]ContactSubmission, error)

	CreateUser(ctx context.Context, u *User, p *Profile) error
	UserByEmail(ctx context.Context, email string) (*User, error)
	UserByID(ctx context.Context, id string) (*User, error)
	Profile(ctx context.Context, id string) (*Profile, error)

	CreateSession(ctx context.Context, s Session) error
	SessionUser(ctx context.Context, token string, now time.Time) (*User, error)
	DeleteSession(ctx context.Context, token string) error
	PurgeSessions(ctx context.Context, before time.Time) (int64, error)

	RecordVisit(ctx context.Context, v Visit) error
	RecentVisits(ctx context.Context, limit int) ([]Visit, error)
	PageViews(ctx context.Context, since time.Time) ([]DayCount, error)
	CountVisits(ctx context.Context, from, to time.Time) (int64, error)
	PurgeVisits(ctx context.Context, before time.Time) (int64, error)

	RecordInteraction(ctx context.Context, kind string, at time.Time) error
	InteractionCounts(ctx context.Context, since time.Time) (map[string]int64, error)
	CountInteractions(ctx context.Context, kind string, from, to time.Time) (int64, error)

	RecordCommand(ctx context.Context, command string, at time.Time) error
	CommandCounts(ctx context.Context, limit int) ([]CommandCount, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the backend named by driver and applies the schema.
func Open(ctx context.Context, driver, dsn string) (s Store, err error) {
	switch driver {
	case DriverSQLite, "":
		s, err = OpenSQLite(dsn)
	case DriverPostgres:
		s, err = OpenPostgres(ctx, dsn)
	default:
		return nil, errors.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err = s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
