// Package contact handles contact form submissions: persisting them (or
// simulating it) and notifying the site owner.
package contact

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mridungeorge/portfolio/internal/store"
)

// Form is the posted contact form.
type Form struct {
	Name    string `form:"name" json:"name" binding:"required"`
	Email   string `form:"email" json:"email" binding:"required,email"`
	Message string `form:"message" json:"message" binding:"required"`
}

var ErrIncomplete = errors.New("name, email and message are required")

// Notifier tells the owner about a new submission.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, sub store.ContactSubmission) error
}

// Service accepts submissions. Without a store it runs in simulated mode:
// it waits Delay and keeps nothing.
type Service struct {
	store     store.Store
	delay     time.Duration
	notifiers []Notifier
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithStore(st store.Store) Option {
	return func(s *Service) { s.store = st }
}

func WithDelay(d time.Duration) Option {
	return func(s *Service) { s.delay = d }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifiers = append(s.notifiers, n) }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(opts ...Option) *Service {
	s := &Service{
		delay:  1500 * time.Millisecond,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Simulated reports whether submissions are discarded.
func (s *Service) Simulated() bool {
	return s.store == nil
}

// Submit records one submission. Notifier failures are logged and do not
// fail the submission.
func (s *Service) Submit(ctx context.Context, form Form) (*store.ContactSubmission, error) {
	sub := store.ContactSubmission{
		Name:      strings.TrimSpace(form.Name),
		Email:     strings.TrimSpace(form.Email),
		Message:   strings.TrimSpace(form.Message),
		CreatedAt: s.now(),
	}
	if sub.Name == "" || sub.Email == "" || sub.Message == "" {
		return nil, ErrIncomplete
	}

	if s.Simulated() {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else {
		if err := s.store.InsertContact(ctx, &sub); err != nil {
			return nil, err
		}
	}

	for _, n := range s.notifiers {
		if err := n.Notify(ctx, sub); err != nil {
			s.logger.Error("contact notification failed",
				slog.String("notifier", n.Name()),
				slog.Any("error", err))
			continue
		}
		s.logger.Debug("contact notification sent", slog.String("notifier", n.Name()))
	}
	return &sub, nil
}
