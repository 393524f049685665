// Package tracking records privacy-conscious page views: client IPs are
// salted and hashed before they reach the store, Do Not Track is honoured,
// and old rows are purged after a retention window.
package tracking

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/mridungeorge/portfolio/internal/store"
)

// DefaultRetention is how long visits are kept.
const DefaultRetention = 365 * 24 * time.Hour

const recentLimit = 50

var skipPrefixes = []string{
	"/static/",
	"/images/",
	"/dashboard",
	"/auth",
	"/favicon",
	"/privacy",
	"/healthz",
}

type Tracker struct {
	store  store.Store
	salt   string
	logger *slog.Logger
	now    func() time.Time
	wg     sync.WaitGroup
}

// New returns a Tracker. An empty salt is replaced by a random one, so
// hashes are then only stable for the life of the process.
func New(st store.Store, salt string, logger *slog.Logger) *Tracker {
	if salt == "" {
		salt = randomSalt()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{store: st, salt: salt, logger: logger, now: time.Now}
}

func randomSalt() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(errors.Wrap(err, "failed to generate hashing salt"))
	}
	return hex.EncodeToString(b)
}

// HashIP is consistent per IP for a given salt.
func (t *Tracker) HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + t.salt))
	return hex.EncodeToString(sum[:])[:16]
}

// Skip reports whether a request should not be counted.
func Skip(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return true
	}
	if r.Header.Get("DNT") == "1" {
		return true
	}
	for _, p := range skipPrefixes {
		if strings.HasPrefix(r.URL.Path, p) {
			return true
		}
	}
	return false
}

// Middleware records page views in the background.
func (t *Tracker) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Skip(c.Request) {
			t.Record(c.ClientIP(), c.GetHeader("User-Agent"), c.Request.URL.Path)
		}
		c.Next()
	}
}

// Record stores a visit asynchronously.
func (t *Tracker) Record(ip, userAgent, path string) {
	v := store.Visit{
		HashedIP:  t.HashIP(ip),
		UserAgent: userAgent,
		Path:      path,
		Timestamp: t.now(),
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := t.store.RecordVisit(ctx, v); err != nil {
			t.logger.Error("error recording visitor", "path", v.Path, "error", err)
		}
	}()
}

// Wait blocks until pending writes finish.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// Cleanup deletes visits older than retention.
func Cleanup(ctx context.Context, st store.Store, retention time.Duration, now time.Time) (int64, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	n, err := st.PurgeVisits(ctx, now.Add(-retention))
	if err != nil {
		return 0, errors.Wrap(err, "failed to clean up visitor data")
	}
	return n, nil
}

// Summary is the raw visitor view exported alongside dashboard stats.
type Summary struct {
	VisitorsToday    int64         `json:"visitors_today"`
	VisitorsThisWeek int64         `json:"visitors_this_week"`
	RecentVisitors   []store.Visit `json:"recent_visitors"`
}

// Summarize counts today's and this week's visits and lists the latest.
func Summarize(ctx context.Context, st store.Store, now time.Time) (*Summary, error) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	s := &Summary{}
	var err error
	if s.VisitorsToday, err = st.CountVisits(ctx, today, now); err != nil {
		return nil, err
	}
	if s.VisitorsThisWeek, err = st.CountVisits(ctx, now.AddDate(0, 0, -7), now); err != nil {
		return nil, err
	}
	if s.RecentVisitors, err = st.RecentVisits(ctx, recentLimit); err != nil {
		return nil, err
	}
	return s, nil
}
