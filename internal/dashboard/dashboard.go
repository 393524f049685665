// Package dashboard assembles the statistics shown to signed-in users.
// Each statistic is fetched independently; a failed fetch leaves an empty
// default and a Problem for the page to show.
package dashboard

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/mridungeorge/portfolio/internal/store"
)

const (
	messagePreviewRunes = 80
	topCommands         = 5
	week                = 7 * 24 * time.Hour
)

// Tabs, in display order.
const (
	TabOverview     = "overview"
	TabContacts     = "contacts"
	TabInteractions = "interactions"
)

var Tabs = []string{TabOverview, TabContacts, TabInteractions}

// Tab normalises a requested tab name.
func Tab(name string) string {
	for _, t := range Tabs {
		if t == name {
			return t
		}
	}
	return TabOverview
}

// Problem is a failed fetch, shown as a toast.
type Problem struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

type ContactRow struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
	Full    string `json:"-"`
	Date    string `json:"date"`
	Ago     string `json:"ago"`
}

type DayViews struct {
	Name  string `json:"name"`
	Views int64  `json:"views"`
}

type Interaction struct {
	Name    string `json:"name"`
	Value   int64  `json:"value"`
	Percent int    `json:"percent"`
}

// Card is one overview tile.
type Card struct {
	Title  string `json:"title"`
	Value  int64  `json:"value"`
	Change string `json:"change"`
}

// Display formats the value with thousands separators.
func (c Card) Display() string {
	return humanize.Comma(c.Value)
}

type Identity struct {
	DisplayName string `json:"display_name"`
	Handle      string `json:"handle"`
	Initials    string `json:"initials"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

type Data struct {
	Identity     Identity             `json:"identity"`
	Cards        []Card               `json:"cards"`
	PageViews    []DayViews           `json:"page_views"`
	MaxViews     int64                `json:"-"`
	Contacts     []ContactRow         `json:"contacts"`
	Interactions []Interaction        `json:"interactions"`
	Commands     []store.CommandCount `json:"terminal_commands"`
}

// Loader fetches dashboard data from a store.
type Loader struct {
	store store.Store
	now   func() time.Time
}

func NewLoader(st store.Store) *Loader {
	return &Loader{store: st, now: time.Now}
}

// Load gathers everything for user. It never fails as a whole.
func (l *Loader) Load(ctx context.Context, user *store.User) (*Data, []Problem) {
	var problems []Problem
	fail := func(title string, err error) {
		problems = append(problems, Problem{Title: title, Message: err.Error()})
	}
	now := l.now().UTC()
	d := &Data{}

	profile, err := l.store.Profile(ctx, user.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		fail("Error fetching profile", err)
	}
	d.Identity = identity(user, profile)

	contacts, err := l.store.ListContacts(ctx)
	if err != nil {
		fail("Error fetching contacts", err)
	}
	d.Contacts = ContactRows(contacts, now)

	if d.PageViews, err = l.pageViews(ctx, now); err != nil {
		fail("Error fetching page views", err)
	}
	for _, v := range d.PageViews {
		d.MaxViews = max(d.MaxViews, v.Views)
	}

	if d.Interactions, err = l.interactions(ctx, now); err != nil {
		fail("Error fetching interactions", err)
	}

	if d.Commands, err = l.store.CommandCounts(ctx, topCommands); err != nil {
		fail("Error fetching terminal commands", err)
		d.Commands = nil
	}

	if d.Cards, err = l.cards(ctx, now); err != nil {
		fail("Error fetching statistics", err)
	}
	return d, problems
}

func identity(user *store.User, p *store.Profile) Identity {
	id := Identity{DisplayName: "User", Handle: user.Email, Initials: "U"}
	if p != nil {
		id.AvatarURL = p.AvatarURL
		switch {
		case p.FullName != "":
			id.DisplayName = p.FullName
		case p.Username != "":
			id.DisplayName = p.Username
		}
		if p.Username != "" {
			id.Handle = p.Username
		}
	}
	switch {
	case p != nil && p.Username != "":
		id.Initials = prefix(p.Username, 2)
	case user.Email != "":
		id.Initials = prefix(user.Email, 2)
	}
	return id
}

// ContactRows formats submissions for the contacts table.
func ContactRows(subs []store.ContactSubmission, now time.Time) []ContactRow {
	rows := make([]ContactRow, 0, len(subs))
	for _, s := range subs {
		rows = append(rows, ContactRow{
			ID:      s.ID,
			Name:    s.Name,
			Email:   s.Email,
			Message: Truncate(s.Message, messagePreviewRunes),
			Full:    s.Message,
			Date:    s.CreatedAt.Format("Jan 2, 2006"),
			Ago:     humanize.RelTime(s.CreatedAt, now, "ago", "from now"),
		})
	}
	return rows
}

// Truncate shortens s to n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return strings.ToUpper(string(r))
}

// pageViews returns the last seven days ending today, zero-filled.
func (l *Loader) pageViews(ctx context.Context, now time.Time) ([]DayViews, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := today.AddDate(0, 0, -6)

	days := make([]DayViews, 7)
	index := make(map[string]int, 7)
	for i := range days {
		day := start.AddDate(0, 0, i)
		days[i].Name = day.Format("Mon")
		index[day.Format("2006-01-02")] = i
	}

	counts, err := l.store.PageViews(ctx, start)
	if err != nil {
		return days, err
	}
	for _, c := range counts {
		if i, ok := index[c.Day]; ok {
			days[i].Views = c.Count
		}
	}
	return days, nil
}

var interactionNames = []struct{ kind, name string }{
	{store.InteractionResume, "Resume Downloads"},
	{store.InteractionTerminal, "Terminal Usage"},
	{store.InteractionContact, "Contact Form"},
}

func (l *Loader) interactions(ctx context.Context, now time.Time) ([]Interaction, error) {
	out := make([]Interaction, len(interactionNames))
	for i, n := range interactionNames {
		out[i].Name = n.name
	}
	counts, err := l.store.InteractionCounts(ctx, now.Add(-4*week))
	if err != nil {
		return out, err
	}
	var total int64
	for i, n := range interactionNames {
		out[i].Value = counts[n.kind]
		total += out[i].Value
	}
	if total > 0 {
		for i := range out {
			out[i].Percent = int(math.Round(float64(out[i].Value) * 100 / float64(total)))
		}
	}
	return out, nil
}

func (l *Loader) cards(ctx context.Context, now time.Time) ([]Card, error) {
	thisWeek, lastWeek := now.Add(-week), now.Add(-2*week)

	type counter func(from, to time.Time) (int64, error)
	interactions := func(kind string) counter {
		return func(from, to time.Time) (int64, error) {
			return l.store.CountInteractions(ctx, kind, from, to)
		}
	}
	specs := []struct {
		title string
		count counter
	}{
		{"Total Page Views", func(from, to time.Time) (int64, error) { return l.store.CountVisits(ctx, from, to) }},
		{"Resume Downloads", interactions(store.InteractionResume)},
		{"Terminal Sessions", interactions(store.InteractionTerminal)},
	}

	cards := make([]Card, 0, len(specs))
	for _, s := range specs {
		cur, err := s.count(thisWeek, now)
		if err != nil {
			return nil, err
		}
		prev, err := s.count(lastWeek, thisWeek)
		if err != nil {
			return nil, err
		}
		cards = append(cards, Card{Title: s.title, Value: cur, Change: Change(cur, prev)})
	}
	return cards, nil
}

// Change describes cur relative to prev, e.g. "+12.5% from last week".
func Change(cur, prev int64) string {
	if prev == 0 {
		if cur == 0 {
			return "No change from last week"
		}
		return "New this week"
	}
	pct := float64(cur-prev) * 100 / float64(prev)
	s := humanize.FtoaWithDigits(math.Abs(pct), 1)
	sign := "+"
	if pct < 0 {
		sign = "-"
	}
	return fmt.Sprintf("%s%s%% from last week", sign, s)
}
