// Package reveal tracks the one-shot "scrolled into view" transition of page
// sections. A section starts hidden, becomes visible once, and stays visible.
package reveal

import (
	"sync"
	"sync/atomic"
	"time"
)

// Flag is a one-way false to true switch.
type Flag struct {
	set atomic.Bool
}

// Trigger marks the flag visible and reports whether this call did it.
func (f *Flag) Trigger() bool {
	return f.set.CompareAndSwap(false, true)
}

func (f *Flag) Visible() bool {
	return f.set.Load()
}

// Section is a page region observed by the browser. Threshold is the
// fraction of the section that must be on screen before it reveals.
type Section struct {
	ID        string
	Threshold float64
}

// Sections lists the observed regions of the home page.
var Sections = []Section{
	{ID: "terminal", Threshold: 0.2},
	{ID: "about", Threshold: 0.1},
	{ID: "projects", Threshold: 0.1},
	{ID: "experience", Threshold: 0.1},
	{ID: "skills", Threshold: 0.1},
	{ID: "contact", Threshold: 0.1},
}

// Threshold returns the configured threshold for id, or 0.1.
func Threshold(id string) float64 {
	for _, s := range Sections {
		if s.ID == id {
			return s.Threshold
		}
	}
	return 0.1
}

func known(id string) bool {
	for _, s := range Sections {
		if s.ID == id {
			return true
		}
	}
	return false
}

// Tracker holds one flag per section per visitor for the current page view.
type Tracker struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
}

type visitor struct {
	flags    map[string]*Flag
	lastSeen time.Time
}

func NewTracker(ttl time.Duration) *Tracker {
	return &Tracker{ttl: ttl, now: time.Now, visitors: make(map[string]*visitor)}
}

// Trigger reveals section for visitor. first is true only on the transition;
// ok is false for unknown sections.
func (t *Tracker) Trigger(visitorID, section string) (first, ok bool) {
	if !known(section) {
		return false, false
	}
	return t.flag(visitorID, section).Trigger(), true
}

// Reset forgets visitorID's flags. A freshly rendered page starts with
// every section hidden again.
func (t *Tracker) Reset(visitorID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.visitors, visitorID)
}

func (t *Tracker) flag(visitorID, section string) *Flag {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.visitors[visitorID]
	if !ok {
		v = &visitor{flags: make(map[string]*Flag)}
		t.visitors[visitorID] = v
	}
	v.lastSeen = t.now()
	f, ok := v.flags[section]
	if !ok {
		f = &Flag{}
		v.flags[section] = f
	}
	return f
}

// Sweep forgets visitors idle longer than the ttl.
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-t.ttl)
	removed := 0
	for id, v := range t.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(t.visitors, id)
			removed++
		}
	}
	return removed
}
