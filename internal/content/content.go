// Package content holds the static display records rendered by the site
// and the terminal: experience, certificates, projects and skills.
package content

import (
	_ "embed"
	"io"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed site.yaml
var defaultSite []byte

type Owner struct {
	Name     string `yaml:"name"`
	Handle   string `yaml:"handle"`
	Role     string `yaml:"role"`
	Location string `yaml:"location"`
	Summary  string `yaml:"summary"`
}

type Hero struct {
	Greeting string `yaml:"greeting"`
	Headline string `yaml:"headline"`
	Blurb    string `yaml:"blurb"`
}

type Experience struct {
	ID           int      `yaml:"id" json:"id"`
	Title        string   `yaml:"title" json:"title"`
	ShortTitle   string   `yaml:"short_title,omitempty" json:"-"`
	Company      string   `yaml:"company" json:"company"`
	ShortCompany string   `yaml:"short_company,omitempty" json:"-"`
	Period       string   `yaml:"period" json:"period"`
	Description  []string `yaml:"description" json:"description"`
	Highlights   []string `yaml:"highlights" json:"-"`
	Icon         string   `yaml:"icon" json:"icon"`
}

// Label is the compact "Title | Company (Period)" form used by the terminal.
func (e Experience) Label() string {
	title := e.ShortTitle
	if title == "" {
		title = e.Title
	}
	company := e.ShortCompany
	if company == "" {
		company, _, _ = strings.Cut(e.Company, ",")
	}
	return title + " | " + strings.TrimSpace(company) + " (" + e.Period + ")"
}

type Certificate struct {
	ID     int    `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Issuer string `yaml:"issuer" json:"issuer"`
	Date   string `yaml:"date" json:"date"`
	Icon   string `yaml:"icon" json:"icon"`
}

type Project struct {
	ID          int      `yaml:"id" json:"id"`
	Title       string   `yaml:"title" json:"title"`
	Tagline     string   `yaml:"tagline" json:"tagline"`
	Description string   `yaml:"description" json:"description"`
	Details     string   `yaml:"details,omitempty" json:"details,omitempty"`
	Features    []string `yaml:"features,omitempty" json:"features,omitempty"`
	Tags        []string `yaml:"tags" json:"tags"`
	Icon        string   `yaml:"icon" json:"icon"`
	GithubURL   string   `yaml:"github_url,omitempty" json:"github_url,omitempty"`
	LiveURL     string   `yaml:"live_url,omitempty" json:"live_url,omitempty"`
}

// HasTag reports whether tag is one of the project's tags.
func (p Project) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

type Skill struct {
	Name  string `yaml:"name" json:"name"`
	Level int    `yaml:"level" json:"level"` // 1-5
}

// Percent is the width of the skill bar.
func (s Skill) Percent() int {
	return s.Level * 20
}

type SkillCategory struct {
	ID     int     `yaml:"id" json:"id"`
	Name   string  `yaml:"name" json:"name"`
	Icon   string  `yaml:"icon" json:"icon"`
	Skills []Skill `yaml:"skills" json:"skills"`
}

type Contact struct {
	Email    string `yaml:"email"`
	Github   string `yaml:"github"`
	LinkedIn string `yaml:"linkedin"`
	Calendly string `yaml:"calendly"`
	Pitch    string `yaml:"pitch"`
}

// TerminalText is the copy specific to the terminal widget.
type TerminalText struct {
	Welcome  string   `yaml:"welcome"`
	Greeting string   `yaml:"greeting"`
	Skills   []string `yaml:"skills"`
}

// Site is everything the portfolio renders.
type Site struct {
	Owner           Owner           `yaml:"owner"`
	Hero            Hero            `yaml:"hero"`
	About           string          `yaml:"about"`
	Experiences     []Experience    `yaml:"experiences"`
	Certificates    []Certificate   `yaml:"certificates"`
	Achievements    []string        `yaml:"achievements"`
	Projects        []Project       `yaml:"projects"`
	SkillCategories []SkillCategory `yaml:"skill_categories"`
	Contact         Contact         `yaml:"contact"`
	LookingFor      []string        `yaml:"looking_for"`
	Terminal        TerminalText    `yaml:"terminal"`
}

// Load parses site content from YAML.
func Load(r io.Reader) (site *Site, err error) {
	site = &Site{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err = dec.Decode(site); err != nil {
		return nil, errors.Wrap(err, "failed to parse site content")
	}
	if err = site.validate(); err != nil {
		return nil, err
	}
	return site, nil
}

// Default returns the content compiled into the binary.
func Default() (*Site, error) {
	return Load(strings.NewReader(string(defaultSite)))
}

func (s *Site) validate() error {
	if err := uniqueIDs("experience", len(s.Experiences), func(i int) int { return s.Experiences[i].ID }); err != nil {
		return err
	}
	if err := uniqueIDs("certificate", len(s.Certificates), func(i int) int { return s.Certificates[i].ID }); err != nil {
		return err
	}
	if err := uniqueIDs("project", len(s.Projects), func(i int) int { return s.Projects[i].ID }); err != nil {
		return err
	}
	return uniqueIDs("skill category", len(s.SkillCategories), func(i int) int { return s.SkillCategories[i].ID })
}

func uniqueIDs(kind string, n int, id func(int) int) error {
	seen := make(map[int]struct{}, n)
	for i := 0; i < n; i++ {
		if _, dup := seen[id(i)]; dup {
			return errors.Errorf("duplicate %s id %d", kind, id(i))
		}
		seen[id(i)] = struct{}{}
	}
	return nil
}
