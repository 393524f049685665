package terminal

import (
	"strings"

	"github.com/mridungeorge/portfolio/internal/content"
)

// Recognised command names.
const (
	CmdHelp       = "help"
	CmdWhoami     = "whoami"
	CmdSkills     = "skills"
	CmdExperience = "experience"
	CmdProjects   = "projects"
	CmdContact    = "contact"
	CmdClear      = "clear"
)

// NotFound is the output for any unrecognised input.
const NotFound = "Command not found. Type 'help' for available commands."

// Line is one rendered row of terminal output. Accent is highlighted text
// shown before Text; Href turns Text into a link.
type Line struct {
	Text   string `json:"text,omitempty"`
	Accent string `json:"accent,omitempty"`
	Href   string `json:"href,omitempty"`
	Indent int    `json:"indent,omitempty"`
	Bold   bool   `json:"bold,omitempty"`
}

type Output struct {
	Lines []Line `json:"lines"`
}

func text(s string) Output {
	return Output{Lines: []Line{{Text: s}}}
}

// String flattens the output to plain text.
func (o Output) String() string {
	var b strings.Builder
	for i, l := range o.Lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.Repeat("  ", l.Indent))
		switch {
		case l.Accent != "" && l.Text != "":
			b.WriteString(l.Accent + " " + l.Text)
		case l.Accent != "":
			b.WriteString(l.Accent)
		default:
			b.WriteString(l.Text)
		}
	}
	return b.String()
}

var descriptions = []struct{ name, desc string }{
	{CmdWhoami, "Display basic information"},
	{CmdSkills, "List technical skills"},
	{CmdExperience, "Show work history"},
	{CmdProjects, "View key projects"},
	{CmdContact, "Contact information"},
	{CmdClear, "Clear terminal history"},
}

// Commands maps a command name to its fixed output.
type Commands map[string]Output

// Names lists the commands in help order.
func (c Commands) Names() []string {
	names := []string{CmdHelp}
	for _, d := range descriptions {
		names = append(names, d.name)
	}
	return names
}

// NewCommands builds the command table from site content. clear has no
// output; it is handled by History.
func NewCommands(site *content.Site) Commands {
	return Commands{
		CmdHelp:       helpOutput(),
		CmdWhoami:     text(site.Owner.Name + " - " + site.Owner.Summary),
		CmdSkills:     skillsOutput(site),
		CmdExperience: experienceOutput(site),
		CmdProjects:   projectsOutput(site),
		CmdContact:    contactOutput(site),
		CmdClear:      {},
	}
}

// GreetingEntry is the whoami line a fresh history starts with.
func GreetingEntry(site *content.Site) Entry {
	return Entry{Command: CmdWhoami, Output: text(site.Terminal.Greeting)}
}

func helpOutput() Output {
	out := Output{Lines: []Line{{Text: "Available commands:"}}}
	for _, d := range descriptions {
		out.Lines = append(out.Lines, Line{Accent: d.name, Text: "- " + d.desc, Indent: 1})
	}
	return out
}

func skillsOutput(site *content.Site) Output {
	out := Output{Lines: []Line{{Text: "Technical Skills:"}}}
	for _, s := range site.Terminal.Skills {
		out.Lines = append(out.Lines, Line{Accent: "▶", Text: s, Indent: 1})
	}
	return out
}

func experienceOutput(site *content.Site) Output {
	out := Output{Lines: []Line{{Text: "Work Experience:", Bold: true}}}
	for _, e := range site.Experiences {
		out.Lines = append(out.Lines, Line{Accent: e.Label()})
		for _, h := range e.Highlights {
			out.Lines = append(out.Lines, Line{Text: "• " + h, Indent: 2})
		}
	}
	return out
}

func projectsOutput(site *content.Site) Output {
	out := Output{Lines: []Line{{Text: "Key Projects:", Bold: true}}}
	for _, p := range site.Projects {
		out.Lines = append(out.Lines,
			Line{Accent: p.Title},
			Line{Text: p.Tagline, Indent: 2},
		)
	}
	return out
}

func contactOutput(site *content.Site) Output {
	c := site.Contact
	return Output{Lines: []Line{
		{Text: "Contact Information:", Bold: true},
		{Accent: "Email:", Text: c.Email, Href: "mailto:" + c.Email, Indent: 1},
		{Accent: "LinkedIn:", Text: displayURL(c.LinkedIn), Href: c.LinkedIn, Indent: 1},
		{Accent: "GitHub:", Text: displayURL(c.Github), Href: c.Github, Indent: 1},
	}}
}

func displayURL(u string) string {
	u = strings.TrimPrefix(u, "https://")
	return strings.TrimPrefix(u, "http://")
}
