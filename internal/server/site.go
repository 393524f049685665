package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/mridungeorge/portfolio/internal/contact"
	"github.com/mridungeorge/portfolio/internal/content"
	"github.com/mridungeorge/portfolio/internal/store"
	"github.com/mridungeorge/portfolio/internal/terminal"
)

// Toast is a transient notice rendered above a form.
type Toast struct {
	Title       string
	Description string
	Variant     string
}

const variantDestructive = "destructive"

var (
	toastSent = &Toast{
		Title:       "Message sent!",
		Description: "Thank you for reaching out. I'll get back to you soon.",
	}
	toastInvalid = &Toast{
		Title:       "Please check the form",
		Description: "Name, a valid email and a message are all required.",
		Variant:     variantDestructive,
	}
)

func failedToast(err error) *Toast {
	return &Toast{Title: "Failed to send message", Description: err.Error(), Variant: variantDestructive}
}

type projectCard struct {
	content.Project
	Features []string
}

type projectsView struct {
	Tags   []string
	Active string
	Cards  []projectCard
}

type terminalView struct {
	Welcome string
	Entries []terminal.Entry
}

type contactView struct {
	Form  contact.Form
	Toast *Toast
}

func (s *Server) projectsView(tag string) projectsView {
	site := s.opts.Site
	if tag == "" {
		tag = content.AllTags
	}
	v := projectsView{Tags: content.ProjectTags(site.Projects), Active: tag}
	for _, p := range content.FilterProjects(site.Projects, tag) {
		v.Cards = append(v.Cards, projectCard{Project: p, Features: site.ProjectFeatures(p.Title)})
	}
	return v
}

func (s *Server) terminalView(entries []terminal.Entry) terminalView {
	return terminalView{Welcome: s.opts.Site.Terminal.Welcome, Entries: entries}
}

func (s *Server) index(c *gin.Context) {
	// A page load is a fresh mount: sections start hidden and the terminal
	// shows only the greeting.
	s.reveal.Reset(s.visitorID(c))

	termID, _ := c.Cookie(terminalCookie)
	termID, entries := s.terminal.Reset(termID)
	s.setCookie(c, terminalCookie, termID, terminalMaxAge)

	c.HTML(http.StatusOK, "index.html", gin.H{
		"Site":     s.opts.Site,
		"Projects": s.projectsView(""),
		"Terminal": s.terminalView(entries),
		"Contact":  contactView{},
		"SignedIn": s.currentUser(c) != nil,
	})
}

// projects returns the project grid filtered by ?tag=.
func (s *Server) projects(c *gin.Context) {
	c.HTML(http.StatusOK, "projects.html", s.projectsView(c.Query("tag")))
}

func (s *Server) runCommand(c *gin.Context) {
	termID, _ := c.Cookie(terminalCookie)
	run := s.terminal.Execute(termID, c.PostForm("command"))
	s.setCookie(c, terminalCookie, run.ID, terminalMaxAge)

	ctx := c.Request.Context()
	switch run.Result {
	case terminal.Appended, terminal.Cleared:
		// Unknown input is never stored.
		if err := s.opts.Store.RecordCommand(ctx, run.Entry.Command, s.now()); err != nil {
			s.logger.Warn("failed to record terminal command", slog.Any("error", err))
		}
	}
	if run.Count == 1 && (run.Result == terminal.Appended || run.Result == terminal.Unknown) {
		s.record(ctx, store.InteractionTerminal)
	}

	c.HTML(http.StatusOK, "terminal.html", s.terminalView(run.Entries))
}

// submitContact always answers with the form fragment so the page can swap
// it in place: cleared on success, values kept on failure.
func (s *Server) submitContact(c *gin.Context) {
	var form contact.Form
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusOK, "contact.html", contactView{Form: form, Toast: toastInvalid})
		return
	}

	ctx := c.Request.Context()
	if _, err := s.opts.Contact.Submit(ctx, form); err != nil {
		toast := failedToast(err)
		if errors.Is(err, contact.ErrIncomplete) {
			toast = toastInvalid
		}
		s.logger.Error("contact submission failed", slog.Any("error", err))
		c.HTML(http.StatusOK, "contact.html", contactView{Form: form, Toast: toast})
		return
	}

	s.record(ctx, store.InteractionContact)
	c.HTML(http.StatusOK, "contact.html", contactView{Toast: toastSent})
}

func (s *Server) revealSection(c *gin.Context) {
	section := c.Param("section")
	first, ok := s.reveal.Trigger(s.visitorID(c), section)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown section"})
		return
	}
	if first {
		s.record(c.Request.Context(), store.SectionView(section))
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) resume(c *gin.Context) {
	switch {
	case s.opts.ResumePath != "":
		if _, err := os.Stat(s.opts.ResumePath); err != nil {
			s.logger.Error("resume file unavailable", slog.String("path", s.opts.ResumePath), slog.Any("error", err))
			c.String(http.StatusNotFound, "Resume not available")
			return
		}
		s.record(c.Request.Context(), store.InteractionResume)
		c.FileAttachment(s.opts.ResumePath, filepath.Base(s.opts.ResumePath))
	case s.opts.ResumeURL != "":
		s.record(c.Request.Context(), store.InteractionResume)
		c.Redirect(http.StatusFound, s.opts.ResumeURL)
	default:
		c.String(http.StatusNotFound, "Resume not available")
	}
}

func (s *Server) privacy(c *gin.Context) {
	c.HTML(http.StatusOK, "privacy.html", gin.H{
		"Retention": retentionText(s.opts.Retention),
	})
}

func retentionText(d time.Duration) string {
	days := int(d.Hours() / 24)
	if months := days / 30; months >= 1 {
		if months == 1 {
			return "1 month"
		}
		return fmt.Sprintf("%d months", months)
	}
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
