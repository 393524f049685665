package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/mridungeorge/portfolio/internal/auth"
	"github.com/mridungeorge/portfolio/internal/store"
)

const (
	modeSignIn = "signin"
	modeSignUp = "signup"
	userKey    = "user"
)

// currentUser resolves the session cookie, caching the result on the context.
func (s *Server) currentUser(c *gin.Context) *store.User {
	if v, ok := c.Get(userKey); ok {
		u, _ := v.(*store.User)
		return u
	}
	var user *store.User
	if token, err := c.Cookie(sessionCookie); err == nil {
		user, err = s.opts.Auth.UserForToken(c.Request.Context(), token)
		if err != nil && !errors.Is(err, auth.ErrNoSession) {
			s.logger.Error("failed to resolve session", slog.Any("error", err))
		}
	}
	c.Set(userKey, user)
	return user
}

// requireUser sends anonymous visitors to the sign-in page. JSON endpoints
// get a 401 instead.
func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.currentUser(c) != nil {
			c.Next()
			return
		}
		if strings.HasPrefix(c.Request.URL.Path, "/dashboard/api/") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
			return
		}
		c.Redirect(http.StatusFound, "/auth")
		c.Abort()
	}
}

func (s *Server) mode(raw string) string {
	if raw == modeSignUp && s.opts.Auth.SignUpAllowed() {
		return modeSignUp
	}
	return modeSignIn
}

func (s *Server) authPage(c *gin.Context) {
	if s.currentUser(c) != nil {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	c.HTML(http.StatusOK, "auth.html", gin.H{
		"Mode":          s.mode(c.Query("mode")),
		"SignUpAllowed": s.opts.Auth.SignUpAllowed(),
	})
}

func (s *Server) authSubmit(c *gin.Context) {
	ctx := c.Request.Context()
	mode := s.mode(c.PostForm("mode"))
	email := c.PostForm("email")
	password := c.PostForm("password")
	meta := auth.Metadata{
		Username: strings.TrimSpace(c.PostForm("username")),
		FullName: strings.TrimSpace(c.PostForm("full_name")),
	}

	fail := func(err error) {
		status := http.StatusUnauthorized
		if mode == modeSignUp {
			status = http.StatusBadRequest
		}
		s.logger.Info("authentication failed", slog.String("mode", mode), slog.Any("error", err))
		c.HTML(status, "auth.html", gin.H{
			"Mode":          mode,
			"SignUpAllowed": s.opts.Auth.SignUpAllowed(),
			"Email":         email,
			"Username":      meta.Username,
			"FullName":      meta.FullName,
			"Toast":         &Toast{Title: "Error", Description: auth.Message(err), Variant: variantDestructive},
		})
	}

	if mode == modeSignUp {
		if _, err := s.opts.Auth.SignUp(ctx, email, password, meta); err != nil {
			fail(err)
			return
		}
	}

	sess, err := s.opts.Auth.SignIn(ctx, email, password)
	if err != nil {
		fail(err)
		return
	}
	s.setCookie(c, sessionCookie, sess.Token, int(time.Until(sess.ExpiresAt).Seconds()))
	c.Redirect(http.StatusFound, "/dashboard")
}

func (s *Server) signOut(c *gin.Context) {
	if token, err := c.Cookie(sessionCookie); err == nil {
		if err := s.opts.Auth.SignOut(c.Request.Context(), token); err != nil {
			s.logger.Error("failed to sign out", slog.Any("error", err))
		}
	}
	s.setCookie(c, sessionCookie, "", -1)
	c.Redirect(http.StatusFound, "/")
}
