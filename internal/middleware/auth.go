package middleware

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ayush/feedback-app/internal/auth"
	"github.com/ayush/feedback-app/internal/web"
)

const loginPath = "/login"

// LoadSession resolves the session cookie and injects the typed session into
// the request context. Requests without a valid cookie carry an anonymous
// session.
func LoadSession(sessions *auth.Sessions, log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := sessions.Load(r)
			if err != nil {
				log.WithError(err).Error("load session")
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), s)))
		})
	}
}

// RequireLogin redirects anonymous requests to the login page.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.CurrentSession(r).LoggedIn() {
			http.Redirect(w, r, loginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser only lets a request through when the session is logged in as
// the {username} path parameter.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.CurrentSession(r).Is(web.PathUsername(r)) {
			http.Redirect(w, r, loginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
