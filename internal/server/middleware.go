package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"needanalysis/internal"
	"needanalysis/pkg/types"

	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/sirupsen/logrus"
)

// Context key types to avoid collisions
type contextKey string

const (
	contextKeyUserID   contextKey = "user_id"
	contextKeyEmail    contextKey = "email"
	contextKeyFormLink contextKey = "form_link"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Service) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("http request")
	})
}

var errNoSession = errors.New("no advisor session")

type advisorIdentity struct {
	UserID string
	Email  string
}

// authenticate verifies the advisor's access token. API clients may send it as
// a bearer token; browsers carry it in the encrypted session cookie.
func (s *Service) authenticate(w http.ResponseWriter, r *http.Request) (advisorIdentity, error) {
	var accessToken string

	if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && bearer != "" {
		accessToken = bearer
	} else {
		cookie, err := r.Cookie(internal.COOKIE_ACCESS_TOKEN_NAME)
		if err != nil {
			return advisorIdentity{}, errNoSession
		}

		err = s.cookie.Decode(internal.COOKIE_ACCESS_TOKEN_NAME, cookie.Value, &accessToken)
		if err != nil {
			s.clearAccessTokenCookie(w)
			return advisorIdentity{}, fmt.Errorf("failed to decrypt access token: %w", err)
		}
	}

	set, err := s.jwksCache.Lookup(r.Context(), s.jwksURL)
	if err != nil {
		return advisorIdentity{}, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	token, err := jwt.Parse(
		[]byte(accessToken),
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
	)
	if err != nil {
		s.clearAccessTokenCookie(w)
		return advisorIdentity{}, fmt.Errorf("access token rejected: %w", err)
	}

	userID, ok := token.Subject()
	if !ok || userID == "" {
		return advisorIdentity{}, errors.New("no user ID in JWT subject claim")
	}

	id := advisorIdentity{UserID: userID}

	// Cognito access tokens carry username rather than email.
	if err := token.Get("email", &id.Email); err != nil {
		_ = token.Get("username", &id.Email)
	}

	return id, nil
}

func withAdvisor(r *http.Request, id advisorIdentity) *http.Request {
	ctx := context.WithValue(r.Context(), contextKeyUserID, id.UserID)
	if id.Email != "" {
		ctx = context.WithValue(ctx, contextKeyEmail, id.Email)
	}
	return r.WithContext(ctx)
}

// RequireAuth middleware checks for valid access token and adds user to context
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.authenticate(w, r)
		if err != nil {
			if errors.Is(err, errNoSession) {
				s.logger.Debug("no access token cookie found")
				s.setRedirectCookie(w, r.URL.Path, time.Minute*5)
			} else {
				s.logger.WithError(err).Info("advisor session rejected")
			}

			s.redirectToLogin(w, r)
			return
		}

		s.logger.WithFields(logrus.Fields{
			"user_id": id.UserID,
			"email":   id.Email,
		}).Debug("authenticated user")

		next.ServeHTTP(w, withAdvisor(r, id))
	})
}

// RequireAPIAuth is RequireAuth for JSON endpoints: it answers 401 instead of
// redirecting to the login page.
func (s *Service) RequireAPIAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.authenticate(w, r)
		if err != nil {
			if !errors.Is(err, errNoSession) {
				s.logger.WithError(err).Info("api credentials rejected")
			}

			writeJSON(w, http.StatusUnauthorized, apiResponse{Error: "authentication required"})
			return
		}

		next.ServeHTTP(w, withAdvisor(r, id))
	})
}

// RequireFormLink resolves :linkID and sends unusable links to the matching
// terminal page.
func (s *Service) RequireFormLink(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		linkID := r.PathValue("linkID")

		link, err := s.resolveLink(r.Context(), linkID)
		if err != nil {
			switch {
			case errors.Is(err, types.ErrLinkExpired):
				http.Redirect(w, r, "/form/expired", http.StatusSeeOther)
			case errors.Is(err, types.ErrLinkNotFound):
				http.Redirect(w, r, "/form/invalid", http.StatusSeeOther)
			default:
				s.logger.WithError(err).WithField("link_id", linkID).Error("failed to resolve form link")
				s.internalServerError(w)
			}
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyFormLink, link)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Only strip if path is not root and has trailing slash
		if path != "/" && strings.HasSuffix(path, "/") {
			newURL := *r.URL
			newURL.Path = strings.TrimSuffix(path, "/")

			http.Redirect(w, r, newURL.String(), http.StatusMovedPermanently)
			return
		}

		next.ServeHTTP(w, r)
	})
}
