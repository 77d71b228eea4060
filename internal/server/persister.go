package server

import (
	"errors"
	"fmt"
	"net/http"

	"needanalysis/internal"
	"needanalysis/internal/formstate"

	"github.com/gorilla/securecookie"
)

const formCookieMaxAge = 60 * 60 * 24 * 30

// cookiePersister keeps the serialized FormRecord in an encrypted cookie
// scoped to one link's wizard pages.
type cookiePersister struct {
	w      http.ResponseWriter
	r      *http.Request
	codec  *securecookie.SecureCookie
	path   string
	secure bool
}

func (s *Service) formPersister(w http.ResponseWriter, r *http.Request, linkID string) *cookiePersister {
	return &cookiePersister{
		w:      w,
		r:      r,
		codec:  s.cookie,
		path:   "/form/" + linkID,
		secure: s.config.CookieSecure,
	}
}

func (p *cookiePersister) Load() ([]byte, error) {
	cookie, err := p.r.Cookie(internal.COOKIE_FORM_DATA_NAME)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, formstate.ErrNoData
		}
		return nil, err
	}

	var value string
	if err := p.codec.Decode(internal.COOKIE_FORM_DATA_NAME, cookie.Value, &value); err != nil {
		return nil, fmt.Errorf("failed to decode form cookie: %w", err)
	}

	return []byte(value), nil
}

func (p *cookiePersister) Save(data []byte) error {
	encoded, err := p.codec.Encode(internal.COOKIE_FORM_DATA_NAME, string(data))
	if err != nil {
		return fmt.Errorf("failed to encode form cookie: %w", err)
	}

	http.SetCookie(p.w, p.cookie(encoded, formCookieMaxAge))
	return nil
}

func (p *cookiePersister) Clear() error {
	http.SetCookie(p.w, p.cookie("", -1))
	return nil
}

func (p *cookiePersister) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     internal.COOKIE_FORM_DATA_NAME,
		Value:    value,
		Path:     p.path,
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}
