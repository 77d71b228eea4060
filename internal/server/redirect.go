package server

import (
	"net/http"
	"net/url"
)

// flashKey names a message carried across a redirect. Only the key travels in
// the query string so a crafted link cannot put its own text on a page.
type flashKey string

const (
	flashSubmitted       flashKey = "submitted"
	flashExportFailed    flashKey = "export-failed"
	flashLinkCreated     flashKey = "link-created"
	flashLinkRevoked     flashKey = "link-revoked"
	flashLinkMissing     flashKey = "link-missing"
	flashRevokeForbidden flashKey = "revoke-forbidden"
	flashExpiryFormat    flashKey = "expiry-format"
	flashExpiryRange     flashKey = "expiry-range"
	flashLinkFailed      flashKey = "link-failed"
)

var flashMessages = map[flashKey]string{
	flashSubmitted:       msgSubmitted,
	flashExportFailed:    msgExportFailed,
	flashLinkCreated:     "Link created. Copy it from the list below and send it to your customer.",
	flashLinkRevoked:     "Link revoked.",
	flashLinkMissing:     "That link no longer exists.",
	flashRevokeForbidden: "You do not have permission to revoke that link.",
	flashExpiryFormat:    "Expiry must be a whole number of hours.",
	flashExpiryRange:     "Expiry must be between 1 and 2160 hours.",
	flashLinkFailed:      "Could not create a link. Please try again.",
}

// flash resolves the notice and error keys of the request. Unknown keys
// resolve to nothing.
func flash(r *http.Request) (notice, errMsg string) {
	q := r.URL.Query()
	return flashMessages[flashKey(q.Get("notice"))], flashMessages[flashKey(q.Get("error"))]
}

func (s *Service) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Service) redirectWithNotice(w http.ResponseWriter, r *http.Request, path string, key flashKey) {
	v := url.Values{}
	v.Set("notice", string(key))
	http.Redirect(w, r, path+"?"+v.Encode(), http.StatusSeeOther)
}

func (s *Service) redirectWithError(w http.ResponseWriter, r *http.Request, path string, key flashKey) {
	v := url.Values{}
	v.Set("error", string(key))
	http.Redirect(w, r, path+"?"+v.Encode(), http.StatusSeeOther)
}
