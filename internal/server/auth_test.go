package server

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"needanalysis/internal"
	"needanalysis/internal/formstate"
	"needanalysis/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signIn installs a signing key in the env's key set and puts an encrypted
// access token for subject into the client's cookie jar.
// signIn stores a session cookie for subject and returns the raw access token.
func (e *testEnv) signIn(t *testing.T, subject string) string {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	key, err := jwk.Import(priv)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, "test-key"))
	require.NoError(t, key.Set(jwk.AlgorithmKey, jwa.RS256()))

	pub, err := jwk.PublicKeyOf(key)
	require.NoError(t, err)

	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))
	e.keys.set = set

	token, err := jwt.NewBuilder().
		Subject(subject).
		Claim("email", "advisor@example.com").
		Expiration(time.Now().Add(time.Hour)).
		Build()
	require.NoError(t, err)

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256(), key))
	require.NoError(t, err)

	encoded, err := e.svc.cookie.Encode(internal.COOKIE_ACCESS_TOKEN_NAME, string(signed))
	require.NoError(t, err)

	u, err := url.Parse(e.server.URL)
	require.NoError(t, err)

	e.client.Jar.SetCookies(u, []*http.Cookie{{
		Name:  internal.COOKIE_ACCESS_TOKEN_NAME,
		Value: encoded,
		Path:  "/",
	}})

	return string(signed)
}

func TestDashboardRequiresLogin(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.get(t, "/dashboard")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	var redirect *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == internal.COOKIE_REDIRECT_NAME {
			redirect = c
		}
	}
	require.NotNil(t, redirect)
	assert.Equal(t, "/dashboard", redirect.Value)
}

func TestDashboardRejectsTamperedCookie(t *testing.T) {
	env := newTestEnv(t)

	u, err := url.Parse(env.server.URL)
	require.NoError(t, err)
	env.client.Jar.SetCookies(u, []*http.Cookie{{Name: internal.COOKIE_ACCESS_TOKEN_NAME, Value: "garbage", Path: "/"}})

	resp, _ := env.get(t, "/dashboard")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestLoginSuccess(t *testing.T) {
	env := newTestEnv(t)
	env.cognito.auth = &cognitoidentityprovider.InitiateAuthOutput{
		AuthenticationResult: &ctypes.AuthenticationResultType{
			AccessToken: aws.String("token"),
			ExpiresIn:   3600,
		},
	}

	resp, _ := env.postForm(t, "/login", url.Values{"email": {"advisor@example.com"}, "password": {"secret"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	var access *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == internal.COOKIE_ACCESS_TOKEN_NAME {
			access = c
		}
	}
	require.NotNil(t, access)
	assert.True(t, access.HttpOnly)

	var decoded string
	require.NoError(t, env.svc.cookie.Decode(internal.COOKIE_ACCESS_TOKEN_NAME, access.Value, &decoded))
	assert.Equal(t, "token", decoded)
}

func TestLoginFollowsRedirectCookie(t *testing.T) {
	env := newTestEnv(t)
	env.cognito.auth = &cognitoidentityprovider.InitiateAuthOutput{
		AuthenticationResult: &ctypes.AuthenticationResultType{AccessToken: aws.String("token"), ExpiresIn: 3600},
	}

	resp, _ := env.get(t, "/dashboard")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = env.postForm(t, "/login", url.Values{"email": {"advisor@example.com"}, "password": {"secret"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func TestLoginFailure(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "bad password", err: &ctypes.NotAuthorizedException{Message: aws.String("nope")}, expected: "Invalid email or password."},
		{name: "unconfirmed", err: &ctypes.UserNotConfirmedException{Message: aws.String("confirm")}, expected: "Please confirm your account before logging in."},
		{name: "no result", expected: "Invalid email or password."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.cognito.authErr = tt.err
			env.cognito.auth = &cognitoidentityprovider.InitiateAuthOutput{}

			resp, body := env.postForm(t, "/login", url.Values{"email": {"advisor@example.com"}, "password": {"x"}})
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Contains(t, body, tt.expected)
			assert.Contains(t, body, `value="advisor@example.com"`)
		})
	}
}

func TestLogoutClearsCookies(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.postForm(t, "/logout", url.Values{})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	for _, c := range resp.Cookies() {
		assert.Equal(t, -1, c.MaxAge, c.Name)
	}
}

func TestDashboardListsLinksAndSubmissions(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, testUserID)

	env.activeLink("link1")
	env.links.add(types.FormLink{ID: "link2", UserID: testUserID, Status: types.LinkStatusActive, ExpiryDate: testNow.Add(-time.Hour)})
	env.links.add(types.FormLink{ID: "other", UserID: "someone-else", Status: types.LinkStatusActive, ExpiryDate: testNow.Add(time.Hour)})

	name := "Jane Doe"
	hlv := int64(600000)
	env.submissions.submissions = append(env.submissions.submissions, &types.FormSubmission{
		ID:             "sub1",
		LinkID:         "link1",
		UserID:         testUserID,
		CustomerName:   &name,
		HumanLifeValue: &hlv,
		SubmittedAt:    testNow,
	})

	resp, body := env.get(t, "/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Contains(t, body, "https://forms.example.com/form/link1/step1")
	assert.Contains(t, body, "https://forms.example.com/form/link2/step1")
	assert.NotContains(t, body, "/form/other/step1")
	assert.Contains(t, body, "badge-expired")
	assert.Contains(t, body, "Jane Doe")
	assert.Contains(t, body, "600,000")
}

func TestDashboardCreateAndRevokeLink(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, testUserID)

	resp, _ := env.postForm(t, "/dashboard/links", url.Values{"expiry_hours": {"24"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "notice=")

	link, err := env.links.Link(t.Context(), "generated")
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(24*time.Hour), link.ExpiryDate)
	assert.Equal(t, testUserID, link.UserID)

	resp, _ = env.postForm(t, "/dashboard/links", url.Values{"expiry_hours": {"9999"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "error=")

	resp, _ = env.postForm(t, "/dashboard/links/generated/revoke", url.Values{})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	link, err = env.links.Link(t.Context(), "generated")
	require.NoError(t, err)
	assert.Equal(t, types.LinkStatusExpired, link.Status)

	resp, _ = env.get(t, "/form/generated/step1")
	assert.Equal(t, "/form/invalid", resp.Header.Get("Location"))
}

func TestDashboardRevokeChecksOwnership(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, testUserID)
	env.links.add(types.FormLink{ID: "other", UserID: "someone-else", Status: types.LinkStatusActive, ExpiryDate: testNow.Add(time.Hour)})

	resp, _ := env.postForm(t, "/dashboard/links/other/revoke", url.Values{})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard?error=revoke-forbidden", resp.Header.Get("Location"))

	link, err := env.links.Link(t.Context(), "other")
	require.NoError(t, err)
	assert.Equal(t, types.LinkStatusActive, link.Status)

	resp, body := env.get(t, "/dashboard?error=revoke-forbidden")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "You do not have permission to revoke that link.")
}

func TestCookiePersisterRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/form/link1", nil)

	p := env.svc.formPersister(rec, req, "link1")

	_, err := p.Load()
	assert.True(t, errors.Is(err, formstate.ErrNoData))

	require.NoError(t, p.Save([]byte(`{"step1":{"fullName":"Jane"}}`)))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "/form/link1", cookies[0].Path)

	next := httptest.NewRequest(http.MethodGet, "/form/link1/step2", nil)
	next.AddCookie(cookies[0])

	data, err := env.svc.formPersister(httptest.NewRecorder(), next, "link1").Load()
	require.NoError(t, err)
	assert.JSONEq(t, `{"step1":{"fullName":"Jane"}}`, string(data))

	bad := httptest.NewRequest(http.MethodGet, "/form/link1", nil)
	bad.AddCookie(&http.Cookie{Name: internal.COOKIE_FORM_DATA_NAME, Value: "tampered"})

	_, err = env.svc.formPersister(httptest.NewRecorder(), bad, "link1").Load()
	assert.Error(t, err)
	assert.False(t, errors.Is(err, formstate.ErrNoData))
}
