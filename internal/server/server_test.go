package server

import (
	"context"
	"encoding/base64"
	"errors"
	"maps"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"needanalysis/pkg/types"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/gorilla/securecookie"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

const testUserID = "8f14e45f-ceea-467f-a9f5-5b1a2c3d4e5f"

var testNow = time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC)

type fakeLinks struct {
	mu    sync.Mutex
	links map[string]*types.FormLink
}

func (f *fakeLinks) Link(ctx context.Context, id string) (*types.FormLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	link, ok := f.links[id]
	if !ok {
		return nil, types.ErrLinkNotFound
	}
	c := *link
	return &c, nil
}

func (f *fakeLinks) LinksByUser(ctx context.Context, userID string) ([]*types.FormLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*types.FormLink
	for _, l := range f.links {
		if l.UserID == userID {
			c := *l
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeLinks) CreateLink(ctx context.Context, link *types.FormLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if link.ID == "" {
		link.ID = "generated"
	}
	c := *link
	f.links[link.ID] = &c
	return nil
}

func (f *fakeLinks) UpdateLinkStatus(ctx context.Context, id string, status types.LinkStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	link, ok := f.links[id]
	if !ok {
		return types.ErrLinkNotFound
	}
	link.Status = status
	return nil
}

func (f *fakeLinks) add(link types.FormLink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links[link.ID] = &link
}

type fakeForms struct {
	mu    sync.Mutex
	forms map[string]*types.NeedAnalysisForm
	err   error

	// createGate, when set, holds CreateForm until it is closed.
	createGate chan struct{}
}

func (f *fakeForms) FormByLinkID(ctx context.Context, linkID string) (*types.NeedAnalysisForm, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	form, ok := f.forms[linkID]
	if !ok {
		return nil, types.ErrFormNotFound
	}
	c := *form
	return &c, nil
}

func (f *fakeForms) CreateForm(ctx context.Context, form *types.NeedAnalysisForm) error {
	if f.createGate != nil {
		<-f.createGate
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	form.ID = "form-" + form.LinkID
	form.Status = types.FormStatusInProgress
	c := *form
	f.forms[form.LinkID] = &c
	return nil
}

func (f *fakeForms) UpdatePersonalDetails(ctx context.Context, linkID string, cols types.PersonalColumns) error {
	return f.update(linkID, func(form *types.NeedAnalysisForm) { form.PersonalColumns = cols })
}

func (f *fakeForms) UpdateNeeds(ctx context.Context, linkID string, cols types.NeedsColumns) error {
	return f.update(linkID, func(form *types.NeedAnalysisForm) { form.NeedsColumns = cols })
}

func (f *fakeForms) UpdateCalculation(ctx context.Context, linkID string, cols types.CalculationColumns) error {
	return f.update(linkID, func(form *types.NeedAnalysisForm) { form.CalculationColumns = cols })
}

func (f *fakeForms) update(linkID string, fn func(*types.NeedAnalysisForm)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	form, ok := f.forms[linkID]
	if !ok {
		return types.ErrFormNotFound
	}
	fn(form)
	return nil
}

func (f *fakeForms) get(linkID string) *types.NeedAnalysisForm {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forms[linkID]
}

type fakeSubmissions struct {
	mu          sync.Mutex
	submissions []*types.FormSubmission
	err         error
}

func (f *fakeSubmissions) CreateSubmission(ctx context.Context, submission *types.FormSubmission) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	submission.ID = "sub-" + submission.LinkID
	submission.SubmittedAt = testNow
	f.submissions = append(f.submissions, submission)
	return nil
}

func (f *fakeSubmissions) SubmissionsByUser(ctx context.Context, userID string) ([]*types.FormSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*types.FormSubmission
	for _, s := range f.submissions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubmissions) LatestSubmissionByLink(ctx context.Context, linkID string) (*types.FormSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := len(f.submissions) - 1; i >= 0; i-- {
		if f.submissions[i].LinkID == linkID {
			return f.submissions[i], nil
		}
	}
	return nil, types.ErrSubmissionNotFound
}

type fakeObjects struct {
	mu      sync.Mutex
	uploads map[string][]byte
	err     error
}

func (f *fakeObjects) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}
	f.uploads[key] = body
	return "https://files.example.com/" + key, nil
}

func (f *fakeObjects) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.uploads, key)
	return nil
}

func (f *fakeObjects) stored() map[string][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.uploads)
}

type fakeCognito struct {
	auth    *cognitoidentityprovider.InitiateAuthOutput
	authErr error
}

func (f *fakeCognito) InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error) {
	return f.auth, f.authErr
}

func (f *fakeCognito) SignUp(ctx context.Context, params *cognitoidentityprovider.SignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error) {
	return &cognitoidentityprovider.SignUpOutput{}, nil
}

func (f *fakeCognito) ConfirmSignUp(ctx context.Context, params *cognitoidentityprovider.ConfirmSignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error) {
	return &cognitoidentityprovider.ConfirmSignUpOutput{}, nil
}

type staticKeySet struct {
	set jwk.Set
}

func (k staticKeySet) Lookup(ctx context.Context, u string) (jwk.Set, error) {
	if k.set == nil {
		return nil, errors.New("no key set")
	}
	return k.set, nil
}

type testEnv struct {
	svc         *Service
	server      *httptest.Server
	client      *http.Client
	links       *fakeLinks
	forms       *fakeForms
	submissions *fakeSubmissions
	objects     *fakeObjects
	cognito     *fakeCognito
	keys        *staticKeySet
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger, _ := test.NewNullLogger()

	config := &types.Config{
		BaseURL:         "https://forms.example.com",
		LinkExpiryHours: 336,
		CookieHashKey:   base64.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(32)),
		CookieBlockKey:  base64.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(32)),
		CookieSecure:    false,
	}

	env := &testEnv{
		links:       &fakeLinks{links: map[string]*types.FormLink{}},
		forms:       &fakeForms{forms: map[string]*types.NeedAnalysisForm{}},
		submissions: &fakeSubmissions{},
		objects:     &fakeObjects{uploads: map[string][]byte{}},
		cognito:     &fakeCognito{},
		keys:        &staticKeySet{},
	}

	svc, err := New(config, logger, env.cognito, env.objects, env.links, env.forms, env.submissions, env.keys, "https://issuer.example.com/.well-known/jwks.json")
	require.NoError(t, err)
	svc.now = func() time.Time { return testNow }
	env.svc = svc

	env.server = httptest.NewServer(svc.Handler())
	t.Cleanup(env.server.Close)

	env.client = newClient(t)

	return env
}

func newClient(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (e *testEnv) activeLink(id string) {
	e.links.add(types.FormLink{
		ID:         id,
		UserID:     testUserID,
		Status:     types.LinkStatusActive,
		ExpiryDate: testNow.Add(24 * time.Hour),
		CreatedAt:  testNow.Add(-time.Hour),
	})
}

// waitForSync blocks until every background remote save has finished.
func (e *testEnv) waitForSync() {
	e.svc.syncs.Wait()
}
