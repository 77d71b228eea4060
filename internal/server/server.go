package server

import (
	"context"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"needanalysis/internal/pdf"
	"needanalysis/internal/storage"
	"needanalysis/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/go-playground/form/v4"
	"github.com/gorilla/securecookie"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/sirupsen/logrus"
)

//go:embed templates static
var uiFS embed.FS
var decoder = form.NewDecoder()

type LinkRepository interface {
	Link(ctx context.Context, id string) (*types.FormLink, error)
	LinksByUser(ctx context.Context, userID string) ([]*types.FormLink, error)
	CreateLink(ctx context.Context, link *types.FormLink) error
	UpdateLinkStatus(ctx context.Context, id string, status types.LinkStatus) error
}

type FormRepository interface {
	FormByLinkID(ctx context.Context, linkID string) (*types.NeedAnalysisForm, error)
	CreateForm(ctx context.Context, form *types.NeedAnalysisForm) error
	UpdatePersonalDetails(ctx context.Context, linkID string, cols types.PersonalColumns) error
	UpdateNeeds(ctx context.Context, linkID string, cols types.NeedsColumns) error
	UpdateCalculation(ctx context.Context, linkID string, cols types.CalculationColumns) error
}

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, submission *types.FormSubmission) error
	SubmissionsByUser(ctx context.Context, userID string) ([]*types.FormSubmission, error)
	LatestSubmissionByLink(ctx context.Context, linkID string) (*types.FormSubmission, error)
}

type CognitoClient interface {
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
	SignUp(ctx context.Context, params *cognitoidentityprovider.SignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cognitoidentityprovider.ConfirmSignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error)
}

// KeySetLookup resolves the JWKS used to verify advisor access tokens.
// *jwk.Cache satisfies it.
type KeySetLookup interface {
	Lookup(ctx context.Context, u string) (jwk.Set, error)
}

type Service struct {
	logger    *logrus.Logger
	config    *types.Config
	templates *template.Template

	linkRepo       LinkRepository
	formRepo       FormRepository
	submissionRepo SubmissionRepository
	objects        storage.ObjectStore

	cognitoClient CognitoClient
	cookie        *securecookie.SecureCookie

	jwksCache KeySetLookup
	jwksURL   string

	now   func() time.Time
	syncs sync.WaitGroup

	// syncTails holds, per link, the done channel of the most recently
	// queued sync.
	syncMu    sync.Mutex
	syncTails map[string]chan struct{}

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	cognitoClient CognitoClient,
	objects storage.ObjectStore,
	linkRepo LinkRepository,
	formRepo FormRepository,
	submissionRepo SubmissionRepository,
	jwkCache KeySetLookup,
	jwksURL string,
) (*Service, error) {
	mux := flow.New()

	hashKey, err := base64.StdEncoding.DecodeString(config.CookieHashKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cookie hash key: %w", err)
	}
	blockKey, err := base64.StdEncoding.DecodeString(config.CookieBlockKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cookie block key: %w", err)
	}

	s := &Service{
		logger:        logger,
		config:        config,
		cognitoClient: cognitoClient,
		cookie:        securecookie.New(hashKey, blockKey),
		objects:       objects,

		linkRepo:       linkRepo,
		formRepo:       formRepo,
		submissionRepo: submissionRepo,

		jwksCache: jwkCache,
		jwksURL:   jwksURL,
		now:       time.Now,
		syncTails: make(map[string]chan struct{}),
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	s.templates = templates

	s.buildRouter(mux)

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

// Stop drains HTTP traffic and then waits for in-flight remote syncs.
func (s *Service) Stop(ctx context.Context) error {
	err := s.server.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.syncs.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("shutdown deadline reached with remote syncs still running")
	}

	return err
}

// Handler exposes the router for tests.
func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/", s.handleHome, http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)

	r.HandleFunc("/register", s.handleGetRegister, http.MethodGet)
	r.HandleFunc("/register", s.handlePostRegister, http.MethodPost)
	r.HandleFunc("/register/confirm", s.handleGetRegisterConfirm, http.MethodGet)
	r.HandleFunc("/register/confirm", s.handlePostRegisterConfirm, http.MethodPost)
	r.HandleFunc("/login", s.handleGetLogin, http.MethodGet)
	r.HandleFunc("/login", s.handlePostLogin, http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout, http.MethodGet, http.MethodPost)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/dashboard", s.handleGetDashboard, http.MethodGet)
		r.HandleFunc("/dashboard/links", s.handlePostDashboardLink, http.MethodPost)
		r.HandleFunc("/dashboard/links/:linkID/revoke", s.handlePostDashboardRevokeLink, http.MethodPost)
	})

	// Terminal pages are registered ahead of the :linkID routes.
	r.HandleFunc("/form/expired", s.handleFormExpired, http.MethodGet)
	r.HandleFunc("/form/invalid", s.handleFormInvalid, http.MethodGet)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireFormLink)

		r.HandleFunc("/form/:linkID", s.handleGetFormStart, http.MethodGet)
		r.HandleFunc("/form/:linkID/step1", s.handleGetStep1, http.MethodGet)
		r.HandleFunc("/form/:linkID/step1", s.handlePostStep1, http.MethodPost)
		r.HandleFunc("/form/:linkID/step2", s.handleGetStep2, http.MethodGet)
		r.HandleFunc("/form/:linkID/step2", s.handlePostStep2, http.MethodPost)
		r.HandleFunc("/form/:linkID/step3", s.handleGetStep3, http.MethodGet)
		r.HandleFunc("/form/:linkID/step3", s.handlePostStep3, http.MethodPost)
		r.HandleFunc("/form/:linkID/step4", s.handleGetStep4, http.MethodGet)
		r.HandleFunc("/form/:linkID/step4", s.handlePostStep4, http.MethodPost)
		r.HandleFunc("/form/:linkID/pdf", s.handleGetFormPDF, http.MethodGet)
		r.HandleFunc("/form/:linkID/restart", s.handlePostRestart, http.MethodPost)
	})

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAPIAuth)

		r.HandleFunc("/api/form-link", s.handleAPICreateLink, http.MethodPost)
	})

	r.HandleFunc("/api/form/:linkID", s.handleAPIGetForm, http.MethodGet)
	r.HandleFunc("/api/form/:linkID", s.handleAPISaveStep, http.MethodPost)
	r.HandleFunc("/api/form-submission", s.handleAPICreateSubmission, http.MethodPost)
	r.HandleFunc("/api/calculate", s.handleAPICalculate, http.MethodPost)

	staticRoot, err := fs.Sub(uiFS, "static")
	if err != nil {
		s.logger.WithError(err).Fatal("failed to mount static assets")
	}
	r.Handle("/static/...", http.StripPrefix("/static/", http.FileServer(http.FS(staticRoot))), http.MethodGet)
}

func loadTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"derefOr": func(s *string, defaultVal string) string {
			if s == nil {
				return defaultVal
			}
			return *s
		},
		"amount": func(v *int64) string {
			if v == nil {
				return pdf.Amount(0)
			}
			return pdf.Amount(*v)
		},
		"currency":    pdf.Currency,
		"percent":     pdf.Percent,
		"displayDate": pdf.DisplayDate,
	}

	t := template.New("").Funcs(funcMap)
	err := fs.WalkDir(uiFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		data, err := fs.ReadFile(uiFS, path)
		if err != nil {
			return fmt.Errorf("read template %s: %w", path, err)
		}

		if _, err := t.Parse(string(data)); err != nil {
			return fmt.Errorf("parse template %s: %w", path, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}

func (s *Service) userIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(contextKeyUserID).(string)
	if !ok {
		return "", fmt.Errorf("user id not found in context")
	}
	return userID, nil
}

func (s *Service) linkFromContext(ctx context.Context) (*types.FormLink, error) {
	link, ok := ctx.Value(contextKeyFormLink).(*types.FormLink)
	if !ok {
		return nil, fmt.Errorf("form link not found in context")
	}
	return link, nil
}
