package server

import (
	"errors"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"unicode"

	"needanalysis/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

const (
	registerTitle        = "Create Advisor Account"
	registerConfirmTitle = "Confirm Your Account"
	minAdvisorPassword   = 12

	msgPasswordRules = "Password must be at least 12 characters and include uppercase, lowercase, number, and symbol."
)

// advisorSignUp is the registration form. Advisors sign in with their email,
// so it doubles as the Cognito username.
type advisorSignUp struct {
	GivenName       string `form:"given_name"`
	FamilyName      string `form:"family_name"`
	Email           string `form:"email"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirm_password"`
}

func (a *advisorSignUp) normalize() {
	a.GivenName = strings.TrimSpace(a.GivenName)
	a.FamilyName = strings.TrimSpace(a.FamilyName)
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
}

// validate mirrors the user pool's password policy so most rejections never
// reach Cognito.
func (a advisorSignUp) validate() map[string]string {
	errs := map[string]string{}

	if a.GivenName == "" {
		errs["given_name"] = "First name is required."
	}
	if a.FamilyName == "" {
		errs["family_name"] = "Last name is required."
	}

	switch {
	case a.Email == "":
		errs["email"] = "Email is required."
	case !validEmail(a.Email):
		errs["email"] = "Enter a valid email address."
	}

	if !strongPassword(a.Password) {
		errs["password"] = msgPasswordRules
	}
	if a.Password != a.ConfirmPassword {
		errs["confirm_password"] = "Passwords do not match."
	}

	return errs
}

func (a advisorSignUp) cognitoInput(clientID string) *cognitoidentityprovider.SignUpInput {
	attr := func(name, value string) ctypes.AttributeType {
		return ctypes.AttributeType{Name: aws.String(name), Value: aws.String(value)}
	}

	return &cognitoidentityprovider.SignUpInput{
		ClientId: aws.String(clientID),
		Username: aws.String(a.Email),
		Password: aws.String(a.Password),
		UserAttributes: []ctypes.AttributeType{
			attr("email", a.Email),
			attr("given_name", a.GivenName),
			attr("family_name", a.FamilyName),
		},
	}
}

func (a advisorSignUp) pageData() *types.RegisterPageData {
	return &types.RegisterPageData{
		BasePageData: types.BasePageData{Title: registerTitle},
		GivenName:    a.GivenName,
		FamilyName:   a.FamilyName,
		Email:        a.Email,
	}
}

// validEmail accepts a bare address only, not "Name <addr>".
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func strongPassword(pw string) bool {
	if len(pw) < minAdvisorPassword {
		return false
	}

	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}

	return upper && lower && digit && symbol
}

func (s *Service) handleGetRegister(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authenticate(w, r); err == nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	s.renderRegister(w, r, http.StatusOK, advisorSignUp{}.pageData())
}

func (s *Service) handlePostRegister(w http.ResponseWriter, r *http.Request) {
	err := r.ParseForm()
	if err != nil {
		http.Error(w, "invalid form payload", http.StatusBadRequest)
		return
	}

	var signUp advisorSignUp
	err = decoder.Decode(&signUp, r.PostForm)
	if err != nil {
		s.logger.WithError(err).Error("failed to decode registration form")
		http.Error(w, "invalid form payload", http.StatusBadRequest)
		return
	}
	signUp.normalize()

	data := signUp.pageData()

	data.FieldErrors = signUp.validate()
	if len(data.FieldErrors) > 0 {
		data.Error = msgFixFields
		s.renderRegister(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	_, err = s.cognitoClient.SignUp(r.Context(), signUp.cognitoInput(s.config.CognitoClientID))
	if err != nil {
		data.Error, data.FieldErrors = s.signUpFailure(err)
		s.renderRegister(w, r, http.StatusOK, data)
		return
	}

	s.logger.WithField("email", signUp.Email).Info("advisor signed up, awaiting confirmation")

	http.Redirect(w, r, "/register/confirm?"+url.Values{"email": {signUp.Email}}.Encode(), http.StatusSeeOther)
}

func (s *Service) handleGetRegisterConfirm(w http.ResponseWriter, r *http.Request) {
	data := &types.ConfirmRegisterPageData{
		BasePageData: types.BasePageData{Title: registerConfirmTitle},
		Email:        strings.TrimSpace(r.URL.Query().Get("email")),
	}

	s.renderRegisterConfirm(w, r, data)
}

func (s *Service) handlePostRegisterConfirm(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))

	input := &cognitoidentityprovider.ConfirmSignUpInput{
		ClientId:         aws.String(s.config.CognitoClientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(strings.TrimSpace(r.FormValue("code"))),
	}

	_, err := s.cognitoClient.ConfirmSignUp(r.Context(), input)
	if err != nil {
		s.logger.WithError(err).WithField("email", email).Warn("advisor confirmation rejected")

		data := &types.ConfirmRegisterPageData{
			BasePageData: types.BasePageData{Title: registerConfirmTitle, Error: confirmFailure(err)},
			Email:        email,
		}
		s.renderRegisterConfirm(w, r, data)
		return
	}

	s.logger.WithField("email", email).Info("advisor account confirmed")

	http.Redirect(w, r, "/login?confirmed=true", http.StatusSeeOther)
}

func confirmFailure(err error) string {
	var codeMismatch *ctypes.CodeMismatchException
	var codeExpired *ctypes.ExpiredCodeException

	switch {
	case errors.As(err, &codeMismatch):
		return "Invalid confirmation code. Please check the code and try again."
	case errors.As(err, &codeExpired):
		return "That confirmation code has expired. Please register again to get a new one."
	}
	return "Unable to confirm account. Please try again."
}

// signUpFailure turns a Cognito rejection into a page message plus field
// errors.
func (s *Service) signUpFailure(err error) (string, map[string]string) {
	var invalidPw *ctypes.InvalidPasswordException
	var userExists *ctypes.UsernameExistsException
	var invalidParam *ctypes.InvalidParameterException

	switch {
	case errors.As(err, &invalidPw):
		return msgFixFields, map[string]string{"password": msgPasswordRules}
	case errors.As(err, &userExists):
		return "Try logging in instead.", map[string]string{"email": "An advisor account with this email already exists."}
	case errors.As(err, &invalidParam):
		s.logger.WithError(err).Warn("cognito rejected advisor sign up parameters")
		return "Some details are invalid. Please review and try again.", map[string]string{}
	}

	s.logger.WithError(err).Error("failed to sign up advisor")
	return "Unable to create account right now. Please try again.", map[string]string{}
}

func (s *Service) renderRegister(w http.ResponseWriter, r *http.Request, status int, data *types.RegisterPageData) {
	err := s.renderTemplateStatus(w, r, status, "page.register", data)
	if err != nil {
		s.logger.WithError(err).Error("failed to render register page")
		s.internalServerError(w)
	}
}

func (s *Service) renderRegisterConfirm(w http.ResponseWriter, r *http.Request, data *types.ConfirmRegisterPageData) {
	err := s.renderTemplate(w, r, "page.register.confirm", data)
	if err != nil {
		s.logger.WithError(err).Error("failed to render register confirm page")
		s.internalServerError(w)
	}
}
