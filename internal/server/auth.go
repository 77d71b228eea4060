package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"needanalysis/internal"
	"needanalysis/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

func (s *Service) handleGetLogin(w http.ResponseWriter, r *http.Request) {
	_, err := r.Cookie(internal.COOKIE_ACCESS_TOKEN_NAME)
	if err == nil {
		s.logger.Debug("user is already logged in, redirecting to dashboard")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	data := &types.LoginPageData{
		BasePageData: types.BasePageData{Title: "Advisor Login"},
		Confirmed:    r.URL.Query().Get("confirmed") == "true",
	}

	err = s.renderTemplate(w, r, "page.login", data)
	if err != nil {
		s.logger.WithError(err).Error("failed to render login page")
		s.internalServerError(w)
		return
	}
}

func (s *Service) handlePostLogin(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	data := &types.LoginPageData{
		BasePageData: types.BasePageData{Title: "Advisor Login"},
		Email:        email,
	}

	input := &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: ctypes.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(s.config.CognitoClientID),
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	}

	resp, err := s.cognitoClient.InitiateAuth(r.Context(), input)
	if err != nil || resp.AuthenticationResult == nil || resp.AuthenticationResult.AccessToken == nil {
		if err != nil {
			s.logger.WithError(err).Info("login rejected")
		}

		data.Error = loginErrorMessage(err)
		if renderErr := s.renderTemplateStatus(w, r, http.StatusUnauthorized, "page.login", data); renderErr != nil {
			s.logger.WithError(renderErr).Error("failed to render login page with error")
			s.internalServerError(w)
		}
		return
	}

	accessToken := aws.ToString(resp.AuthenticationResult.AccessToken)
	expiresIn := int(resp.AuthenticationResult.ExpiresIn)

	encryptedToken, err := s.cookie.Encode(internal.COOKIE_ACCESS_TOKEN_NAME, accessToken)
	if err != nil {
		s.logger.WithError(err).Error("failed to encrypt access token")
		s.internalServerError(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     internal.COOKIE_ACCESS_TOKEN_NAME,
		Value:    encryptedToken,
		HttpOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   expiresIn,
		Path:     "/",
	})

	// Check to see if this login attempt was the result of an unauthed redirect
	redirectCookie, err := r.Cookie(internal.COOKIE_REDIRECT_NAME)
	if err == nil && strings.HasPrefix(redirectCookie.Value, "/") && !strings.HasPrefix(redirectCookie.Value, "//") {
		s.clearRedirectCookie(w)
		http.Redirect(w, r, redirectCookie.Value, http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func loginErrorMessage(err error) string {
	var notConfirmed *ctypes.UserNotConfirmedException
	if errors.As(err, &notConfirmed) {
		return "Please confirm your account before logging in."
	}

	return "Invalid email or password."
}

func (s *Service) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearAccessTokenCookie(w)
	s.clearRedirectCookie(w)

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Service) clearAccessTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     internal.COOKIE_ACCESS_TOKEN_NAME,
		Value:    "",
		HttpOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
}

func (s *Service) setRedirectCookie(w http.ResponseWriter, path string, age time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     internal.COOKIE_REDIRECT_NAME,
		Value:    path,
		HttpOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   int(age.Seconds()),
	})
}

func (s *Service) clearRedirectCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     internal.COOKIE_REDIRECT_NAME,
		Value:    "",
		HttpOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
}
