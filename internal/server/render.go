package server

import (
	"bytes"
	"net/http"

	"needanalysis/pkg/types"
)

// renderTemplate executes into a buffer so a failing template never leaves a
// half-written page behind.
func (s *Service) renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data any) error {
	return s.renderTemplateStatus(w, r, http.StatusOK, templateName, data)
}

func (s *Service) renderTemplateStatus(w http.ResponseWriter, r *http.Request, status int, templateName string, data any) error {
	userID, _ := r.Context().Value(contextKeyUserID).(string)
	userEmail, _ := r.Context().Value(contextKeyEmail).(string)

	if setter, ok := data.(types.NavbarDataSetter); ok {
		setter.SetNavbarData(types.NavbarData{
			IsAuthenticated: userID != "",
			UserID:          userID,
			UserEmail:       userEmail,
		})
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
