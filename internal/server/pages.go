package server

import (
	"net/http"

	"needanalysis/pkg/types"
)

func (s *Service) handleHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Service) handleFormExpired(w http.ResponseWriter, r *http.Request) {
	s.renderTerminal(w, r, http.StatusGone, &types.TerminalPageData{
		BasePageData: types.BasePageData{Title: "Link expired"},
		Heading:      "This link has expired",
		Message:      "Please ask your advisor to send you a new link.",
	})
}

func (s *Service) handleFormInvalid(w http.ResponseWriter, r *http.Request) {
	s.renderTerminal(w, r, http.StatusNotFound, &types.TerminalPageData{
		BasePageData: types.BasePageData{Title: "Invalid link"},
		Heading:      "This link is not valid",
		Message:      "Check that you opened the full link your advisor sent you.",
	})
}

func (s *Service) renderTerminal(w http.ResponseWriter, r *http.Request, status int, data *types.TerminalPageData) {
	err := s.renderTemplateStatus(w, r, status, "page.terminal", data)
	if err != nil {
		s.logger.WithError(err).Error("failed to render terminal page")
		s.internalServerError(w)
	}
}

func (s *Service) internalServerError(w http.ResponseWriter) {
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
