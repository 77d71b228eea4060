package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"needanalysis/pkg/types"
)

func (s *Service) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("dashboard reached without a user")
		s.redirectToLogin(w, r)
		return
	}

	links, err := s.linkRepo.LinksByUser(ctx, userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to load advisor links")
		s.internalServerError(w)
		return
	}

	submissions, err := s.submissionRepo.SubmissionsByUser(ctx, userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to load advisor submissions")
		s.internalServerError(w)
		return
	}

	now := s.now()
	cards := make([]*types.DashboardLink, 0, len(links))
	for _, link := range links {
		cards = append(cards, &types.DashboardLink{
			FormLink:      link,
			CurrentStatus: link.EffectiveStatus(now),
			FormURL:       s.formURL(link.ID),
		})
	}

	notice, errMsg := flash(r)
	data := &types.DashboardPageData{
		BasePageData: types.BasePageData{
			Title:  "Dashboard",
			Notice: notice,
			Error:  errMsg,
		},
		Links:              cards,
		Submissions:        submissions,
		DefaultExpiryHours: s.config.LinkExpiryHours,
	}

	err = s.renderTemplate(w, r, "page.dashboard", data)
	if err != nil {
		s.logger.WithError(err).Error("failed to render dashboard")
		s.internalServerError(w)
		return
	}
}

func (s *Service) handlePostDashboardLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.redirectToLogin(w, r)
		return
	}

	var hours int
	if raw := strings.TrimSpace(r.FormValue("expiry_hours")); raw != "" {
		hours, err = strconv.Atoi(raw)
		if err != nil {
			s.redirectWithError(w, r, "/dashboard", flashExpiryFormat)
			return
		}
	}

	_, err = s.createLink(ctx, userID, hours)
	if err != nil {
		if errors.Is(err, errInvalidRequest) {
			s.redirectWithError(w, r, "/dashboard", flashExpiryRange)
			return
		}

		s.logger.WithError(err).WithField("user_id", userID).Error("failed to create form link")
		s.redirectWithError(w, r, "/dashboard", flashLinkFailed)
		return
	}

	s.redirectWithNotice(w, r, "/dashboard", flashLinkCreated)
}

func (s *Service) handlePostDashboardRevokeLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.redirectToLogin(w, r)
		return
	}

	linkID := r.PathValue("linkID")

	link, err := s.linkRepo.Link(ctx, linkID)
	if err != nil {
		if errors.Is(err, types.ErrLinkNotFound) {
			s.redirectWithError(w, r, "/dashboard", flashLinkMissing)
			return
		}
		s.logger.WithError(err).WithField("link_id", linkID).Error("failed to load link for revoke")
		s.internalServerError(w)
		return
	}

	if link.UserID != userID {
		s.redirectWithError(w, r, "/dashboard", flashRevokeForbidden)
		return
	}

	err = s.linkRepo.UpdateLinkStatus(ctx, linkID, types.LinkStatusExpired)
	if err != nil {
		s.logger.WithError(err).WithField("link_id", linkID).Error("failed to revoke link")
		s.internalServerError(w)
		return
	}

	s.redirectWithNotice(w, r, "/dashboard", flashLinkRevoked)
}
