package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"needanalysis/pkg/types"

	"github.com/google/uuid"
)

const maxLinkExpiryHours = 24 * 90

// resolveLink looks the link up and applies the access rules: unknown or
// non-active links are not found, active links past their expiry are expired.
func (s *Service) resolveLink(ctx context.Context, linkID string) (*types.FormLink, error) {
	linkID = strings.TrimSpace(linkID)
	if linkID == "" {
		return nil, types.ErrLinkNotFound
	}

	link, err := s.linkRepo.Link(ctx, linkID)
	if err != nil {
		return nil, err
	}

	if err := link.Check(s.now()); err != nil {
		return nil, err
	}

	return link, nil
}

// createLink issues a new active link for an advisor. Zero hours falls back to
// the configured default.
func (s *Service) createLink(ctx context.Context, userID string, expiryHours int) (*types.FormLink, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("%w: user id must be a uuid", errInvalidRequest)
	}

	if expiryHours < 0 || expiryHours > maxLinkExpiryHours {
		return nil, fmt.Errorf("%w: expiry hours must be between 1 and %d", errInvalidRequest, maxLinkExpiryHours)
	}

	if expiryHours == 0 {
		expiryHours = int(s.config.LinkExpiryHours)
	}

	link := &types.FormLink{
		UserID:     userID,
		Status:     types.LinkStatusActive,
		ExpiryDate: s.now().Add(time.Duration(expiryHours) * time.Hour),
	}

	if err := s.linkRepo.CreateLink(ctx, link); err != nil {
		return nil, err
	}

	s.logger.WithField("link_id", link.ID).WithField("user_id", userID).Info("form link created")

	return link, nil
}

func (s *Service) formURL(linkID string) string {
	return strings.TrimSuffix(s.config.BaseURL, "/") + types.StepPersonal.Path(linkID)
}
