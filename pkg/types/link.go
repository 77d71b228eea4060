package types

import "time"

type LinkStatus string

const (
	LinkStatusActive  LinkStatus = "active"
	LinkStatusExpired LinkStatus = "expired"
	LinkStatusUsed    LinkStatus = "used"
)

// FormLink is the access token handed to a customer. It grants read and
// write access to exactly one need analysis while it is active and unexpired.
type FormLink struct {
	ID         string     `db:"id" json:"id"`
	UserID     string     `db:"user_id" json:"user_id"`
	ExpiryDate time.Time  `db:"expiry_date" json:"expiry_date"`
	Status     LinkStatus `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Check reports whether the link may be used at now. A link that is not
// active is invalid; an active link past its expiry date is expired even
// if its stored status was never flipped.
func (l *FormLink) Check(now time.Time) error {
	if l == nil || l.Status != LinkStatusActive {
		return ErrLinkNotFound
	}

	if !l.ExpiryDate.After(now) {
		return ErrLinkExpired
	}

	return nil
}

// EffectiveStatus is the status shown on the dashboard.
func (l *FormLink) EffectiveStatus(now time.Time) LinkStatus {
	if l.Status == LinkStatusActive && !l.ExpiryDate.After(now) {
		return LinkStatusExpired
	}
	return l.Status
}
