package types

import "errors"

var (
	ErrLinkNotFound       = errors.New("form link is invalid")
	ErrLinkExpired        = errors.New("form link has expired")
	ErrFormNotFound       = errors.New("form not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrMustStartFromStep1 = errors.New("must start from step 1")
	ErrUnknownStep        = errors.New("unknown step")
)
