package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"needanalysis/pkg/types"

	"github.com/sirupsen/logrus"
)

const syncTimeout = 10 * time.Second

// SyncResult is the outcome of a best-effort remote save. Callers log it and
// move on.
type SyncResult struct {
	Step    types.Step
	Success bool
	Err     error
}

// saveStep mirrors one step of the record into the link's remote row. Only
// the personal details step may create the row; step 4 has nothing to write.
func (s *Service) saveStep(ctx context.Context, link *types.FormLink, step types.Step, data types.StepData, userID string) error {
	if data.Step() != step {
		return fmt.Errorf("%w: %s data submitted as %s", types.ErrUnknownStep, data.Step(), step)
	}

	if userID == "" {
		userID = link.UserID
	}

	_, err := s.formRepo.FormByLinkID(ctx, link.ID)
	if errors.Is(err, types.ErrFormNotFound) {
		if step != types.StepPersonal {
			return types.ErrMustStartFromStep1
		}

		details, ok := data.(types.PersonalDetails)
		if !ok {
			return fmt.Errorf("%w: unexpected %T for %s", types.ErrUnknownStep, data, step)
		}
		return s.formRepo.CreateForm(ctx, &types.NeedAnalysisForm{
			LinkID:          link.ID,
			UserID:          userID,
			PersonalColumns: types.PersonalColumnsFrom(details),
		})
	}
	if err != nil {
		return err
	}

	switch d := data.(type) {
	case types.PersonalDetails:
		return s.formRepo.UpdatePersonalDetails(ctx, link.ID, types.PersonalColumnsFrom(d))
	case types.Needs:
		return s.formRepo.UpdateNeeds(ctx, link.ID, types.NeedsColumnsFrom(d))
	case types.Calculation:
		return s.formRepo.UpdateCalculation(ctx, link.ID, types.CalculationColumnsFrom(d))
	case types.Completion:
		// Completion is only recorded client-side and through the submission.
		return nil
	}

	return fmt.Errorf("%w: %s", types.ErrUnknownStep, step)
}

// syncStep is the wizard's fire-and-forget save. The request that triggered it
// does not wait; Stop drains pending syncs. Syncs of one link run one at a time
// in the order they were queued, so a later step never lands before the insert
// made by step 1.
func (s *Service) syncStep(ctx context.Context, link *types.FormLink, data types.StepData) {
	ctx = context.WithoutCancel(ctx)
	prev, done := s.queueSync(link.ID)

	s.syncs.Add(1)
	go func() {
		defer s.syncs.Done()
		defer s.finishSync(link.ID, done)

		if prev != nil {
			<-prev
		}

		result := s.runSync(ctx, link, data)
		entry := s.logger.WithFields(logrus.Fields{
			"link_id": link.ID,
			"step":    result.Step,
		})

		if !result.Success {
			entry.WithError(result.Err).Error("failed to sync form step")
			return
		}

		entry.Debug("form step synced")
	}()
}

// queueSync appends a sync to the link's queue. It returns the channel of the
// sync to wait for, nil when the queue was empty, and the new sync's own.
func (s *Service) queueSync(linkID string) (prev, done chan struct{}) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	prev = s.syncTails[linkID]
	done = make(chan struct{})
	s.syncTails[linkID] = done

	return prev, done
}

func (s *Service) finishSync(linkID string, done chan struct{}) {
	close(done)

	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	if s.syncTails[linkID] == done {
		delete(s.syncTails, linkID)
	}
}

func (s *Service) runSync(ctx context.Context, link *types.FormLink, data types.StepData) SyncResult {
	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	err := s.saveStep(ctx, link, data.Step(), data, link.UserID)

	return SyncResult{Step: data.Step(), Success: err == nil, Err: err}
}
