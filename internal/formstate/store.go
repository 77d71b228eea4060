// Package formstate keeps the customer's in-progress need analysis and mirrors
// it to a durable client-side copy after every change.
package formstate

import (
	"bytes"
	"encoding/json"
	"errors"

	"needanalysis/pkg/types"

	"github.com/sirupsen/logrus"
)

// ErrNoData is returned by a Persister that has nothing saved.
var ErrNoData = errors.New("no persisted form data")

// Persister is the durable copy of a single serialized FormRecord.
type Persister interface {
	Load() ([]byte, error)
	Save(data []byte) error
	Clear() error
}

// Store is the in-memory FormRecord for one wizard session. The in-memory
// copy is authoritative: persistence failures are logged and never returned.
type Store struct {
	record    types.FormRecord
	restored  bool
	persister Persister
	logger    logrus.FieldLogger

	persistErr error
}

// New builds a store and loads the persisted copy. A missing or unreadable
// copy starts the session from the defaults.
func New(persister Persister, logger logrus.FieldLogger) *Store {
	s := &Store{
		record:    types.DefaultFormRecord(),
		persister: persister,
		logger:    logger,
	}

	s.load()

	return s
}

func (s *Store) load() {
	data, err := s.persister.Load()
	if err != nil {
		if !errors.Is(err, ErrNoData) {
			s.logger.WithError(err).Debug("failed to read saved form data, starting fresh")
		}
		return
	}

	record := types.DefaultFormRecord()
	if err := json.Unmarshal(data, &record); err != nil {
		s.logger.WithError(err).Debug("saved form data is corrupt, starting fresh")
		return
	}

	s.record = record
	s.restored = true
}

// Restored reports whether the session was loaded from a saved copy.
func (s *Store) Restored() bool {
	return s.restored
}

// StepData returns a copy of one step's sub-record.
func (s *Store) StepData(step types.Step) (types.StepData, error) {
	return s.record.StepData(step)
}

// UpdateStepData shallow-merges the patch into its step and persists the
// whole record. Fields the patch leaves nil are kept.
func (s *Store) UpdateStepData(patch types.StepData) {
	if err := s.record.Apply(patch); err != nil {
		s.logger.WithError(err).Error("rejected form update")
		return
	}

	s.persist()
}

// SetStepData replaces a whole step, used when a page posts every field of
// its step at once.
func (s *Store) SetStepData(data types.StepData) {
	if err := s.record.Set(data); err != nil {
		s.logger.WithError(err).Error("rejected form update")
		return
	}

	s.persist()
}

// AllData returns a copy of the whole record.
func (s *Store) AllData() types.FormRecord {
	return s.record.Clone()
}

// Replace swaps the whole record, used to hydrate a session from the
// remote copy.
func (s *Store) Replace(record types.FormRecord) {
	s.record = record.Clone()
	s.persist()
}

// Reset restores the defaults and removes the saved copy.
func (s *Store) Reset() {
	s.record = types.DefaultFormRecord()
	s.restored = false

	s.persistErr = nil
	if err := s.persister.Clear(); err != nil {
		s.logger.WithError(err).Warn("failed to clear saved form data")
	}
}

// PersistErr reports why the most recent save failed, or nil when it
// succeeded. Callers whose session only lives in the saved copy use it to
// keep the customer on the page instead of moving on with unsaved data.
func (s *Store) PersistErr() error {
	return s.persistErr
}

func (s *Store) persist() {
	s.persistErr = nil

	data, err := encode(s.record)
	if err != nil {
		s.persistErr = err
		s.logger.WithError(err).Error("failed to serialize form data")
		return
	}

	if err := s.persister.Save(data); err != nil {
		s.persistErr = err
		s.logger.WithError(err).WithField("bytes", len(data)).Warn("failed to save form data")
	}
}

// encode writes the record as compact JSON without HTML escaping, which keeps
// characters such as < and & at their UTF-8 size.
func encode(record types.FormRecord) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(record); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
