package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type Inner struct {
	City  string `db:"city"`
	State string `db:"state"`
}

type row struct {
	ID string `db:"id"`
	Inner
	Skipped  string `db:"-"`
	Untagged string
	private  string `db:"private"`
}

func TestStructTagValuesFlattensEmbedded(t *testing.T) {
	assert.Equal(t, []string{"id", "city", "state"}, StructTagValues(row{}))
	assert.Equal(t, []string{"id", "city", "state"}, StructTagValues(&row{}))
}

func TestStructToMap(t *testing.T) {
	r := &row{ID: "1", Inner: Inner{City: "Bangkok", State: "BKK"}, private: "x"}

	assert.Equal(t, map[string]any{
		"id":    "1",
		"city":  "Bangkok",
		"state": "BKK",
	}, StructToMap(r))
}

func TestStructHelpersPanicOnNonStruct(t *testing.T) {
	assert.Panics(t, func() { StructTagValues(42) })
	assert.Panics(t, func() { StructToMap("nope") })
}

func TestErrorWrapOrNil(t *testing.T) {
	assert.NoError(t, ErrorWrapOrNil(nil, "anything"))

	base := errors.New("boom")
	assert.Equal(t, base, ErrorWrapOrNil(base, ""))

	wrapped := ErrorWrapOrNil(base, "failed to save")
	assert.EqualError(t, wrapped, "failed to save: boom")
	assert.ErrorIs(t, wrapped, base)
}

func TestIDs(t *testing.T) {
	assert.Len(t, NanoID(), NanoidSize)
	assert.Len(t, NanoIDSize(8), 8)

	id := LinkID()
	assert.Len(t, id, LinkIDSize)
	assert.NotContains(t, id, "0")
	assert.NotEqual(t, id, LinkID())
}

func TestPointers(t *testing.T) {
	assert.Equal(t, "a", *StringPtr("a"))
	assert.Equal(t, 1.5, *Float64Ptr(1.5))
	assert.Equal(t, int64(4), *Int64Ptr(4))
	assert.True(t, *BoolPtr(true))

	at := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, at, *TimePtr(at))
}
