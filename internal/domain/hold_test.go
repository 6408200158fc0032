package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseHoldKind(t *testing.T) {
	kind, err := ParseHoldKind("reservation")
	assert.NoError(t, err)
	assert.Equal(t, HoldKindReservation, kind)

	kind, err = ParseHoldKind("test_drive")
	assert.NoError(t, err)
	assert.Equal(t, HoldKindTestDrive, kind)

	_, err = ParseHoldKind("lease")
	assert.Error(t, err)
}

func TestSyntheticHoldID_RoundTrip(t *testing.T) {
	id := SyntheticHoldID(42)
	assert.Equal(t, "vehicle-42", id)

	vehicleID, ok := ParseSyntheticHoldID(id)
	assert.True(t, ok)
	assert.Equal(t, int64(42), vehicleID)
}

func TestParseSyntheticHoldID_RejectsRegularIDs(t *testing.T) {
	_, ok := ParseSyntheticHoldID("42")
	assert.False(t, ok)

	_, ok = ParseSyntheticHoldID("vehicle-abc")
	assert.False(t, ok)
}
