package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestTraversedPairs(t *testing.T) {
	t.Run("Single Line With Terminal Leg", func(t *testing.T) {
		sub := &Subscription{Legs: LegList{
			{StationID: "A", LineID: strPtr("central")},
			{StationID: "B", LineID: strPtr("central")},
			{StationID: "C", LineID: nil},
		}}

		assert.Equal(t, []LinePair{
			{LineID: "central", StationID: "A"},
			{LineID: "central", StationID: "B"},
			{LineID: "central", StationID: "C"},
		}, sub.TraversedPairs())
	})

	t.Run("Interchange Pairs Terminal With Arriving Line", func(t *testing.T) {
		sub := &Subscription{Legs: LegList{
			{StationID: "A", LineID: strPtr("central")},
			{StationID: "B", LineID: strPtr("victoria")},
			{StationID: "C", LineID: nil},
		}}

		assert.Equal(t, []LinePair{
			{LineID: "central", StationID: "A"},
			{LineID: "victoria", StationID: "B"},
			{LineID: "victoria", StationID: "C"},
		}, sub.TraversedPairs())
	})

	t.Run("Leading Nil Line Is Skipped", func(t *testing.T) {
		sub := &Subscription{Legs: LegList{
			{StationID: "A", LineID: nil},
			{StationID: "B", LineID: strPtr("central")},
			{StationID: "C", LineID: nil},
		}}

		assert.Equal(t, []LinePair{
			{LineID: "central", StationID: "B"},
			{LineID: "central", StationID: "C"},
		}, sub.TraversedPairs())
	})

	t.Run("No Legs", func(t *testing.T) {
		assert.Empty(t, (&Subscription{}).TraversedPairs())
	})
}

func TestLineIDs(t *testing.T) {
	sub := &Subscription{Legs: LegList{
		{StationID: "A", LineID: strPtr("central")},
		{StationID: "B", LineID: strPtr("victoria")},
		{StationID: "C", LineID: strPtr("central")},
		{StationID: "D", LineID: nil},
	}}

	assert.Equal(t, []string{"central", "victoria"}, sub.LineIDs())
}

func TestWindowListRoundTrip(t *testing.T) {
	windows := WindowList{{
		Days:     []string{"Monday", "Friday"},
		Start:    "08:00",
		End:      "09:30",
		Timezone: "Europe/London",
	}}

	value, err := windows.Value()
	assert.NoError(t, err)

	var scanned WindowList
	assert.NoError(t, scanned.Scan(value))
	assert.Equal(t, windows, scanned)

	var nilList WindowList
	assert.NoError(t, nilList.Scan(nil))
	assert.Nil(t, nilList)
}
