package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
)

func entryOn(t *testing.T, day string, lines ...DeliveryProductLine) *DeliveryEntry {
	t.Helper()
	if len(lines) == 0 {
		lines = []DeliveryProductLine{{
			SubscriptionProductID: "sp_default1",
			ProductSID:            "prd_milk500",
			Name:                  "Cow Milk",
			Quantity:              qty(t, 500, vo.UnitMilliliter),
			Status:                vo.LinePending,
		}}
	}
	e, err := NewDeliveryEntry(date(t, day), vo.SlotMorning, "ptr_rider1", lines...)
	require.NoError(t, err)
	return e
}

func TestScheduleInsert_KeepsOrder(t *testing.T) {
	s := NewDeliverySchedule()
	require.NoError(t, s.Insert(entryOn(t, "2024-01-05")))
	require.NoError(t, s.Insert(entryOn(t, "2024-01-02")))
	require.NoError(t, s.Insert(entryOn(t, "2024-01-09")))

	entries := s.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, date(t, "2024-01-02"), entries[0].Date())
	assert.Equal(t, date(t, "2024-01-05"), entries[1].Date())
	assert.Equal(t, date(t, "2024-01-09"), entries[2].Date())
}

func TestScheduleInsert_DateConflict(t *testing.T) {
	s := NewDeliverySchedule()
	require.NoError(t, s.Insert(entryOn(t, "2024-01-05")))
	err := s.Insert(entryOn(t, "2024-01-05"))
	assert.ErrorIs(t, err, ErrDateConflict)
	assert.Equal(t, 1, s.Len())
}

func TestScheduleRemove_FreesDate(t *testing.T) {
	s := NewDeliverySchedule()
	require.NoError(t, s.Insert(entryOn(t, "2024-01-05")))

	removed, ok := s.Remove(date(t, "2024-01-05"))
	require.True(t, ok)
	assert.Equal(t, date(t, "2024-01-05"), removed.Date())
	assert.Nil(t, s.EntryOn(date(t, "2024-01-05")))

	require.NoError(t, s.Insert(entryOn(t, "2024-01-05")))
}

func TestScheduleRelocate_Conflict(t *testing.T) {
	s := NewDeliverySchedule()
	moving := entryOn(t, "2024-01-05")
	require.NoError(t, s.Insert(moving))
	require.NoError(t, s.Insert(entryOn(t, "2024-01-06")))

	err := s.Relocate(moving, date(t, "2024-01-06"), vo.SlotMorning)
	assert.ErrorIs(t, err, ErrDateConflict)
	// The moving entry stays where it was.
	assert.Same(t, moving, s.EntryOn(date(t, "2024-01-05")))
}

func TestScheduleNextScheduled(t *testing.T) {
	s := NewDeliverySchedule()
	first := entryOn(t, "2024-01-02")
	second := entryOn(t, "2024-01-05")
	require.NoError(t, s.Insert(first))
	require.NoError(t, s.Insert(second))

	next := s.NextScheduled(date(t, "2024-01-02"))
	require.NotNil(t, next)
	assert.Equal(t, date(t, "2024-01-05"), next.Date())

	require.NoError(t, second.Cancel(mustAtHour(t, "2024-01-03", 10)))
	assert.Nil(t, s.NextScheduled(date(t, "2024-01-02")))
}

func TestScheduleMerge_SharedDates(t *testing.T) {
	s := NewDeliverySchedule()
	today := date(t, "2024-01-01")

	daily, err := GenerateCalendar(date(t, "2024-01-02"), vo.DeliveryDate{}, vo.FrequencyDaily, vo.SlotMorning, today)
	require.NoError(t, err)
	weekly, err := GenerateCalendar(date(t, "2024-01-02"), vo.DeliveryDate{}, vo.FrequencyWeekly, vo.SlotMorning, today)
	require.NoError(t, err)

	milk := DeliveryProductLine{SubscriptionProductID: "sp_milk1", ProductSID: "prd_milk500", Name: "Cow Milk", Quantity: qty(t, 500, vo.UnitMilliliter), Status: vo.LinePending}
	ghee := DeliveryProductLine{SubscriptionProductID: "sp_ghee1", ProductSID: "prd_ghee250", Name: "A2 Ghee", Quantity: qty(t, 250, vo.UnitGram), Status: vo.LinePending}

	require.NoError(t, s.Merge(daily, milk, "ptr_rider1"))
	require.NoError(t, s.Merge(weekly, ghee, "ptr_rider1"))

	assert.Equal(t, 30, s.Len())
	assert.Len(t, s.EntryOn(date(t, "2024-01-02")).Lines(), 2)
	assert.Len(t, s.EntryOn(date(t, "2024-01-03")).Lines(), 1)
	assert.Len(t, s.EntryOn(date(t, "2024-01-09")).Lines(), 2)

	// Re-merging the same product is a no-op.
	require.NoError(t, s.Merge(weekly, ghee, "ptr_rider1"))
	assert.Len(t, s.EntryOn(date(t, "2024-01-02")).Lines(), 2)
}

func TestReconstructDeliverySchedule_RejectsDuplicateDates(t *testing.T) {
	_, err := ReconstructDeliverySchedule([]*DeliveryEntry{
		entryOn(t, "2024-01-05"),
		entryOn(t, "2024-01-05"),
	})
	assert.ErrorIs(t, err, ErrDateConflict)
}

func TestReconstructDeliverySchedule_SortsEntries(t *testing.T) {
	s, err := ReconstructDeliverySchedule([]*DeliveryEntry{
		entryOn(t, "2024-01-09"),
		entryOn(t, "2024-01-02"),
	})
	require.NoError(t, err)
	assert.Equal(t, date(t, "2024-01-02"), s.Entries()[0].Date())
}
