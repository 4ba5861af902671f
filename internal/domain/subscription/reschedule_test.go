package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
)

func TestRescheduleDelivery_MovesDay(t *testing.T) {
	sub := newTestSubscription(t, gheeSpec(t))
	policy := DefaultSchedulingPolicy()
	now := mustAtHour(t, "2024-01-03", 10)

	err := sub.RescheduleDelivery(date(t, "2024-01-09"), date(t, "2024-01-10"), vo.SlotEvening, now, policy)
	require.NoError(t, err)

	assert.Nil(t, sub.Schedule().EntryOn(date(t, "2024-01-09")))
	moved := sub.Schedule().EntryOn(date(t, "2024-01-10"))
	require.NotNil(t, moved)
	assert.Equal(t, vo.SlotEvening, moved.Slot())
	assert.Equal(t, vo.DeliveryScheduled, moved.Status())
	assert.Equal(t, vo.SlotEvening.CutoffAt(date(t, "2024-01-10")), moved.CutoffAt())
	require.NoError(t, sub.CheckInvariants())
}

func TestRescheduleDelivery_TargetOccupied(t *testing.T) {
	sub := newTestSubscription(t, milkSpec(t))
	policy := DefaultSchedulingPolicy()
	now := mustAtHour(t, "2024-01-03", 10)

	err := sub.RescheduleDelivery(date(t, "2024-01-05"), date(t, "2024-01-06"), vo.SlotMorning, now, policy)
	assert.ErrorIs(t, err, ErrDateConflict)
	assert.NotNil(t, sub.Schedule().EntryOn(date(t, "2024-01-05")))
}

func TestRescheduleDelivery_PastCutoff(t *testing.T) {
	sub := newTestSubscription(t, milkSpec(t))
	policy := DefaultSchedulingPolicy()

	// Morning cutoff is 04:00 on the delivery day itself.
	now := mustAtHour(t, "2024-01-02", 5)
	err := sub.RescheduleDelivery(date(t, "2024-01-02"), date(t, "2024-02-05"), vo.SlotMorning, now, policy)
	assert.ErrorIs(t, err, ErrPastCutoff)
}

func TestRescheduleDelivery_OutOfWindow(t *testing.T) {
	sub := newTestSubscription(t, gheeSpec(t))
	policy := DefaultSchedulingPolicy()
	now := mustAtHour(t, "2024-01-03", 10)

	err := sub.RescheduleDelivery(date(t, "2024-01-09"), date(t, "2024-03-15"), vo.SlotMorning, now, policy)
	assert.ErrorIs(t, err, ErrOutOfWindow)

	err = sub.RescheduleDelivery(date(t, "2024-01-09"), date(t, "2024-01-03"), vo.SlotMorning, now, policy)
	assert.ErrorIs(t, err, ErrOutOfWindow)
}

func TestRescheduleDelivery_ResolvedEntry(t *testing.T) {
	sub := newTestSubscription(t, milkSpec(t))
	policy := DefaultSchedulingPolicy()
	deliverDay(t, sub, "2024-01-02")

	err := sub.RescheduleDelivery(date(t, "2024-01-02"), date(t, "2024-01-15"), vo.SlotMorning, mustAtHour(t, "2024-01-02", 9), policy)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestRescheduleItem_ToOccupiedDay(t *testing.T) {
	sub := newTestSubscription(t, milkSpec(t), gheeSpec(t))
	policy := DefaultSchedulingPolicy()
	ghee := productSID(t, sub, "prd_ghee250")
	now := mustAtHour(t, "2024-01-03", 10)

	err := sub.RescheduleItem(ghee, date(t, "2024-01-09"), date(t, "2024-01-10"), now, policy)
	require.NoError(t, err)

	source := sub.Schedule().EntryOn(date(t, "2024-01-09"))
	require.NotNil(t, source)
	assert.Len(t, source.Lines(), 1)
	assert.False(t, source.HasProduct(ghee))

	target := sub.Schedule().EntryOn(date(t, "2024-01-10"))
	require.NotNil(t, target)
	assert.Len(t, target.Lines(), 2)
	assert.True(t, target.HasProduct(ghee))
	require.NoError(t, sub.CheckInvariants())
}

func TestRescheduleItem_LastLineDropsEntry(t *testing.T) {
	sub := newTestSubscription(t, gheeSpec(t))
	policy := DefaultSchedulingPolicy()
	ghee := productSID(t, sub, "prd_ghee250")
	now := mustAtHour(t, "2024-01-03", 10)

	err := sub.RescheduleItem(ghee, date(t, "2024-01-09"), date(t, "2024-01-10"), now, policy)
	require.NoError(t, err)

	assert.Nil(t, sub.Schedule().EntryOn(date(t, "2024-01-09")))
	target := sub.Schedule().EntryOn(date(t, "2024-01-10"))
	require.NotNil(t, target)
	assert.Len(t, target.Lines(), 1)
	require.NoError(t, sub.CheckInvariants())
}

func TestRescheduleItem_DuplicateProduct(t *testing.T) {
	sub := newTestSubscription(t, milkSpec(t))
	policy := DefaultSchedulingPolicy()
	milk := productSID(t, sub, "prd_milk500")
	now := mustAtHour(t, "2024-01-03", 10)

	// Every day already carries the daily product.
	err := sub.RescheduleItem(milk, date(t, "2024-01-09"), date(t, "2024-01-10"), now, policy)
	assert.ErrorIs(t, err, ErrDuplicateProductOnDate)
	assert.True(t, sub.Schedule().EntryOn(date(t, "2024-01-09")).HasProduct(milk))
}

func TestRescheduleItem_SameDate(t *testing.T) {
	sub := newTestSubscription(t, gheeSpec(t))
	policy := DefaultSchedulingPolicy()
	ghee := productSID(t, sub, "prd_ghee250")

	err := sub.RescheduleItem(ghee, date(t, "2024-01-09"), date(t, "2024-01-09"), mustAtHour(t, "2024-01-03", 10), policy)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRescheduleItem_ExtendsEndDate(t *testing.T) {
	sub := newTestSubscription(t, gheeSpec(t))
	policy := DefaultSchedulingPolicy()
	ghee := productSID(t, sub, "prd_ghee250")

	err := sub.RescheduleItem(ghee, date(t, "2024-01-30"), date(t, "2024-02-10"), mustAtHour(t, "2024-01-03", 10), policy)
	require.NoError(t, err)
	assert.Equal(t, date(t, "2024-02-10"), sub.EndDate())
}

func TestAvailableDates(t *testing.T) {
	sub := newTestSubscription(t, gheeSpec(t))
	policy := DefaultSchedulingPolicy()
	ghee := productSID(t, sub, "prd_ghee250")
	now := mustAtHour(t, "2024-01-03", 10)

	dates := sub.AvailableDates(ghee, date(t, "2024-01-09"), 1, now, policy)
	require.NotEmpty(t, dates)

	byDate := make(map[string]bool, len(dates))
	for _, d := range dates {
		byDate[d.String()] = true
	}

	// Free days and days without this product are offered.
	assert.True(t, byDate["2024-01-04"])
	assert.True(t, byDate["2024-01-10"])
	// The current date and days already carrying the product are not.
	assert.False(t, byDate["2024-01-09"])
	assert.False(t, byDate["2024-01-16"])
	// Nothing before tomorrow.
	assert.False(t, byDate["2024-01-03"])

	// The scan is capped by the availability horizon past the last delivery.
	assert.True(t, byDate["2024-02-14"])
	assert.False(t, byDate["2024-02-15"])
}

func TestAvailableDates_ConsecutiveDays(t *testing.T) {
	sub := newTestSubscription(t, gheeSpec(t))
	policy := DefaultSchedulingPolicy()
	ghee := productSID(t, sub, "prd_ghee250")
	now := mustAtHour(t, "2024-01-03", 10)

	dates := sub.AvailableDates(ghee, date(t, "2024-01-02"), 3, now, policy)
	require.NotEmpty(t, dates)

	byDate := make(map[string]bool, len(dates))
	for _, d := range dates {
		byDate[d.String()] = true
	}

	// 04..06 and 10..12 are fully free blocks.
	assert.True(t, byDate["2024-01-04"])
	assert.True(t, byDate["2024-01-10"])
	// Starting on the 07th or 08th runs into the delivery on the 09th.
	assert.False(t, byDate["2024-01-07"])
	assert.False(t, byDate["2024-01-08"])
	// The whole block has to fit inside the horizon.
	assert.True(t, byDate["2024-02-12"])
	assert.False(t, byDate["2024-02-13"])
}

func TestAvailableDates_WholeDayNeedsEmptyDay(t *testing.T) {
	sub := newTestSubscription(t, milkSpec(t))
	policy := DefaultSchedulingPolicy()
	now := mustAtHour(t, "2024-01-03", 10)

	// Without a product scoped, any day already carrying an entry is taken.
	dates := sub.AvailableDates("", date(t, "2024-01-05"), 1, now, policy)
	require.NotEmpty(t, dates)

	byDate := make(map[string]bool, len(dates))
	for _, d := range dates {
		byDate[d.String()] = true
	}

	assert.False(t, byDate["2024-01-10"])
	assert.True(t, byDate["2024-02-01"])
	assert.False(t, byDate["2024-02-16"])
}
