package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
)

func TestDeliveryEntry_JourneyToDelivered(t *testing.T) {
	e := entryOn(t, "2024-01-02")
	now := mustAtHour(t, "2024-01-02", 7)

	require.NoError(t, e.StartJourney("ptr_rider1", now, &GeoPoint{Latitude: 22.55, Longitude: 72.95}))
	assert.Equal(t, vo.DeliveryReaching, e.Status())
	require.NotNil(t, e.StartedAt())
	require.NotNil(t, e.Location())

	resolved, err := e.MarkDelivered(mustAtHour(t, "2024-01-02", 8))
	require.NoError(t, err)
	assert.Equal(t, []string{"sp_default1"}, resolved)
	assert.Equal(t, vo.DeliveryDelivered, e.Status())
	assert.Equal(t, vo.LineDelivered, e.Lines()[0].Status)
	require.NotNil(t, e.DeliveredAt())
}

func TestDeliveryEntry_MarkDeliveredWithoutJourney(t *testing.T) {
	e := entryOn(t, "2024-01-02")
	_, err := e.MarkDelivered(mustAtHour(t, "2024-01-02", 8))
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestDeliveryEntry_ResolvedLinesAreSkippedOnRetry(t *testing.T) {
	milk := DeliveryProductLine{SubscriptionProductID: "sp_milk1", ProductSID: "prd_milk500", Name: "Cow Milk", Quantity: qty(t, 500, vo.UnitMilliliter), Status: vo.LinePending}
	curd := DeliveryProductLine{SubscriptionProductID: "sp_curd1", ProductSID: "prd_curd200", Name: "Curd", Quantity: qty(t, 200, vo.UnitGram), Status: vo.LineDelivered}
	e, err := NewDeliveryEntry(date(t, "2024-01-02"), vo.SlotMorning, "ptr_rider1", milk, curd)
	require.NoError(t, err)

	require.NoError(t, e.StartJourney("ptr_rider1", mustAtHour(t, "2024-01-02", 7), nil))
	resolved, err := e.MarkDelivered(mustAtHour(t, "2024-01-02", 8))
	require.NoError(t, err)

	// The already-delivered line must not be counted again.
	assert.Equal(t, []string{"sp_milk1"}, resolved)
}

func TestDeliveryEntry_AwaitingCustomerFlow(t *testing.T) {
	e := entryOn(t, "2024-01-02")
	require.NoError(t, e.StartJourney("ptr_rider1", mustAtHour(t, "2024-01-02", 7), nil))
	require.NoError(t, e.AwaitCustomer())
	assert.Equal(t, vo.DeliveryAwaitingCustomer, e.Status())

	resolved, err := e.ConfirmByCustomer(mustAtHour(t, "2024-01-02", 9))
	require.NoError(t, err)
	assert.Len(t, resolved, 1)
	assert.Equal(t, vo.DeliveryDelivered, e.Status())
	require.NotNil(t, e.ConfirmedAt())
}

func TestDeliveryEntry_ConfirmRequiresAwaiting(t *testing.T) {
	e := entryOn(t, "2024-01-02")
	_, err := e.ConfirmByCustomer(mustAtHour(t, "2024-01-02", 9))
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestDeliveryEntry_CancelTerminalRejected(t *testing.T) {
	e := entryOn(t, "2024-01-02")
	require.NoError(t, e.StartJourney("ptr_rider1", mustAtHour(t, "2024-01-02", 7), nil))
	_, err := e.MarkDelivered(mustAtHour(t, "2024-01-02", 8))
	require.NoError(t, err)

	err = e.Cancel(mustAtHour(t, "2024-01-02", 9))
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestDeliveryEntry_ConcessionFiresOnce(t *testing.T) {
	e := entryOn(t, "2024-01-02")
	now := mustAtHour(t, "2024-01-02", 23)

	require.NoError(t, e.CancelWithConcession(now, date(t, "2024-02-01"), "not delivered by end of day"))
	assert.True(t, e.Concession())

	err := e.CancelWithConcession(now, date(t, "2024-02-02"), "not delivered by end of day")
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	assert.Equal(t, date(t, "2024-02-01"), e.ConcessionDetails().RescheduledTo)
}

func TestDeliveryEntry_PastCutoff(t *testing.T) {
	e := entryOn(t, "2024-01-02")

	assert.False(t, e.PastCutoff(mustAtHour(t, "2024-01-02", 3)))
	assert.True(t, e.PastCutoff(mustAtHour(t, "2024-01-02", 4)))
	// A future date is never past cutoff, whatever the clock says.
	assert.False(t, e.PastCutoff(mustAtHour(t, "2024-01-01", 23)))
}

func TestDeliveryEntry_Reschedule(t *testing.T) {
	e := entryOn(t, "2024-01-02")
	require.NoError(t, e.StartJourney("ptr_rider1", mustAtHour(t, "2024-01-02", 7), nil))
	require.NoError(t, e.AwaitCustomer())

	require.NoError(t, e.Reschedule(date(t, "2024-01-10"), vo.SlotEvening))
	assert.Equal(t, vo.DeliveryScheduled, e.Status())
	assert.Equal(t, date(t, "2024-01-10"), e.Date())
	assert.Equal(t, vo.SlotEvening.CutoffAt(date(t, "2024-01-10")), e.CutoffAt())
}

func TestDeliveryEntry_AddLineDuplicate(t *testing.T) {
	e := entryOn(t, "2024-01-02")
	err := e.AddLine(DeliveryProductLine{SubscriptionProductID: "sp_default1", ProductSID: "prd_milk500", Name: "Cow Milk", Quantity: qty(t, 500, vo.UnitMilliliter), Status: vo.LinePending})
	assert.ErrorIs(t, err, ErrDuplicateProductOnDate)
}

func TestReconstructDeliveryEntry_RequiresLineIDs(t *testing.T) {
	_, err := ReconstructDeliveryEntry(EntryReconstructParams{
		SID:    "del_legacy1",
		Date:   date(t, "2024-01-02"),
		Slot:   vo.SlotMorning,
		Status: vo.DeliveryScheduled,
		Lines: []DeliveryProductLine{{
			ProductSID: "prd_milk500",
			Name:       "Cow Milk",
			Quantity:   qty(t, 500, vo.UnitMilliliter),
			Status:     vo.LinePending,
		}},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
