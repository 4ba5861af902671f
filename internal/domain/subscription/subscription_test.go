package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
)

// --- helpers ---

func date(t *testing.T, s string) vo.DeliveryDate {
	t.Helper()
	d, err := vo.ParseDeliveryDate(s)
	require.NoError(t, err)
	return d
}

func qty(t *testing.T, value float64, unit vo.QuantityUnit) vo.Quantity {
	t.Helper()
	q, err := vo.NewQuantity(value, unit)
	require.NoError(t, err)
	return q
}

func milkSpec(t *testing.T) ProductSpec {
	t.Helper()
	return ProductSpec{
		ProductSID: "prd_milk500",
		Name:       "Cow Milk",
		Quantity:   qty(t, 500, vo.UnitMilliliter),
		UnitPrice:  3500,
		Frequency:  vo.FrequencyDaily,
		Count:      1,
	}
}

func gheeSpec(t *testing.T) ProductSpec {
	t.Helper()
	return ProductSpec{
		ProductSID: "prd_ghee250",
		Name:       "A2 Ghee",
		Quantity:   qty(t, 250, vo.UnitGram),
		UnitPrice:  42000,
		Frequency:  vo.FrequencyWeekly,
		Count:      1,
	}
}

// newTestSubscription creates a subscription starting 2024-01-02 as seen from
// the morning of 2024-01-01 business time.
func newTestSubscription(t *testing.T, specs ...ProductSpec) *Subscription {
	t.Helper()
	now := mustAtHour(t, "2024-01-01", 10)
	sub, err := NewSubscription("cus_owner1", "brn_anand1", "adr_home1", "ptr_rider1", vo.SlotMorning, date(t, "2024-01-02"), specs, now)
	require.NoError(t, err)
	require.NoError(t, sub.CheckInvariants())
	return sub
}

func mustAtHour(t *testing.T, day string, hour int) time.Time {
	t.Helper()
	return date(t, day).AtHour(hour)
}

func productSID(t *testing.T, sub *Subscription, productRef string) string {
	t.Helper()
	for _, p := range sub.Products() {
		if p.ProductSID() == productRef {
			return p.SID()
		}
	}
	t.Fatalf("no subscription product for %s", productRef)
	return ""
}

// deliverDay walks one entry through the happy path: journey start at 07:00,
// delivered at 08:00 business time.
func deliverDay(t *testing.T, sub *Subscription, day string) {
	t.Helper()
	require.NoError(t, sub.StartJourney(date(t, day), "ptr_rider1", mustAtHour(t, day, 7), nil))
	_, err := sub.MarkDelivered(date(t, day), mustAtHour(t, day, 8))
	require.NoError(t, err)
	require.NoError(t, sub.CheckInvariants())
}

// --- construction ---

func TestNewSubscription_DailyProduct(t *testing.T) {
	sub := newTestSubscription(t, milkSpec(t))

	assert.Equal(t, vo.StatusActive, sub.Status())
	assert.Equal(t, date(t, "2024-01-02"), sub.StartDate())
	assert.Equal(t, date(t, "2024-01-31"), sub.EndDate())
	assert.Equal(t, 30, sub.TotalDeliveries())
	assert.Equal(t, 0, sub.DeliveredCount())
	assert.Equal(t, 30, sub.RemainingDeliveries())
	assert.Equal(t, 30, sub.Schedule().Len())

	milk := sub.Products()[0]
	assert.Equal(t, 30, milk.TotalDeliveries())
	assert.Equal(t, 30, milk.RemainingDeliveries())
	assert.Equal(t, int64(3500*30), milk.MonthlyPrice())
}

func TestNewSubscription_MergesFrequencies(t *testing.T) {
	sub := newTestSubscription(t, milkSpec(t), gheeSpec(t))

	// Daily covers every day of the cycle; weekly folds into shared entries.
	assert.Equal(t, 30, sub.Schedule().Len())
	assert.Equal(t, 30, sub.TotalDeliveries())

	both := sub.Schedule().EntryOn(date(t, "2024-01-02"))
	require.NotNil(t, both)
	assert.Len(t, both.Lines(), 2)

	milkOnly := sub.Schedule().EntryOn(date(t, "2024-01-03"))
	require.NotNil(t, milkOnly)
	assert.Len(t, milkOnly.Lines(), 1)

	nextShared := sub.Schedule().EntryOn(date(t, "2024-01-09"))
	require.NotNil(t, nextShared)
	assert.Len(t, nextShared.Lines(), 2)

	ghee := sub.Products()[1]
	assert.Equal(t, 5, ghee.TotalDeliveries())
}

func TestNewSubscription_RequiresProducts(t *testing.T) {
	now := mustAtHour(t, "2024-01-01", 10)
	_, err := NewSubscription("cus_owner1", "brn_anand1", "adr_home1", "ptr_rider1", vo.SlotMorning, date(t, "2024-01-02"), nil, now)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReconstructSubscription_RejectsBadCounters(t *testing.T) {
	_, err := ReconstructSubscriptionProduct(ProductReconstructParams{
		SID:             "sp_broken1",
		ProductSID:      "prd_milk500",
		Name:            "Cow Milk",
		Quantity:        qty(t, 500, vo.UnitMilliliter),
		Frequency:       vo.FrequencyDaily,
		TotalDeliveries: 30,
		DeliveredCount:  10,
		Remaining:       25,
	})
	assert.Error(t, err)
}

// --- delivery transitions and counters ---

func TestMarkDelivered_AdvancesCounters(t *testing.T) {
	sub := newTestSubscription(t, milkSpec(t), gheeSpec(t))

	require.NoError(t, sub.StartJourney(date(t, "2024-01-02"), "ptr_rider1", mustAtHour(t, "2024-01-02", 7), &GeoPoint{Latitude: 22.55, Longitude: 72.95}))
	result, err := sub.MarkDelivered(date(t, "2024-01-02"), mustAtHour(t, "2024-01-02", 8))
	require.NoError(t, err)

	assert.Len(t, result.Resolved, 2)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, 1, sub.DeliveredCount())
	assert.Equal(t, 29, sub.RemainingDeliveries())
	assert.Equal(t, 29, sub.Products()[0].RemainingDeliveries())
	assert.Equal(t, 4, sub.Products()[1].RemainingDeliveries())
	require.NoError(t, sub.CheckInvariants())
}

func TestMarkDelivered_Twice(t *testing.T) {
	sub := newTestSubscription(t, milkSpec(t))
	deliverDay(t, sub, "2024-01-02")

	_, err := sub.MarkDelivered(date(t, "2024-01-02"), mustAtHour(t, "2024-01-02", 9))
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	assert.Equal(t, 1, sub.DeliveredCount())
}

func TestStartJourney_WrongPartner(t *testing.T) {
	sub := newTestSubscription(t, milkSpec(t))
	err := sub.StartJourney(date(t, "2024-01-02"), "ptr_other99", mustAtHour(t, "2024-01-02", 7), nil)
	assert.ErrorIs(t, err, ErrNotAssignedPartner)
}

func TestStartJourney_OnlyOnDeliveryDay(t *testing.T) {
	sub := newTestSubscription(t, milkSpec(t))
	err := sub.StartJourney(date(t, "2024-01-03"), "ptr_rider1", mustAtHour(t, "2024-01-02", 7), nil)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestMarkNoResponse_CountsAsDelivered(t *testing.T) {
	sub := newTestSubscription(t, milkSpec(t))
	require.NoError(t, sub.StartJourney(date(t, "2024-01-02"), "ptr_rider1", mustAtHour(t, "2024-01-02", 7), nil))

	result, err := sub.MarkNoResponse(date(t, "2024-01-02"), mustAtHour(t, "2024-01-02", 8))
	require.NoError(t, err)
	assert.Len(t, result.Resolved, 1)
	assert.Equal(t, 1, sub.DeliveredCount())
	assert.Equal(t, vo.DeliveryNoResponse, sub.Schedule().EntryOn(date(t, "2024-01-02")).Status())
}

func TestConfirmByCustomer(t *testing.T) {
	sub := newTestSubscription(t, milkSpec(t))
	require.NoError(t, sub.StartJourney(date(t, "2024-01-02"), "ptr_rider1", mustAtHour(t, "2024-01-02", 7), nil))
	require.NoError(t, sub.AwaitCustomer(date(t, "2024-01-02"), mustAtHour(t, "2024-01-02", 8)))

	_, err := sub.ConfirmByCustomer(date(t, "2024-01-02"), "cus_someoneelse", mustAtHour(t, "2024-01-02", 9))
	assert.ErrorIs(t, err, ErrNotOwner)

	result, err := sub.ConfirmByCustomer(date(t, "2024-01-02"), "cus_owner1", mustAtHour(t, "2024-01-02", 9))
	require.NoError(t, err)
	assert.Len(t, result.Resolved, 1)
	assert.Equal(t, vo.DeliveryDelivered, sub.Schedule().EntryOn(date(t, "2024-01-02")).Status())
}

func TestCompletion_AfterLastDelivery(t *testing.T) {
	sub := newTestSubscription(t, gheeSpec(t))
	require.Equal(t, 5, sub.TotalDeliveries())

	for _, day := range []string{"2024-01-02", "2024-01-09", "2024-01-16", "2024-01-23", "2024-01-30"} {
		deliverDay(t, sub, day)
	}

	assert.Equal(t, 0, sub.RemainingDeliveries())
	assert.Equal(t, vo.StatusCompleted, sub.Status())
}

// --- cancellation ---

func TestCancel_BeforeCutoffWindow(t *testing.T) {
	sub := newTestSubscription(t, milkSpec(t))
	policy := DefaultSchedulingPolicy()

	// Next delivery 2024-01-02 morning, nominal 06:00; with a 12h cutoff the
	// window closes at 18:00 on 2024-01-01.
	err := sub.Cancel("moving out", mustAtHour(t, "2024-01-01", 17), policy.CancellationCutoffHours)
	require.NoError(t, err)

	assert.Equal(t, vo.StatusCancelled, sub.Status())
	require.NotNil(t, sub.CancelReason())
	assert.Equal(t, "moving out", *sub.CancelReason())
	assert.Equal(t, 0, sub.RemainingDeliveries())
	for _, e := range sub.Schedule().Entries() {
		assert.Equal(t, vo.DeliveryCanceled, e.Status())
	}
}

func TestCancel_WindowClosed(t *testing.T) {
	sub := newTestSubscription(t, milkSpec(t))
	policy := DefaultSchedulingPolicy()

	err := sub.Cancel("moving out", mustAtHour(t, "2024-01-01", 19), policy.CancellationCutoffHours)
	assert.ErrorIs(t, err, ErrCancellationWindowClosed)
	assert.Equal(t, vo.StatusActive, sub.Status())
}

func TestCancel_RequiresReason(t *testing.T) {
	sub := newTestSubscription(t, milkSpec(t))
	err := sub.Cancel("", mustAtHour(t, "2024-01-01", 12), 12)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

// --- pause / resume ---

func TestPauseAndResume(t *testing.T) {
	sub := newTestSubscription(t, milkSpec(t))
	now := mustAtHour(t, "2024-01-05", 10)

	require.NoError(t, sub.Pause(now))
	assert.Equal(t, vo.StatusPaused, sub.Status())
	assert.Equal(t, vo.DeliveryPaused, sub.Schedule().EntryOn(date(t, "2024-01-06")).Status())

	require.NoError(t, sub.Resume(mustAtHour(t, "2024-01-06", 10)))
	assert.Equal(t, vo.StatusActive, sub.Status())
	assert.Equal(t, vo.DeliveryScheduled, sub.Schedule().EntryOn(date(t, "2024-01-06")).Status())
}

// --- adding products mid-subscription ---

func TestAddProduct_ScalesToRemainingWindow(t *testing.T) {
	sub := newTestSubscription(t, milkSpec(t))
	now := mustAtHour(t, "2024-01-15", 10)

	dates, err := sub.AddProduct(gheeSpec(t), now)
	require.NoError(t, err)

	// Weekly from 2024-01-16 bounded by the end date 2024-01-31.
	require.Len(t, dates, 3)
	assert.Equal(t, date(t, "2024-01-16"), dates[0])
	assert.Equal(t, date(t, "2024-01-30"), dates[2])

	ghee := sub.Products()[1]
	assert.Equal(t, 3, ghee.TotalDeliveries())
	assert.Len(t, sub.Schedule().EntryOn(date(t, "2024-01-16")).Lines(), 2)
	require.NoError(t, sub.CheckInvariants())
}

func TestAddProduct_NoRemainingWindow(t *testing.T) {
	sub := newTestSubscription(t, milkSpec(t))
	now := mustAtHour(t, "2024-01-31", 10)

	_, err := sub.AddProduct(gheeSpec(t), now)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
