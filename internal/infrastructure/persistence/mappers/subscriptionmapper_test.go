package mappers

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milkrun-inc/milkrun/internal/domain/subscription"
	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
)

func testMapper() SubscriptionMapper {
	return NewSubscriptionMapper(logger.NewLoggerWithSlog(slog.New(slog.DiscardHandler)))
}

// buildAggregate assembles a subscription with one product and one delivery
// carrying every optional field the mapper has to persist: a partner
// location, lifecycle timestamps, and concession details.
func buildAggregate(t *testing.T) *subscription.Subscription {
	t.Helper()

	qty, err := vo.NewQuantity(500, vo.UnitMilliliter)
	require.NoError(t, err)

	product, err := subscription.ReconstructSubscriptionProduct(subscription.ProductReconstructParams{
		SID:             "sp_maptest00001",
		ProductSID:      "prd_milk500",
		Name:            "Cow Milk",
		Quantity:        qty,
		UnitPrice:       3500,
		MonthlyPrice:    105000,
		Frequency:       vo.FrequencyDaily,
		DeliveryGapDays: 1,
		TotalDeliveries: 30,
		DeliveredCount:  3,
		Remaining:       27,
		Count:           1,
	})
	require.NoError(t, err)

	date, err := vo.ParseDeliveryDate("2026-09-04")
	require.NoError(t, err)
	originalDate, err := vo.ParseDeliveryDate("2026-09-03")
	require.NoError(t, err)

	started := time.Date(2026, 9, 4, 1, 30, 0, 0, time.UTC)
	entry, err := subscription.ReconstructDeliveryEntry(subscription.EntryReconstructParams{
		SID:        "del_maptest0001",
		Date:       date,
		Slot:       vo.SlotMorning,
		Status:     vo.DeliveryReaching,
		CutoffAt:   time.Date(2026, 9, 3, 18, 30, 0, 0, time.UTC),
		Lines:      []subscription.DeliveryProductLine{product.Line()},
		PartnerSID: "ptr_rider1",
		Location:   &subscription.GeoPoint{Latitude: 22.5645, Longitude: 72.9289},
		StartedAt:  &started,
		Concession: true,
		ConcessionDetails: &subscription.ConcessionDetails{
			OriginalDate:  originalDate,
			RescheduledTo: date,
			Reason:        "partner did not resolve the delivery before end of day",
		},
	})
	require.NoError(t, err)

	startDate, err := vo.ParseDeliveryDate("2026-09-01")
	require.NoError(t, err)
	endDate, err := vo.ParseDeliveryDate("2026-09-30")
	require.NoError(t, err)

	now := time.Date(2026, 9, 4, 2, 0, 0, 0, time.UTC)
	sub, err := subscription.ReconstructSubscription(subscription.SubscriptionReconstructParams{
		ID:          42,
		SID:         "sub_maptest00001",
		CustomerSID: "cus_owner1",
		BranchSID:   "brn_anand1",
		AddressSID:  "adr_home1",
		PartnerSID:  "ptr_rider1",
		Slot:        vo.SlotMorning,
		StartDate:   startDate,
		EndDate:     endDate,
		Products:    []*subscription.SubscriptionProduct{product},
		Entries:     []*subscription.DeliveryEntry{entry},
		Status:      vo.StatusActive,
		Version:     7,
		CreatedAt:   now.Add(-72 * time.Hour),
		UpdatedAt:   now,
	})
	require.NoError(t, err)
	return sub
}

func TestSubscriptionMapper_RoundTrip(t *testing.T) {
	mapper := testMapper()
	original := buildAggregate(t)

	model, err := mapper.ToModel(original)
	require.NoError(t, err)
	productModels, err := mapper.ToProductModels(original)
	require.NoError(t, err)
	entryModels, err := mapper.ToEntryModels(original)
	require.NoError(t, err)

	require.Len(t, productModels, 1)
	require.Len(t, entryModels, 1)
	assert.Equal(t, uint(42), entryModels[0].SubscriptionID)
	assert.Equal(t, "2026-09-04", entryModels[0].Date)
	assert.JSONEq(t, `[{
		"subscriptionProductId": "sp_maptest00001",
		"productSid": "prd_milk500",
		"name": "Cow Milk",
		"quantityValue": 500,
		"quantityUnit": "ml",
		"status": "pending"
	}]`, string(entryModels[0].Lines))

	restored, err := mapper.ToEntity(model, productModels, entryModels)
	require.NoError(t, err)

	assert.Equal(t, original.SID(), restored.SID())
	assert.Equal(t, original.Version(), restored.Version())
	assert.Equal(t, vo.StatusActive, restored.Status())
	assert.Equal(t, original.StartDate(), restored.StartDate())
	assert.Equal(t, original.EndDate(), restored.EndDate())

	product := restored.Products()[0]
	assert.Equal(t, "sp_maptest00001", product.SID())
	assert.Equal(t, 27, product.RemainingDeliveries())
	assert.Equal(t, int64(105000), product.MonthlyPrice())

	entry := restored.Schedule().Entries()[0]
	assert.Equal(t, vo.DeliveryReaching, entry.Status())
	assert.Equal(t, "ptr_rider1", entry.PartnerSID())
	require.NotNil(t, entry.Location())
	assert.InDelta(t, 22.5645, entry.Location().Latitude, 1e-9)
	require.NotNil(t, entry.StartedAt())
	assert.True(t, entry.Concession())
	require.NotNil(t, entry.ConcessionDetails())
	assert.Equal(t, "2026-09-03", entry.ConcessionDetails().OriginalDate.String())

	require.Len(t, entry.Lines(), 1)
	assert.Equal(t, "sp_maptest00001", entry.Lines()[0].SubscriptionProductID)
	assert.Equal(t, vo.LinePending, entry.Lines()[0].Status)
}

func TestSubscriptionMapper_NilEntity(t *testing.T) {
	mapper := testMapper()

	model, err := mapper.ToModel(nil)
	require.NoError(t, err)
	assert.Nil(t, model)

	entity, err := mapper.ToEntity(nil, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, entity)
}

func TestSubscriptionMapper_CorruptLines(t *testing.T) {
	mapper := testMapper()
	original := buildAggregate(t)

	model, err := mapper.ToModel(original)
	require.NoError(t, err)
	productModels, err := mapper.ToProductModels(original)
	require.NoError(t, err)
	entryModels, err := mapper.ToEntryModels(original)
	require.NoError(t, err)

	entryModels[0].Lines = []byte(`{"not":"an array"`)
	_, err = mapper.ToEntity(model, productModels, entryModels)
	assert.Error(t, err)
}

func TestSubscriptionMapper_LegacyLineWithoutProductID(t *testing.T) {
	mapper := testMapper()
	original := buildAggregate(t)

	model, err := mapper.ToModel(original)
	require.NoError(t, err)
	productModels, err := mapper.ToProductModels(original)
	require.NoError(t, err)
	entryModels, err := mapper.ToEntryModels(original)
	require.NoError(t, err)

	// Old records persisted lines without the subscription product id.
	// They still have to load; the line just never matches a product.
	entryModels[0].Lines = []byte(`[{
		"subscriptionProductId": "",
		"productSid": "prd_milk500",
		"name": "Cow Milk",
		"quantityValue": 500,
		"quantityUnit": "ml",
		"status": "pending"
	}]`)

	restored, err := mapper.ToEntity(model, productModels, entryModels)
	require.NoError(t, err)

	entry := restored.Schedule().Entries()[0]
	require.Len(t, entry.Lines(), 1)
	assert.Empty(t, entry.Lines()[0].SubscriptionProductID)
	assert.Equal(t, "prd_milk500", entry.Lines()[0].ProductSID)
	assert.False(t, entry.HasProduct("sp_maptest00001"))
}
