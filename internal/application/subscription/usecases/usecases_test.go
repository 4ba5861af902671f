package usecases

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milkrun-inc/milkrun/internal/domain/subscription"
	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
	"github.com/milkrun-inc/milkrun/internal/shared/biztime"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
)

// --- fakes ---

// cloneSubscription deep-copies an aggregate through its reconstruct path,
// the same round trip the mapper performs, so the fake repository hands out
// independent copies the way the real one does.
func cloneSubscription(t *testing.T, sub *subscription.Subscription) *subscription.Subscription {
	t.Helper()

	products := make([]*subscription.SubscriptionProduct, 0, len(sub.Products()))
	for _, p := range sub.Products() {
		clone, err := subscription.ReconstructSubscriptionProduct(subscription.ProductReconstructParams{
			SID:             p.SID(),
			ProductSID:      p.ProductSID(),
			Name:            p.Name(),
			Quantity:        p.Quantity(),
			UnitPrice:       p.UnitPrice(),
			MonthlyPrice:    p.MonthlyPrice(),
			Frequency:       p.Frequency(),
			DeliveryGapDays: p.DeliveryGapDays(),
			TotalDeliveries: p.TotalDeliveries(),
			DeliveredCount:  p.DeliveredCount(),
			Remaining:       p.RemainingDeliveries(),
			Count:           p.Count(),
		})
		require.NoError(t, err)
		products = append(products, clone)
	}

	scheduleEntries := sub.Schedule().Entries()
	entries := make([]*subscription.DeliveryEntry, 0, len(scheduleEntries))
	for _, e := range scheduleEntries {
		clone, err := subscription.ReconstructDeliveryEntry(subscription.EntryReconstructParams{
			SID:               e.SID(),
			Date:              e.Date(),
			Slot:              e.Slot(),
			Status:            e.Status(),
			CutoffAt:          e.CutoffAt(),
			Lines:             e.Lines(),
			PartnerSID:        e.PartnerSID(),
			Location:          e.Location(),
			StartedAt:         e.StartedAt(),
			DeliveredAt:       e.DeliveredAt(),
			ConfirmedAt:       e.ConfirmedAt(),
			CanceledAt:        e.CanceledAt(),
			Concession:        e.Concession(),
			ConcessionDetails: e.ConcessionDetails(),
		})
		require.NoError(t, err)
		entries = append(entries, clone)
	}

	out, err := subscription.ReconstructSubscription(subscription.SubscriptionReconstructParams{
		ID:           sub.ID(),
		SID:          sub.SID(),
		CustomerSID:  sub.CustomerSID(),
		BranchSID:    sub.BranchSID(),
		AddressSID:   sub.AddressSID(),
		PartnerSID:   sub.PartnerSID(),
		Slot:         sub.Slot(),
		StartDate:    sub.StartDate(),
		EndDate:      sub.EndDate(),
		Products:     products,
		Entries:      entries,
		Status:       sub.Status(),
		CancelReason: sub.CancelReason(),
		CancelledAt:  sub.CancelledAt(),
		Version:      sub.Version(),
		CreatedAt:    sub.CreatedAt(),
		UpdatedAt:    sub.UpdatedAt(),
	})
	require.NoError(t, err)
	return out
}

type fakeSubscriptionRepo struct {
	t           *testing.T
	bySID       map[string]*subscription.Subscription
	nextID      uint
	updateCalls int
	updateErrs  []error // consumed one per Update call
}

func newFakeRepo(t *testing.T, subs ...*subscription.Subscription) *fakeSubscriptionRepo {
	t.Helper()
	r := &fakeSubscriptionRepo{t: t, bySID: make(map[string]*subscription.Subscription)}
	for _, s := range subs {
		if s.ID() > r.nextID {
			r.nextID = s.ID()
		}
		r.bySID[s.SID()] = s
	}
	return r
}

func (r *fakeSubscriptionRepo) Create(_ context.Context, sub *subscription.Subscription) error {
	if sub.ID() == 0 {
		r.nextID++
		require.NoError(r.t, sub.SetID(r.nextID))
	}
	r.bySID[sub.SID()] = sub
	return nil
}

func (r *fakeSubscriptionRepo) GetByID(_ context.Context, _ uint) (*subscription.Subscription, error) {
	return nil, nil
}

func (r *fakeSubscriptionRepo) GetBySID(_ context.Context, sid string) (*subscription.Subscription, error) {
	s, ok := r.bySID[sid]
	if !ok {
		return nil, nil
	}
	return cloneSubscription(r.t, s), nil
}

func (r *fakeSubscriptionRepo) GetByCustomerSID(_ context.Context, customerSID string) ([]*subscription.Subscription, error) {
	var out []*subscription.Subscription
	for _, s := range r.bySID {
		if s.CustomerSID() == customerSID {
			out = append(out, cloneSubscription(r.t, s))
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) Update(_ context.Context, sub *subscription.Subscription) error {
	r.updateCalls++
	if len(r.updateErrs) > 0 {
		err := r.updateErrs[0]
		r.updateErrs = r.updateErrs[1:]
		if err != nil {
			return err
		}
	}
	r.bySID[sub.SID()] = sub
	return nil
}

func (r *fakeSubscriptionRepo) Delete(_ context.Context, _ uint) error { return nil }

func (r *fakeSubscriptionRepo) List(_ context.Context, filter subscription.SubscriptionFilter) ([]*subscription.Subscription, int64, error) {
	var out []*subscription.Subscription
	for _, s := range r.bySID {
		if filter.CustomerSID != nil && s.CustomerSID() != *filter.CustomerSID {
			continue
		}
		out = append(out, cloneSubscription(r.t, s))
	}
	return out, int64(len(out)), nil
}

func (r *fakeSubscriptionRepo) FindWithUnresolvedDeliveriesBefore(_ context.Context, date vo.DeliveryDate) ([]*subscription.Subscription, error) {
	var out []*subscription.Subscription
	for _, s := range r.bySID {
		for _, e := range s.Schedule().Entries() {
			if e.Unresolved() && !e.Date().After(date) {
				out = append(out, cloneSubscription(r.t, s))
				break
			}
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) FindExpiringSubscriptions(_ context.Context, _ int) ([]*subscription.Subscription, error) {
	return nil, nil
}

func (r *fakeSubscriptionRepo) FindDueOn(_ context.Context, date vo.DeliveryDate, partnerSID string) ([]*subscription.Subscription, error) {
	var out []*subscription.Subscription
	for _, s := range r.bySID {
		if partnerSID != "" && s.PartnerSID() != partnerSID {
			continue
		}
		if s.Schedule().EntryOn(date) != nil {
			out = append(out, cloneSubscription(r.t, s))
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) CountByStatus(_ context.Context, _ string) (int64, error) {
	return 0, nil
}

type fakeCatalog struct {
	products map[string]*CatalogProduct
}

func (c *fakeCatalog) GetProduct(_ context.Context, productSID string) (*CatalogProduct, error) {
	return c.products[productSID], nil
}

type capturingPublisher struct {
	events []DomainEvent
}

func (p *capturingPublisher) Publish(_ context.Context, event DomainEvent) error {
	p.events = append(p.events, event)
	return nil
}

func testLogger() logger.Interface {
	return logger.NewLoggerWithSlog(slog.New(slog.DiscardHandler))
}

func testCatalog(t *testing.T) *fakeCatalog {
	t.Helper()
	milkQty, err := vo.NewQuantity(500, vo.UnitMilliliter)
	require.NoError(t, err)
	gheeQty, err := vo.NewQuantity(250, vo.UnitGram)
	require.NoError(t, err)
	return &fakeCatalog{products: map[string]*CatalogProduct{
		"prd_milk500": {SID: "prd_milk500", Name: "Cow Milk", Quantity: milkQty, UnitPrice: 3500, Active: true},
		"prd_ghee250": {SID: "prd_ghee250", Name: "A2 Ghee", Quantity: gheeQty, UnitPrice: 42000, Active: true},
		"prd_retired": {SID: "prd_retired", Name: "Buffalo Milk", Quantity: milkQty, UnitPrice: 4000, Active: false},
	}}
}

// --- create ---

func TestCreateSubscriptionUseCase_Execute(t *testing.T) {
	repo := newFakeRepo(t)
	publisher := &capturingPublisher{}
	uc := NewCreateSubscriptionUseCase(repo, testCatalog(t), publisher, testLogger())

	result, err := uc.Execute(context.Background(), CreateSubscriptionCommand{
		CustomerSID: "cus_owner1",
		BranchSID:   "brn_anand1",
		AddressSID:  "adr_home1",
		PartnerSID:  "ptr_rider1",
		Slot:        "morning",
		Products: []CreateSubscriptionProduct{
			{ProductSID: "prd_milk500", Frequency: "daily", Count: 1},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Subscription)

	sub := result.Subscription
	assert.Equal(t, 30, sub.TotalDeliveries())
	assert.Equal(t, vo.StatusActive, sub.Status())
	assert.NotNil(t, repo.bySID[sub.SID()])

	require.Len(t, publisher.events, 1)
	assert.Equal(t, "subscription.created", publisher.events[0].GetEventType())
}

func TestCreateSubscriptionUseCase_InactiveProduct(t *testing.T) {
	uc := NewCreateSubscriptionUseCase(newFakeRepo(t), testCatalog(t), nil, testLogger())

	_, err := uc.Execute(context.Background(), CreateSubscriptionCommand{
		CustomerSID: "cus_owner1",
		BranchSID:   "brn_anand1",
		Slot:        "morning",
		Products: []CreateSubscriptionProduct{
			{ProductSID: "prd_retired", Frequency: "daily"},
		},
	})
	assert.ErrorIs(t, err, subscription.ErrProductNotFound)
}

func TestCreateSubscriptionUseCase_InvalidSlot(t *testing.T) {
	uc := NewCreateSubscriptionUseCase(newFakeRepo(t), testCatalog(t), nil, testLogger())
	_, err := uc.Execute(context.Background(), CreateSubscriptionCommand{
		CustomerSID: "cus_owner1",
		BranchSID:   "brn_anand1",
		Slot:        "afternoon",
		Products:    []CreateSubscriptionProduct{{ProductSID: "prd_milk500", Frequency: "daily"}},
	})
	assert.ErrorIs(t, err, vo.ErrInvalidSlot)
}

// --- add product ---

func createTestSubscription(t *testing.T, repo *fakeSubscriptionRepo) *subscription.Subscription {
	t.Helper()
	uc := NewCreateSubscriptionUseCase(repo, testCatalog(t), nil, testLogger())
	result, err := uc.Execute(context.Background(), CreateSubscriptionCommand{
		CustomerSID: "cus_owner1",
		BranchSID:   "brn_anand1",
		AddressSID:  "adr_home1",
		PartnerSID:  "ptr_rider1",
		Slot:        "morning",
		Products:    []CreateSubscriptionProduct{{ProductSID: "prd_milk500", Frequency: "daily", Count: 1}},
	})
	require.NoError(t, err)
	return result.Subscription
}

func TestAddProductUseCase_RetriesOnVersionConflict(t *testing.T) {
	repo := newFakeRepo(t)
	sub := createTestSubscription(t, repo)
	repo.updateErrs = []error{subscription.ErrVersionConflict}

	uc := NewAddProductUseCase(repo, testCatalog(t), nil, nil, subscription.DefaultSchedulingPolicy(), testLogger())
	result, err := uc.Execute(context.Background(), AddProductCommand{
		SubscriptionSID: sub.SID(),
		CustomerSID:     "cus_owner1",
		ProductSID:      "prd_ghee250",
		Frequency:       "weekly",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.updateCalls)
	assert.NotEmpty(t, result.DeliveryDates)
	assert.Len(t, result.Subscription.Products(), 2)
}

func TestAddProductUseCase_NotOwner(t *testing.T) {
	repo := newFakeRepo(t)
	sub := createTestSubscription(t, repo)

	uc := NewAddProductUseCase(repo, testCatalog(t), nil, nil, subscription.DefaultSchedulingPolicy(), testLogger())
	_, err := uc.Execute(context.Background(), AddProductCommand{
		SubscriptionSID: sub.SID(),
		CustomerSID:     "cus_stranger",
		ProductSID:      "prd_ghee250",
		Frequency:       "weekly",
	})
	assert.ErrorIs(t, err, subscription.ErrNotOwner)
}

// --- queries ---

func TestGetSubscriptionUseCase_Ownership(t *testing.T) {
	repo := newFakeRepo(t)
	sub := createTestSubscription(t, repo)
	uc := NewGetSubscriptionUseCase(repo, subscription.DefaultSchedulingPolicy(), testLogger())

	got, err := uc.Execute(context.Background(), GetSubscriptionQuery{SubscriptionSID: sub.SID(), CustomerSID: "cus_owner1"})
	require.NoError(t, err)
	assert.Equal(t, sub.SID(), got.SID())

	_, err = uc.Execute(context.Background(), GetSubscriptionQuery{SubscriptionSID: sub.SID(), CustomerSID: "cus_stranger"})
	assert.ErrorIs(t, err, subscription.ErrNotOwner)

	_, err = uc.Execute(context.Background(), GetSubscriptionQuery{SubscriptionSID: "sub_missing00000"})
	assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
}

// TestGetSubscriptionUseCase_SettlesOverdueDays verifies that a plain read
// settles a day the concession policy should have closed: the stale entry
// comes back cancelled with its compensation booked, and the settled state is
// written back.
func TestGetSubscriptionUseCase_SettlesOverdueDays(t *testing.T) {
	overdue := reconstructOverdue(t)
	yesterday := overdue.Schedule().Entries()[0].Date()
	repo := newFakeRepo(t, overdue)
	uc := NewGetSubscriptionUseCase(repo, subscription.DefaultSchedulingPolicy(), testLogger())

	got, err := uc.Execute(context.Background(), GetSubscriptionQuery{SubscriptionSID: overdue.SID()})
	require.NoError(t, err)

	swept := got.Schedule().EntryOn(yesterday)
	require.NotNil(t, swept)
	assert.Equal(t, vo.DeliveryCanceled, swept.Status())
	assert.True(t, swept.Concession())
	assert.Equal(t, 2, got.Products()[0].TotalDeliveries())
	assert.Equal(t, 1, repo.updateCalls)

	// The settled state was persisted, so a second read changes nothing.
	_, err = uc.Execute(context.Background(), GetSubscriptionQuery{SubscriptionSID: overdue.SID()})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.updateCalls)
}

// --- resolve delivery ---

// reconstructReaching builds a subscription whose single delivery is out with
// the partner today, ready to be resolved.
func reconstructReaching(t *testing.T) *subscription.Subscription {
	t.Helper()
	now := biztime.NowUTC()
	today := vo.DateOf(now)

	qty, err := vo.NewQuantity(500, vo.UnitMilliliter)
	require.NoError(t, err)
	product, err := subscription.ReconstructSubscriptionProduct(subscription.ProductReconstructParams{
		SID:             "sp_reaching0001",
		ProductSID:      "prd_milk500",
		Name:            "Cow Milk",
		Quantity:        qty,
		UnitPrice:       3500,
		MonthlyPrice:    3500,
		Frequency:       vo.FrequencyDaily,
		DeliveryGapDays: 1,
		TotalDeliveries: 1,
		DeliveredCount:  0,
		Remaining:       1,
		Count:           1,
	})
	require.NoError(t, err)

	started := now.Add(-time.Hour)
	entry, err := subscription.ReconstructDeliveryEntry(subscription.EntryReconstructParams{
		SID:        "del_reaching0001",
		Date:       today,
		Slot:       vo.SlotMorning,
		Status:     vo.DeliveryReaching,
		CutoffAt:   vo.SlotMorning.CutoffAt(today),
		Lines:      []subscription.DeliveryProductLine{product.Line()},
		PartnerSID: "ptr_rider1",
		StartedAt:  &started,
	})
	require.NoError(t, err)

	sub, err := subscription.ReconstructSubscription(subscription.SubscriptionReconstructParams{
		ID:          2,
		SID:         "sub_reaching0001",
		CustomerSID: "cus_owner1",
		BranchSID:   "brn_anand1",
		PartnerSID:  "ptr_rider1",
		Slot:        vo.SlotMorning,
		StartDate:   today,
		EndDate:     today,
		Products:    []*subscription.SubscriptionProduct{product},
		Entries:     []*subscription.DeliveryEntry{entry},
		Status:      vo.StatusActive,
		Version:     3,
		CreatedAt:   now.Add(-24 * time.Hour),
		UpdatedAt:   now.Add(-time.Hour),
	})
	require.NoError(t, err)
	return sub
}

// TestResolveDeliveryUseCase_RetriesOnVersionConflict verifies that a partner
// resolution reloads and reapplies once when another writer got there first.
func TestResolveDeliveryUseCase_RetriesOnVersionConflict(t *testing.T) {
	sub := reconstructReaching(t)
	today := sub.Schedule().Entries()[0].Date()
	repo := newFakeRepo(t, sub)
	repo.updateErrs = []error{subscription.ErrVersionConflict}

	uc := NewResolveDeliveryUseCase(repo, nil, subscription.DefaultSchedulingPolicy(), testLogger())
	result, err := uc.Execute(context.Background(), ResolveDeliveryCommand{
		SubscriptionSID: sub.SID(),
		Date:            today.String(),
		PartnerSID:      "ptr_rider1",
		Outcome:         OutcomeDelivered,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.updateCalls)
	assert.Len(t, result.Transition.Resolved, 1)

	stored := repo.bySID[sub.SID()]
	entry := stored.Schedule().EntryOn(today)
	require.NotNil(t, entry)
	assert.Equal(t, vo.DeliveryDelivered, entry.Status())
	assert.Equal(t, 1, stored.Products()[0].DeliveredCount())
}

func TestResolveDeliveryUseCase_UnknownOutcome(t *testing.T) {
	repo := newFakeRepo(t)
	sub := createTestSubscription(t, repo)

	uc := NewResolveDeliveryUseCase(repo, nil, subscription.DefaultSchedulingPolicy(), testLogger())
	_, err := uc.Execute(context.Background(), ResolveDeliveryCommand{
		SubscriptionSID: sub.SID(),
		Date:            sub.StartDate().String(),
		PartnerSID:      "ptr_rider1",
		Outcome:         "left-at-door",
	})
	assert.ErrorIs(t, err, subscription.ErrInvalidInput)
}

// --- sweep ---

// reconstructOverdue builds a subscription whose single delivery day was
// yesterday and is still unresolved, so the sweep must compensate it.
func reconstructOverdue(t *testing.T) *subscription.Subscription {
	t.Helper()
	now := biztime.NowUTC()
	yesterday := vo.DateOf(now).AddDays(-1)

	qty, err := vo.NewQuantity(500, vo.UnitMilliliter)
	require.NoError(t, err)
	product, err := subscription.ReconstructSubscriptionProduct(subscription.ProductReconstructParams{
		SID:             "sp_overdue0001",
		ProductSID:      "prd_milk500",
		Name:            "Cow Milk",
		Quantity:        qty,
		UnitPrice:       3500,
		MonthlyPrice:    3500,
		Frequency:       vo.FrequencyDaily,
		DeliveryGapDays: 1,
		TotalDeliveries: 1,
		DeliveredCount:  0,
		Remaining:       1,
		Count:           1,
	})
	require.NoError(t, err)

	entry, err := subscription.NewDeliveryEntry(yesterday, vo.SlotMorning, "ptr_rider1", product.Line())
	require.NoError(t, err)

	sub, err := subscription.ReconstructSubscription(subscription.SubscriptionReconstructParams{
		ID:          1,
		SID:         "sub_overdue00001",
		CustomerSID: "cus_owner1",
		BranchSID:   "brn_anand1",
		PartnerSID:  "ptr_rider1",
		Slot:        vo.SlotMorning,
		StartDate:   yesterday,
		EndDate:     vo.DateOf(now),
		Products:    []*subscription.SubscriptionProduct{product},
		Entries:     []*subscription.DeliveryEntry{entry},
		Status:      vo.StatusActive,
		Version:     1,
		CreatedAt:   now.Add(-48 * time.Hour),
		UpdatedAt:   now.Add(-48 * time.Hour),
	})
	require.NoError(t, err)
	return sub
}

func TestSweepUnresolvedDeliveries_GrantsConcession(t *testing.T) {
	sub := reconstructOverdue(t)
	repo := newFakeRepo(t, sub)
	publisher := &capturingPublisher{}

	uc := NewSweepUnresolvedDeliveriesUseCase(repo, publisher, subscription.DefaultSchedulingPolicy(), testLogger())
	result, err := uc.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.SubscriptionsSwept)
	assert.Equal(t, 1, result.ConcessionsGranted)
	stored := repo.bySID[sub.SID()]
	assert.Equal(t, 2, stored.Products()[0].TotalDeliveries())
	require.Len(t, publisher.events, 1)
	assert.Equal(t, "subscription.concession_granted", publisher.events[0].GetEventType())

	// A second run finds nothing left to compensate.
	again, err := uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, again.SubscriptionsSwept)
}

func TestListPartnerDeliveries(t *testing.T) {
	repo := newFakeRepo(t)
	sub := createTestSubscription(t, repo)

	firstDay := sub.Schedule().Entries()[0].Date()
	uc := NewListPartnerDeliveriesUseCase(repo, subscription.DefaultSchedulingPolicy(), testLogger())
	list, err := uc.Execute(context.Background(), ListPartnerDeliveriesQuery{
		PartnerSID: "ptr_rider1",
		Date:       firstDay.String(),
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, sub.SID(), list[0].Subscription.SID())
	assert.Equal(t, firstDay, list[0].Entry.Date())
}
