package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/venue-reservation/internal/model"
	"github.com/iliyamo/venue-reservation/internal/queue"
	"github.com/iliyamo/venue-reservation/internal/repository"
)

// fakeOrderStore is an in-memory OrderStore with the same locking
// semantics as the MySQL repository: one mutex plays the part of the slot
// row lock, so the admission count and the insert are atomic.
type fakeOrderStore struct {
	mu     sync.Mutex
	nextID uint64
	orders map[uint64]*model.ReservationOrder

	// failDuplicateTimes makes the next N creates fail with
	// ErrDuplicateOrderNumber to exercise the retry loop.
	failDuplicateTimes int
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: make(map[uint64]*model.ReservationOrder)}
}

func cloneOrder(o *model.ReservationOrder) *model.ReservationOrder {
	c := *o
	c.Items = append([]model.ReservationItem(nil), o.Items...)
	c.Logs = append([]model.OperationLog(nil), o.Logs...)
	if o.PaymentID != nil {
		v := *o.PaymentID
		c.PaymentID = &v
	}
	if o.PaidAt != nil {
		t := *o.PaidAt
		c.PaidAt = &t
	}
	if o.CancelReason != nil {
		v := *o.CancelReason
		c.CancelReason = &v
	}
	if o.CancelReasonType != nil {
		v := *o.CancelReasonType
		c.CancelReasonType = &v
	}
	if o.CancelledAt != nil {
		t := *o.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}

func (s *fakeOrderStore) occupiedLocked(date string, slotID uint64) uint32 {
	var n uint32
	for _, o := range s.orders {
		if o.ReservationDate == date && o.TimeSlotTemplateID == slotID && o.Status != model.StatusCancelled {
			n++
		}
	}
	return n
}

func (s *fakeOrderStore) CreateWithAdmission(_ context.Context, o *model.ReservationOrder, capacity uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDuplicateTimes > 0 {
		s.failDuplicateTimes--
		return repository.ErrDuplicateOrderNumber
	}
	for _, existing := range s.orders {
		if existing.OrderNo == o.OrderNo {
			return repository.ErrDuplicateOrderNumber
		}
	}
	if s.occupiedLocked(o.ReservationDate, o.TimeSlotTemplateID) >= capacity {
		return repository.ErrInsufficientInventory
	}
	s.nextID++
	o.ID = s.nextID
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	for i := range o.Logs {
		o.Logs[i].OrderID = o.ID
	}
	s.orders[o.ID] = cloneOrder(o)
	return nil
}

func (s *fakeOrderStore) Mutate(_ context.Context, id uint64, fn repository.MutateFn) (*model.ReservationOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return s.applyLocked(stored, fn)
}

func (s *fakeOrderStore) MutateByOrderNumber(_ context.Context, orderNo string, fn repository.MutateFn) (*model.ReservationOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stored := range s.orders {
		if stored.OrderNo == orderNo {
			return s.applyLocked(stored, fn)
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (s *fakeOrderStore) applyLocked(stored *model.ReservationOrder, fn repository.MutateFn) (*model.ReservationOrder, error) {
	work := cloneOrder(stored)
	entry, err := fn(work)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return work, nil
	}
	entry.OrderID = work.ID
	work.Logs = append(work.Logs, *entry)
	work.UpdatedAt = time.Now().UTC()
	s.orders[work.ID] = cloneOrder(work)
	return work, nil
}

func (s *fakeOrderStore) GetByID(_ context.Context, id uint64) (*model.ReservationOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (s *fakeOrderStore) GetByOrderNumber(_ context.Context, orderNo string) (*model.ReservationOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.OrderNo == orderNo {
			return cloneOrder(o), nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (s *fakeOrderStore) ListByCustomer(_ context.Context, customerID uint64) ([]*model.ReservationOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.ReservationOrder
	for _, o := range s.orders {
		if o.CustomerID == customerID {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *fakeOrderStore) FindByConditions(_ context.Context, f repository.OrderFilter, p repository.Page) ([]*model.ReservationOrder, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []*model.ReservationOrder
	for _, o := range s.orders {
		if f.CustomerID != 0 && o.CustomerID != f.CustomerID {
			continue
		}
		if f.TimeSlotTemplateID != 0 && o.TimeSlotTemplateID != f.TimeSlotTemplateID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.ReservationDate != "" && o.ReservationDate != f.ReservationDate {
			continue
		}
		if f.OrderNo != "" && o.OrderNo != f.OrderNo {
			continue
		}
		matched = append(matched, cloneOrder(o))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	total := int64(len(matched))
	size := p.Size
	if size <= 0 {
		size = 20
	}
	num := p.Number
	if num < 1 {
		num = 1
	}
	start := (num - 1) * size
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *fakeOrderStore) CountActiveBySlot(_ context.Context, date string, slotID uint64) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.occupiedLocked(date, slotID), nil
}

type fakeCatalog struct {
	packages map[uint64]*model.ScenarioPackage
	tiers    map[uint64]*model.PriceTier
	slots    map[uint64]*model.TimeSlotTemplate
	addons   map[uint64]*model.AddonItem
}

func (c *fakeCatalog) PackageByID(_ context.Context, id uint64) (*model.ScenarioPackage, error) {
	if p, ok := c.packages[id]; ok {
		return p, nil
	}
	return nil, repository.ErrPackageNotFound
}

func (c *fakeCatalog) TierByID(_ context.Context, id uint64) (*model.PriceTier, error) {
	if t, ok := c.tiers[id]; ok {
		return t, nil
	}
	return nil, repository.ErrTierNotFound
}

func (c *fakeCatalog) TimeSlotTemplateByID(_ context.Context, id uint64) (*model.TimeSlotTemplate, error) {
	if s, ok := c.slots[id]; ok {
		return s, nil
	}
	return nil, repository.ErrSlotNotFound
}

func (c *fakeCatalog) AddonItemByID(_ context.Context, id uint64) (*model.AddonItem, error) {
	if a, ok := c.addons[id]; ok {
		return a, nil
	}
	return nil, repository.ErrAddonNotFound
}

func (c *fakeCatalog) ListActiveSlots(_ context.Context) ([]model.TimeSlotTemplate, error) {
	var out []model.TimeSlotTemplate
	for _, s := range c.slots {
		if s.IsActive {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeDirectory struct{ users map[uint64]model.User }

func (d *fakeDirectory) GetByID(_ context.Context, id uint64) (model.User, error) {
	if u, ok := d.users[id]; ok {
		return u, nil
	}
	return model.User{}, errors.New("user not found")
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.ReservationEvent
}

func (p *fakePublisher) Publish(_ context.Context, ev queue.ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Kind)
	}
	return out
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{
		packages: map[uint64]*model.ScenarioPackage{
			1: {ID: 1, Name: "Haunted Manor", IsActive: true},
		},
		tiers: map[uint64]*model.PriceTier{
			10: {ID: 10, PackageID: 1, Name: "Standard", PriceCents: 12000},
			11: {ID: 11, PackageID: 2, Name: "Foreign", PriceCents: 9000},
		},
		slots: map[uint64]*model.TimeSlotTemplate{
			100: {ID: 100, StartTime: "14:00", EndTime: "16:00", Capacity: 3, IsActive: true},
			101: {ID: 101, StartTime: "19:00", EndTime: "21:00", Capacity: 2, IsActive: true},
			102: {ID: 102, StartTime: "09:00", EndTime: "11:00", Capacity: 5, IsActive: false},
		},
		addons: map[uint64]*model.AddonItem{
			200: {ID: 200, Name: "Photo package", PriceCents: 3000, IsActive: true},
			201: {ID: 201, Name: "Snack tray", PriceCents: 1500, IsActive: true},
		},
	}
}

func newTestBooking() (*Booking, *fakeOrderStore, *fakePublisher) {
	store := newFakeOrderStore()
	pub := &fakePublisher{}
	dir := &fakeDirectory{users: map[uint64]model.User{
		5: {ID: 5, Name: "Ada Customer", Role: model.RoleCustomer},
		9: {ID: 9, Name: "Omar Operator", Role: model.RoleOperator},
	}}
	return NewBooking(store, testCatalog(), dir, pub), store, pub
}

func validCreateInput() CreateInput {
	return CreateInput{
		PackageID:          1,
		TierID:             10,
		TimeSlotTemplateID: 100,
		ReservationDate:    "2026-09-12",
		ContactName:        "Ada",
		ContactPhone:       "+49-151-2345678",
		Items: []CreateItemInput{
			{AddonID: 200, Quantity: 1},
			{AddonID: 201, Quantity: 2},
		},
	}
}

func TestCreateBooksOrderWithSnapshotsAndLog(t *testing.T) {
	svc, _, pub := newTestBooking()
	view, err := svc.Create(context.Background(), 5, validCreateInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if view.Status != model.StatusPending {
		t.Errorf("expected PENDING, got %s", view.Status)
	}
	// 12000 tier + 3000 + 2*1500 add-ons
	if view.TotalAmountCents != 18000 {
		t.Errorf("expected total 18000, got %d", view.TotalAmountCents)
	}
	if len(view.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(view.Items))
	}
	if view.Items[0].NameSnapshot != "Photo package" || view.Items[0].UnitPriceCents != 3000 {
		t.Errorf("item snapshot not taken: %+v", view.Items[0])
	}
	if !strings.HasPrefix(view.OrderNo, "RS") || len(view.OrderNo) != 20 {
		t.Errorf("bad order number %q", view.OrderNo)
	}
	if len(view.Logs) != 1 || view.Logs[0].Kind != model.OpCreate {
		t.Fatalf("expected a single CREATE log entry, got %+v", view.Logs)
	}
	if view.Logs[0].OperatorName != "Ada Customer" {
		t.Errorf("log attribution: got %q", view.Logs[0].OperatorName)
	}
	if kinds := pub.kinds(); len(kinds) != 1 || kinds[0] != queue.EventReservationCreated {
		t.Errorf("expected one created event, got %v", kinds)
	}
}

func TestTotalSurvivesCatalogPriceEdits(t *testing.T) {
	store := newFakeOrderStore()
	catalog := testCatalog()
	svc := NewBooking(store, catalog, nil, nil)

	view, err := svc.Create(context.Background(), 5, validCreateInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Catalog edits after booking must not touch the placed order.
	catalog.tiers[10].PriceCents = 99000
	catalog.addons[200].PriceCents = 1
	catalog.addons[200].Name = "renamed"

	got, err := svc.FindByID(context.Background(), view.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.TotalAmountCents != 18000 {
		t.Errorf("total changed after catalog edit: %d", got.TotalAmountCents)
	}
	if got.Items[0].NameSnapshot != "Photo package" || got.Items[0].UnitPriceCents != 3000 {
		t.Errorf("item snapshot changed after catalog edit: %+v", got.Items[0])
	}
	if got.TotalAmountCents != 12000+got.ItemsSubtotalCents() {
		t.Errorf("total %d does not equal tier price plus item subtotals %d",
			got.TotalAmountCents, got.ItemsSubtotalCents())
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestBooking()
	cases := []struct {
		name   string
		mutate func(*CreateInput)
		field  string
	}{
		{"bad date", func(in *CreateInput) { in.ReservationDate = "12.09.2026" }, "reservation_date"},
		{"missing contact name", func(in *CreateInput) { in.ContactName = "" }, "contact_name"},
		{"bad phone", func(in *CreateInput) { in.ContactPhone = "call me" }, "contact_phone"},
		{"zero quantity", func(in *CreateInput) { in.Items[0].Quantity = 0 }, "items"},
		{"missing package", func(in *CreateInput) { in.PackageID = 0 }, "package_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validCreateInput()
			tc.mutate(&in)
			_, err := svc.Create(context.Background(), 5, in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tc.field {
				t.Errorf("expected field %s, got %s", tc.field, verr.Field)
			}
		})
	}
}

func TestCreateRejectsForeignTierAndInactiveSlot(t *testing.T) {
	svc, _, _ := newTestBooking()

	in := validCreateInput()
	in.TierID = 11 // belongs to package 2
	_, err := svc.Create(context.Background(), 5, in)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "tier_id" {
		t.Errorf("expected tier_id validation error, got %v", err)
	}

	in = validCreateInput()
	in.TimeSlotTemplateID = 102 // inactive
	_, err = svc.Create(context.Background(), 5, in)
	if !errors.As(err, &verr) || verr.Field != "time_slot_template_id" {
		t.Errorf("expected slot validation error, got %v", err)
	}
}

func TestCreateUnknownReferences(t *testing.T) {
	svc, _, _ := newTestBooking()

	in := validCreateInput()
	in.PackageID = 99
	if _, err := svc.Create(context.Background(), 5, in); !errors.Is(err, repository.ErrPackageNotFound) {
		t.Errorf("expected ErrPackageNotFound, got %v", err)
	}

	in = validCreateInput()
	in.Items = []CreateItemInput{{AddonID: 999, Quantity: 1}}
	if _, err := svc.Create(context.Background(), 5, in); !errors.Is(err, repository.ErrAddonNotFound) {
		t.Errorf("expected ErrAddonNotFound, got %v", err)
	}
}

func TestCreateRetriesOnDuplicateOrderNumber(t *testing.T) {
	svc, store, _ := newTestBooking()
	store.failDuplicateTimes = 2
	view, err := svc.Create(context.Background(), 5, validCreateInput())
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if view.OrderNo == "" {
		t.Error("expected an order number after retries")
	}

	store.failDuplicateTimes = 3
	if _, err := svc.Create(context.Background(), 5, validCreateInput()); !errors.Is(err, repository.ErrDuplicateOrderNumber) {
		t.Errorf("expected ErrDuplicateOrderNumber after exhausting retries, got %v", err)
	}
}

func TestCreateRejectsWhenSlotFull(t *testing.T) {
	svc, _, _ := newTestBooking()
	in := validCreateInput()
	in.TimeSlotTemplateID = 101 // capacity 2
	for i := 0; i < 2; i++ {
		if _, err := svc.Create(context.Background(), 5, in); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	if _, err := svc.Create(context.Background(), 5, in); !errors.Is(err, repository.ErrInsufficientInventory) {
		t.Errorf("expected ErrInsufficientInventory, got %v", err)
	}

	// Same slot on a different date is independent inventory.
	in.ReservationDate = "2026-09-13"
	if _, err := svc.Create(context.Background(), 5, in); err != nil {
		t.Errorf("different date should admit: %v", err)
	}
}

func TestConcurrentCreatesNeverOversell(t *testing.T) {
	svc, store, _ := newTestBooking()
	in := validCreateInput() // slot 100, capacity 3

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), uint64(i+1), in)
		}(i)
	}
	wg.Wait()

	var ok, full int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, repository.ErrInsufficientInventory):
			full++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 3 || full != n-3 {
		t.Errorf("expected exactly 3 admissions and %d rejections, got %d/%d", n-3, ok, full)
	}
	occupied, _ := store.CountActiveBySlot(context.Background(), in.ReservationDate, in.TimeSlotTemplateID)
	if occupied != 3 {
		t.Errorf("occupancy %d exceeds capacity 3", occupied)
	}
}

func TestConfirmWithPaymentThenCompletePayment(t *testing.T) {
	svc, _, pub := newTestBooking()
	view, err := svc.Create(context.Background(), 5, validCreateInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	confirmed, err := svc.Confirm(context.Background(), view.ID, true, "deposit agreed", 9)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != model.StatusConfirmed || !confirmed.RequiresPayment {
		t.Errorf("expected CONFIRMED awaiting payment, got %+v", confirmed.Status)
	}
	// Mutations return the whole trail, not just the entry they append.
	if len(confirmed.Logs) != 2 || confirmed.Logs[0].Kind != model.OpCreate {
		t.Fatalf("expected CREATE+CONFIRM trail, got %+v", confirmed.Logs)
	}
	if last := confirmed.Logs[len(confirmed.Logs)-1]; last.Kind != model.OpConfirm || last.OperatorName != "Omar Operator" {
		t.Errorf("confirm log wrong: %+v", last)
	}

	paid, err := svc.CompletePayment(context.Background(), view.OrderNo, "pay-20260912-001")
	if err != nil {
		t.Fatalf("complete payment: %v", err)
	}
	if paid.Status != model.StatusCompleted {
		t.Errorf("expected COMPLETED, got %s", paid.Status)
	}
	if len(paid.Logs) != 3 || paid.Logs[2].Kind != model.OpPayment {
		t.Fatalf("expected CREATE+CONFIRM+PAYMENT trail, got %+v", paid.Logs)
	}
	if paid.PaymentID == nil || *paid.PaymentID != "pay-20260912-001" {
		t.Errorf("payment id not recorded: %v", paid.PaymentID)
	}
	if kinds := pub.kinds(); len(kinds) != 2 || kinds[1] != queue.EventReservationCompleted {
		t.Errorf("expected created+completed events, got %v", kinds)
	}
}

func TestConfirmWithoutPaymentCompletesDirectly(t *testing.T) {
	svc, _, pub := newTestBooking()
	view, err := svc.Create(context.Background(), 5, validCreateInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	done, err := svc.Confirm(context.Background(), view.ID, false, "", 9)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if done.Status != model.StatusCompleted {
		t.Errorf("expected COMPLETED, got %s", done.Status)
	}
	if kinds := pub.kinds(); len(kinds) != 2 || kinds[1] != queue.EventReservationCompleted {
		t.Errorf("expected completed event, got %v", kinds)
	}
}

func TestConfirmTwiceRejected(t *testing.T) {
	svc, _, _ := newTestBooking()
	view, _ := svc.Create(context.Background(), 5, validCreateInput())
	if _, err := svc.Confirm(context.Background(), view.ID, true, "", 9); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	_, err := svc.Confirm(context.Background(), view.ID, true, "", 9)
	var terr *model.InvalidTransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if terr.Current != model.StatusConfirmed {
		t.Errorf("expected current CONFIRMED, got %s", terr.Current)
	}
}

func TestCancelReleasesInventory(t *testing.T) {
	svc, _, pub := newTestBooking()
	in := validCreateInput()
	in.TimeSlotTemplateID = 101 // capacity 2
	first, _ := svc.Create(context.Background(), 5, in)
	if _, err := svc.Create(context.Background(), 6, in); err != nil {
		t.Fatalf("second create: %v", err)
	}
	if _, err := svc.Create(context.Background(), 7, in); !errors.Is(err, repository.ErrInsufficientInventory) {
		t.Fatalf("slot should be full: %v", err)
	}

	cancelled, err := svc.Cancel(context.Background(), first.ID, "customer no-show risk", "CUSTOMER_REQUEST", 9)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != model.StatusCancelled || cancelled.CancelReason == nil {
		t.Errorf("cancel not recorded: %+v", cancelled.Status)
	}

	// The freed seat is bookable again at once.
	if _, err := svc.Create(context.Background(), 7, in); err != nil {
		t.Errorf("expected freed seat to admit, got %v", err)
	}
	kinds := pub.kinds()
	if kinds[len(kinds)-2] != queue.EventReservationCancelled {
		t.Errorf("expected cancelled event, got %v", kinds)
	}
}

func TestCancelRequiresReasonAndNonTerminalState(t *testing.T) {
	svc, _, _ := newTestBooking()
	view, _ := svc.Create(context.Background(), 5, validCreateInput())

	var verr *ValidationError
	if _, err := svc.Cancel(context.Background(), view.ID, "", "", 9); !errors.As(err, &verr) {
		t.Errorf("expected validation error for empty reason, got %v", err)
	}

	if _, err := svc.Cancel(context.Background(), view.ID, "first", "", 9); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err := svc.Cancel(context.Background(), view.ID, "again", "", 9)
	var terr *model.InvalidTransitionError
	if !errors.As(err, &terr) || terr.Current != model.StatusCancelled {
		t.Errorf("expected invalid transition from CANCELLED, got %v", err)
	}
}

func TestDuplicatePaymentNotificationIsNoOp(t *testing.T) {
	svc, _, pub := newTestBooking()
	view, _ := svc.Create(context.Background(), 5, validCreateInput())
	if _, err := svc.Confirm(context.Background(), view.ID, true, "", 9); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	first, err := svc.CompletePayment(context.Background(), view.OrderNo, "pay-1")
	if err != nil {
		t.Fatalf("first notification: %v", err)
	}

	again, err := svc.CompletePayment(context.Background(), view.OrderNo, "pay-1")
	if err != nil {
		t.Fatalf("redelivery must be a no-op, got %v", err)
	}
	if again.Status != model.StatusCompleted {
		t.Errorf("state changed on redelivery: %s", again.Status)
	}
	if len(again.Logs) != len(first.Logs) {
		t.Errorf("redelivery appended a log entry: %d -> %d", len(first.Logs), len(again.Logs))
	}
	// The no-op path still returns the full trail.
	if len(again.Logs) != 3 {
		t.Errorf("expected CREATE+CONFIRM+PAYMENT trail on redelivery, got %d entries", len(again.Logs))
	}

	var completed int
	for _, k := range pub.kinds() {
		if k == queue.EventReservationCompleted {
			completed++
		}
	}
	if completed != 1 {
		t.Errorf("expected exactly one completed event, got %d", completed)
	}

	// Same order, different payment id is a conflict, not a no-op.
	_, err = svc.CompletePayment(context.Background(), view.OrderNo, "pay-2")
	var terr *model.InvalidTransitionError
	if !errors.As(err, &terr) {
		t.Errorf("expected InvalidTransitionError for mismatched payment, got %v", err)
	}
}

func TestCompletePaymentRejectsPendingOrder(t *testing.T) {
	svc, _, _ := newTestBooking()
	view, _ := svc.Create(context.Background(), 5, validCreateInput())
	_, err := svc.CompletePayment(context.Background(), view.OrderNo, "pay-1")
	var terr *model.InvalidTransitionError
	if !errors.As(err, &terr) || terr.Current != model.StatusPending {
		t.Errorf("expected invalid transition from PENDING, got %v", err)
	}
}

func TestCompletePaymentInputChecks(t *testing.T) {
	svc, _, _ := newTestBooking()
	var verr *ValidationError
	if _, err := svc.CompletePayment(context.Background(), "not-an-order-no", "pay-1"); !errors.As(err, &verr) {
		t.Errorf("expected validation error for malformed order number, got %v", err)
	}
	if _, err := svc.CompletePayment(context.Background(), "RS202609121200001234", ""); !errors.As(err, &verr) {
		t.Errorf("expected validation error for empty payment id, got %v", err)
	}
	if _, err := svc.CompletePayment(context.Background(), "RS202609121200001234", "pay-1"); !errors.Is(err, repository.ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound for unknown order, got %v", err)
	}
}

func TestUpdateContactAuditsOnlyRealChanges(t *testing.T) {
	svc, _, _ := newTestBooking()
	view, _ := svc.Create(context.Background(), 5, validCreateInput())

	name := "Ada Lovelace"
	updated, err := svc.Update(context.Background(), view.ID, UpdateInput{ContactName: &name}, 9)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ContactName != "Ada Lovelace" {
		t.Errorf("contact name not updated: %s", updated.ContactName)
	}
	last := updated.Logs[len(updated.Logs)-1]
	if last.Kind != model.OpUpdate {
		t.Fatalf("expected UPDATE log, got %s", last.Kind)
	}
	if _, ok := last.After[model.KeyContactPhone]; ok {
		t.Error("unchanged phone must not appear in the change set")
	}

	// Submitting the identical value again writes nothing.
	same, err := svc.Update(context.Background(), view.ID, UpdateInput{ContactName: &name}, 9)
	if err != nil {
		t.Fatalf("no-op update: %v", err)
	}
	if len(same.Logs) != len(updated.Logs) {
		t.Errorf("no-op update appended a log entry")
	}
}

func TestUpdateRejectsTerminalOrderAndBadInput(t *testing.T) {
	svc, _, _ := newTestBooking()
	view, _ := svc.Create(context.Background(), 5, validCreateInput())

	bad := "nonsense"
	var verr *ValidationError
	if _, err := svc.Update(context.Background(), view.ID, UpdateInput{ContactPhone: &bad}, 9); !errors.As(err, &verr) {
		t.Errorf("expected validation error for bad phone, got %v", err)
	}

	if _, err := svc.Cancel(context.Background(), view.ID, "done", "", 9); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	name := "Nobody"
	_, err := svc.Update(context.Background(), view.ID, UpdateInput{ContactName: &name}, 9)
	var terr *model.InvalidTransitionError
	if !errors.As(err, &terr) {
		t.Errorf("expected invalid transition on terminal order, got %v", err)
	}
}

func TestFindByConditionsFiltersAndPaginates(t *testing.T) {
	svc, _, _ := newTestBooking()
	for i := 0; i < 5; i++ {
		in := validCreateInput()
		in.TimeSlotTemplateID = 100
		in.ReservationDate = "2026-09-12"
		if i >= 3 {
			in.ReservationDate = "2026-09-13"
		}
		if _, err := svc.Create(context.Background(), uint64(i%2+1), in); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	views, total, err := svc.FindByConditions(context.Background(),
		repository.OrderFilter{ReservationDate: "2026-09-12"},
		repository.Page{Number: 1, Size: 2})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if total != 3 || len(views) != 2 {
		t.Errorf("expected total 3 page of 2, got total %d len %d", total, len(views))
	}

	_, _, err = svc.FindByConditions(context.Background(),
		repository.OrderFilter{Status: "SHIPPED"}, repository.Page{})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "status" {
		t.Errorf("expected status validation error, got %v", err)
	}
}

func TestFindByUserAndByOrderNumber(t *testing.T) {
	svc, _, _ := newTestBooking()
	mine, _ := svc.Create(context.Background(), 5, validCreateInput())
	other := validCreateInput()
	other.TimeSlotTemplateID = 101
	if _, err := svc.Create(context.Background(), 6, other); err != nil {
		t.Fatalf("seed: %v", err)
	}

	views, err := svc.FindByUser(context.Background(), 5)
	if err != nil {
		t.Fatalf("find by user: %v", err)
	}
	if len(views) != 1 || views[0].CustomerID != 5 {
		t.Errorf("expected exactly my order, got %d", len(views))
	}

	byNo, err := svc.FindByOrderNumber(context.Background(), mine.OrderNo)
	if err != nil {
		t.Fatalf("find by order number: %v", err)
	}
	if byNo.ID != mine.ID {
		t.Errorf("wrong order returned")
	}
	if byNo.StatusLabel != model.StatusPending.Label() {
		t.Errorf("status label missing: %q", byNo.StatusLabel)
	}
}

func TestAvailabilityReflectsOccupancy(t *testing.T) {
	svc, _, _ := newTestBooking()
	in := validCreateInput()
	in.TimeSlotTemplateID = 101
	if _, err := svc.Create(context.Background(), 5, in); err != nil {
		t.Fatalf("seed: %v", err)
	}

	slots, err := svc.Availability(context.Background(), "2026-09-12")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	// Inactive slot 102 must not appear.
	if len(slots) != 2 {
		t.Fatalf("expected 2 active slots, got %d", len(slots))
	}
	for _, s := range slots {
		switch s.TimeSlotTemplateID {
		case 100:
			if s.Occupied != 0 || s.Remaining != 3 {
				t.Errorf("slot 100: occupied %d remaining %d", s.Occupied, s.Remaining)
			}
		case 101:
			if s.Occupied != 1 || s.Remaining != 1 {
				t.Errorf("slot 101: occupied %d remaining %d", s.Occupied, s.Remaining)
			}
		default:
			t.Errorf("unexpected slot %d", s.TimeSlotTemplateID)
		}
	}

	var verr *ValidationError
	if _, err := svc.Availability(context.Background(), "next friday"); !errors.As(err, &verr) {
		t.Errorf("expected validation error for bad date, got %v", err)
	}
}
