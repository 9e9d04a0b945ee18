package test

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/orderboard/internal/domain/errors"
	"github.com/polkiloo/orderboard/internal/domain/model"
)

// UserRepositoryStub stores users in-memory for tests.
type UserRepositoryStub struct {
	Users map[string]*model.User
	ByID  map[int64]*model.User
	Next  int64
	Err   error
}

// NewUserRepositoryStub constructs stub repository with initialized maps.
func NewUserRepositoryStub() *UserRepositoryStub {
	return &UserRepositoryStub{
		Users: make(map[string]*model.User),
		ByID:  make(map[int64]*model.User),
		Next:  1,
	}
}

// Create registers user unless already exists or stub has explicit error.
func (s *UserRepositoryStub) Create(ctx context.Context, login, passwordHash string, role model.Role) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Users == nil {
		s.Users = make(map[string]*model.User)
	}
	if s.ByID == nil {
		s.ByID = make(map[int64]*model.User)
	}
	if _, exists := s.Users[login]; exists {
		return nil, domainErrors.ErrAlreadyExists
	}
	if s.Next == 0 {
		s.Next = 1
	}
	user := &model.User{ID: s.Next, Login: login, PasswordHash: passwordHash, Role: role}
	s.Next++
	s.Users[login] = user
	s.ByID[user.ID] = user
	return user, nil
}

// GetByLogin fetches user by login or returns not found.
func (s *UserRepositoryStub) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if user, ok := s.Users[login]; ok {
		return user, nil
	}
	return nil, domainErrors.ErrNotFound
}

// GetByID fetches user by identifier or returns not found.
func (s *UserRepositoryStub) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if user, ok := s.ByID[id]; ok {
		return user, nil
	}
	return nil, domainErrors.ErrNotFound
}

// Count returns the number of stored users.
func (s *UserRepositoryStub) Count(ctx context.Context) (int64, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	return int64(len(s.Users)), nil
}

// SettingsRepositoryStub returns fixed notification settings.
type SettingsRepositoryStub struct {
	Settings *model.NotificationSettings
	Err      error
}

// NotificationSettings returns configured settings or all-enabled defaults.
func (s SettingsRepositoryStub) NotificationSettings(context.Context) (*model.NotificationSettings, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Settings != nil {
		out := *s.Settings
		return &out, nil
	}
	defaults := model.DefaultNotificationSettings()
	return &defaults, nil
}

// MemoryStore is an in-memory order, payment and inventory store with the
// same guarded write semantics as the Postgres repositories. FailFn, when set,
// is consulted before every operation and may inject an error.
type MemoryStore struct {
	mu sync.Mutex

	Orders     map[string]*model.Order
	Payments   []model.Payment
	Intents    map[string]*model.PaymentIntent
	Stock      map[string]int
	Deductions []Deduction
	NextNumber int
	NextItemID int64
	Now        func() time.Time
	FailFn     func(op string) error
}

// Deduction records an inventory deduction call.
type Deduction struct {
	Item     string
	Quantity int
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Orders:     make(map[string]*model.Order),
		Intents:    make(map[string]*model.PaymentIntent),
		Stock:      make(map[string]int),
		NextNumber: 1001,
		NextItemID: 1,
		Now:        time.Now,
	}
}

func (s *MemoryStore) fail(op string) error {
	if s.FailFn != nil {
		return s.FailFn(op)
	}
	return nil
}

func (s *MemoryStore) snapshot(o *model.Order) *model.Order {
	out := *o
	out.Items = append([]model.ItemLine{}, o.Items...)
	return &out
}

func (s *MemoryStore) recompute(o *model.Order) {
	o.TotalAmount = model.Total(o.Items)
	o.UpdatedAt = s.Now()
}

func (s *MemoryStore) appendItems(o *model.Order, items []model.ItemLine, initial bool) {
	for _, item := range items {
		item.ID = s.NextItemID
		s.NextItemID++
		item.Initial = initial
		item.CreatedAt = s.Now()
		o.Items = append(o.Items, item)
	}
}

// Create stores a pending order.
func (s *MemoryStore) Create(ctx context.Context, in model.NewOrder) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("create"); err != nil {
		return nil, err
	}
	number := in.Number
	if number == "" {
		number = strconv.Itoa(s.NextNumber)
		s.NextNumber++
	}
	for _, o := range s.Orders {
		if o.Number == number {
			return nil, domainErrors.ErrAlreadyExists
		}
	}
	o := &model.Order{
		ID:        RandomASCIIString(12, 12),
		Number:    number,
		TableID:   in.TableID,
		Status:    model.OrderStatusPending,
		CreatedAt: s.Now(),
	}
	s.appendItems(o, in.Items, true)
	s.recompute(o)
	s.Orders[o.ID] = o
	return s.snapshot(o), nil
}

// Put stores o as is.
func (s *MemoryStore) Put(o model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Orders[o.ID] = s.snapshot(&o)
}

// Get returns an order snapshot.
func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("get"); err != nil {
		return nil, err
	}
	o, ok := s.Orders[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return s.snapshot(o), nil
}

// ListActive returns non-completed orders, newest first.
func (s *MemoryStore) ListActive(ctx context.Context) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("list"); err != nil {
		return nil, err
	}
	out := make([]model.Order, 0, len(s.Orders))
	for _, o := range s.Orders {
		if !o.IsCompleted() {
			out = append(out, *s.snapshot(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// CreatedAt returns the order creation time.
func (s *MemoryStore) CreatedAt(ctx context.Context, id string) (time.Time, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	return o.CreatedAt, nil
}

// AddItems appends non-initial items and returns the order to pending.
func (s *MemoryStore) AddItems(ctx context.Context, id string, items []model.ItemLine) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("add_items"); err != nil {
		return nil, err
	}
	o, ok := s.Orders[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	s.appendItems(o, items, false)
	o.Status = model.OrderStatusPending
	o.Served = false
	o.ServedAt = nil
	o.CompletedAt = nil
	s.recompute(o)
	return s.snapshot(o), nil
}

// SetItemQuantity updates or, for non-positive quantities, removes a line.
func (s *MemoryStore) SetItemQuantity(ctx context.Context, orderID string, itemID int64, quantity int) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("set_quantity"); err != nil {
		return nil, err
	}
	o, ok := s.Orders[orderID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	for i, item := range o.Items {
		if item.ID != itemID {
			continue
		}
		if quantity <= 0 {
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
		} else {
			o.Items[i].Quantity = quantity
		}
		s.recompute(o)
		return s.snapshot(o), nil
	}
	return nil, domainErrors.ErrNotFound
}

// MarkServed serves a pending or ready order.
func (s *MemoryStore) MarkServed(ctx context.Context, id string) (*model.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("serve"); err != nil {
		return nil, false, err
	}
	o, ok := s.Orders[id]
	if !ok {
		return nil, false, domainErrors.ErrNotFound
	}
	if o.Status != model.OrderStatusPending && o.Status != model.OrderStatusReady {
		return s.snapshot(o), false, nil
	}
	now := s.Now()
	o.Status = model.OrderStatusServed
	o.Served = true
	o.ServedAt = &now
	return s.snapshot(o), true, nil
}

// Complete completes a served and paid order.
func (s *MemoryStore) Complete(ctx context.Context, id string, at time.Time) (*model.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("complete"); err != nil {
		return nil, false, err
	}
	o, ok := s.Orders[id]
	if !ok {
		return nil, false, domainErrors.ErrNotFound
	}
	if o.IsCompleted() || !o.IsServed() || !o.IsPaid {
		return s.snapshot(o), false, nil
	}
	o.Status = model.OrderStatusCompleted
	o.CompletedAt = &at
	return s.snapshot(o), true, nil
}

// Delete removes a non-completed order.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("delete"); err != nil {
		return err
	}
	o, ok := s.Orders[id]
	if !ok || o.IsCompleted() {
		return domainErrors.ErrNotFound
	}
	delete(s.Orders, id)
	return nil
}

// RecordPayment flips is_paid once and stores one payment row per order.
func (s *MemoryStore) RecordPayment(ctx context.Context, p model.Payment) (*model.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("pay"); err != nil {
		return nil, false, err
	}
	o, ok := s.Orders[p.OrderID]
	if !ok {
		return nil, false, domainErrors.ErrNotFound
	}
	if o.IsPaid {
		return s.snapshot(o), false, nil
	}
	if p.Amount.IsZero() {
		p.Amount = o.TotalAmount
	}
	p.ID = int64(len(s.Payments) + 1)
	s.Payments = append(s.Payments, p)
	o.IsPaid = true
	o.Payment = &model.PaymentInfo{Method: p.Method, TransactionID: p.TransactionID, PaidAt: p.PaidAt}
	return s.snapshot(o), true, nil
}

// CreateIntent stores a pending intent.
func (s *MemoryStore) CreateIntent(ctx context.Context, in model.PaymentIntent) (*model.PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("create_intent"); err != nil {
		return nil, err
	}
	if in.ID == "" {
		in.ID = RandomASCIIString(12, 12)
	}
	for _, existing := range s.Intents {
		if existing.GatewayRef == in.GatewayRef {
			return nil, domainErrors.ErrAlreadyExists
		}
	}
	if in.Status == "" {
		in.Status = model.PaymentIntentPending
	}
	in.CreatedAt = s.Now()
	stored := in
	s.Intents[in.ID] = &stored
	return &in, nil
}

// PendingIntents returns up to limit pending intents, oldest first.
func (s *MemoryStore) PendingIntents(ctx context.Context, limit int) ([]model.PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("pending_intents"); err != nil {
		return nil, err
	}
	var out []model.PaymentIntent
	for _, in := range s.Intents {
		if in.Status == model.PaymentIntentPending {
			out = append(out, *in)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ResolveIntent updates an intent status.
func (s *MemoryStore) ResolveIntent(ctx context.Context, id string, status model.PaymentIntentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("resolve_intent"); err != nil {
		return err
	}
	in, ok := s.Intents[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	in.Status = status
	return nil
}

// Deduct lowers stock, flooring at zero.
func (s *MemoryStore) Deduct(ctx context.Context, itemName string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deductions = append(s.Deductions, Deduction{Item: itemName, Quantity: quantity})
	if err := s.fail("deduct"); err != nil {
		return err
	}
	left, ok := s.Stock[itemName]
	if !ok {
		return domainErrors.ErrNotFound
	}
	left -= quantity
	if left < 0 {
		left = 0
	}
	s.Stock[itemName] = left
	return nil
}

// PaymentCount returns the number of stored payment rows.
func (s *MemoryStore) PaymentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Payments)
}

// DeductionCount returns the number of deduction calls.
func (s *MemoryStore) DeductionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Deductions)
}
