package ledger

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// IDSource assigns receipt ids
type IDSource interface {
	NextID() int64
}

// Clock provides the current time
type Clock interface {
	Now() time.Time
}

// defaultIDSource derives ids from wall-clock milliseconds, bumping past
// the previous id so rapid successive creates stay strictly increasing
type defaultIDSource struct {
	mu   sync.Mutex
	last int64
}

func (g *defaultIDSource) NextID() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := time.Now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

// defaultClock provides the current time
type defaultClock struct{}

func (c *defaultClock) Now() time.Time {
	return time.Now()
}

// ReceiptInput carries the fields a caller supplies when creating a receipt
type ReceiptInput struct {
	Name          string
	Amount        int64     // cents; ignored when Products are present
	Date          time.Time // the zero value defaults to the current time
	Category      string
	PaymentMethod string
	Type          string // defaults to TypeManual
	Products      []Product
	ImageURI      string
}

// ReceiptPatch is a partial update over the known field set. Nil fields
// leave the receipt unchanged.
type ReceiptPatch struct {
	Name          *string
	Amount        *int64
	Date          *time.Time
	Category      *string
	PaymentMethod *string
	Type          *string
	Status        *string
	Products      *[]Product
	ImageURI      *string
}

// Snapshot is the state handed to subscribers and reactive readers
type Snapshot struct {
	Receipts   []Receipt  `json:"receipts"`
	Categories []Category `json:"categories"`
	Loading    bool       `json:"loading"`
}

// Service owns the canonical receipt collection. Mutations serialize under
// the write lock and persist before the in-memory state changes; reads see
// the last committed state.
type Service struct {
	store Store
	ids   IDSource
	clock Clock

	mu         sync.RWMutex
	receipts   []Receipt
	categories []Category
	loading    bool
	loadOnce   sync.Once

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

// NewService creates a new Service with the default id source and clock
func NewService(store Store) *Service {
	return NewServiceWithDeps(store, &defaultIDSource{}, &defaultClock{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(store Store, ids IDSource, clock Clock) *Service {
	return &Service{
		store:      store,
		ids:        ids,
		clock:      clock,
		receipts:   make([]Receipt, 0),
		categories: computeCategories(nil),
		loading:    true,
		subs:       make(map[int]func(Snapshot)),
	}
}

// Initialize loads the persisted collection. It runs at most once; a load
// failure is logged and the ledger starts empty. The loading flag clears
// on both paths.
func (s *Service) Initialize() {
	s.loadOnce.Do(func() {
		receipts, err := s.store.Load()

		s.mu.Lock()
		if err != nil {
			slog.Warn("Failed to load ledger, starting empty", "error", err)
			receipts = make([]Receipt, 0)
		}
		s.receipts = receipts
		s.categories = computeCategories(receipts)
		s.loading = false
		snap := s.snapshotLocked()
		s.mu.Unlock()

		s.notify(snap)
	})
}

// CreateReceipt builds a receipt from input, persists the grown collection
// and prepends the receipt to it. A caller-supplied date is preserved; the
// current time fills in only when the date is absent. When line items are
// present the amount is computed from them, overriding any supplied value.
func (s *Service) CreateReceipt(input ReceiptInput) (Receipt, error) {
	s.mu.Lock()

	now := s.clock.Now()
	date := input.Date
	if date.IsZero() {
		date = now
	}
	entryType := input.Type
	if entryType == "" {
		entryType = TypeManual
	}
	amount := input.Amount
	if len(input.Products) > 0 {
		amount = SumProducts(input.Products)
	}

	created := Receipt{
		ID:            s.ids.NextID(),
		Name:          input.Name,
		Amount:        amount,
		Date:          date,
		Category:      input.Category,
		PaymentMethod: input.PaymentMethod,
		Type:          entryType,
		Status:        StatusProcessed,
		Products:      slices.Clone(input.Products),
		ImageURI:      input.ImageURI,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	next := make([]Receipt, 0, len(s.receipts)+1)
	next = append(next, created)
	next = append(next, s.receipts...)

	if err := s.commit(next); err != nil {
		s.mu.Unlock()
		return Receipt{}, err
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return created, nil
}

// UpdateReceipt shallow-merges patch onto the receipt matching id, leaving
// order and every other receipt unchanged. When the merged receipt carries
// line items its amount is recomputed from them.
func (s *Service) UpdateReceipt(id int64, patch ReceiptPatch) (Receipt, error) {
	s.mu.Lock()

	idx := slices.IndexFunc(s.receipts, func(r Receipt) bool { return r.ID == id })
	if idx < 0 {
		s.mu.Unlock()
		return Receipt{}, ErrReceiptNotFound
	}

	merged := s.receipts[idx]
	merged.Products = slices.Clone(merged.Products)
	applyPatch(&merged, patch)
	if len(merged.Products) > 0 {
		merged.Amount = SumProducts(merged.Products)
	}
	merged.UpdatedAt = s.clock.Now()

	next := slices.Clone(s.receipts)
	next[idx] = merged

	if err := s.commit(next); err != nil {
		s.mu.Unlock()
		return Receipt{}, err
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return merged, nil
}

// DeleteReceipt removes the receipt matching id
func (s *Service) DeleteReceipt(id int64) error {
	s.mu.Lock()

	idx := slices.IndexFunc(s.receipts, func(r Receipt) bool { return r.ID == id })
	if idx < 0 {
		s.mu.Unlock()
		return ErrReceiptNotFound
	}

	next := slices.Concat(s.receipts[:idx], s.receipts[idx+1:])

	if err := s.commit(next); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// ClearAll replaces the collection with an empty one
func (s *Service) ClearAll() error {
	s.mu.Lock()

	if err := s.commit(make([]Receipt, 0)); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// commit persists next and only then swaps it in and rebuilds the derived
// categories. State is untouched when Save fails.
func (s *Service) commit(next []Receipt) error {
	if err := s.store.Save(next); err != nil {
		return fmt.Errorf("saving ledger: %w", err)
	}
	s.receipts = next
	s.categories = computeCategories(next)
	return nil
}

// applyPatch shallow-merges the set fields of patch onto r
func applyPatch(r *Receipt, patch ReceiptPatch) {
	if patch.Name != nil {
		r.Name = *patch.Name
	}
	if patch.Amount != nil {
		r.Amount = *patch.Amount
	}
	if patch.Date != nil {
		r.Date = *patch.Date
	}
	if patch.Category != nil {
		r.Category = *patch.Category
	}
	if patch.PaymentMethod != nil {
		r.PaymentMethod = *patch.PaymentMethod
	}
	if patch.Type != nil {
		r.Type = *patch.Type
	}
	if patch.Status != nil {
		r.Status = *patch.Status
	}
	if patch.Products != nil {
		r.Products = slices.Clone(*patch.Products)
	}
	if patch.ImageURI != nil {
		r.ImageURI = *patch.ImageURI
	}
}

// Receipt returns the receipt matching id
func (s *Service) Receipt(id int64) (Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.receipts {
		if r.ID == id {
			r.Products = slices.Clone(r.Products)
			return r, nil
		}
	}
	return Receipt{}, ErrReceiptNotFound
}

// Receipts returns the current collection, most recent first
func (s *Service) Receipts() []Receipt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneReceipts(s.receipts)
}

// Categories returns the derived aggregates in fixed declaration order
func (s *Service) Categories() []Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.categories)
}

// Snapshot returns the current reactive read state
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Service) snapshotLocked() Snapshot {
	return Snapshot{
		Receipts:   cloneReceipts(s.receipts),
		Categories: slices.Clone(s.categories),
		Loading:    s.loading,
	}
}

// TotalExpenses sums all receipt amounts in cents
func (s *Service) TotalExpenses() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sumAmounts(s.receipts)
}

// AveragePerReceipt is the mean receipt amount in cents, rounded half-up,
// 0 on an empty collection
func (s *Service) AveragePerReceipt() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := int64(len(s.receipts))
	if count == 0 {
		return 0
	}
	return (sumAmounts(s.receipts) + count/2) / count
}

// ByCategory returns the receipts in the named category, order preserved
func (s *Service) ByCategory(name string) []Receipt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneReceipts(Filter(s.receipts, Criteria{Category: name}))
}

// ByDateRange returns the receipts dated within [from, to]. Both bounds are
// inclusive; to extends through the end of its calendar day.
func (s *Service) ByDateRange(from, to time.Time) []Receipt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneReceipts(Filter(s.receipts, Criteria{DateFrom: from, DateTo: to}))
}

// Subscribe registers fn to receive the post-commit snapshot after every
// mutation. The returned func cancels the subscription.
func (s *Service) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// notify runs outside the state lock so subscribers may call back into the
// service
func (s *Service) notify(snap Snapshot) {
	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// computeCategories rebuilds the fixed category aggregates. Every fixed
// category appears, zero valued when no receipt references it. Percentages
// round independently and need not sum to 100.
func computeCategories(receipts []Receipt) []Category {
	total := sumAmounts(receipts)
	byName := make(map[string]int64, len(categoryDefs))
	for _, r := range receipts {
		byName[r.Category] += r.Amount
	}

	categories := make([]Category, len(categoryDefs))
	for i, def := range categoryDefs {
		amount := byName[def.name]
		categories[i] = Category{
			Name:       def.name,
			Color:      def.color,
			Amount:     amount,
			Percentage: PercentOf(amount, total),
		}
	}
	return categories
}

func sumAmounts(receipts []Receipt) int64 {
	var total int64
	for _, r := range receipts {
		total += r.Amount
	}
	return total
}

// cloneReceipts copies a collection deeply enough that callers cannot
// reach the committed Products slices
func cloneReceipts(receipts []Receipt) []Receipt {
	out := slices.Clone(receipts)
	for i := range out {
		out[i].Products = slices.Clone(out[i].Products)
	}
	return out
}
