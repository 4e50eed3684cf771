package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"avoska/internal/domain"
)

// MemoryStore объединённое in-memory хранилище товаров, корзин и позиций
type MemoryStore struct {
	mu           sync.RWMutex
	nextProdID   int64
	productsByID map[int64]domain.Product
	basketsByID  map[uuid.UUID]domain.Basket
	linesByID    map[uuid.UUID]domain.BasketItem
	// структурный индекс уникальности позиции по паре (корзина, товар)
	lineByBasketProduct map[uuid.UUID]map[int64]uuid.UUID
	// порядок добавления позиций в корзину
	lineOrder map[uuid.UUID][]uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextProdID:          1,
		productsByID:        make(map[int64]domain.Product),
		basketsByID:         make(map[uuid.UUID]domain.Basket),
		linesByID:           make(map[uuid.UUID]domain.BasketItem),
		lineByBasketProduct: make(map[uuid.UUID]map[int64]uuid.UUID),
		lineOrder:           make(map[uuid.UUID][]uuid.UUID),
	}
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	v := ctx.Value(txKey{})
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

// Ensure interfaces
var _ ProductRepository = (*MemoryStore)(nil)

// BasketRepository реализован отдельным типом MemoryBaskets

// ProductRepository implementation
func (m *MemoryStore) Create(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if p.ID == 0 {
		p.ID = m.nextProdID
	}
	if p.ID >= m.nextProdID {
		m.nextProdID = p.ID + 1
	}
	m.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	p, ok := m.productsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	// return copy
	cp := p
	return &cp, nil
}

func (m *MemoryStore) AdjustStock(ctx context.Context, id int64, delta int64) (*domain.Product, error) {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	p, ok := m.productsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := p.Quantity + delta
	if next < 0 {
		return nil, ErrOutOfStock
	}
	p.Quantity = next
	m.productsByID[id] = p
	cp := p
	return &cp, nil
}

func (m *MemoryStore) ListActiveInStock(ctx context.Context) ([]domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.Product, 0)
	for _, p := range m.productsByID {
		if p.Active && p.Quantity > 0 {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// BasketRepository implementation on wrapper type
type MemoryBaskets struct{ store *MemoryStore }

func NewMemoryBaskets(store *MemoryStore) *MemoryBaskets { return &MemoryBaskets{store: store} }

var _ BasketRepository = (*MemoryBaskets)(nil)

func (mb *MemoryBaskets) Create(ctx context.Context) (*domain.Basket, error) {
	mb.store.wlock(ctx)
	defer mb.store.wunlock(ctx)
	b := domain.Basket{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
	}
	mb.store.basketsByID[b.ID] = b
	return &b, nil
}

func (mb *MemoryBaskets) GetByID(ctx context.Context, id uuid.UUID) (*domain.Basket, error) {
	mb.store.rlock(ctx)
	defer mb.store.runlock(ctx)
	b, ok := mb.store.basketsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := b
	return &cp, nil
}

func (mb *MemoryBaskets) FindLine(ctx context.Context, basketID uuid.UUID, productID int64) (*domain.BasketItem, error) {
	mb.store.rlock(ctx)
	defer mb.store.runlock(ctx)
	lineID, ok := mb.store.lineByBasketProduct[basketID][productID]
	if !ok {
		return nil, ErrNotFound
	}
	line := mb.store.linesByID[lineID]
	cp := line
	return &cp, nil
}

func (mb *MemoryBaskets) GetLineByID(ctx context.Context, lineID uuid.UUID) (*domain.BasketItem, error) {
	mb.store.rlock(ctx)
	defer mb.store.runlock(ctx)
	line, ok := mb.store.linesByID[lineID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := line
	return &cp, nil
}

func (mb *MemoryBaskets) UpsertLine(ctx context.Context, basketID uuid.UUID, productID int64, qtyDelta int64) (*domain.BasketItem, error) {
	mb.store.wlock(ctx)
	defer mb.store.wunlock(ctx)
	if lineID, ok := mb.store.lineByBasketProduct[basketID][productID]; ok {
		line := mb.store.linesByID[lineID]
		line.Quantity += qtyDelta
		mb.store.linesByID[lineID] = line
		cp := line
		return &cp, nil
	}
	line := domain.BasketItem{
		ID:        uuid.New(),
		BasketID:  basketID,
		ProductID: productID,
		Quantity:  qtyDelta,
	}
	mb.store.linesByID[line.ID] = line
	if mb.store.lineByBasketProduct[basketID] == nil {
		mb.store.lineByBasketProduct[basketID] = make(map[int64]uuid.UUID)
	}
	mb.store.lineByBasketProduct[basketID][productID] = line.ID
	mb.store.lineOrder[basketID] = append(mb.store.lineOrder[basketID], line.ID)
	cp := line
	return &cp, nil
}

func (mb *MemoryBaskets) SetLineQuantity(ctx context.Context, lineID uuid.UUID, quantity int64) error {
	mb.store.wlock(ctx)
	defer mb.store.wunlock(ctx)
	line, ok := mb.store.linesByID[lineID]
	if !ok {
		return ErrNotFound
	}
	line.Quantity = quantity
	mb.store.linesByID[lineID] = line
	return nil
}

func (mb *MemoryBaskets) RemoveLine(ctx context.Context, lineID uuid.UUID) error {
	mb.store.wlock(ctx)
	defer mb.store.wunlock(ctx)
	return mb.store.removeLineLocked(lineID)
}

// removeLineLocked удаляет позицию и её записи в индексах; вызывается под wlock
func (m *MemoryStore) removeLineLocked(lineID uuid.UUID) error {
	line, ok := m.linesByID[lineID]
	if !ok {
		return ErrNotFound
	}
	delete(m.linesByID, lineID)
	delete(m.lineByBasketProduct[line.BasketID], line.ProductID)
	order := m.lineOrder[line.BasketID]
	for i, id := range order {
		if id == lineID {
			m.lineOrder[line.BasketID] = append(order[:i], order[i+1:]...)
			break
		}
	}
	return nil
}

func (mb *MemoryBaskets) ListLines(ctx context.Context, basketID uuid.UUID) ([]domain.BasketItem, error) {
	mb.store.rlock(ctx)
	defer mb.store.runlock(ctx)
	order := mb.store.lineOrder[basketID]
	out := make([]domain.BasketItem, 0, len(order))
	for _, lineID := range order {
		out = append(out, mb.store.linesByID[lineID])
	}
	return out, nil
}

func (mb *MemoryBaskets) Delete(ctx context.Context, id uuid.UUID) error {
	mb.store.wlock(ctx)
	defer mb.store.wunlock(ctx)
	if _, ok := mb.store.basketsByID[id]; !ok {
		return ErrNotFound
	}
	// cascade: корзина владеет своими позициями
	for _, lineID := range append([]uuid.UUID(nil), mb.store.lineOrder[id]...) {
		_ = mb.store.removeLineLocked(lineID)
	}
	delete(mb.store.lineOrder, id)
	delete(mb.store.lineByBasketProduct, id)
	delete(mb.store.basketsByID, id)
	return nil
}

// Tx manager using write lock to emulate transaction boundary
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

var _ TxManager = (*MemoryTx)(nil)

func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// Для in-memory используем блокировку записи и помечаем контекст, чтобы репозитории пропускали внутренние локи
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	ctx = context.WithValue(ctx, txKey{}, true)
	return fn(ctx)
}
