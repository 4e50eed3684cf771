package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avoska/internal/domain"
	"avoska/internal/repository"
)

type basketFixture struct {
	store   *repository.MemoryStore
	baskets *repository.MemoryBaskets
	svc     *BasketService
}

func newBasketFixture(t *testing.T) *basketFixture {
	t.Helper()
	store := repository.NewMemoryStore()
	baskets := repository.NewMemoryBaskets(store)
	tx := repository.NewMemoryTx(store)
	return &basketFixture{
		store:   store,
		baskets: baskets,
		svc:     NewBasketService(store, baskets, tx),
	}
}

func (f *basketFixture) seedProduct(t *testing.T, id int64, name string, qty int64, active bool) {
	t.Helper()
	p := domain.Product{ID: id, Name: name, Quantity: qty, Active: active, Price: 100}
	require.NoError(t, f.store.Create(context.Background(), &p))
}

func (f *basketFixture) stock(t *testing.T, productID int64) int64 {
	t.Helper()
	p, err := f.store.GetByID(context.Background(), productID)
	require.NoError(t, err)
	return p.Quantity
}

func TestAddItem_DecrementsStockAndCreatesLine(t *testing.T) {
	ctx := context.Background()
	f := newBasketFixture(t)
	f.seedProduct(t, 2, "Coffee", 20, true)

	b, err := f.svc.Create(ctx)
	require.NoError(t, err)
	assert.Empty(t, b.Items)
	assert.False(t, b.CreatedAt.IsZero())

	view, err := f.svc.AddItem(ctx, b.ID, 2, 3)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, int64(3), view.Items[0].Quantity)
	assert.Equal(t, int64(2), view.Items[0].Product.ID)
	assert.Equal(t, int64(17), f.stock(t, 2))
}

func TestAddItem_MergeLaw(t *testing.T) {
	ctx := context.Background()
	f := newBasketFixture(t)
	f.seedProduct(t, 1, "Tea", 10, true)

	b, err := f.svc.Create(ctx)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, b.ID, 1, 2)
	require.NoError(t, err)
	view, err := f.svc.AddItem(ctx, b.ID, 1, 3)
	require.NoError(t, err)

	// two adds collapse into one line with summed quantity
	require.Len(t, view.Items, 1)
	assert.Equal(t, int64(5), view.Items[0].Quantity)
	assert.Equal(t, int64(5), f.stock(t, 1))
}

func TestAddItem_OutOfStockLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	f := newBasketFixture(t)
	f.seedProduct(t, 4, "Milk", 15, true)

	b, err := f.svc.Create(ctx)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, b.ID, 4, 99)
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Equal(t, int64(15), f.stock(t, 4))

	view, err := f.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestAddItem_Validation(t *testing.T) {
	ctx := context.Background()
	f := newBasketFixture(t)
	f.seedProduct(t, 5, "Marmalade", 5, false)
	f.seedProduct(t, 1, "Tea", 5, true)

	b, err := f.svc.Create(ctx)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, uuid.New(), 1, 1)
	assert.ErrorIs(t, err, ErrBasketNotFound)

	_, err = f.svc.AddItem(ctx, b.ID, 42, 1)
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = f.svc.AddItem(ctx, b.ID, 5, 1)
	assert.ErrorIs(t, err, ErrProductInactive)
	assert.Equal(t, int64(5), f.stock(t, 5))

	_, err = f.svc.AddItem(ctx, b.ID, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.svc.AddItem(ctx, b.ID, 1, -2)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, int64(5), f.stock(t, 1))
}

func TestUpdateItemQuantity_AppliesSignedDelta(t *testing.T) {
	ctx := context.Background()
	f := newBasketFixture(t)
	f.seedProduct(t, 1, "Tea", 10, true)

	b, err := f.svc.Create(ctx)
	require.NoError(t, err)
	view, err := f.svc.AddItem(ctx, b.ID, 1, 1)
	require.NoError(t, err)
	lineID := view.Items[0].ID

	// grow by one: exactly one more unit leaves the stock
	require.NoError(t, f.svc.UpdateItemQuantity(ctx, b.ID, lineID, 2))
	assert.Equal(t, int64(8), f.stock(t, 1))

	// shrink: the difference returns to the stock
	require.NoError(t, f.svc.UpdateItemQuantity(ctx, b.ID, lineID, 1))
	assert.Equal(t, int64(9), f.stock(t, 1))

	// same quantity is a no-op
	require.NoError(t, f.svc.UpdateItemQuantity(ctx, b.ID, lineID, 1))
	assert.Equal(t, int64(9), f.stock(t, 1))

	view, err = f.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, int64(1), view.Items[0].Quantity)
}

func TestUpdateItemQuantity_ZeroDeletesLineAndRestoresStock(t *testing.T) {
	ctx := context.Background()
	f := newBasketFixture(t)
	f.seedProduct(t, 1, "Tea", 10, true)

	b, err := f.svc.Create(ctx)
	require.NoError(t, err)
	view, err := f.svc.AddItem(ctx, b.ID, 1, 3)
	require.NoError(t, err)
	lineID := view.Items[0].ID
	require.Equal(t, int64(7), f.stock(t, 1))

	require.NoError(t, f.svc.UpdateItemQuantity(ctx, b.ID, lineID, 0))
	assert.Equal(t, int64(10), f.stock(t, 1))

	view, err = f.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	// re-adding the same amount restores the original line state
	view, err = f.svc.AddItem(ctx, b.ID, 1, 3)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, int64(3), view.Items[0].Quantity)
	assert.Equal(t, int64(7), f.stock(t, 1))
}

func TestUpdateItemQuantity_Failures(t *testing.T) {
	ctx := context.Background()
	f := newBasketFixture(t)
	f.seedProduct(t, 1, "Tea", 5, true)

	b, err := f.svc.Create(ctx)
	require.NoError(t, err)
	view, err := f.svc.AddItem(ctx, b.ID, 1, 2)
	require.NoError(t, err)
	lineID := view.Items[0].ID

	err = f.svc.UpdateItemQuantity(ctx, b.ID, lineID, -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	err = f.svc.UpdateItemQuantity(ctx, b.ID, uuid.New(), 1)
	assert.ErrorIs(t, err, ErrItemNotFound)

	// growing beyond the remaining stock fails and changes nothing
	err = f.svc.UpdateItemQuantity(ctx, b.ID, lineID, 100)
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Equal(t, int64(3), f.stock(t, 1))
	got, err := f.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Items[0].Quantity)
}

// line resolution and ownership are checked before the quantity itself,
// so a bad quantity against a wrong line still reads as "not found"
func TestUpdateItemQuantity_ResolutionPrecedesValidation(t *testing.T) {
	ctx := context.Background()
	f := newBasketFixture(t)
	f.seedProduct(t, 1, "Tea", 5, true)

	a, err := f.svc.Create(ctx)
	require.NoError(t, err)
	b, err := f.svc.Create(ctx)
	require.NoError(t, err)
	view, err := f.svc.AddItem(ctx, a.ID, 1, 2)
	require.NoError(t, err)
	lineID := view.Items[0].ID

	err = f.svc.UpdateItemQuantity(ctx, a.ID, uuid.New(), -1)
	assert.ErrorIs(t, err, ErrItemNotFound)

	err = f.svc.UpdateItemQuantity(ctx, b.ID, lineID, -1)
	assert.ErrorIs(t, err, ErrItemNotInBasket)

	err = f.svc.UpdateItemQuantity(ctx, a.ID, lineID, -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

// basket, product and active checks run before the amount is validated
func TestAddItem_ResolutionPrecedesValidation(t *testing.T) {
	ctx := context.Background()
	f := newBasketFixture(t)
	f.seedProduct(t, 5, "Marmalade", 5, false)

	b, err := f.svc.Create(ctx)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, uuid.New(), 5, 0)
	assert.ErrorIs(t, err, ErrBasketNotFound)

	_, err = f.svc.AddItem(ctx, b.ID, 42, 0)
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = f.svc.AddItem(ctx, b.ID, 5, 0)
	assert.ErrorIs(t, err, ErrProductInactive)
}

func TestUpdateItemQuantity_ForeignBasket(t *testing.T) {
	ctx := context.Background()
	f := newBasketFixture(t)
	f.seedProduct(t, 1, "Tea", 5, true)

	a, err := f.svc.Create(ctx)
	require.NoError(t, err)
	other, err := f.svc.Create(ctx)
	require.NoError(t, err)
	view, err := f.svc.AddItem(ctx, a.ID, 1, 2)
	require.NoError(t, err)
	lineID := view.Items[0].ID

	// a line from basket A addressed through basket B is rejected untouched
	err = f.svc.UpdateItemQuantity(ctx, other.ID, lineID, 1)
	assert.ErrorIs(t, err, ErrItemNotInBasket)
	err = f.svc.RemoveItem(ctx, other.ID, lineID)
	assert.ErrorIs(t, err, ErrItemNotInBasket)

	assert.Equal(t, int64(3), f.stock(t, 1))
	got, err := f.svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Items[0].Quantity)
}

func TestRemoveItem_RestoresStock(t *testing.T) {
	ctx := context.Background()
	f := newBasketFixture(t)
	f.seedProduct(t, 1, "Tea", 10, true)

	b, err := f.svc.Create(ctx)
	require.NoError(t, err)
	view, err := f.svc.AddItem(ctx, b.ID, 1, 4)
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveItem(ctx, b.ID, view.Items[0].ID))
	assert.Equal(t, int64(10), f.stock(t, 1))

	got, err := f.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)

	err = f.svc.RemoveItem(ctx, b.ID, view.Items[0].ID)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

// stock + units claimed across all baskets must always equal the initial stock
func TestStockConservation(t *testing.T) {
	ctx := context.Background()
	f := newBasketFixture(t)
	const initial = int64(30)
	f.seedProduct(t, 1, "Tea", initial, true)

	a, _ := f.svc.Create(ctx)
	b, _ := f.svc.Create(ctx)

	va, err := f.svc.AddItem(ctx, a.ID, 1, 5)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, b.ID, 1, 7)
	require.NoError(t, err)
	require.NoError(t, f.svc.UpdateItemQuantity(ctx, a.ID, va.Items[0].ID, 2))

	claimed := int64(0)
	for _, basketID := range []uuid.UUID{a.ID, b.ID} {
		view, err := f.svc.Get(ctx, basketID)
		require.NoError(t, err)
		for _, line := range view.Items {
			claimed += line.Quantity
		}
	}
	assert.Equal(t, initial, f.stock(t, 1)+claimed)
}

// competing baskets must never claim more units than the stock holds
func TestAddItem_ConcurrentStockGuard(t *testing.T) {
	ctx := context.Background()
	f := newBasketFixture(t)
	const stock = int64(10)
	f.seedProduct(t, 1, "Tea", stock, true)

	const workers = 25
	basketIDs := make([]uuid.UUID, workers)
	for i := range basketIDs {
		b, err := f.svc.Create(ctx)
		require.NoError(t, err)
		basketIDs[i] = b.ID
	}

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(basketID uuid.UUID) {
			defer wg.Done()
			_, err := f.svc.AddItem(ctx, basketID, 1, 1)
			results <- err
		}(basketIDs[i])
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrOutOfStock)
		}
	}
	assert.Equal(t, int(stock), succeeded)
	assert.Equal(t, int64(0), f.stock(t, 1))
}
