package service

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"avoska/internal/domain"
	"avoska/internal/repository"
)

var (
	ErrBasketNotFound  = errors.New("basket not found")
	ErrProductNotFound = errors.New("product not found")
	ErrItemNotFound    = errors.New("item not found")
	ErrProductInactive = errors.New("product is inactive")
	ErrOutOfStock      = errors.New("product out of stock")
	ErrInvalidAmount   = errors.New("amount must be a positive integer")
	ErrInvalidQuantity = errors.New("quantity must be >= 0")
	ErrItemNotInBasket = errors.New("item does not belong to this basket")
)

// StockChange описывает совершённое изменение остатка для внешних подписчиков
type StockChange struct {
	ProductID int64     `json:"product_id"`
	BasketID  uuid.UUID `json:"basket_id"`
	Delta     int64     `json:"delta"`
	Remaining int64     `json:"remaining"`
}

// EventPublisher публикует события об изменении остатков. Может быть nil.
type EventPublisher interface {
	PublishStockChanged(ctx context.Context, ev StockChange) error
}

// ProductListCache кэш списка товаров; инвалидируется при каждом изменении
// остатка. Может быть nil.
type ProductListCache interface {
	Get(ctx context.Context) ([]domain.Product, bool, error)
	Set(ctx context.Context, products []domain.Product) error
	Invalidate(ctx context.Context) error
}

// BasketService реализует логику корзины: добавление, изменение количества и
// удаление позиций с зеркальным изменением складского остатка. Каждая единица,
// зарезервированная корзиной, списана со склада, и наоборот — это инвариант
// всего сервиса.
type BasketService struct {
	products  repository.ProductRepository
	baskets   repository.BasketRepository
	tx        repository.TxManager
	publisher EventPublisher
	cache     ProductListCache
}

func NewBasketService(products repository.ProductRepository, baskets repository.BasketRepository, tx repository.TxManager) *BasketService {
	return &BasketService{products: products, baskets: baskets, tx: tx}
}

// WithPublisher подключает публикацию событий об изменении остатков
func (s *BasketService) WithPublisher(p EventPublisher) *BasketService {
	s.publisher = p
	return s
}

// WithCache подключает инвалидацию кэша списка товаров
func (s *BasketService) WithCache(c ProductListCache) *BasketService {
	s.cache = c
	return s
}

// Create создаёт пустую корзину
func (s *BasketService) Create(ctx context.Context) (*domain.BasketView, error) {
	b, err := s.baskets.Create(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.BasketView{ID: b.ID, CreatedAt: b.CreatedAt, Items: []domain.BasketLine{}}, nil
}

// Get возвращает корзину со всеми позициями и карточками товаров
func (s *BasketService) Get(ctx context.Context, basketID uuid.UUID) (*domain.BasketView, error) {
	var view *domain.BasketView
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		v, err := s.buildView(ctx, basketID)
		if err != nil {
			return err
		}
		view = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// AddItem добавляет amount единиц товара в корзину, атомарно списывая их со
// склада. Повторное добавление того же товара сливается в существующую позицию.
func (s *BasketService) AddItem(ctx context.Context, basketID uuid.UUID, productID int64, amount int64) (*domain.BasketView, error) {
	var (
		view   *domain.BasketView
		change StockChange
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.baskets.GetByID(ctx, basketID); err != nil {
			return ErrBasketNotFound
		}
		p, err := s.products.GetByID(ctx, productID)
		if err != nil {
			return ErrProductNotFound
		}
		if !p.Active {
			return ErrProductInactive
		}
		if amount <= 0 {
			return ErrInvalidAmount
		}

		// списание — единственный шаг, который может не пройти;
		// до него корзина не тронута, после него ошибок уже не будет
		updated, err := s.products.AdjustStock(ctx, productID, -amount)
		if err != nil {
			if errors.Is(err, repository.ErrOutOfStock) {
				return ErrOutOfStock
			}
			return err
		}
		if _, err := s.baskets.UpsertLine(ctx, basketID, productID, amount); err != nil {
			return err
		}

		change = StockChange{ProductID: productID, BasketID: basketID, Delta: -amount, Remaining: updated.Quantity}
		v, err := s.buildView(ctx, basketID)
		if err != nil {
			return err
		}
		view = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, change)
	return view, nil
}

// UpdateItemQuantity устанавливает новое количество позиции, применяя к складу
// знаковую разницу. Нулевое количество удаляет позицию и возвращает весь резерв.
func (s *BasketService) UpdateItemQuantity(ctx context.Context, basketID, lineID uuid.UUID, newQuantity int64) error {
	var (
		change  StockChange
		touched bool
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		line, err := s.resolveLine(ctx, basketID, lineID)
		if err != nil {
			return err
		}
		// позиция найдена и принадлежит корзине; только теперь проверяем количество
		if newQuantity < 0 {
			return ErrInvalidQuantity
		}

		if newQuantity == 0 {
			restored, err := s.products.AdjustStock(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			if err := s.baskets.RemoveLine(ctx, line.ID); err != nil {
				return err
			}
			change = StockChange{ProductID: line.ProductID, BasketID: basketID, Delta: line.Quantity, Remaining: restored.Quantity}
			touched = true
			return nil
		}

		delta := newQuantity - line.Quantity
		if delta == 0 {
			return nil
		}
		// delta > 0 докупает со склада и может упереться в остаток,
		// delta < 0 возвращает на склад и не может не пройти
		updated, err := s.products.AdjustStock(ctx, line.ProductID, -delta)
		if err != nil {
			if errors.Is(err, repository.ErrOutOfStock) {
				return ErrOutOfStock
			}
			return err
		}
		if err := s.baskets.SetLineQuantity(ctx, line.ID, newQuantity); err != nil {
			return err
		}
		change = StockChange{ProductID: line.ProductID, BasketID: basketID, Delta: -delta, Remaining: updated.Quantity}
		touched = true
		return nil
	})
	if err != nil {
		return err
	}
	if touched {
		s.notify(ctx, change)
	}
	return nil
}

// RemoveItem удаляет позицию, возвращая весь её резерв на склад
func (s *BasketService) RemoveItem(ctx context.Context, basketID, lineID uuid.UUID) error {
	var change StockChange
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		line, err := s.resolveLine(ctx, basketID, lineID)
		if err != nil {
			return err
		}
		restored, err := s.products.AdjustStock(ctx, line.ProductID, line.Quantity)
		if err != nil {
			return err
		}
		if err := s.baskets.RemoveLine(ctx, line.ID); err != nil {
			return err
		}
		change = StockChange{ProductID: line.ProductID, BasketID: basketID, Delta: line.Quantity, Remaining: restored.Quantity}
		return nil
	})
	if err != nil {
		return err
	}
	s.notify(ctx, change)
	return nil
}

// resolveLine находит позицию и проверяет принадлежность корзине.
// Чужая корзина — отдельная ошибка: позиция существует, но трогать её нельзя.
func (s *BasketService) resolveLine(ctx context.Context, basketID, lineID uuid.UUID) (*domain.BasketItem, error) {
	line, err := s.baskets.GetLineByID(ctx, lineID)
	if err != nil {
		return nil, ErrItemNotFound
	}
	if line.BasketID != basketID {
		return nil, ErrItemNotInBasket
	}
	return line, nil
}

func (s *BasketService) buildView(ctx context.Context, basketID uuid.UUID) (*domain.BasketView, error) {
	b, err := s.baskets.GetByID(ctx, basketID)
	if err != nil {
		return nil, ErrBasketNotFound
	}
	lines, err := s.baskets.ListLines(ctx, basketID)
	if err != nil {
		return nil, err
	}
	view := &domain.BasketView{ID: b.ID, CreatedAt: b.CreatedAt, Items: make([]domain.BasketLine, 0, len(lines))}
	for _, line := range lines {
		p, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		view.Items = append(view.Items, domain.BasketLine{ID: line.ID, Product: *p, Quantity: line.Quantity})
	}
	return view, nil
}

// notify уведомляет внешних подписчиков уже после фиксации изменений;
// их отказ не влияет на результат операции
func (s *BasketService) notify(ctx context.Context, change StockChange) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			log.Printf("cache invalidate: %v", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishStockChanged(ctx, change); err != nil {
			log.Printf("publish stock change: %v", err)
		}
	}
}
