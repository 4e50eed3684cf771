package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"avoska/internal/domain"
)

// ErrNotFound возвращается, когда сущность не найдена
var ErrNotFound = errors.New("not found")

// ErrOutOfStock возвращается, когда списание увело бы остаток товара в минус
var ErrOutOfStock = errors.New("out of stock")

// ProductRepository интерфейс репозитория товаров
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	// AdjustStock атомарно применяет quantity += delta (delta может быть
	// отрицательной). Возвращает ErrOutOfStock, если итог был бы < 0;
	// в этом случае остаток не меняется.
	AdjustStock(ctx context.Context, id int64, delta int64) (*domain.Product, error)
	// ListActiveInStock возвращает товары с active = true и quantity > 0,
	// отсортированные по имени по возрастанию.
	ListActiveInStock(ctx context.Context) ([]domain.Product, error)
}

// BasketRepository интерфейс репозитория корзин и их позиций
type BasketRepository interface {
	Create(ctx context.Context) (*domain.Basket, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Basket, error)
	// FindLine ищет позицию по паре (корзина, товар).
	FindLine(ctx context.Context, basketID uuid.UUID, productID int64) (*domain.BasketItem, error)
	// GetLineByID ищет позицию по её id независимо от корзины;
	// принадлежность проверяет вызывающий.
	GetLineByID(ctx context.Context, lineID uuid.UUID) (*domain.BasketItem, error)
	// UpsertLine добавляет qtyDelta к существующей позиции (корзина, товар)
	// либо создаёт новую с quantity = qtyDelta.
	UpsertLine(ctx context.Context, basketID uuid.UUID, productID int64, qtyDelta int64) (*domain.BasketItem, error)
	SetLineQuantity(ctx context.Context, lineID uuid.UUID, quantity int64) error
	RemoveLine(ctx context.Context, lineID uuid.UUID) error
	// ListLines возвращает позиции корзины в порядке добавления.
	ListLines(ctx context.Context, basketID uuid.UUID) ([]domain.BasketItem, error)
	// Delete удаляет корзину каскадно вместе с её позициями.
	Delete(ctx context.Context, id uuid.UUID) error
}

// TxManager абстракция транзакции. Для in-memory — глобальная блокировка записи.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
