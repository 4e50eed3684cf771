package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product представляет товар каталога. Цена хранится в минорных единицах
// (копейках), Quantity — доступный остаток на складе и никогда не уходит в минус.
type Product struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Active   bool   `json:"active"`
	Price    int64  `json:"price"`
}

// Basket корзина покупателя. Создаётся пустой; меняется только через позиции.
type Basket struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// BasketItem позиция корзины: сколько единиц товара зарезервировано этой корзиной.
// Quantity всегда > 0 — позиция с нулевым количеством удаляется, а не хранится.
type BasketItem struct {
	ID        uuid.UUID `json:"id"`
	BasketID  uuid.UUID `json:"-"`
	ProductID int64     `json:"-"`
	Quantity  int64     `json:"quantity"`
}

// BasketLine строка корзины в ответе API: позиция с вложенной карточкой товара.
type BasketLine struct {
	ID       uuid.UUID `json:"id"`
	Product  Product   `json:"product"`
	Quantity int64     `json:"quantity"`
}

// BasketView корзина целиком, как её отдаёт API.
type BasketView struct {
	ID        uuid.UUID    `json:"id"`
	CreatedAt time.Time    `json:"createdAt"`
	Items     []BasketLine `json:"items"`
}
