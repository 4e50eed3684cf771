package service

import (
	"context"
	"errors"
	"log"

	"golang.org/x/sync/singleflight"

	"avoska/internal/domain"
	"avoska/internal/repository"
)

var ErrInvalidInput = errors.New("invalid input")

// ProductService отдаёт каталог товаров. Список активных товаров в наличии
// читается через кэш; одновременные промахи схлопываются в один поход в
// хранилище через singleflight.
type ProductService struct {
	repo  repository.ProductRepository
	cache ProductListCache
	group singleflight.Group
}

func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

// WithCache подключает кэш списка товаров
func (s *ProductService) WithCache(c ProductListCache) *ProductService {
	s.cache = c
	return s
}

func (s *ProductService) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if p.Name == "" || p.Price < 0 || p.Quantity < 0 {
		return nil, ErrInvalidInput
	}
	cp := p
	if err := s.repo.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

// ListActiveInStock возвращает активные товары с положительным остатком,
// отсортированные по имени
func (s *ProductService) ListActiveInStock(ctx context.Context) ([]domain.Product, error) {
	if s.cache == nil {
		return s.repo.ListActiveInStock(ctx)
	}
	if list, ok, err := s.cache.Get(ctx); err == nil && ok {
		return list, nil
	}
	// cache miss: collapse concurrent loads into one
	v, err, _ := s.group.Do("products:active", func() (any, error) {
		list, err := s.repo.ListActiveInStock(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, list); err != nil {
			log.Printf("cache set: %v", err)
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Product), nil
}
