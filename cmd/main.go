package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"avoska/internal/cache"
	"avoska/internal/config"
	"avoska/internal/domain"
	"avoska/internal/events"
	httpapi "avoska/internal/http"
	"avoska/internal/repository"
	"avoska/internal/service"

	_ "avoska/docs"
)

func main() {
	cfg := config.Load()

	store := repository.NewMemoryStore()
	basketsRepo := repository.NewMemoryBaskets(store)
	tx := repository.NewMemoryTx(store)

	productsSvc := service.NewProductService(store)
	basketsSvc := service.NewBasketService(store, basketsRepo, tx)

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		listCache := cache.NewProductListCache(client, cfg.CacheTTL)
		productsSvc.WithCache(listCache)
		basketsSvc.WithCache(listCache)
	}

	if cfg.AMQPURL != "" {
		pool, err := events.NewChannelPool(cfg.AMQPURL, cfg.StockQueue, cfg.ChannelPoolSize)
		if err != nil {
			log.Fatalf("rabbitmq: %v", err)
		}
		defer pool.Close()
		basketsSvc.WithPublisher(events.NewPublisher(pool, cfg.StockQueue))
	}

	seedProducts(store)

	srv := httpapi.NewServer(productsSvc, basketsSvc)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Engine(),
	}

	go func() {
		log.Printf("HTTP server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// seedProducts наполняет каталог стартовыми товарами; в этом сервисе товары
// создаются только здесь, дальше их остатками управляет корзина
func seedProducts(products repository.ProductRepository) {
	ctx := context.Background()
	seed := []domain.Product{
		{ID: 1, Name: "Green Tea", Quantity: 10, Active: true, Price: 350},
		{ID: 2, Name: "Arabica Coffee", Quantity: 20, Active: true, Price: 1200},
		{ID: 3, Name: "Dark Chocolate", Quantity: 8, Active: true, Price: 540},
		{ID: 4, Name: "Almond Milk", Quantity: 15, Active: true, Price: 220},
		{ID: 5, Name: "Vintage Marmalade", Quantity: 5, Active: false, Price: 780},
	}
	for _, p := range seed {
		cp := p
		if err := products.Create(ctx, &cp); err != nil {
			log.Fatalf("seed products: %v", err)
		}
	}
}
