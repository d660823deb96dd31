package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/gold-inventory/internal/adapter/storage"
	"github.com/rl1809/gold-inventory/internal/config"
	"github.com/rl1809/gold-inventory/internal/core/domain"
	"github.com/rl1809/gold-inventory/internal/core/service"
)

const (
	initialStock  = 20
	totalRequests = 50
)

// Runs totalRequests single-unit checkouts against one item and checks that
// exactly initialStock of them settle. The store comes from STORE_DRIVER and
// the usual connection env vars (memory by default).
func main() {
	ctx := context.Background()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Store.Driver == config.DriverMySQL && !driverFromEnv() {
		cfg.Store.Driver = config.DriverMemory
	}
	unit, err := cfg.CurrencyUnit()
	if err != nil {
		log.Fatalf("failed to parse currency: %v", err)
	}

	logger := zap.NewNop()
	store, err := storage.Open(ctx, cfg.Store, logger)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.Store.Driver, err)
	}
	defer store.Close()

	if m, ok := store.(storage.Migrator); ok {
		if err := m.Migrate(ctx); err != nil {
			log.Fatalf("failed to migrate: %v", err)
		}
	}

	inventory := service.NewInventoryService(store, logger)
	item, err := inventory.AddItem(ctx, service.NewItem{
		Name:         fmt.Sprintf("Stress Coin %d", time.Now().UnixNano()),
		WeightGrams:  decimal.NewFromInt(10),
		PurityKarat:  24,
		PricePerGram: decimal.NewFromInt(7000),
		Quantity:     initialStock,
	})
	if err != nil {
		log.Fatalf("failed to create item: %v", err)
	}

	validator := service.NewStockValidator(store, logger)
	carts := service.NewCartService(validator, logger)
	checkout := service.NewCheckoutService(store, validator, unit, logger)

	// Counters
	var successCount, shortCount, conflictCount, errorCount atomic.Int32

	// Every customer fills a cart first so the checkouts race each other
	ready := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		cart := domain.NewCart()
		if _, err := carts.AddOrIncrement(ctx, cart, item, 1); err != nil {
			log.Fatalf("failed to fill cart %d: %v", i, err)
		}

		wg.Add(1)
		go func(customerID int64, cart *domain.Cart) {
			defer wg.Done()
			<-ready

			_, err := checkout.Checkout(ctx, customerID, cart)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, service.ErrInsufficientStock):
				shortCount.Add(1)
			case errors.Is(err, service.ErrConcurrentStockChange):
				conflictCount.Add(1)
			default:
				errorCount.Add(1)
			}
		}(int64(i+1), cart)
	}

	start := time.Now()
	close(ready)
	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	fail := shortCount.Load() + conflictCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Store Driver:     %s\n", cfg.Store.Driver)
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Insufficient:     %d\n", shortCount.Load())
	fmt.Printf("Conflicts:        %d\n", conflictCount.Load())
	fmt.Printf("Errors:           %d\n", errorCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == initialStock && fail == totalRequests-initialStock {
		fmt.Printf("PASS: Exactly %d checkouts settled, %d rejected\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d settled/%d rejected, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, fail)
	}

	finalStock, err := store.ReadQuantity(ctx, item.ID)
	if err != nil {
		log.Fatalf("failed to read final stock: %v", err)
	}
	fmt.Printf("Final Stock:      %d\n", finalStock)

	if finalStock == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", finalStock)
	}
}

func driverFromEnv() bool {
	_, ok := os.LookupEnv("STORE_DRIVER")
	return ok
}
