package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	appcart "github.com/waxline/recordshop/internal/application/cart"
	appcheckout "github.com/waxline/recordshop/internal/application/checkout"
	appinventory "github.com/waxline/recordshop/internal/application/inventory"
	apppayment "github.com/waxline/recordshop/internal/application/payment"
	domcart "github.com/waxline/recordshop/internal/domain/cart"
	domcatalog "github.com/waxline/recordshop/internal/domain/catalog"
	domcoupon "github.com/waxline/recordshop/internal/domain/coupon"
	dominv "github.com/waxline/recordshop/internal/domain/inventory"
	domorder "github.com/waxline/recordshop/internal/domain/order"
	dompayment "github.com/waxline/recordshop/internal/domain/payment"
	"github.com/waxline/recordshop/internal/infrastructure/id"
	"github.com/waxline/recordshop/internal/infrastructure/memory"
	"github.com/waxline/recordshop/internal/infrastructure/notify"
	"github.com/waxline/recordshop/internal/infrastructure/outbox"
	"github.com/waxline/recordshop/internal/infrastructure/processor"
	"github.com/waxline/recordshop/internal/infrastructure/rediscart"
	"github.com/waxline/recordshop/internal/infrastructure/sqlite"
	"github.com/waxline/recordshop/internal/observability"
	"github.com/waxline/recordshop/internal/pkg/clock"
	"github.com/waxline/recordshop/internal/pkg/config"
	"github.com/waxline/recordshop/internal/pkg/logging"
	httppresentation "github.com/waxline/recordshop/internal/presentation/http"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := observability.New(registry)

	clk := clock.System()
	idGen := id.NewUUIDGenerator()

	var (
		ledger   dominv.Repository
		orders   domorder.Repository
		sequence domorder.NumberSequence
		coupons  domcoupon.Repository
		payments dompayment.Repository
	)
	switch cfg.Store {
	case config.StoreSQLite:
		store, serr := sqlite.Open(cfg.SQLitePath)
		if serr != nil {
			logger.Fatal("sqlite_open_failed", zap.String("path", cfg.SQLitePath), zap.Error(serr))
		}
		defer func() { _ = store.Close() }()
		ledger = sqlite.NewInventoryRepository(store)
		orders = sqlite.NewOrderRepository(store)
		sequence = sqlite.NewNumberSequence(store)
		coupons = sqlite.NewCouponRepository(store)
		payments = sqlite.NewPaymentRepository(store)
	default:
		ledger = memory.NewInventoryRepository()
		orders = memory.NewOrderRepository()
		sequence = memory.NewNumberSequence()
		coupons = memory.NewCouponRepository()
		payments = memory.NewPaymentRepository()
	}

	var carts domcart.Repository
	if cfg.CartStore == config.CartStoreRedis {
		carts = rediscart.New(cfg.RedisAddr, cfg.GuestCartTTL)
	} else {
		carts = memory.NewCartRepository()
	}

	// The catalog is a read model owned by another service; this deployment
	// carries a seeded in-memory copy.
	catalog := memory.NewCatalogRepository(seedProducts()...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Env == "dev" {
		if err := seedDevData(ctx, ledger, coupons); err != nil {
			logger.Fatal("seed_failed", zap.Error(err))
		}
		logger.Info("dev_data_seeded")
	}

	bus := outbox.NewBus(logger)
	bus.Start(ctx)
	defer bus.Stop(context.Background())
	notify.New(bus).Start()

	cardProcessor := processor.NewSimulator()

	paymentSvc := apppayment.NewService(payments, orders, ledger, cardProcessor, bus, idGen, clk, metrics)
	cartSvc := appcart.NewService(carts, catalog, coupons, idGen, clk, cfg.GuestCartTTL)
	checkoutSvc := appcheckout.NewService(carts, catalog, coupons, ledger, orders, sequence,
		paymentSvc, bus, idGen, clk, metrics, appcheckout.Config{
			Currency:          cfg.Currency,
			OrderNumberPrefix: cfg.OrderNumberPrefix,
			TaxRate:           cfg.TaxRate,
			ShippingMethods:   cfg.ShippingMethods,
		})
	inventorySvc := appinventory.NewService(ledger, bus)

	handler := httppresentation.NewHandler(cartSvc, checkoutSvc, paymentSvc, inventorySvc)
	router := httppresentation.NewRouter(handler, logger, metrics)
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server_listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server_failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown_started")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown_error", zap.Error(err))
	}
	logger.Info("shutdown_complete")
}

func seedProducts() []*domcatalog.Product {
	sale := decimal.NewFromFloat(19.99)
	return []*domcatalog.Product{
		{
			ID:        "11111111-1111-1111-1111-111111111111",
			Slug:      "kind-of-blue-lp",
			Title:     "Kind of Blue",
			Artist:    "Miles Davis",
			Format:    "vinyl",
			ListPrice: decimal.NewFromFloat(27.99),
			SalePrice: &sale,
		},
		{
			ID:        "22222222-2222-2222-2222-222222222222",
			Slug:      "blue-train-lp",
			Title:     "Blue Train",
			Artist:    "John Coltrane",
			Format:    "vinyl",
			ListPrice: decimal.NewFromFloat(24.99),
		},
		{
			ID:        "33333333-3333-3333-3333-333333333333",
			Slug:      "head-hunters-cd",
			Title:     "Head Hunters",
			Artist:    "Herbie Hancock",
			Format:    "cd",
			ListPrice: decimal.NewFromFloat(12.99),
		},
	}
}

// seedDevData loads inventory and coupons for local development. Seeding is
// idempotent: existing inventory records are left alone so restarts do not
// reset reservations.
func seedDevData(ctx context.Context, ledger dominv.Repository, coupons domcoupon.Repository) error {
	stock := map[string]int{
		"11111111-1111-1111-1111-111111111111": 25,
		"22222222-2222-2222-2222-222222222222": 10,
		"33333333-3333-3333-3333-333333333333": 50,
	}
	for productID, qty := range stock {
		if _, err := ledger.Get(ctx, productID); err == nil {
			continue
		} else if !errors.Is(err, dominv.ErrNotFound) {
			return err
		}
		rec, err := dominv.NewRecord(productID, qty, 5)
		if err != nil {
			return err
		}
		if err := ledger.Save(ctx, rec); err != nil {
			return err
		}
	}

	minOrder := decimal.NewFromInt(15)
	cap50 := decimal.NewFromInt(50)
	limit := 100
	until := time.Now().AddDate(1, 0, 0)
	seeded := []*domcoupon.Coupon{
		{
			Code:              "WELCOME10",
			Type:              domcoupon.TypePercentage,
			Value:             decimal.NewFromInt(10),
			MinOrderAmount:    &minOrder,
			MaxDiscountAmount: &cap50,
			UsageLimit:        &limit,
			ValidUntil:        &until,
			Active:            true,
		},
		{
			Code:   "FIVEOFF",
			Type:   domcoupon.TypeFixed,
			Value:  decimal.NewFromInt(5),
			Active: true,
		},
	}
	for _, c := range seeded {
		if _, err := coupons.FindByCode(ctx, c.Code); err == nil {
			continue
		} else if !errors.Is(err, domcoupon.ErrNotFound) {
			return err
		}
		if err := coupons.Save(ctx, c); err != nil {
			return err
		}
	}
	return nil
}
