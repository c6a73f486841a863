// Package main наполняет базу демонстрационными заказами, предложениями и статистикой исполнителей.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mmeshcher/taza-marketplace/internal/generator"
	"github.com/mmeshcher/taza-marketplace/internal/lifecycle"
	"github.com/mmeshcher/taza-marketplace/internal/model"
	"github.com/mmeshcher/taza-marketplace/internal/pricing"
	"github.com/mmeshcher/taza-marketplace/internal/repository"
	"github.com/mmeshcher/taza-marketplace/internal/service"
)

type seedConfig struct {
	DatabaseURI string `env:"DATABASE_URI"`
	Orders      int    `env:"SEED_ORDERS" envDefault:"50"`
	Providers   int    `env:"SEED_PROVIDERS" envDefault:"10"`
	Seed        int64  `env:"SEED" envDefault:"1"`
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	_ = godotenv.Load()

	var cfg seedConfig
	if err := env.Parse(&cfg); err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}
	flag.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "database URI")
	flag.IntVar(&cfg.Orders, "n", cfg.Orders, "number of orders")
	flag.IntVar(&cfg.Providers, "providers", cfg.Providers, "number of providers")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	flag.Parse()

	if cfg.Providers < 1 {
		sugar.Fatalw("at least one provider is required", "providers", cfg.Providers)
	}

	tables := pricing.Default()
	machine, err := lifecycle.NewMachine(tables)
	if err != nil {
		sugar.Fatalw("pricing tables are invalid", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	svc := service.NewService(repo, machine, nil, nil, logger)
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen := generator.New(cfg.Seed, tables)

	providers := make([]string, 0, cfg.Providers)
	for i := 0; i < cfg.Providers; i++ {
		stats := gen.ProviderStats(gen.ID())
		if err := repo.UpsertProviderStats(ctx, stats); err != nil {
			sugar.Fatalw("failed to save provider stats", "error", err)
		}
		providers = append(providers, stats.ProviderID)
	}

	var created, accepted, completed int
	for i := 0; i < cfg.Orders && ctx.Err() == nil; i++ {
		client := model.Actor{Role: model.RoleClient, ID: gen.ID()}

		order, err := svc.CreateOrder(ctx, client, gen.OrderInput())
		if err != nil {
			sugar.Warnw("create order", "error", err)
			continue
		}
		created++

		res, ok := submitOffers(ctx, svc, gen, order, providers, sugar)
		if !ok || !gen.Chance(0.7) {
			continue
		}

		res, err = svc.Apply(ctx, order.ID, lifecycle.ActionAcceptOffer, client, lifecycle.Payload{OfferID: res.Offer.ID})
		if err != nil {
			sugar.Warnw("accept offer", "order_id", order.ID, "error", err)
			continue
		}
		accepted++

		if !gen.Chance(0.5) {
			continue
		}
		provider := model.Actor{Role: model.RoleProvider, ID: *res.Order.ChosenProviderID}
		if _, err := svc.Apply(ctx, order.ID, lifecycle.ActionComplete, provider, lifecycle.Payload{}); err != nil {
			sugar.Warnw("complete order", "order_id", order.ID, "error", err)
			continue
		}
		completed++
	}

	sugar.Infow("seed finished",
		"providers", len(providers),
		"orders", created,
		"accepted", accepted,
		"completed", completed,
	)
}

// submitOffers отправляет от одного до трёх предложений и возвращает результат первого успешного.
func submitOffers(ctx context.Context, svc *service.Service, gen *generator.Generator, order model.Order, providers []string, sugar *zap.SugaredLogger) (lifecycle.Result, bool) {
	var first lifecycle.Result
	ok := false

	n := min(len(providers), 1+int(order.PriceOffer)%3)
	for j := 0; j < n; j++ {
		provider := model.Actor{Role: model.RoleProvider, ID: providers[(int(order.PriceOffer)+j)%len(providers)]}
		draft := gen.Offer(order)

		res, err := svc.Apply(ctx, order.ID, lifecycle.ActionSubmitOffer, provider, lifecycle.Payload{Offer: &draft})
		if err != nil {
			sugar.Warnw("submit offer", "order_id", order.ID, "error", err)
			continue
		}
		if !ok {
			first, ok = res, true
		}
	}
	return first, ok
}
