// Command seed-db loads the product catalog and initial stock levels into
// PostgreSQL. By default it uses the embedded seed file; pass --products-file
// to seed from a custom JSON file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/avoronov/cartstock/db"
	"github.com/avoronov/cartstock/internal/repository"
)

type productJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	IsActive bool            `json:"isActive"`
	Stock    stockJSON       `json:"stock"`
}

type stockJSON struct {
	Quantity          int    `json:"quantity"`
	LowStockThreshold int    `json:"lowStockThreshold"`
	Warehouse         string `json:"warehouse"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "", "path to products JSON file (default: embedded seed)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
	data := db.SeedProducts
	if productsFile != "" {
		var err error
		data, err = os.ReadFile(productsFile)
		if err != nil {
			return errors.Wrapf(err, "read %s", productsFile)
		}
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	for _, p := range products {
		if _, err := pool.Exec(ctx, `INSERT INTO products (id, name, price, category, is_active)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, price = EXCLUDED.price,
				category = EXCLUDED.category, is_active = EXCLUDED.is_active`,
			p.ID, p.Name, p.Price, p.Category, p.IsActive); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		if _, err := pool.Exec(ctx, `INSERT INTO stock_records (product_id, quantity, low_stock_threshold, warehouse)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (product_id) DO UPDATE SET
				quantity = EXCLUDED.quantity,
				low_stock_threshold = EXCLUDED.low_stock_threshold,
				warehouse = EXCLUDED.warehouse,
				updated_at = now()`,
			p.ID, p.Stock.Quantity, p.Stock.LowStockThreshold, p.Stock.Warehouse); err != nil {
			return errors.Wrapf(err, "upsert stock for %s", p.ID)
		}
	}

	slog.Info("seeded products", slog.Int("count", len(products)))
	return nil
}
