// Command stock-ingest loads per-warehouse stock export files into
// PostgreSQL. Each export is a gzip-compressed CSV with lines of the form
//
//	product_id,quantity[,low_stock_threshold[,warehouse]]
//
// A product may appear in several exports; its quantities are summed.
// Pass 1 builds one bloom filter per file so pass 2 can tell, without
// holding every file in memory, which rows are unique to their file (written
// straight through in batches) and which need cross-file aggregation.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/avoronov/cartstock/internal/domain/stock"
	"github.com/avoronov/cartstock/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 1_000_000
	batchSize     = 1000
)

// stockRow is a parsed CSV line.
type stockRow struct {
	productID string
	quantity  int
	threshold int
	warehouse string
}

const upsertStockSQL = `INSERT INTO stock_records (product_id, quantity, low_stock_threshold, warehouse)
	SELECT $1, $2, $3, $4
	WHERE EXISTS (SELECT 1 FROM products WHERE id = $1)
	ON CONFLICT (product_id) DO UPDATE SET
		quantity = EXCLUDED.quantity,
		low_stock_threshold = EXCLUDED.low_stock_threshold,
		warehouse = EXCLUDED.warehouse,
		updated_at = now()`

func main() {
	var (
		databaseURL string
		filesArg    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&filesArg, "files", "", "comma-separated list of stock export .gz files")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if filesArg == "" {
		slog.Error("at least one export file is required: set --files")
		os.Exit(1)
	}

	files := strings.Split(filesArg, ",")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, files); err != nil {
		slog.Error("stock ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("stock ingest completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))

	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: writing stock records")

	shared, written, err := ingestUniqueRows(ctx, pool, files, filters)
	if err != nil {
		return errors.Wrap(err, "ingest unique rows")
	}

	if err := writeRows(ctx, pool, shared); err != nil {
		return errors.Wrap(err, "write aggregated rows")
	}

	slog.Info("ingest summary",
		slog.Int("direct_rows", written),
		slog.Int("aggregated_rows", len(shared)),
	)
	return nil
}

// buildBloomFilters creates one bloom filter per file, concurrently.
func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildFilterForFile(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForFile(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamGzFile(ctx, path, func(row stockRow) error {
			filter.AddString(row.productID)
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 1 progress",
					slog.Int("file", idx+1),
					slog.Uint64("rows", count),
				)
			}
			return nil
		}); err != nil {
			return errors.Wrapf(err, "build filter for file %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_rows", count),
		)

		filters[idx] = filter
		return nil
	}
}

// ingestUniqueRows streams each file once more. Rows whose product appears
// only in their own file are flushed straight to the database in batches;
// rows that may appear in another file (per the bloom filters) are collected
// into the returned map with quantities summed.
func ingestUniqueRows(
	ctx context.Context,
	pool *pgxpool.Pool,
	files []string,
	filters []*bloom.BloomFilter,
) (map[string]stockRow, int, error) {
	shared := make(map[string]stockRow)
	written := 0

	for idx, path := range files {
		batch := make([]stockRow, 0, batchSize)

		err := streamGzFile(ctx, path, func(row stockRow) error {
			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(row.productID) {
					// Possibly present in another file; aggregate in memory.
					if prev, ok := shared[row.productID]; ok {
						row.quantity += prev.quantity
					}
					shared[row.productID] = row
					return nil
				}
			}

			batch = append(batch, row)
			if len(batch) == batchSize {
				if err := flushBatch(ctx, pool, batch); err != nil {
					return err
				}
				written += len(batch)
				batch = batch[:0]
			}
			return nil
		})
		if err != nil {
			return nil, 0, errors.Wrapf(err, "ingest file %d", idx+1)
		}

		if len(batch) > 0 {
			if err := flushBatch(ctx, pool, batch); err != nil {
				return nil, 0, errors.Wrapf(err, "flush file %d", idx+1)
			}
			written += len(batch)
		}

		slog.Info("pass 2 file complete", slog.Int("file", idx+1))
	}

	return shared, written, nil
}

func writeRows(ctx context.Context, pool *pgxpool.Pool, rows map[string]stockRow) error {
	batch := make([]stockRow, 0, batchSize)
	for _, row := range rows {
		batch = append(batch, row)
		if len(batch) == batchSize {
			if err := flushBatch(ctx, pool, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		return flushBatch(ctx, pool, batch)
	}
	return nil
}

func flushBatch(ctx context.Context, pool *pgxpool.Pool, rows []stockRow) error {
	b := &pgx.Batch{}
	for _, row := range rows {
		b.Queue(upsertStockSQL, row.productID, row.quantity, row.threshold, row.warehouse)
	}

	results := pool.SendBatch(ctx, b)
	defer func() { _ = results.Close() }()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return errors.Wrap(err, "upsert stock record")
		}
	}
	return nil
}

// streamGzFile opens a gzip-compressed CSV file and calls fn for each
// well-formed line. Malformed lines are skipped with a warning.
func streamGzFile(ctx context.Context, path string, fn func(row stockRow) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		lineNo++

		row, err := parseLine(scanner.Text())
		if err != nil {
			slog.Warn("skipping malformed line",
				slog.String("file", path),
				slog.Int("line", lineNo),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := fn(row); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

func parseLine(line string) (stockRow, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) < 2 || fields[0] == "" {
		return stockRow{}, fmt.Errorf("want at least product_id,quantity, got %q", line)
	}

	qty, err := strconv.Atoi(fields[1])
	if err != nil || qty < 0 {
		return stockRow{}, fmt.Errorf("invalid quantity %q", fields[1])
	}

	row := stockRow{
		productID: fields[0],
		quantity:  qty,
		threshold: stock.DefaultLowStockThreshold,
		warehouse: stock.DefaultWarehouse,
	}

	if len(fields) > 2 && fields[2] != "" {
		t, err := strconv.Atoi(fields[2])
		if err != nil || t < 0 {
			return stockRow{}, fmt.Errorf("invalid threshold %q", fields[2])
		}
		row.threshold = t
	}
	if len(fields) > 3 && fields[3] != "" {
		row.warehouse = fields[3]
	}

	return row, nil
}
