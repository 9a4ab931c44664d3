// Command order-ingest imports comanda exports from the legacy tracker.
// Exports are gzip-compressed JSONL files, one order per line, and the same
// order can appear in several files, so IDs are deduplicated with a bloom
// filter while files are scanned concurrently.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/dborba/comanda-tracker/internal/domain/order"
	"github.com/dborba/comanda-tracker/internal/domain/payment"
	"github.com/dborba/comanda-tracker/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
)

// legacyOrder is one line of a legacy export. Money fields are strings so
// they round-trip through decimal without float damage.
type legacyOrder struct {
	ID          string `json:"id"`
	Address     string `json:"address"`
	Bairro      string `json:"bairro"`
	DeliveryFee string `json:"delivery_fee"`
	Payment     string `json:"payment"`
	Paid        bool   `json:"paid"`
	CreatedAt   string `json:"created_at"`
	Items       []struct {
		Name     string `json:"name"`
		Category string `json:"category"`
		Price    string `json:"price"`
		Qty      int    `json:"qty"`
	} `json:"items"`
}

// legacy payment labels were Portuguese.
var legacyMethods = map[string]payment.Method{
	"pix":      payment.MethodInstant,
	"dinheiro": payment.MethodCash,
	"cartao":   payment.MethodCard,
	"cartão":   payment.MethodCard,
	"misto":    payment.MethodMixed,
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing comanda export .jsonl.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
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

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("order ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("order ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob export files")
	}
	if len(files) == 0 {
		return errors.Errorf("no .jsonl.gz exports found in %s", dataDir)
	}
	slog.Info("found export files", slog.Int("count", len(files)))

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := repository.NewOrderRepository(pool)

	// Scanners parse concurrently; a single writer owns the bloom filter so
	// dedup needs no locking.
	records := make(chan *order.Order, 1024)

	g, ctx := errgroup.WithContext(ctx)
	scanners, ctx := errgroup.WithContext(ctx)
	for _, f := range files {
		scanners.Go(scanExportFile(ctx, f, records))
	}
	g.Go(func() error {
		defer close(records)
		return scanners.Wait()
	})
	g.Go(writeOrders(ctx, repo, records))

	return g.Wait()
}

func scanExportFile(ctx context.Context, path string, out chan<- *order.Order) func() error {
	return func() error {
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

		var parsed, skipped uint64
		scanner := bufio.NewScanner(gz)
		scanner.Buffer(make([]byte, 0, 1<<16), 1<<20)
		for scanner.Scan() {
			if err := ctx.Err(); err != nil {
				return err
			}

			o, err := convertLegacyOrder(scanner.Bytes())
			if err != nil {
				skipped++
				continue
			}
			parsed++
			if parsed%progressEvery == 0 {
				slog.Info("scan progress", slog.String("file", path), slog.Uint64("orders", parsed))
			}

			select {
			case out <- o:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("scan complete",
			slog.String("file", path),
			slog.Uint64("orders", parsed),
			slog.Uint64("skipped", skipped),
		)
		return nil
	}
}

// convertLegacyOrder parses one export line and rebuilds the derived money
// fields from scratch, so totals the legacy system miscomputed are repaired
// on the way in.
func convertLegacyOrder(line []byte) (*order.Order, error) {
	var rec legacyOrder
	if err := json.Unmarshal(line, &rec); err != nil {
		return nil, errors.Wrap(err, "parse line")
	}
	if rec.ID == "" {
		return nil, errors.New("missing order id")
	}

	createdAt, err := time.Parse(time.RFC3339, rec.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "parse created_at")
	}

	fee := decimal.Zero
	if rec.DeliveryFee != "" {
		fee, err = decimal.NewFromString(rec.DeliveryFee)
		if err != nil {
			return nil, errors.Wrap(err, "parse delivery_fee")
		}
	}

	o := &order.Order{
		ID:              rec.ID,
		DeliveryAddress: rec.Address,
		Neighborhood:    rec.Bairro,
		DeliveryFee:     fee,
		Paid:            rec.Paid,
		CreatedAt:       createdAt,
	}

	if rec.Payment != "" {
		method, ok := legacyMethods[strings.ToLower(rec.Payment)]
		if !ok {
			return nil, errors.Errorf("unknown payment label %q", rec.Payment)
		}
		o.PaymentMethod = method
	}

	subtotal := decimal.Zero
	for _, it := range rec.Items {
		price, err := decimal.NewFromString(it.Price)
		if err != nil {
			return nil, errors.Wrapf(err, "parse price for %q", it.Name)
		}
		if it.Qty < 1 {
			return nil, errors.Errorf("invalid quantity %d for %q", it.Qty, it.Name)
		}
		li := order.LineItem{
			ProductName: it.Name,
			Category:    it.Category,
			UnitPrice:   price,
			Quantity:    it.Qty,
		}
		o.Items = append(o.Items, li)
		subtotal = subtotal.Add(li.LineTotal())
	}
	o.Subtotal = subtotal
	o.Total = subtotal.Add(fee)

	return o, nil
}

// writeOrders drains the record channel, deduplicates IDs and persists the
// survivors. The bloom filter trades a tiny false-positive rate (dropped
// duplicates that were not duplicates) for constant memory over arbitrarily
// large exports.
func writeOrders(ctx context.Context, repo *repository.OrderRepository, records <-chan *order.Order) func() error {
	return func() error {
		seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var written, dupes uint64

		for o := range records {
			if seen.TestString(o.ID) {
				dupes++
				continue
			}
			seen.AddString(o.ID)

			if err := repo.Save(ctx, o); err != nil {
				return errors.Wrapf(err, "save order %s", o.ID)
			}
			written++
			if written%progressEvery == 0 {
				slog.Info("write progress", slog.Uint64("written", written))
			}
		}

		slog.Info("write complete", slog.Uint64("written", written), slog.Uint64("duplicates", dupes))
		return nil
	}
}
