// Command seed-db loads the neighborhood delivery rate table from a JSON
// file into the database, creating the schema if needed.
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

	"github.com/dborba/comanda-tracker/internal/domain/rate"
	"github.com/dborba/comanda-tracker/internal/repository"
)

type rateJSON struct {
	Neighborhood string          `json:"neighborhood"`
	Fee          decimal.Decimal `json:"fee"`
}

func main() {
	var (
		databaseURL string
		ratesFile   string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&ratesFile, "rates-file", "db/seed/rates.json", "path to neighborhood rates JSON file")
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

	if err := run(ctx, databaseURL, ratesFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, ratesFile string) error {
	slog.Info("reading rates file", slog.String("path", ratesFile))

	data, err := os.ReadFile(ratesFile)
	if err != nil {
		return errors.Wrap(err, "read rates file")
	}

	var rates []rateJSON
	if err := json.Unmarshal(data, &rates); err != nil {
		return errors.Wrap(err, "parse rates JSON")
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := repository.NewRateRepository(pool)

	slog.Info("upserting rates", slog.Int("count", len(rates)))

	for _, r := range rates {
		if r.Neighborhood == "" || r.Fee.IsNegative() {
			return errors.Errorf("invalid rate entry %q", r.Neighborhood)
		}
		e := rate.Entry{Neighborhood: r.Neighborhood, Fee: r.Fee}
		if err := repo.UpsertEntry(ctx, e); err != nil {
			return errors.Wrapf(err, "upsert rate %s", r.Neighborhood)
		}

		slog.Info("upserted rate",
			slog.String("neighborhood", r.Neighborhood),
			slog.String("fee", r.Fee.String()),
		)
	}

	return nil
}
