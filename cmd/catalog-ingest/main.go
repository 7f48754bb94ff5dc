package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/kivumart/kivumart-api/internal/domain/product"
	"github.com/kivumart/kivumart-api/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	numWorkers    = 4
	progressEvery = 100_000
)

// feedProduct is one line of a supplier catalog feed.
type feedProduct struct {
	SellerID string
	Name     string
	Price    decimal.Decimal
	Quantity int
	Images   []string
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz catalog feeds")
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
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.jsonl.gz feeds in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := repository.NewProductRepository(pool)

	// Feeds from different suppliers overlap heavily. The bloom filter
	// skips repeats cheaply; the unique index on (seller_id, name) catches
	// the rare false negative.
	var (
		seenMu sync.Mutex
		seen   = bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	)

	lines := make(chan feedProduct, 1024)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(lines)
		for _, f := range files {
			slog.Info("streaming feed", slog.String("file", f))
			if err := streamFeed(ctx, f, lines); err != nil {
				return errors.Wrapf(err, "stream %s", f)
			}
		}
		return nil
	})

	var inserted, skipped uint64
	var countMu sync.Mutex

	for range numWorkers {
		g.Go(func() error {
			for fp := range lines {
				key := fp.SellerID + "\x00" + fp.Name

				seenMu.Lock()
				dup := seen.TestString(key)
				if !dup {
					seen.AddString(key)
				}
				seenMu.Unlock()
				if dup {
					countMu.Lock()
					skipped++
					countMu.Unlock()
					continue
				}

				err := repo.Create(ctx, &product.Product{
					ID:       uuid.New().String(),
					SellerID: fp.SellerID,
					Name:     fp.Name,
					Price:    fp.Price,
					Quantity: fp.Quantity,
					Status:   product.StatusAvailable,
					Images:   fp.Images,
				})
				switch {
				case errors.Is(err, product.ErrDuplicate):
					countMu.Lock()
					skipped++
					countMu.Unlock()
				case err != nil:
					return errors.Wrapf(err, "insert product %q", fp.Name)
				default:
					countMu.Lock()
					inserted++
					if inserted%progressEvery == 0 {
						slog.Info("ingest progress", slog.Uint64("inserted", inserted))
					}
					countMu.Unlock()
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("ingest finished",
		slog.Uint64("inserted", inserted),
		slog.Uint64("skipped", skipped),
	)
	return nil
}

// streamFeed opens a gzip-compressed JSONL feed and sends each decoded
// product to out.
func streamFeed(ctx context.Context, path string, out chan<- feedProduct) error {
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
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	var lineNo int
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		fp, err := decodeFeedLine(line)
		if err != nil {
			slog.Warn("skipping malformed feed line",
				slog.String("file", path),
				slog.Int("line", lineNo),
				slog.String("error", err.Error()),
			)
			continue
		}
		if fp.SellerID == "" || fp.Name == "" {
			continue
		}

		select {
		case out <- fp:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}

// decodeFeedLine parses a single JSONL feed entry.
func decodeFeedLine(line []byte) (feedProduct, error) {
	var fp feedProduct
	d := jx.DecodeBytes(line)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "sellerId":
			v, err := d.Str()
			if err != nil {
				return err
			}
			fp.SellerID = v
		case "name":
			v, err := d.Str()
			if err != nil {
				return err
			}
			fp.Name = v
		case "price":
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			// Feeds disagree on whether price is a number or a string.
			p, err := decimal.NewFromString(strings.Trim(string(raw), `"`))
			if err != nil {
				return err
			}
			fp.Price = p
		case "quantity":
			v, err := d.Int()
			if err != nil {
				return err
			}
			fp.Quantity = v
		case "images":
			return d.Arr(func(d *jx.Decoder) error {
				v, err := d.Str()
				if err != nil {
					return err
				}
				fp.Images = append(fp.Images, v)
				return nil
			})
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return fp, err
	}
	return fp, nil
}
