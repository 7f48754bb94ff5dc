package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kivumart/kivumart-api/internal/domain/product"
	"github.com/kivumart/kivumart-api/internal/repository"
)

type userJSON struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Verified bool   `json:"verified"`
}

type productJSON struct {
	ID       string          `json:"id"`
	SellerID string          `json:"sellerId"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Images   []string        `json:"images"`
}

type seedFile struct {
	Users    []userJSON    `json:"users"`
	Products []productJSON `json:"products"`
}

func main() {
	var (
		databaseURL string
		seedPath    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "seed-file", "db/seed/catalog.json", "path to seed JSON file")
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

	if err := run(ctx, databaseURL, seedPath); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedPath string) error {
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

	slog.Info("reading seed file", slog.String("path", seedPath))

	data, err := os.ReadFile(seedPath)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}

	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parse seed JSON")
	}

	if err := seedUsers(ctx, pool, seed.Users); err != nil {
		return errors.Wrap(err, "seed users")
	}
	if err := seedProducts(ctx, pool, seed.Products); err != nil {
		return errors.Wrap(err, "seed products")
	}
	return nil
}

const upsertUserSQL = `INSERT INTO users (id, email, name, verified) VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE SET email = $2, name = $3, verified = $4`

func seedUsers(ctx context.Context, pool *pgxpool.Pool, users []userJSON) error {
	for _, u := range users {
		if u.ID == "" {
			u.ID = uuid.New().String()
		}
		if _, err := pool.Exec(ctx, upsertUserSQL, u.ID, u.Email, u.Name, u.Verified); err != nil {
			return errors.Wrapf(err, "seed user %q", u.Email)
		}
	}
	slog.Info("seeded users", slog.Int("count", len(users)))
	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, products []productJSON) error {
	repo := repository.NewProductRepository(pool)

	seeded := 0
	for _, p := range products {
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		err := repo.Create(ctx, &product.Product{
			ID:       p.ID,
			SellerID: p.SellerID,
			Name:     p.Name,
			Price:    p.Price,
			Quantity: p.Quantity,
			Status:   product.StatusAvailable,
			Images:   p.Images,
		})
		switch {
		case errors.Is(err, product.ErrDuplicate):
			slog.Info("product already seeded", slog.String("name", p.Name))
		case err != nil:
			return errors.Wrapf(err, "seed product %q", p.Name)
		default:
			seeded++
		}
	}
	slog.Info("seeded products", slog.Int("count", seeded))
	return nil
}
