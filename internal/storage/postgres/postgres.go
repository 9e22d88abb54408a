package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fdg312/meal-hub/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage: Postgres реализация storage.Storage
type PostgresStorage struct {
	pool       *pgxpool.Pool
	meals      *PostgresMealsStorage
	mealImages *PostgresMealImagesStorage
	diets      *PostgresDietsStorage
}

// New создаёт PostgresStorage. Схема создаётся миграциями (cmd/migrate).
func New(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStorage{
		pool:       pool,
		meals:      NewPostgresMealsStorage(pool),
		mealImages: NewPostgresMealImagesStorage(pool),
		diets:      NewPostgresDietsStorage(pool),
	}, nil
}

func (p *PostgresStorage) Meals() storage.MealsStorage {
	return p.meals
}

func (p *PostgresStorage) MealImages() storage.MealImagesStorage {
	return p.mealImages
}

func (p *PostgresStorage) Diets() storage.DietsStorage {
	return p.diets
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}

// marshalJSONB encodes v for a JSONB column. nil slices become [].
func marshalJSONB[T any](v []T) ([]byte, error) {
	if v == nil {
		v = []T{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal jsonb: %w", err)
	}
	return data, nil
}

func unmarshalJSONB(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal jsonb: %w", err)
	}
	return nil
}
