package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fdg312/meal-hub/internal/nutrition"
	"github.com/fdg312/meal-hub/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDietsStorage: Postgres реализация DietsStorage
type PostgresDietsStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresDietsStorage(pool *pgxpool.Pool) *PostgresDietsStorage {
	return &PostgresDietsStorage{pool: pool}
}

func (s *PostgresDietsStorage) CreateDiet(ctx context.Context, diet *storage.Diet) error {
	if diet.ID == uuid.Nil {
		diet.ID = uuid.New()
	}
	now := time.Now().UTC()
	diet.CreatedAt = now
	diet.UpdatedAt = now

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO diets (id, owner_user_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, diet.ID, diet.OwnerUserID, diet.Name, diet.Description, diet.CreatedAt, diet.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create diet: %w", err)
	}

	if err := insertDays(ctx, tx, diet.ID, diet.Days); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresDietsStorage) GetDiet(ctx context.Context, id uuid.UUID) (*storage.Diet, error) {
	var d storage.Diet
	err := s.pool.QueryRow(ctx, `
		SELECT id, owner_user_id, name, description, created_at, updated_at
		FROM diets
		WHERE id = $1
	`, id).Scan(&d.ID, &d.OwnerUserID, &d.Name, &d.Description, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get diet: %w", err)
	}

	days, err := s.loadDays(ctx, []uuid.UUID{d.ID})
	if err != nil {
		return nil, err
	}
	d.Days = days[d.ID]
	if d.Days == nil {
		d.Days = []storage.DietDay{}
	}
	return &d, nil
}

func (s *PostgresDietsStorage) ListDiets(ctx context.Context, ownerUserID string, limit, offset int) ([]storage.Diet, error) {
	query := `
		SELECT id, owner_user_id, name, description, created_at, updated_at
		FROM diets
		WHERE ($1 = '' OR owner_user_id = $1)
		ORDER BY created_at DESC, id
		OFFSET $2
	`
	args := []interface{}{ownerUserID, max(offset, 0)}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list diets: %w", err)
	}
	defer rows.Close()

	diets := []storage.Diet{}
	for rows.Next() {
		var d storage.Diet
		if err := rows.Scan(&d.ID, &d.OwnerUserID, &d.Name, &d.Description, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan diet: %w", err)
		}
		diets = append(diets, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating diets: %w", err)
	}

	ids := make([]uuid.UUID, len(diets))
	for i, d := range diets {
		ids[i] = d.ID
	}
	days, err := s.loadDays(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range diets {
		diets[i].Days = days[diets[i].ID]
		if diets[i].Days == nil {
			diets[i].Days = []storage.DietDay{}
		}
	}
	return diets, nil
}

func (s *PostgresDietsStorage) UpdateDiet(ctx context.Context, diet *storage.Diet) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		UPDATE diets SET name = $2, description = $3, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, diet.ID, diet.Name, diet.Description).Scan(&diet.CreatedAt, &diet.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("failed to update diet: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM diet_days WHERE diet_id = $1`, diet.ID); err != nil {
		return fmt.Errorf("failed to delete diet days: %w", err)
	}
	if err := insertDays(ctx, tx, diet.ID, diet.Days); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresDietsStorage) DeleteDiet(ctx context.Context, id uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM diets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete diet: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func insertDays(ctx context.Context, tx pgx.Tx, dietID uuid.UUID, days []storage.DietDay) error {
	query := `
		INSERT INTO diet_days (id, diet_id, day_index, total_nutrients, meal_ids)
		VALUES ($1, $2, $3, $4, $5)
	`
	for i := range days {
		day := &days[i]
		if day.ID == uuid.Nil {
			day.ID = uuid.New()
		}
		day.DayIndex = i

		nutrients := day.TotalNutrients
		if nutrients == nil {
			nutrients = nutrition.NutrientTotals{}
		}
		nutrientsJSON, err := json.Marshal(nutrients)
		if err != nil {
			return fmt.Errorf("marshal total_nutrients: %w", err)
		}
		mealIDsJSON, err := marshalJSONB(day.MealIDs)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, query, day.ID, dietID, day.DayIndex, nutrientsJSON, mealIDsJSON); err != nil {
			return fmt.Errorf("failed to insert diet day: %w", err)
		}
	}
	return nil
}

func (s *PostgresDietsStorage) loadDays(ctx context.Context, dietIDs []uuid.UUID) (map[uuid.UUID][]storage.DietDay, error) {
	result := make(map[uuid.UUID][]storage.DietDay, len(dietIDs))
	if len(dietIDs) == 0 {
		return result, nil
	}
	ids := make([]string, len(dietIDs))
	for i, id := range dietIDs {
		ids[i] = id.String()
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, diet_id, day_index, total_nutrients, meal_ids
		FROM diet_days
		WHERE diet_id = ANY($1::uuid[])
		ORDER BY diet_id, day_index
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load diet days: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			day           storage.DietDay
			dietID        uuid.UUID
			nutrientsJSON []byte
			mealIDsJSON   []byte
		)
		if err := rows.Scan(&day.ID, &dietID, &day.DayIndex, &nutrientsJSON, &mealIDsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan diet day: %w", err)
		}
		if err := unmarshalJSONB(nutrientsJSON, &day.TotalNutrients); err != nil {
			return nil, err
		}
		if err := unmarshalJSONB(mealIDsJSON, &day.MealIDs); err != nil {
			return nil, err
		}
		result[dietID] = append(result[dietID], day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating diet days: %w", err)
	}
	return result, nil
}
