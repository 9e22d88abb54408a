package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fdg312/meal-hub/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresMealsStorage: Postgres реализация MealsStorage
type PostgresMealsStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresMealsStorage(pool *pgxpool.Pool) *PostgresMealsStorage {
	return &PostgresMealsStorage{pool: pool}
}

const mealColumns = `
	id, owner_user_id, name, description, preparation_time,
	total_calories, total_protein, total_carbs, total_fat,
	cuisines, diets, meal_types, ingredients, created_at, updated_at
`

type mealJSON struct {
	cuisines, diets, mealTypes, ingredients []byte
}

func encodeMealJSON(meal *storage.Meal) (mealJSON, error) {
	var (
		out mealJSON
		err error
	)
	if out.cuisines, err = marshalJSONB(meal.Cuisines); err != nil {
		return out, err
	}
	if out.diets, err = marshalJSONB(meal.Diets); err != nil {
		return out, err
	}
	if out.mealTypes, err = marshalJSONB(meal.MealTypes); err != nil {
		return out, err
	}
	if out.ingredients, err = marshalJSONB(meal.Ingredients); err != nil {
		return out, err
	}
	return out, nil
}

func scanMeal(row pgx.Row) (*storage.Meal, error) {
	var (
		m  storage.Meal
		js mealJSON
	)
	err := row.Scan(
		&m.ID,
		&m.OwnerUserID,
		&m.Name,
		&m.Description,
		&m.PreparationTime,
		&m.Totals.Calories,
		&m.Totals.Protein,
		&m.Totals.Carbs,
		&m.Totals.Fat,
		&js.cuisines,
		&js.diets,
		&js.mealTypes,
		&js.ingredients,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, f := range []struct {
		data []byte
		dst  any
	}{
		{js.cuisines, &m.Cuisines},
		{js.diets, &m.Diets},
		{js.mealTypes, &m.MealTypes},
		{js.ingredients, &m.Ingredients},
	} {
		if err := unmarshalJSONB(f.data, f.dst); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

func (s *PostgresMealsStorage) CreateMeal(ctx context.Context, meal *storage.Meal) error {
	if meal.ID == uuid.Nil {
		meal.ID = uuid.New()
	}
	now := time.Now().UTC()
	meal.CreatedAt = now
	meal.UpdatedAt = now

	js, err := encodeMealJSON(meal)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO meals (` + mealColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = s.pool.Exec(ctx, query,
		meal.ID,
		meal.OwnerUserID,
		meal.Name,
		meal.Description,
		meal.PreparationTime,
		meal.Totals.Calories,
		meal.Totals.Protein,
		meal.Totals.Carbs,
		meal.Totals.Fat,
		js.cuisines,
		js.diets,
		js.mealTypes,
		js.ingredients,
		meal.CreatedAt,
		meal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create meal: %w", err)
	}
	return nil
}

func (s *PostgresMealsStorage) GetMeal(ctx context.Context, id uuid.UUID) (*storage.Meal, error) {
	query := `SELECT ` + mealColumns + ` FROM meals WHERE id = $1`

	meal, err := scanMeal(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get meal: %w", err)
	}
	return meal, nil
}

func (s *PostgresMealsStorage) ListMeals(ctx context.Context, filter storage.MealFilter) ([]storage.Meal, error) {
	baseQuery := `SELECT ` + mealColumns + ` FROM meals WHERE 1 = 1`
	args := []interface{}{}

	addArg := func(v interface{}) int {
		args = append(args, v)
		return len(args)
	}

	if filter.OwnerUserID != "" {
		baseQuery += fmt.Sprintf(` AND owner_user_id = $%d`, addArg(filter.OwnerUserID))
	}
	for _, f := range []struct {
		column, value string
	}{
		{"cuisines", filter.Cuisine},
		{"diets", filter.Diet},
		{"meal_types", filter.MealType},
	} {
		if f.value == "" {
			continue
		}
		baseQuery += fmt.Sprintf(
			` AND EXISTS (SELECT 1 FROM jsonb_array_elements_text(%s) v WHERE lower(v) = lower($%d))`,
			f.column, addArg(f.value),
		)
	}
	if filter.Query != "" {
		baseQuery += fmt.Sprintf(` AND name ILIKE $%d`, addArg("%"+filter.Query+"%"))
	}

	baseQuery += ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		baseQuery += fmt.Sprintf(` LIMIT $%d`, addArg(filter.Limit))
	}
	if filter.Offset > 0 {
		baseQuery += fmt.Sprintf(` OFFSET $%d`, addArg(filter.Offset))
	}

	rows, err := s.pool.Query(ctx, baseQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}
	defer rows.Close()

	meals := []storage.Meal{}
	for rows.Next() {
		meal, err := scanMeal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meal: %w", err)
		}
		meals = append(meals, *meal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating meals: %w", err)
	}
	return meals, nil
}

func (s *PostgresMealsStorage) UpdateMeal(ctx context.Context, meal *storage.Meal) error {
	js, err := encodeMealJSON(meal)
	if err != nil {
		return err
	}

	query := `
		UPDATE meals SET
			name = $2, description = $3, preparation_time = $4,
			total_calories = $5, total_protein = $6, total_carbs = $7, total_fat = $8,
			cuisines = $9, diets = $10, meal_types = $11, ingredients = $12,
			updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err = s.pool.QueryRow(ctx, query,
		meal.ID,
		meal.Name,
		meal.Description,
		meal.PreparationTime,
		meal.Totals.Calories,
		meal.Totals.Protein,
		meal.Totals.Carbs,
		meal.Totals.Fat,
		js.cuisines,
		js.diets,
		js.mealTypes,
		js.ingredients,
	).Scan(&meal.CreatedAt, &meal.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("failed to update meal: %w", err)
	}
	return nil
}

// DeleteMeal relies on ON DELETE CASCADE for meal_images and their blobs.
func (s *PostgresMealsStorage) DeleteMeal(ctx context.Context, id uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM meals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete meal: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
