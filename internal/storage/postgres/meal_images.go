package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fdg312/meal-hub/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresMealImagesStorage: Postgres реализация MealImagesStorage.
// В local blob mode байты изображений лежат в meal_image_blobs.
type PostgresMealImagesStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresMealImagesStorage(pool *pgxpool.Pool) *PostgresMealImagesStorage {
	return &PostgresMealImagesStorage{pool: pool}
}

const mealImageColumns = `id, meal_id, order_index, is_primary, object_key, content_type, size_bytes, created_at`

func scanMealImage(row pgx.Row) (*storage.MealImage, error) {
	var img storage.MealImage
	err := row.Scan(
		&img.ID,
		&img.MealID,
		&img.OrderIndex,
		&img.Primary,
		&img.ObjectKey,
		&img.ContentType,
		&img.SizeBytes,
		&img.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &img, nil
}

func (s *PostgresMealImagesStorage) ListMealImages(ctx context.Context, mealID uuid.UUID) ([]storage.MealImage, error) {
	query := `SELECT ` + mealImageColumns + ` FROM meal_images WHERE meal_id = $1 ORDER BY order_index`

	rows, err := s.pool.Query(ctx, query, mealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal images: %w", err)
	}
	defer rows.Close()

	images := []storage.MealImage{}
	for rows.Next() {
		img, err := scanMealImage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meal image: %w", err)
		}
		images = append(images, *img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating meal images: %w", err)
	}
	return images, nil
}

func (s *PostgresMealImagesStorage) GetMealImage(ctx context.Context, id uuid.UUID) (*storage.MealImage, error) {
	query := `SELECT ` + mealImageColumns + ` FROM meal_images WHERE id = $1`

	img, err := scanMealImage(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get meal image: %w", err)
	}
	return img, nil
}

func (s *PostgresMealImagesStorage) ReplaceMealImages(ctx context.Context, mealID uuid.UUID, images []storage.MealImage) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	keep := make([]string, 0, len(images))
	for i := range images {
		if images[i].ID == uuid.Nil {
			images[i].ID = uuid.New()
		}
		keep = append(keep, images[i].ID.String())
	}

	// Blobs go with their rows through ON DELETE CASCADE.
	_, err = tx.Exec(ctx, `
		DELETE FROM meal_images
		WHERE meal_id = $1 AND NOT (id::text = ANY($2))
	`, mealID, keep)
	if err != nil {
		return fmt.Errorf("failed to delete dropped meal images: %w", err)
	}

	// order_index and the primary flag are unique per meal, so move survivors
	// out of the way first.
	_, err = tx.Exec(ctx, `
		UPDATE meal_images SET order_index = -1 - order_index, is_primary = false
		WHERE meal_id = $1
	`, mealID)
	if err != nil {
		return fmt.Errorf("failed to reset meal image order: %w", err)
	}

	upsert := `
		INSERT INTO meal_images (id, meal_id, order_index, is_primary, object_key, content_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			order_index = EXCLUDED.order_index,
			is_primary = EXCLUDED.is_primary
		RETURNING created_at
	`
	for i := range images {
		img := &images[i]
		img.MealID = mealID
		err := tx.QueryRow(ctx, upsert,
			img.ID,
			mealID,
			img.OrderIndex,
			img.Primary,
			img.ObjectKey,
			img.ContentType,
			img.SizeBytes,
		).Scan(&img.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert meal image: %w", err)
		}

		if img.Data != nil {
			_, err = tx.Exec(ctx, `
				INSERT INTO meal_image_blobs (image_id, data, content_type)
				VALUES ($1, $2, $3)
				ON CONFLICT (image_id) DO UPDATE SET data = EXCLUDED.data, content_type = EXCLUDED.content_type
			`, img.ID, img.Data, img.ContentType)
			if err != nil {
				return fmt.Errorf("failed to put meal image blob: %w", err)
			}
			img.Data = nil
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresMealImagesStorage) GetMealImageBlob(ctx context.Context, imageID uuid.UUID) ([]byte, string, error) {
	var (
		data        []byte
		contentType string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT data, content_type FROM meal_image_blobs WHERE image_id = $1`, imageID,
	).Scan(&data, &contentType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", storage.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to get meal image blob: %w", err)
	}
	return data, contentType, nil
}
