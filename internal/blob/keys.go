package blob

import (
	"context"
	"mime"
	"strings"

	"github.com/google/uuid"
)

// MealImageKey returns the object key for a meal image.
func MealImageKey(ownerUserID string, mealID, imageID uuid.UUID, contentType string) string {
	ext := ".bin"
	switch contentType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/png":
		ext = ".png"
	case "image/webp":
		ext = ".webp"
	default:
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return "meals/" + ownerUserID + "/" + mealID.String() + "/" + imageID.String() + ext
}

// URLResolver turns object keys into client-facing URLs.
type URLResolver struct {
	Store           Store
	PublicBaseURL   string
	PreferPublicURL bool
	TTLSeconds      int
}

// URL returns a public URL when configured, otherwise a presigned one.
func (r URLResolver) URL(ctx context.Context, key string) (string, error) {
	if r.PreferPublicURL && r.PublicBaseURL != "" {
		return strings.TrimSuffix(r.PublicBaseURL, "/") + "/" + strings.TrimPrefix(key, "/"), nil
	}
	ttl := r.TTLSeconds
	if ttl <= 0 {
		ttl = 900
	}
	return r.Store.PresignGet(ctx, key, ttl)
}
