package meals

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/fdg312/meal-hub/internal/blob"
	"github.com/fdg312/meal-hub/internal/imageslots"
	"github.com/fdg312/meal-hub/internal/storage"
	"github.com/google/uuid"
)

// UploadFile is one uploaded image.
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// ImageUpdate mirrors the multipart form of PUT /v1/meals/{id}/images.
// Files[i] goes to slot ReplaceOrderIndexes[i]. Stored images not listed in
// KeepImageIDs are removed.
type ImageUpdate struct {
	Files               []UploadFile
	ReplaceOrderIndexes []int
	KeepImageIDs        []string
	PrimaryImageID      string
	PrimarySlot         *int
}

// UpdateImages applies an image slot update to a meal and returns the
// resulting image set.
func (s *Service) UpdateImages(ctx context.Context, ownerUserID string, mealID uuid.UUID, upd ImageUpdate) ([]MealImageDTO, error) {
	meal, err := s.getOwnedMeal(ctx, ownerUserID, mealID)
	if err != nil {
		return nil, err
	}

	if len(upd.Files) != len(upd.ReplaceOrderIndexes) {
		return nil, fmt.Errorf("%w: %d files but %d replaceOrderIndexes", ErrInvalidImageUpdate, len(upd.Files), len(upd.ReplaceOrderIndexes))
	}
	for _, f := range upd.Files {
		if err := s.checkUpload(f); err != nil {
			return nil, err
		}
	}

	existing, err := s.images.ListMealImages(ctx, meal.ID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]storage.MealImage, len(existing))
	for _, img := range existing {
		byID[img.ID.String()] = img
	}
	for _, id := range upd.KeepImageIDs {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("%w: unknown image id %s", ErrInvalidImageUpdate, id)
		}
	}

	slots, err := s.buildSlots(meal.ID, existing, upd)
	if err != nil {
		return nil, err
	}
	defer slots.Close()

	change := slots.Change()
	primary, hasPrimary := slots.Primary()

	type pending struct {
		pos  int // index into final
		data []byte
	}
	var uploads []pending
	final := make([]storage.MealImage, 0, len(change.Files)+len(change.KeepImageIDs))
	for i, slot := range slots.Slots() {
		var img storage.MealImage
		switch {
		case slot.File != nil:
			img = storage.MealImage{
				ID:          uuid.New(),
				MealID:      meal.ID,
				ContentType: slot.File.ContentType,
				SizeBytes:   int64(len(slot.File.Data)),
			}
			uploads = append(uploads, pending{pos: len(final), data: slot.File.Data})
		case slot.ID != "":
			img = byID[slot.ID]
		default:
			continue
		}
		img.OrderIndex = i
		img.Primary = hasPrimary && i == primary
		final = append(final, img)
	}

	if !s.localMode {
		var uploaded []string
		for _, up := range uploads {
			img := &final[up.pos]
			key := blob.MealImageKey(meal.OwnerUserID, meal.ID, img.ID, img.ContentType)
			if _, err := s.blobStore.PutObject(ctx, key, up.data, img.ContentType); err != nil {
				s.deleteKeys(ctx, uploaded)
				return nil, fmt.Errorf("failed to upload image: %w", err)
			}
			uploaded = append(uploaded, key)
			img.ObjectKey = &key
		}

		if err := s.images.ReplaceMealImages(ctx, meal.ID, final); err != nil {
			s.deleteKeys(ctx, uploaded)
			return nil, err
		}
	} else {
		for _, up := range uploads {
			final[up.pos].Data = up.data
		}
		if err := s.images.ReplaceMealImages(ctx, meal.ID, final); err != nil {
			return nil, fmt.Errorf("failed to store images: %w", err)
		}
	}

	kept := make(map[uuid.UUID]bool, len(final))
	for _, img := range final {
		kept[img.ID] = true
	}
	var dropped []storage.MealImage
	for _, img := range existing {
		if !kept[img.ID] {
			dropped = append(dropped, img)
		}
	}
	s.deleteObjects(ctx, dropped)

	s.logger.Infow("meal images updated",
		"meal_id", meal.ID,
		"uploaded", len(uploads),
		"kept", len(change.KeepImageIDs),
		"dropped", len(dropped),
	)

	dtos := make([]MealImageDTO, 0, len(final))
	for _, img := range final {
		dtos = append(dtos, MealImageDTO{
			ID:         img.ID,
			ImageURL:   imageURL(meal.ID, img.ID),
			OrderIndex: img.OrderIndex,
			Primary:    img.Primary,
		})
	}
	return dtos, nil
}

// buildSlots replays the update on slots initialized from the stored images.
func (s *Service) buildSlots(mealID uuid.UUID, existing []storage.MealImage, upd ImageUpdate) (*imageslots.Slots, error) {
	slots, err := imageslots.New(s.maxSlots, imageslots.Options{Strict: s.strictSlots})
	if err != nil {
		return nil, err
	}

	initial := make([]imageslots.InitialImage, 0, len(existing))
	for _, img := range existing {
		initial = append(initial, imageslots.InitialImage{
			ID:         img.ID.String(),
			ImageURL:   imageURL(mealID, img.ID),
			OrderIndex: img.OrderIndex,
			Primary:    img.Primary,
		})
	}
	slots.Init(initial)

	// ClearSlot shifts the primary index for a client that compacts its
	// slots. Stored slots keep their positions, so remember the image itself.
	storedPrimary := ""
	if idx, ok := slots.Primary(); ok && len(existing) > 0 {
		storedPrimary = slots.Slots()[idx].ID
	}

	for i, slot := range slots.Slots() {
		if slot.ID != "" && !slices.Contains(upd.KeepImageIDs, slot.ID) {
			if err := slots.ClearSlot(i); err != nil {
				return nil, err
			}
		}
	}

	seen := make(map[int]bool, len(upd.ReplaceOrderIndexes))
	for k, idx := range upd.ReplaceOrderIndexes {
		if seen[idx] {
			slots.Close()
			return nil, fmt.Errorf("%w: slot %d replaced twice", ErrInvalidImageUpdate, idx)
		}
		seen[idx] = true

		f := upd.Files[k]
		err := slots.SetSlotFile(idx, &imageslots.File{Name: f.Name, ContentType: f.ContentType, Data: f.Data})
		if err != nil {
			slots.Close()
			if errors.Is(err, imageslots.ErrSlotOutOfRange) {
				return nil, fmt.Errorf("%w: slot %d out of range 0..%d", ErrInvalidImageUpdate, idx, slots.Len()-1)
			}
			return nil, err
		}
	}

	switch {
	case upd.PrimaryImageID != "":
		idx := slices.IndexFunc(slots.Slots(), func(sl imageslots.Slot) bool {
			return sl.ID == upd.PrimaryImageID && sl.File == nil
		})
		if idx < 0 {
			slots.Close()
			return nil, fmt.Errorf("%w: primaryImageId is not a kept image", ErrInvalidImageUpdate)
		}
		slots.SetPrimaryBySlot(idx)
	case upd.PrimarySlot != nil:
		if err := slots.SetPrimaryBySlot(*upd.PrimarySlot); err != nil {
			slots.Close()
			return nil, fmt.Errorf("%w: primarySlot out of range", ErrInvalidImageUpdate)
		}
	default:
		idx := -1
		if storedPrimary != "" {
			idx = slices.IndexFunc(slots.Slots(), func(sl imageslots.Slot) bool {
				return sl.ID == storedPrimary && sl.File == nil
			})
		}
		if idx < 0 {
			idx = firstFilled(slots)
		}
		if idx >= 0 {
			slots.SetPrimaryBySlot(idx)
		}
	}

	// A filled set always has a primary image.
	if _, ok := slots.Primary(); !ok {
		if idx := firstFilled(slots); idx >= 0 {
			slots.SetPrimaryBySlot(idx)
		}
	}

	return slots, nil
}

func firstFilled(slots *imageslots.Slots) int {
	return slices.IndexFunc(slots.Slots(), func(sl imageslots.Slot) bool {
		return sl.File != nil || sl.PreviewURL != ""
	})
}

// GetImage returns either a redirect URL (S3) or the image bytes (local).
func (s *Service) GetImage(ctx context.Context, mealID, imageID uuid.UUID) (redirectURL string, data []byte, contentType string, err error) {
	img, err := s.images.GetMealImage(ctx, imageID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil, "", ErrImageNotFound
		}
		return "", nil, "", err
	}
	if img.MealID != mealID {
		return "", nil, "", ErrImageNotFound
	}

	if s.localMode || img.ObjectKey == nil {
		data, contentType, err := s.images.GetMealImageBlob(ctx, img.ID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return "", nil, "", ErrImageNotFound
			}
			return "", nil, "", err
		}
		return "", data, contentType, nil
	}

	url, err := s.urls.URL(ctx, *img.ObjectKey)
	if err != nil {
		return "", nil, "", fmt.Errorf("failed to resolve image URL: %w", err)
	}
	return url, nil, img.ContentType, nil
}

func (s *Service) checkUpload(f UploadFile) error {
	if s.maxUploadMB > 0 && int64(len(f.Data)) > int64(s.maxUploadMB)*1024*1024 {
		return ErrFileTooLarge
	}
	if len(f.Data) == 0 {
		return fmt.Errorf("%w: empty file %q", ErrInvalidImageUpdate, f.Name)
	}
	if len(s.allowedMimes) > 0 && !slices.Contains(s.allowedMimes, f.ContentType) {
		return ErrUnsupportedMime
	}
	return nil
}

// deleteObjects removes S3 objects of images that no longer exist. Failures
// are logged; the rows are already gone.
func (s *Service) deleteObjects(ctx context.Context, images []storage.MealImage) {
	var keys []string
	for _, img := range images {
		if img.ObjectKey != nil && *img.ObjectKey != "" {
			keys = append(keys, *img.ObjectKey)
		}
	}
	s.deleteKeys(ctx, keys)
}

func (s *Service) deleteKeys(ctx context.Context, keys []string) {
	if s.localMode || len(keys) == 0 {
		return
	}
	if err := s.blobStore.DeleteObjects(ctx, keys); err != nil {
		s.logger.Warnw("failed to delete image objects", "keys", len(keys), "error", err)
	}
}
