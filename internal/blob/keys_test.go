package blob

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type presignStub struct {
	Store
	gotKey string
	gotTTL int
}

func (p *presignStub) PresignGet(ctx context.Context, key string, ttlSeconds int) (string, error) {
	p.gotKey, p.gotTTL = key, ttlSeconds
	return "https://signed/" + key, nil
}

func TestMealImageKey(t *testing.T) {
	mealID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	imageID := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	key := MealImageKey("user1", mealID, imageID, "image/jpeg")
	want := "meals/user1/11111111-1111-1111-1111-111111111111/22222222-2222-2222-2222-222222222222.jpg"
	if key != want {
		t.Fatalf("expected %s, got %s", want, key)
	}

	if key := MealImageKey("user1", mealID, imageID, "application/x-unknown-thing"); !strings.HasSuffix(key, ".bin") {
		t.Fatalf("expected .bin fallback, got %s", key)
	}
}

func TestURLResolver(t *testing.T) {
	ctx := context.Background()

	public := URLResolver{PublicBaseURL: "https://cdn.example.com/", PreferPublicURL: true}
	url, err := public.URL(ctx, "meals/a.png")
	if err != nil || url != "https://cdn.example.com/meals/a.png" {
		t.Fatalf("unexpected public url %q (%v)", url, err)
	}

	stub := &presignStub{}
	signed := URLResolver{Store: stub, PublicBaseURL: "https://cdn.example.com"}
	url, err = signed.URL(ctx, "meals/b.png")
	if err != nil || url != "https://signed/meals/b.png" {
		t.Fatalf("unexpected presigned url %q (%v)", url, err)
	}
	if stub.gotTTL != 900 {
		t.Fatalf("expected default ttl 900, got %d", stub.gotTTL)
	}
}

func TestDeleteBatches(t *testing.T) {
	keys := make([]string, 2500)
	for i := range keys {
		keys[i] = "meals/u/m/" + strconv.Itoa(i) + ".jpg"
	}

	batches := deleteBatches(keys)
	if len(batches) != 3 || len(batches[0]) != 1000 || len(batches[2]) != 500 {
		t.Fatalf("unexpected batch sizes: %d batches", len(batches))
	}
	if batches[2][499] != keys[2499] {
		t.Errorf("last key lost: %s", batches[2][499])
	}
	if got := deleteBatches(nil); len(got) != 0 {
		t.Errorf("expected no batches for no keys, got %d", len(got))
	}
}
