package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lexcal-api/internal/dto"
	"github.com/noah-isme/lexcal-api/internal/models"
	appErrors "github.com/noah-isme/lexcal-api/pkg/errors"
)

type memoryCacheRepo struct {
	items   map[string][]byte
	deleted []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}}
}

func (r *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := r.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.items[key] = raw
	return nil
}

func (r *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range r.items {
		if strings.HasPrefix(key, prefix) {
			delete(r.items, key)
			r.deleted = append(r.deleted, key)
		}
	}
	return nil
}

func newSlotFixture(cache *CacheService, events ...*models.Event) (*SlotService, *memoryEventRepo) {
	repo := newMemoryEventRepo(events...)
	svc := NewSlotService(repo, cache, dto.NewValidator(), zap.NewNop(), SlotConfig{}, time.UTC)
	return svc, repo
}

func TestSlotServiceSuggestSkipsBusyWindows(t *testing.T) {
	svc, _ := newSlotFixture(nil,
		&models.Event{ID: "a", UserID: "user-1", StartTime: ts("2026-03-02 09:00"), EndTime: tsPtr("2026-03-02 10:00"), BufferAfter: 60},
	)

	resp, err := svc.SuggestForActor(context.Background(), attorney("user-1"), dto.SuggestTimesQuery{Date: "2026-03-02", Duration: 60})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", resp.Date)

	var starts []string
	for _, slot := range resp.AvailableSlots {
		starts = append(starts, slot.StartTime.Format("15:04"))
	}
	assert.Equal(t, []string{"08:00", "10:00", "10:30", "11:00", "11:30", "12:00", "12:30", "13:00", "13:30", "14:00", "14:30", "15:00", "15:30", "16:00"}, starts)
	assert.Equal(t, "8:00 AM - 9:00 AM", resp.AvailableSlots[0].FormattedTime)
}

func TestSlotServiceSuggestUsesCache(t *testing.T) {
	cacheRepo := newMemoryCacheRepo()
	cache := NewCacheService(cacheRepo, NewMetricsService(), time.Minute, zap.NewNop(), true)
	svc, repo := newSlotFixture(cache)

	first, err := svc.Suggest(context.Background(), "user-1", ts("2026-03-02 00:00"), 60, "Meeting")
	require.NoError(t, err)
	require.Len(t, cacheRepo.items, 1)

	repo.listErr = assert.AnError
	second, err := svc.Suggest(context.Background(), "user-1", ts("2026-03-02 00:00"), 60, "Meeting")
	require.NoError(t, err)
	assert.Equal(t, len(first.AvailableSlots), len(second.AvailableSlots))

	cache.InvalidateUser(context.Background(), "user-1")
	assert.Empty(t, cacheRepo.items)
	_, err = svc.Suggest(context.Background(), "user-1", ts("2026-03-02 00:00"), 60, "Meeting")
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
}

func TestSlotServiceSuggestValidation(t *testing.T) {
	svc, _ := newSlotFixture(nil)

	_, err := svc.SuggestForActor(context.Background(), attorney("user-1"), dto.SuggestTimesQuery{Date: "02/03/2026"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.SuggestForActor(context.Background(), attorney("user-1"), dto.SuggestTimesQuery{UserID: "user-2", Date: "2026-03-02"})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestSlotServiceAlternatives(t *testing.T) {
	svc, _ := newSlotFixture(nil,
		&models.Event{ID: "flex", UserID: "user-1", StartTime: ts("2026-03-02 15:00"), EndTime: tsPtr("2026-03-02 15:45"), IsFlexible: true},
		&models.Event{ID: "fixed", UserID: "user-1", StartTime: ts("2026-03-02 15:00")},
	)

	alts, err := svc.Alternatives(context.Background(), attorney("user-1"), "flex")
	require.NoError(t, err)
	require.Len(t, alts, 1)
	assert.Equal(t, ts("2026-03-03 09:00"), alts[0].StartTime)
	assert.Equal(t, ts("2026-03-03 09:45"), alts[0].EndTime)

	alts, err = svc.Alternatives(context.Background(), attorney("user-1"), "fixed")
	require.NoError(t, err)
	assert.Empty(t, alts)

	_, err = svc.Alternatives(context.Background(), attorney("user-2"), "flex")
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}
