package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"wardrobeapi/config"
	"wardrobeapi/dbhelper"
	"wardrobeapi/generation"
	"wardrobeapi/models"
	"wardrobeapi/services"
	"wardrobeapi/test"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	inputs []generation.OutfitInput
	result *generation.ImageResult
	err    error
}

func (f *fakeGenerator) Kind() generation.Kind {
	return generation.KindGenericEndpoint
}

func (f *fakeGenerator) Generate(ctx context.Context, in generation.OutfitInput) (*generation.ImageResult, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type notification struct {
	UserID uint
	Title  string
	Data   map[string]string
}

type fakeNotifier struct {
	sent []notification
}

func (n *fakeNotifier) Notify(ctx context.Context, userID uint, title string, message string, customData map[string]string) {
	n.sent = append(n.sent, notification{userID, title, customData})
}

func TestOutfitGenerationTask(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := test.FakeUser(db, "")
	top := test.FakeWardrobeItem(db, user.ID, "shirt", models.CategoryTops, "Blue", "https://img/top.png")
	bottom := test.FakeWardrobeItem(db, user.ID, "Jeans", models.CategoryBottoms, "", "https://img/bottom.png")

	record := models.OutfitGeneration{
		UserAccountID:   user.ID,
		TopItemID:       &top.ID,
		BottomItemID:    &bottom.ID,
		ProfileImageURL: test.NewRefString("https://img/me.png"),
		Status:          models.GenerationPending,
	}
	require.NoError(t, db.Create(&record).Error)

	generator := &fakeGenerator{result: &generation.ImageResult{
		URL:      "https://cdn/1/previews/preview-1.png",
		Path:     "1/previews/preview-1.png",
		Provider: generation.KindGenericEndpoint,
		Prompt:   "Blue shirt and Jeans",
	}}
	notifier := &fakeNotifier{}
	task, err := NewOutfitGenerationTask(record.ID)
	require.NoError(t, err)

	err = HandleOutfitGenerationTask(context.Background(), task, db, generator, nil, notifier)
	require.NoError(t, err)

	require.Len(t, generator.inputs, 1)
	in := generator.inputs[0]
	assert.Equal(t, user.ID, in.UserID)
	assert.Equal(t, "shirt", in.Top.Name)
	assert.Equal(t, "Jeans", in.Bottom.Name)
	assert.Nil(t, in.Accessory)
	assert.Equal(t, "https://img/me.png", in.ProfileImageURL)

	var updated models.OutfitGeneration
	require.NoError(t, db.First(&updated, record.ID).Error)
	assert.Equal(t, models.GenerationCompleted, updated.Status)
	assert.Equal(t, "generic_endpoint", updated.Provider)
	assert.Equal(t, "Blue shirt and Jeans", updated.Prompt)
	assert.Equal(t, "https://cdn/1/previews/preview-1.png", *updated.ImageURL)
	assert.Equal(t, "1/previews/preview-1.png", *updated.ImagePath)
	assert.NotNil(t, updated.Duration)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, user.ID, notifier.sent[0].UserID)
	assert.Equal(t, "outfit_generation", notifier.sent[0].Data["type"])

	// a second delivery of the same task is a no-op
	err = HandleOutfitGenerationTask(context.Background(), task, db, generator, nil, notifier)
	require.NoError(t, err)
	assert.Len(t, generator.inputs, 1)
}

func TestOutfitGenerationTaskRetryableFailure(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := test.FakeUser(db, "")
	record := models.OutfitGeneration{UserAccountID: user.ID, Status: models.GenerationPending}
	db.Create(&record)

	generator := &fakeGenerator{err: &generation.TransportError{Op: "Nano Banana request", StatusCode: 503, StatusText: "Service Unavailable"}}
	task, _ := NewOutfitGenerationTask(record.ID)

	for attempt := 1; attempt <= MaxGenerationAttempts; attempt++ {
		err := HandleOutfitGenerationTask(context.Background(), task, db, generator, nil, nil)
		require.Error(t, err)

		var updated models.OutfitGeneration
		db.First(&updated, record.ID)
		assert.Equal(t, attempt, updated.GenerationRetryTimes)
		assert.Contains(t, *updated.GenerationErrorMessage, "503")
		if attempt < MaxGenerationAttempts {
			assert.False(t, errors.Is(err, asynq.SkipRetry))
			assert.Equal(t, models.GenerationPending, updated.Status)
		} else {
			// the last attempt closes the record, asynq must not schedule another
			assert.ErrorIs(t, err, asynq.SkipRetry)
			assert.Equal(t, models.GenerationFailed, updated.Status)
		}
	}
}

func TestOutfitGenerationTaskContractFailureSkipsRetry(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := test.FakeUser(db, "")
	record := models.OutfitGeneration{UserAccountID: user.ID, Status: models.GenerationPending}
	db.Create(&record)

	generator := &fakeGenerator{err: &generation.ContractError{Op: "Nano Banana", Expected: "image_url", Raw: "{}"}}
	notifier := &fakeNotifier{}
	task, _ := NewOutfitGenerationTask(record.ID)

	err := HandleOutfitGenerationTask(context.Background(), task, db, generator, nil, notifier)
	assert.ErrorIs(t, err, asynq.SkipRetry)

	var updated models.OutfitGeneration
	db.First(&updated, record.ID)
	assert.Equal(t, models.GenerationFailed, updated.Status)
	assert.Equal(t, "Nano Banana response missing image_url: {}", *updated.GenerationErrorMessage)
	assert.Empty(t, notifier.sent)
}

func TestOutfitGenerationTaskMissingRecord(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()

	task, _ := NewOutfitGenerationTask(9999)
	err := HandleOutfitGenerationTask(context.Background(), task, db, &fakeGenerator{}, nil, nil)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestEnqueueOutfitGeneration(t *testing.T) {
	enqueuer := &test.EnqueuerMock{}
	require.NoError(t, EnqueueOutfitGeneration(enqueuer, 12))

	require.Len(t, enqueuer.Tasks, 1)
	assert.Equal(t, TypeGenerateOutfit, enqueuer.Tasks[0].Type())
	var payload OutfitGenerationPayload
	require.NoError(t, json.Unmarshal(enqueuer.Tasks[0].Payload(), &payload))
	assert.Equal(t, uint(12), payload.GenerationID)
}

func TestExpireStaleGenerations(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := test.FakeUser(db, "")

	stale := models.OutfitGeneration{UserAccountID: user.ID, Status: models.GenerationPending}
	stale.CreatedAt = time.Now().Add(-2 * time.Hour)
	db.Create(&stale)
	fresh := models.OutfitGeneration{UserAccountID: user.ID, Status: models.GenerationPending}
	db.Create(&fresh)

	require.NoError(t, HandleExpireStaleGenerationsTask(context.Background(), NewExpireStaleGenerationsTask(), db))

	var expired, kept models.OutfitGeneration
	db.First(&expired, stale.ID)
	assert.Equal(t, models.GenerationFailed, expired.Status)
	assert.Equal(t, "generation timed out", *expired.GenerationErrorMessage)
	db.First(&kept, fresh.ID)
	assert.Equal(t, models.GenerationPending, kept.Status)
}

func TestOutfitGenerationTaskResolvesStoredImages(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	store := test.NewFakeObjectStore()
	defer store.Close()
	store.Public = false
	urlCache, err := services.NewURLCacheService(store, config.CacheConfig{})
	require.NoError(t, err)

	user := test.FakeUser(db, "")
	top := test.FakeWardrobeItem(db, user.ID, "shirt", models.CategoryTops, "", "")
	top.ImagePath = test.NewRefString(fmt.Sprintf("%d/wardrobe/shirt.png", user.ID))
	db.Save(top)
	record := models.OutfitGeneration{UserAccountID: user.ID, TopItemID: &top.ID, Status: models.GenerationPending}
	db.Create(&record)

	generator := &fakeGenerator{result: &generation.ImageResult{URL: "https://cdn/x.png", Provider: generation.KindGenericEndpoint}}
	task, _ := NewOutfitGenerationTask(record.ID)
	require.NoError(t, HandleOutfitGenerationTask(context.Background(), task, db, generator, urlCache, nil))

	require.Len(t, generator.inputs, 1)
	require.NotNil(t, generator.inputs[0].Top.ImageURL)
	assert.Contains(t, *generator.inputs[0].Top.ImageURL, fmt.Sprintf("/%d/wardrobe/shirt.png?X-Amz-Signature=read", user.ID))
}
