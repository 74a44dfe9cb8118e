package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wardrobeapi/config"
	"wardrobeapi/generation"
	"wardrobeapi/models"
	"wardrobeapi/services"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	TypeGenerateOutfit         = "generate:outfit"
	TypeExpireStaleGenerations = "generate:expire_stale"

	GenerateQueue = "generate"
	// MaxGenerationAttempts matches the asynq MaxRetry the task is enqueued with.
	MaxGenerationAttempts = 3
	// a pending generation older than this was lost by the worker
	staleGenerationAge = time.Hour
)

type OutfitGenerationPayload struct {
	GenerationID uint `json:"generation_id"`
}

// Enqueuer is the part of *asynq.Client the API uses.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// OutfitGenerator runs one generation. *generation.Generator implements it.
type OutfitGenerator interface {
	Kind() generation.Kind
	Generate(ctx context.Context, in generation.OutfitInput) (*generation.ImageResult, error)
}

func NewClient(brokerAddress string) *asynq.Client {
	return asynq.NewClient(asynq.RedisClientOpt{Addr: brokerAddress})
}

func NewOutfitGenerationTask(generationID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(OutfitGenerationPayload{GenerationID: generationID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeGenerateOutfit, payload), nil
}

func EnqueueOutfitGeneration(enqueuer Enqueuer, generationID uint) error {
	task, err := NewOutfitGenerationTask(generationID)
	if err != nil {
		return err
	}
	_, err = enqueuer.Enqueue(task, asynq.MaxRetry(MaxGenerationAttempts), asynq.Queue(GenerateQueue), asynq.Timeout(10*time.Minute))
	return err
}

func NewExpireStaleGenerationsTask() *asynq.Task {
	return asynq.NewTask(TypeExpireStaleGenerations, nil)
}

func HandleOutfitGenerationTask(
	ctx context.Context, t *asynq.Task, db *gorm.DB, generator OutfitGenerator,
	urlCache services.URLCacheServiceProvider, notifier services.Notifier) error {
	var payload OutfitGenerationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	config.Logger.Info(fmt.Sprintf("[Generation %v] Start processing", payload.GenerationID))

	var record models.OutfitGeneration
	res := db.Preload("TopItem").Preload("BottomItem").Preload("AccessoryItem").First(&record, payload.GenerationID)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return fmt.Errorf("[Generation %v] not found: %w", payload.GenerationID, asynq.SkipRetry)
		}
		sentry.CaptureException(fmt.Errorf("[QUEUE] Error on retrieving generation %v: %w", payload.GenerationID, res.Error))
		return res.Error
	}
	if record.Status != models.GenerationPending {
		config.Logger.Info(fmt.Sprintf("[Generation %v] Already %s, skipping", record.ID, record.Status))
		return nil
	}

	for _, item := range []*models.WardrobeItem{record.TopItem, record.BottomItem, record.AccessoryItem} {
		if item != nil {
			item.ImageURL = services.ResolveImageURL(ctx, urlCache, item.ImagePath, item.ImageURL)
		}
	}
	input := generation.OutfitInput{
		UserID:    record.UserAccountID,
		Top:       record.TopItem,
		Bottom:    record.BottomItem,
		Accessory: record.AccessoryItem,
	}
	if record.ProfileImageURL != nil {
		input.ProfileImageURL = *record.ProfileImageURL
	}

	started := time.Now()
	result, err := generator.Generate(ctx, input)
	if err != nil {
		terminal, saveErr := saveGenerationFail(db, record, err.Error(), generation.Retryable(err))
		if saveErr != nil {
			return saveErr
		}
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("provider", string(generator.Kind()))
			scope.SetExtra("generation_id", record.ID)
			sentry.CaptureException(fmt.Errorf("[Generation %v] %w", record.ID, err))
		})
		if terminal {
			return fmt.Errorf("[Generation %v] %v: %w", record.ID, err, asynq.SkipRetry)
		}
		return err
	}

	duration := time.Since(started).Seconds()
	record.Status = models.GenerationCompleted
	record.Provider = string(result.Provider)
	record.Prompt = result.Prompt
	record.ImageURL = &result.URL
	if result.Path != "" {
		record.ImagePath = services.StrPointer(result.Path)
	}
	record.Duration = &duration
	record.GenerationErrorMessage = nil
	if tx := db.Omit("TopItem", "BottomItem", "AccessoryItem", "UserAccount").Save(&record); tx.Error != nil {
		sentry.CaptureException(fmt.Errorf("[Generation %v] Error on saving result: %w", record.ID, tx.Error))
		return tx.Error
	}
	config.Logger.Info(fmt.Sprintf("[Generation %v] Finished", record.ID),
		zap.String("provider", record.Provider), zap.Float64("duration", duration))

	if notifier != nil {
		notifier.Notify(ctx, record.UserAccountID, "Your outfit is ready", "Tap to see the generated look.", map[string]string{
			"type":          "outfit_generation",
			"generation_id": fmt.Sprintf("%d", record.ID),
		})
	}
	return nil
}

// saveGenerationFail records the attempt and reports whether the record is now failed for good.
func saveGenerationFail(db *gorm.DB, record models.OutfitGeneration, msg string, shouldRetry bool) (bool, error) {
	record.GenerationRetryTimes = record.GenerationRetryTimes + 1
	record.GenerationErrorMessage = &msg
	if !shouldRetry || record.GenerationRetryTimes >= MaxGenerationAttempts {
		record.Status = models.GenerationFailed
	}
	tx := db.Omit("TopItem", "BottomItem", "AccessoryItem", "UserAccount").Save(&record)
	if tx.Error != nil {
		sentry.CaptureException(fmt.Errorf("[Fail Generation %v] Error on saving failed status", record.ID))
		return false, tx.Error
	}
	return record.Status == models.GenerationFailed, nil
}

// HandleExpireStaleGenerationsTask fails pending generations the worker never finished.
func HandleExpireStaleGenerationsTask(ctx context.Context, t *asynq.Task, db *gorm.DB) error {
	cutoff := time.Now().Add(-staleGenerationAge)
	res := db.WithContext(ctx).Model(&models.OutfitGeneration{}).
		Where("status = ? AND created_at < ?", models.GenerationPending, cutoff).
		Updates(map[string]interface{}{
			"status":                   models.GenerationFailed,
			"generation_error_message": "generation timed out",
		})
	if res.Error != nil {
		sentry.CaptureException(fmt.Errorf("[Expire generations] %w", res.Error))
		return res.Error
	}
	if res.RowsAffected > 0 {
		config.Logger.Info(fmt.Sprintf("[Expire generations] %d marked failed", res.RowsAffected))
	}
	return nil
}
