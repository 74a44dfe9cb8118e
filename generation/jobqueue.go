package generation

import (
	"context"
	"fmt"
	"net/http"

	"wardrobeapi/config"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	jobStartOp = "job start"
	jobCheckOp = "job check"
)

// JobQueue starts a job and polls its status until it reports completion.
type JobQueue struct {
	BaseURL   string
	APIKey    string
	ModelKey  string
	Client    *http.Client
	Policy    PollPolicy
	Clock     Clock
	Persister ResultPersister
	Metrics   *Metrics
}

type jobStartRequest struct {
	APIKey      string       `json:"apiKey"`
	ModelKey    string       `json:"modelKey"`
	ModelInputs promptInputs `json:"modelInputs"`
}

type jobCheckRequest struct {
	APIKey string `json:"apiKey"`
	CallID string `json:"callID"`
}

func (j *JobQueue) Kind() Kind {
	return KindJobQueue
}

func (j *JobQueue) Generate(ctx context.Context, req Request) (*ImageResult, error) {
	if j.APIKey == "" || j.ModelKey == "" {
		return nil, &ConfigError{Provider: KindJobQueue, Missing: "jobqueue_api_key or jobqueue_model_key"}
	}
	startBody, err := postJSON(ctx, j.Client, jobStartOp, j.BaseURL+"/start/v4/", nil, jobStartRequest{
		APIKey:      j.APIKey,
		ModelKey:    j.ModelKey,
		ModelInputs: promptInputs{Prompt: req.Prompt},
	})
	if err != nil {
		return nil, err
	}
	callID, ok := stringAt(startBody, "callID")
	if !ok {
		return nil, &ContractError{Op: jobStartOp, Expected: "callID", Raw: string(startBody)}
	}

	body, err := j.poll(ctx, callID)
	if err != nil {
		return nil, err
	}

	found, ok := ExtractImage(body, jobQueueExtractors...)
	if !ok {
		return nil, &ContractError{Op: jobCheckOp, Expected: "image output", Raw: string(body)}
	}
	if found.URL != "" {
		return &ImageResult{URL: found.URL, Provider: KindJobQueue}, nil
	}
	stored, err := j.Persister.PersistBase64(ctx, req.UserID, previewsFolder, "banana", found.Base64)
	if err != nil {
		return nil, err
	}
	return &ImageResult{URL: stored.URL, Path: stored.Path, Provider: KindJobQueue}, nil
}

// poll checks right away and waits Policy.Delay(n) after the n-th unfinished check.
func (j *JobQueue) poll(ctx context.Context, callID string) ([]byte, error) {
	clock := j.Clock
	if clock == nil {
		clock = SystemClock
	}
	started := clock.Now()

	for attempt := 1; ; attempt++ {
		body, err := postJSON(ctx, j.Client, jobCheckOp, j.BaseURL+"/check/v4/", nil, jobCheckRequest{
			APIKey: j.APIKey,
			CallID: callID,
		})
		j.Metrics.pollAttempt()
		if err != nil {
			return nil, err
		}
		if finished(body) {
			return body, nil
		}

		if j.Policy.MaxAttempts > 0 && attempt >= j.Policy.MaxAttempts {
			return nil, fmt.Errorf("%w: call %s unfinished after %d checks", ErrPollExhausted, callID, attempt)
		}
		delay := j.Policy.Delay(attempt)
		if j.Policy.Deadline > 0 && clock.Now().Sub(started)+delay > j.Policy.Deadline {
			return nil, fmt.Errorf("%w: call %s unfinished after %s", ErrPollExhausted, callID, j.Policy.Deadline)
		}
		config.Logger.Debug("job not finished yet",
			zap.String("call_id", callID), zap.Int("attempt", attempt), zap.Duration("delay", delay))
		if err := sleep(ctx, clock, delay); err != nil {
			return nil, fmt.Errorf("polling call %s: %w", callID, err)
		}
	}
}

func finished(body []byte) bool {
	return gjson.GetBytes(body, "message").String() == "success" && gjson.GetBytes(body, "finished").Bool()
}
