package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
	"github.com/joseph-ayodele/hvac-extractor/internal/llm"
)

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ExtractPage implements llm.VisionExtractor with one chat/completions call
// carrying the page prompt and the page image. Throttling and server errors
// are retried; an unparseable reply yields an empty dataset and no error.
func (c *Client) ExtractPage(ctx context.Context, image []byte, kind hvac.PageKind) (hvac.Dataset, error) {
	start := time.Now()
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": llm.PromptFor(kind)},
					{"type": "image_url", "image_url": map[string]any{"url": llm.ImageDataURL(image)}},
				},
			},
		},
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	var raw []byte
	err := retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}
			callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
			defer cancel()
			b, err := llm.SendJSON(callCtx, c.http, endpoint, body, headers, c.logger)
			if err != nil {
				return err
			}
			raw = b
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.cfg.MaxRetries+1)),
		retry.Delay(c.cfg.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return retryable(ctx, err) }),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("vision.http.retry", "attempt", n+1, "kind", kind, "error", err)
		}),
	)
	if err != nil {
		c.logger.Error("vision.http.error",
			"kind", kind,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return hvac.Empty(), fmt.Errorf("vision request: %w", err)
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil || len(cc.Choices) == 0 {
		c.logger.Warn("vision.parse.empty", "reason", "no_choices", "raw_len", len(raw))
		return hvac.Empty(), nil
	}

	ds, ok := llm.ParseFragment(cc.Choices[0].Message.Content, c.logger)
	c.logger.Info("vision.page.ok",
		"kind", kind,
		"parsed", ok,
		"vavs", len(ds.VAVs),
		"fans", len(ds.Fans),
		"cracs", len(ds.CRACs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return ds, nil
}

// retryable retries status errors worth retrying and transport errors,
// but never once the caller's context is done.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var se *llm.StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return true
}
