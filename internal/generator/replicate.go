package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/emojiforge/emojiforge/backend/go-services/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxImageBytes = 20 << 20

// ReplicateClient calls a Replicate-compatible predictions API.
type ReplicateClient struct {
	baseURL        string
	token          string
	version        string
	promptTemplate string
	negativePrompt string
	pollInterval   time.Duration
	timeout        time.Duration
	maxBytes       int64
	http           *http.Client
}

func NewReplicateClient(cfg config.GeneratorConfig, httpClient *http.Client) (*ReplicateClient, error) {
	if cfg.APIToken == "" || cfg.ModelVersion == "" {
		return nil, fmt.Errorf("generator api token and model version are required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = time.Second
	}
	return &ReplicateClient{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		token:          cfg.APIToken,
		version:        cfg.ModelVersion,
		promptTemplate: cfg.PromptTemplate,
		negativePrompt: cfg.NegativePrompt,
		pollInterval:   poll,
		timeout:        cfg.Timeout,
		maxBytes:       maxImageBytes,
		http:           httpClient,
	}, nil
}

type predictionRequest struct {
	Version string                 `json:"version"`
	Input   map[string]interface{} `json:"input"`
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  interface{}     `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

var tracer = otel.Tracer("emojiforge/generator")

// Generate creates a prediction, waits for it to finish and returns the first
// image. The whole exchange, polling included, is bounded by the configured
// timeout.
func (c *ReplicateClient) Generate(ctx context.Context, prompt string) (img Image, err error) {
	if strings.TrimSpace(prompt) == "" {
		return Image{}, ErrEmptyPrompt
	}
	ctx, span := tracer.Start(ctx, "replicate.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("generator.model_version", c.version)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "generation failed")
		}
		span.End()
	}()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(predictionRequest{
		Version: c.version,
		Input: map[string]interface{}{
			"prompt":          StylePrompt(c.promptTemplate, prompt),
			"negative_prompt": c.negativePrompt,
			"num_outputs":     1,
			"width":           512,
			"height":          512,
		},
	})
	if err != nil {
		return Image{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/predictions", bytes.NewReader(body))
	if err != nil {
		return Image{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "wait")

	pred, err := c.do(req)
	if err != nil {
		return Image{}, err
	}
	for !terminal(pred.Status) {
		if pred.URLs.Get == "" {
			return Image{}, fmt.Errorf("prediction %s is %s with no poll url", pred.ID, pred.Status)
		}
		select {
		case <-ctx.Done():
			return Image{}, ctx.Err()
		case <-time.After(c.pollInterval):
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, pred.URLs.Get, nil)
		if err != nil {
			return Image{}, err
		}
		if pred, err = c.do(req); err != nil {
			return Image{}, err
		}
	}
	if pred.Status != "succeeded" {
		return Image{}, fmt.Errorf("prediction %s %s: %v", pred.ID, pred.Status, pred.Error)
	}
	return c.resolveOutput(ctx, pred.Output)
}

func terminal(status string) bool {
	return status == "succeeded" || status == "failed" || status == "canceled"
}

func (c *ReplicateClient) do(req *http.Request) (*prediction, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generator request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("generator status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var p prediction
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}
	return &p, nil
}

// resolveOutput accepts a single reference or a list of them; a reference is
// either a data URL or an http(s) URL to download.
func (c *ReplicateClient) resolveOutput(ctx context.Context, raw json.RawMessage) (Image, error) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return c.resolveRef(ctx, single)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return c.resolveRef(ctx, list[0])
	}
	return Image{}, ErrUnexpectedOutput
}

func (c *ReplicateClient) resolveRef(ctx context.Context, ref string) (Image, error) {
	switch {
	case strings.HasPrefix(ref, "data:"):
		return DecodeDataURL(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return c.download(ctx, ref)
	}
	return Image{}, ErrUnexpectedOutput
}

func (c *ReplicateClient) download(ctx context.Context, url string) (Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Image{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Image{}, fmt.Errorf("download output: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Image{}, fmt.Errorf("download output: status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return Image{}, fmt.Errorf("read output: %w", err)
	}
	if int64(len(b)) > c.maxBytes {
		return Image{}, fmt.Errorf("%w: more than %d bytes", ErrImageTooLarge, c.maxBytes)
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" || !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(b)
	}
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	return Image{Bytes: b, MimeType: mime, SourceURL: url}, nil
}
