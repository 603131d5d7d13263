package analysis

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"dytto/internal/models"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RemoteConfig configures the external NLP analyzer client
type RemoteConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RatePerSec float64
	CacheTTL   time.Duration
}

// RemoteAnalyzer calls an external analysis service over HTTP.
// Results are cached by content hash and outbound calls are rate limited.
type RemoteAnalyzer struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *cache.Cache
	logger     *logrus.Logger
}

type remoteRequest struct {
	Content string `json:"content"`
}

type remoteResponse struct {
	Sentiment     string   `json:"sentiment"`
	EmotionalTone []string `json:"emotional_tone"`
	Topics        []string `json:"topics"`
	Suggestions   []string `json:"suggestions"`
	Confidence    float64  `json:"confidence"`
}

// NewRemoteAnalyzer creates a client for the analysis service at cfg.BaseURL
func NewRemoteAnalyzer(cfg RemoteConfig) *RemoteAnalyzer {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 5
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	burst := int(math.Max(1, cfg.RatePerSec*2))

	a := &RemoteAnalyzer{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst),
		cache:      cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		logger:     logger,
	}

	a.logger.WithFields(logrus.Fields{
		"baseURL":    a.baseURL,
		"ratePerSec": cfg.RatePerSec,
	}).Info("Remote analyzer initialized")
	return a
}

// Analyze sends content to the remote service. Every failure maps to ErrAnalysisFailed.
func (a *RemoteAnalyzer) Analyze(ctx context.Context, content string) (*models.Analysis, error) {
	key := contentKey(content)
	if cached, ok := a.cache.Get(key); ok {
		return copyAnalysis(cached.(*models.Analysis)), nil
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, a.fail("rate limiter wait", err)
	}

	body, err := json.Marshal(remoteRequest{Content: content})
	if err != nil {
		return nil, a.fail("marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, a.fail("create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	start := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, a.fail("send request", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, a.fail("read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		a.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"body":        truncate(string(respBody), 200),
		}).Warn("Remote analyzer returned error status")
		return nil, fmt.Errorf("%w: remote analyzer status %d", models.ErrAnalysisFailed, resp.StatusCode)
	}

	var parsed remoteResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, a.fail("decode response", err)
	}

	result, err := parsed.toAnalysis()
	if err != nil {
		return nil, a.fail("validate response", err)
	}

	a.logger.WithFields(logrus.Fields{
		"sentiment":   result.Sentiment,
		"topics":      result.Topics,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Remote analysis completed")

	a.cache.Set(key, result, cache.DefaultExpiration)
	return copyAnalysis(result), nil
}

func (a *RemoteAnalyzer) fail(step string, err error) error {
	a.logger.WithError(err).WithField("step", step).Error("Remote analysis failed")
	return fmt.Errorf("%w: %s: %v", models.ErrAnalysisFailed, step, err)
}

func (r *remoteResponse) toAnalysis() (*models.Analysis, error) {
	sentiment := models.Sentiment(strings.ToLower(strings.TrimSpace(r.Sentiment)))
	if !sentiment.Valid() {
		return nil, fmt.Errorf("unknown sentiment %q", r.Sentiment)
	}

	topics := r.Topics
	if len(topics) == 0 {
		topics = []string{GeneralTopic}
	}
	suggestions := r.Suggestions
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}

	return &models.Analysis{
		Sentiment:     sentiment,
		EmotionalTone: r.EmotionalTone,
		Topics:        topics,
		Suggestions:   suggestions,
		Confidence:    math.Max(0, math.Min(1, r.Confidence)),
	}, nil
}

func contentKey(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func copyAnalysis(a *models.Analysis) *models.Analysis {
	out := *a
	out.EmotionalTone = append([]string(nil), a.EmotionalTone...)
	out.Topics = append([]string(nil), a.Topics...)
	out.Suggestions = append([]string(nil), a.Suggestions...)
	return &out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
