package inference

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/transcript2minutes/internal/domain/generation"
	"github.com/yanqian/transcript2minutes/internal/domain/minutes"
	"github.com/yanqian/transcript2minutes/internal/domain/model"
	apperrors "github.com/yanqian/transcript2minutes/pkg/errors"
)

func TestSummarizeReturnsMinutesAndStats(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{summary: "  The team agreed to ship on Friday.  "}
	runs := &fakeRuns{}
	svc := NewService(Config{}, engine, nil, runs, nil, newTestLogger())

	resp, err := svc.Summarize(context.Background(), Request{Transcript: strPtr("A: Hi. B: Hi back.")})
	require.NoError(t, err)
	require.Equal(t, "The team agreed to ship on Friday.", resp.Minutes)
	require.Equal(t, Stats{InputWords: 5, OutputWords: 7}, resp.Stats)
	require.Equal(t, 1, engine.callCount())
	require.Equal(t, "A: Hi. B: Hi back.", engine.lastText)

	require.Len(t, runs.records, 1)
	rec := runs.records[0]
	require.NotEmpty(t, rec.ID)
	require.Equal(t, "stub-model", rec.ModelID)
	require.Equal(t, 5, rec.InputWords)
	require.False(t, rec.Cached)
}

func TestSummarizeStructuredFormat(t *testing.T) {
	t.Parallel()

	svc := NewService(Config{}, &fakeEngine{summary: "Budget approved. Launch moved."}, nil, nil, nil, newTestLogger())
	resp, err := svc.Summarize(context.Background(), Request{Transcript: strPtr("x y"), Format: "structured"})
	require.NoError(t, err)
	require.Equal(t, "Meeting Minutes:\n\nKey Points:\n  • Budget approved.\n  • Launch moved.", resp.Minutes)
}

func TestSummarizeRejectsInvalidInputWithoutGenerating(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("word ", 2000)
	tests := []struct {
		name    string
		req     Request
		message string
	}{
		{name: "missing", req: Request{}, message: "Missing transcript field"},
		{name: "empty", req: Request{Transcript: strPtr("   \n\t")}, message: "Transcript cannot be empty"},
		{name: "too long", req: Request{Transcript: &long}, message: "Transcript too long. Maximum 1500 words allowed. Got 2000 words."},
		{name: "unknown format", req: Request{Transcript: strPtr("hi"), Format: "haiku"}, message: `unknown format "haiku"`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			engine := &fakeEngine{summary: "unused"}
			svc := NewService(Config{}, engine, nil, nil, nil, newTestLogger())
			_, err := svc.Summarize(context.Background(), tt.req)
			require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
			require.Equal(t, tt.message, apperrors.MessageOf(err))
			require.Zero(t, engine.callCount())
		})
	}
}

func TestSummarizeWithoutEngineIsUnavailable(t *testing.T) {
	t.Parallel()

	svc := NewService(Config{}, nil, nil, nil, nil, newTestLogger())
	_, err := svc.Summarize(context.Background(), Request{Transcript: strPtr("hello")})
	require.True(t, apperrors.IsCode(err, apperrors.CodeModelUnavailable))
	require.Equal(t, "Model not loaded", apperrors.MessageOf(err))
	require.Equal(t, "unavailable", svc.Health().Status)
}

func TestSummarizeHidesGenerationDetail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "generation error", err: apperrors.Wrap(apperrors.CodeGeneration, "generation failed", errors.New("cuda oom")), wantCode: apperrors.CodeGeneration},
		{name: "unexpected error", err: errors.New("boom"), wantCode: apperrors.CodeInternal},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			runs := &fakeRuns{}
			svc := NewService(Config{}, &fakeEngine{err: tt.err}, nil, runs, nil, newTestLogger())
			_, err := svc.Summarize(context.Background(), Request{Transcript: strPtr("hello there")})
			require.True(t, apperrors.IsCode(err, tt.wantCode))
			require.Equal(t, "Failed to generate summary", apperrors.MessageOf(err))
			require.Empty(t, runs.records)
		})
	}
}

func TestSummarizeRecoversFromPanics(t *testing.T) {
	t.Parallel()

	svc := NewService(Config{}, &fakeEngine{panics: true}, nil, nil, nil, newTestLogger())
	_, err := svc.Summarize(context.Background(), Request{Transcript: strPtr("hello")})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInternal))
	require.Equal(t, "Failed to generate summary", apperrors.MessageOf(err))
}

func TestCollapsedRequestSurvivesFirstCallerCancel(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{summary: "Shared result.", delay: 300 * time.Millisecond, started: make(chan struct{})}
	runs := &fakeRuns{}
	svc := NewService(Config{}, engine, nil, runs, nil, newTestLogger())

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Summarize(firstCtx, Request{Transcript: strPtr("same meeting")})
		firstErr <- err
	}()
	<-engine.started

	secondDone := make(chan struct{})
	var (
		second    Response
		secondErr error
	)
	go func() {
		defer close(secondDone)
		second, secondErr = svc.Summarize(context.Background(), Request{Transcript: strPtr("same meeting")})
	}()

	time.Sleep(50 * time.Millisecond)
	cancelFirst()

	err := <-firstErr
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeGeneration))

	<-secondDone
	require.NoError(t, secondErr)
	require.Equal(t, "Shared result.", second.Minutes)
	require.Equal(t, 1, engine.callCount())
	require.Len(t, runs.records, 1)
}

func TestGenerationIsBoundedByTimeout(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{summary: "late", delay: time.Second}
	svc := NewService(Config{GenerationTimeout: 20 * time.Millisecond}, engine, nil, nil, nil, newTestLogger())

	_, err := svc.Summarize(context.Background(), Request{Transcript: strPtr("hello")})
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSummarizeUsesCache(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{summary: "Decisions were made."}
	cache := newFakeCache()
	runs := &fakeRuns{}
	svc := NewService(Config{CacheTTL: time.Minute}, engine, cache, runs, nil, newTestLogger())

	first, err := svc.Summarize(context.Background(), Request{Transcript: strPtr("long meeting text")})
	require.NoError(t, err)
	second, err := svc.Summarize(context.Background(), Request{Transcript: strPtr("  long meeting text ")})
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, engine.callCount())
	require.Equal(t, time.Minute, cache.lastTTL)
	require.Len(t, runs.records, 2)
	require.False(t, runs.records[0].Cached)
	require.True(t, runs.records[1].Cached)
}

func TestSummarizeIgnoresCacheAndRunLogFailures(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{summary: "ok"}
	cache := newFakeCache()
	cache.err = errors.New("valkey down")
	runs := &fakeRuns{err: errors.New("postgres down")}
	svc := NewService(Config{}, engine, cache, runs, nil, newTestLogger())

	resp, err := svc.Summarize(context.Background(), Request{Transcript: strPtr("hello")})
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Minutes)
}

func TestRecentRunsClampsLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "default", limit: 0, want: DefaultRecentRuns},
		{name: "negative", limit: -3, want: DefaultRecentRuns},
		{name: "within bounds", limit: 7, want: 7},
		{name: "above max", limit: 5000, want: MaxRecentRuns},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			runs := &fakeRuns{}
			svc := NewService(Config{}, &fakeEngine{}, nil, runs, nil, newTestLogger())
			got, err := svc.RecentRuns(context.Background(), tt.limit)
			require.NoError(t, err)
			require.NotNil(t, got)
			require.Equal(t, tt.want, runs.lastLimit)
		})
	}
}

func TestRecentRunsNewestFirstAfterSummaries(t *testing.T) {
	t.Parallel()

	runs := &fakeRuns{}
	svc := NewService(Config{}, &fakeEngine{summary: "ok"}, nil, runs, nil, newTestLogger())
	for _, text := range []string{"one", "two words", "three more words"} {
		_, err := svc.Summarize(context.Background(), Request{Transcript: strPtr(text)})
		require.NoError(t, err)
	}

	got, err := svc.RecentRuns(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 3, got[0].InputWords)
	require.Equal(t, 2, got[1].InputWords)
}

func TestRecentRunsFailures(t *testing.T) {
	t.Parallel()

	svc := NewService(Config{}, &fakeEngine{}, nil, nil, nil, newTestLogger())
	got, err := svc.RecentRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Empty(t, got)

	svc = NewService(Config{}, &fakeEngine{}, nil, &fakeRuns{readErr: errors.New("postgres down")}, nil, newTestLogger())
	_, err = svc.RecentRuns(context.Background(), 5)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInternal))
	require.Equal(t, "Failed to load runs", apperrors.MessageOf(err))
}

func TestCacheKeyDependsOnModelParamsAndText(t *testing.T) {
	t.Parallel()

	p := generation.DefaultParams()
	base := cacheKey("m", p, "text")
	require.Equal(t, base, cacheKey("m", p, "text"))
	require.NotEqual(t, base, cacheKey("other", p, "text"))
	require.NotEqual(t, base, cacheKey("m", p, "text2"))
	p.BeamCount = 2
	require.NotEqual(t, base, cacheKey("m", p, "text"))
}

func TestHealthReportsModel(t *testing.T) {
	t.Parallel()

	svc := NewService(Config{}, &fakeEngine{}, nil, nil, nil, newTestLogger())
	require.Equal(t, Health{Status: "healthy", Model: "stub-model", Device: "cpu"}, svc.Health())
}

func TestPlaceholderCountsAsOutputWords(t *testing.T) {
	t.Parallel()

	svc := NewService(Config{}, &fakeEngine{summary: "   "}, nil, nil, nil, newTestLogger())
	resp, err := svc.Summarize(context.Background(), Request{Transcript: strPtr("hello")})
	require.NoError(t, err)
	require.Equal(t, minutes.Placeholder, resp.Minutes)
	require.Equal(t, 3, resp.Stats.OutputWords)
}

func strPtr(s string) *string { return &s }

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeEngine struct {
	mu       sync.Mutex
	summary  string
	err      error
	panics   bool
	delay    time.Duration
	started  chan struct{}
	once     sync.Once
	calls    int
	lastText string
}

func (f *fakeEngine) ModelID() string             { return "stub-model" }
func (f *fakeEngine) Device() model.Device        { return model.DeviceCPU }
func (f *fakeEngine) Defaults() generation.Params { return generation.DefaultParams() }

func (f *fakeEngine) Summarize(ctx context.Context, text string, _ generation.Params) (string, error) {
	if f.panics {
		panic("engine exploded")
	}
	f.mu.Lock()
	f.calls++
	f.lastText = text
	f.mu.Unlock()

	if f.started != nil {
		f.once.Do(func() { close(f.started) })
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.summary, f.err
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]CachedSummary
	lastTTL time.Duration
	err     error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]CachedSummary)}
}

func (c *fakeCache) Get(_ context.Context, key string) (CachedSummary, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return CachedSummary{}, false, c.err
	}
	entry, ok := c.entries[key]
	return entry, ok, nil
}

func (c *fakeCache) Put(_ context.Context, key string, entry CachedSummary, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.entries[key] = entry
	c.lastTTL = ttl
	return nil
}

type fakeRuns struct {
	mu        sync.Mutex
	records   []RunRecord
	err       error
	readErr   error
	lastLimit int
}

func (r *fakeRuns) Append(_ context.Context, rec RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, rec)
	return nil
}

func (r *fakeRuns) Recent(_ context.Context, limit int) ([]RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastLimit = limit
	if r.readErr != nil {
		return nil, r.readErr
	}
	var out []RunRecord
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.records[i])
	}
	return out, nil
}
