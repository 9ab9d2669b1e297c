package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/transcript2minutes/internal/infra/auth"
	"github.com/yanqian/transcript2minutes/internal/infra/mlclient"
)

func TestRunSummarizePrintsMinutes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/summarize", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"minutes":"- Ship Friday","stats":{"input_words":5,"output_words":3}}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	client := mlclient.NewClient(mlclient.Config{BaseURL: srv.URL})
	err := runSummarize(context.Background(), client, strings.NewReader("A: ship it friday"), &out, "", false)
	require.NoError(t, err)
	require.Contains(t, out.String(), "- Ship Friday")
	require.Contains(t, out.String(), "(5 words in, 3 words out)")
}

func TestRunSummarizeErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"ML service unavailable","code":"upstream_unavailable"}`))
	}))
	t.Cleanup(srv.Close)

	tests := []struct {
		name    string
		url     string
		input   string
		wantErr string
	}{
		{name: "empty input", url: srv.URL, input: "  \n", wantErr: "transcript is empty"},
		{name: "server error body", url: srv.URL, input: "hello", wantErr: "backend returned 503: ML service unavailable"},
		{name: "unreachable", url: "http://127.0.0.1:1", input: "hello", wantErr: "backend unreachable"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := mlclient.NewClient(mlclient.Config{BaseURL: tt.url, Timeout: 2 * time.Second})
			err := runSummarize(context.Background(), client, strings.NewReader(tt.input), &bytes.Buffer{}, "", false)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestRunHealth(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"healthy","mlservice":"healthy"}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	require.NoError(t, runHealth(context.Background(), mlclient.NewClient(mlclient.Config{BaseURL: srv.URL}), &out))
	require.Equal(t, "backend healthy\n", out.String())
}

func TestRunRunsPrintsTable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/runs", r.URL.Path)
		require.Equal(t, "3", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"runs":[{"id":"run-9","model_id":"ngram-base","input_words":42,"output_words":7,"duration_ms":120,"cached":true,"created_at":"2026-03-04T10:00:00Z"}]}`))
	}))
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	require.NoError(t, runRuns(context.Background(), mlclient.NewClient(mlclient.Config{BaseURL: srv.URL}), 3, &out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "CREATED"))
	require.Equal(t, []string{"2026-03-04T10:00:00Z", "run-9", "ngram-base", "42", "7", "120", "true"}, strings.Fields(lines[1]))
}

func TestRunRunsEmpty(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"runs":[]}`))
	}))
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	require.NoError(t, runRuns(context.Background(), mlclient.NewClient(mlclient.Config{BaseURL: srv.URL}), 0, &out))
	require.Equal(t, "no runs recorded\n", out.String())
}

func TestRunTokenMintsVerifiableToken(t *testing.T) {
	t.Parallel()

	tokens := auth.NewTokens(auth.Config{Secret: "0123456789abcdef", Issuer: "minutes", TokenTTL: time.Minute})
	var out bytes.Buffer
	require.NoError(t, runToken(tokens, "alice", &out))

	token := strings.SplitN(out.String(), "\n", 2)[0]
	claims, err := tokens.Validate(token)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Subject)
}
