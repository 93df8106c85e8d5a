package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qalog/internal/domain"
)

func fakeEmbeddingServer(t *testing.T, dim int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req embeddingRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		resp := embeddingResponse{}
		// reversed order exercises the index mapping
		for i := len(req.Input) - 1; i >= 0; i-- {
			v := make([]float32, dim)
			v[0] = float32(len(req.Input[i]))
			resp.Data = append(resp.Data, embeddingData{Embedding: v, Index: i})
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestNewOpenAIEmbedder_MissingKey(t *testing.T) {
	t.Setenv("QALOG_TEST_MISSING_KEY", "")
	_, err := NewOpenAIEmbedder("QALOG_TEST_MISSING_KEY", "text-embedding-3-small", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAuth))
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	var calls atomic.Int32
	srv := fakeEmbeddingServer(t, 4, &calls)
	defer srv.Close()

	t.Setenv("QALOG_TEST_KEY", "test-key")
	e, err := NewOpenAIEmbedder("QALOG_TEST_KEY", "custom-model", srv.URL, WithDimension(4), WithBatchSize(2))
	require.NoError(t, err)
	assert.Equal(t, 4, e.Dimension())
	assert.Equal(t, "custom-model", e.ModelName())

	vectors, err := e.Embed(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, float32(1), vectors[0][0])
	assert.Equal(t, float32(2), vectors[1][0])
	assert.Equal(t, float32(3), vectors[2][0])
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAIEmbedder_EmptyInput(t *testing.T) {
	e := NewOllamaEmbedder("nomic-embed-text", "http://127.0.0.1:1")
	vectors, err := e.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
	assert.Equal(t, 768, e.Dimension())
}

func TestOpenAIEmbedder_DimensionMismatch(t *testing.T) {
	var calls atomic.Int32
	srv := fakeEmbeddingServer(t, 3, &calls)
	defer srv.Close()

	t.Setenv("QALOG_TEST_KEY", "test-key")
	e, err := NewOpenAIEmbedder("QALOG_TEST_KEY", "custom-model", srv.URL, WithDimension(4))
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), []string{"x"})
	assert.ErrorContains(t, err, "dimension mismatch")
}

func TestOpenAIEmbedder_ErrorClassification(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, domain.ErrAuth},
		{http.StatusTooManyRequests, domain.ErrTransient},
		{http.StatusServiceUnavailable, domain.ErrTransient},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(`{"error":{"message":"nope","type":"test"}}`))
		}))

		t.Setenv("QALOG_TEST_KEY", "test-key")
		e, err := NewOpenAIEmbedder("QALOG_TEST_KEY", "text-embedding-3-small", srv.URL)
		require.NoError(t, err)

		_, err = e.Embed(context.Background(), []string{"x"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, tc.want), "status %d: %v", tc.status, err)
		assert.Contains(t, err.Error(), "nope")
		srv.Close()
	}
}

func TestOpenAIEmbedder_TimeoutIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder("nomic-embed-text", srv.URL, WithTimeout(20*time.Millisecond))
	_, err := e.Embed(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTransient), "got %v", err)
}

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(16)
	a, err := e.Embed(context.Background(), []string{"hello", "hello", "world"})
	require.NoError(t, err)
	assert.Equal(t, a[0], a[1])
	assert.NotEqual(t, a[0], a[2])
	assert.Len(t, a[0], 16)
}
