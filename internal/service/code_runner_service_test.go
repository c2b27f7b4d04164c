package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"desorientado_backend/internal/config"
	"desorientado_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helloJava = `public class Main { public static void main(String[] a) { System.out.println("oi"); } }`

func judge0Server(t *testing.T, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(hits.Add(1))
		assert.Equal(t, "/submissions", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("base64_encoded"))
		assert.Equal(t, "key", r.Header.Get("X-RapidAPI-Key"))

		var sub judge0Submission
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&sub))
		assert.Equal(t, 62, sub.LanguageID)

		status := http.StatusOK
		if n <= len(statuses) {
			status = statuses[n-1]
		}
		if status != http.StatusOK {
			http.Error(w, "busy", status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"stdout":"oi\n","stderr":null,"compile_output":null,"time":"0.08","memory":1024,"status":{"id":3,"description":"Accepted"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newRunner(url string) *CodeRunnerService {
	return NewCodeRunnerService(config.Judge0Config{URL: url, APIKey: "key", LanguageID: 62, TimeoutSec: 5})
}

func TestCodeRunner_Success(t *testing.T) {
	srv, hits := judge0Server(t)

	res, err := newRunner(srv.URL).Run(context.Background(), RunRequest{Source: helloJava})
	require.NoError(t, err)
	assert.Equal(t, "oi\n", res.Stdout)
	assert.Equal(t, "Accepted", res.Status)
	assert.Equal(t, "0.08", res.Time)
	assert.Equal(t, 1024, res.Memory)
	assert.Empty(t, res.Stderr)
	assert.EqualValues(t, 1, hits.Load())
}

func TestCodeRunner_RetriesTransientFailures(t *testing.T) {
	srv, hits := judge0Server(t, http.StatusServiceUnavailable, http.StatusServiceUnavailable)

	res, err := newRunner(srv.URL).Run(context.Background(), RunRequest{Source: helloJava})
	require.NoError(t, err)
	assert.Equal(t, "Accepted", res.Status)
	assert.EqualValues(t, 3, hits.Load())
}

func TestCodeRunner_DoesNotRetryClientErrors(t *testing.T) {
	srv, hits := judge0Server(t, http.StatusBadRequest)

	_, err := newRunner(srv.URL).Run(context.Background(), RunRequest{Source: helloJava})
	require.ErrorIs(t, err, util.ErrCodeRunnerFailed)
	assert.EqualValues(t, 1, hits.Load())
}

func TestCodeRunner_OpensCircuit(t *testing.T) {
	statuses := make([]int, 10)
	for i := range statuses {
		statuses[i] = http.StatusBadRequest
	}
	srv, hits := judge0Server(t, statuses...)
	runner := newRunner(srv.URL)

	for range 5 {
		_, err := runner.Run(context.Background(), RunRequest{Source: helloJava})
		require.ErrorIs(t, err, util.ErrCodeRunnerFailed)
	}

	_, err := runner.Run(context.Background(), RunRequest{Source: helloJava})
	require.ErrorIs(t, err, util.ErrCodeRunnerDown)
	assert.EqualValues(t, 5, hits.Load())
}

func TestCodeRunner_Validation(t *testing.T) {
	srv, hits := judge0Server(t)
	runner := newRunner(srv.URL)

	_, err := runner.Run(context.Background(), RunRequest{Source: "   "})
	assert.Error(t, err)

	_, err = runner.Run(context.Background(), RunRequest{Source: strings.Repeat("a", MaxSourceBytes+1)})
	assert.Error(t, err)

	assert.Zero(t, hits.Load())
}

func TestCodeRunner_Disabled(t *testing.T) {
	_, err := newRunner("").Run(context.Background(), RunRequest{Source: helloJava})
	assert.ErrorIs(t, err, util.ErrCodeRunnerDown)
}
