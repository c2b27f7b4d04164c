package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"desorientado_backend/internal/config"
	"desorientado_backend/internal/util"
	"desorientado_backend/pkg/logger"
	"desorientado_backend/pkg/monitoring"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"
	"go.uber.org/zap"
)

// MaxSourceBytes bounds the snippet a learner can submit.
const MaxSourceBytes = 64 * 1024

type RunRequest struct {
	Source string `json:"source" binding:"required"`
	Stdin  string `json:"stdin"`
}

type RunResult struct {
	Stdout        string `json:"stdout"`
	Stderr        string `json:"stderr"`
	CompileOutput string `json:"compileOutput"`
	Message       string `json:"message,omitempty"`
	Status        string `json:"status"`
	Time          string `json:"time,omitempty"`
	Memory        int    `json:"memory,omitempty"`
}

type judge0Submission struct {
	SourceCode string `json:"source_code"`
	LanguageID int    `json:"language_id"`
	Stdin      string `json:"stdin,omitempty"`
}

type judge0Result struct {
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Message       *string `json:"message"`
	Time          *string `json:"time"`
	Memory        *int    `json:"memory"`
	Status        struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
}

// upstreamError is a failed call to the sandbox.
type upstreamError struct {
	status int
	err    error
}

func (e *upstreamError) Error() string {
	if e.status != 0 {
		return fmt.Sprintf("judge0 status %d: %v", e.status, e.err)
	}
	return fmt.Sprintf("judge0: %v", e.err)
}

func (e *upstreamError) Unwrap() error { return e.err }

func (e *upstreamError) retryable() bool {
	switch e.status {
	case 0, http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// CodeRunnerService runs Java snippets on a Judge0 instance behind a
// circuit breaker and retry with exponential backoff.
type CodeRunnerService struct {
	cfg     config.Judge0Config
	client  *http.Client
	breaker circuitbreaker.CircuitBreaker[*RunResult]
	retrier retry.Retry[*RunResult]
}

func NewCodeRunnerService(cfg config.Judge0Config) *CodeRunnerService {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if cfg.LanguageID == 0 {
		cfg.LanguageID = 62
	}

	return &CodeRunnerService{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		breaker: circuitbreaker.New[*RunResult](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    30 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				logger.Log.Warn("Code runner circuit state change",
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}),
		retrier: retry.New[*RunResult](retry.Config{
			MaxAttempts:   3,
			InitialDelay:  200 * time.Millisecond,
			MaxDelay:      2 * time.Second,
			Multiplier:    2.0,
			BackoffPolicy: retry.BackoffExponential,
			Jitter:        true,
			IsRetryable: func(err error) bool {
				var ue *upstreamError
				return errors.As(err, &ue) && ue.retryable()
			},
		}),
	}
}

func (s *CodeRunnerService) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if strings.TrimSpace(req.Source) == "" {
		return nil, errors.New("source is required")
	}
	if len(req.Source) > MaxSourceBytes {
		return nil, fmt.Errorf("source exceeds %d bytes", MaxSourceBytes)
	}
	if s.cfg.URL == "" {
		monitoring.CodeRuns.WithLabelValues("disabled").Inc()
		return nil, util.ErrCodeRunnerDown
	}

	// last stays nil when the breaker rejected the call without reaching
	// the sandbox
	var last *upstreamError
	res, err := s.breaker.Execute(ctx, func(ctx context.Context) (*RunResult, error) {
		return s.retrier.Do(ctx, func(ctx context.Context) (*RunResult, error) {
			out, err := s.submit(ctx, req)
			errors.As(err, &last)
			return out, err
		})
	})
	if err == nil {
		monitoring.CodeRuns.WithLabelValues("ok").Inc()
		return res, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	if last != nil {
		monitoring.CodeRuns.WithLabelValues("failed").Inc()
		logger.Log.Warn("Code runner call failed", zap.Error(last))
		return nil, fmt.Errorf("%w: %v", util.ErrCodeRunnerFailed, last)
	}

	monitoring.CodeRuns.WithLabelValues("rejected").Inc()
	return nil, fmt.Errorf("%w: %v", util.ErrCodeRunnerDown, err)
}

func (s *CodeRunnerService) submit(ctx context.Context, req RunRequest) (*RunResult, error) {
	body, err := json.Marshal(judge0Submission{
		SourceCode: req.Source,
		LanguageID: s.cfg.LanguageID,
		Stdin:      req.Stdin,
	})
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(s.cfg.URL, "/") + "/submissions?base64_encoded=false&wait=true"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		httpReq.Header.Set("X-RapidAPI-Key", s.cfg.APIKey)
	}
	if s.cfg.Host != "" {
		httpReq.Header.Set("X-RapidAPI-Host", s.cfg.Host)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, &upstreamError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &upstreamError{status: resp.StatusCode, err: errors.New(strings.TrimSpace(string(msg)))}
	}

	var out judge0Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &upstreamError{status: resp.StatusCode, err: fmt.Errorf("decode response: %w", err)}
	}

	return &RunResult{
		Stdout:        deref(out.Stdout),
		Stderr:        deref(out.Stderr),
		CompileOutput: deref(out.CompileOutput),
		Message:       deref(out.Message),
		Status:        out.Status.Description,
		Time:          deref(out.Time),
		Memory:        derefInt(out.Memory),
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
