package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	ollamaapi "github.com/ollama/ollama/api"
	openaisdk "github.com/openai/openai-go"
	"google.golang.org/api/googleapi"

	"github.com/inkos/inkd/internal/eventlog"
	"github.com/inkos/inkd/internal/logging"
	"github.com/inkos/inkd/internal/provider"
)

const attemptTimeout = 2 * time.Minute

// Router resolves a runtime and invokes it, walking the fallback chain when
// attempts fail. Transient failures (timeout, 429, 5xx) get one retry with a
// reduced completion budget before the router moves to the next candidate.
// Every attempt is recorded in the event log.
type Router struct {
	registry   *provider.Registry
	events     *eventlog.Logger
	allowCloud bool

	// replaced in tests
	newBackend func(*provider.Selection) (Backend, error)
}

// NewRouter creates a Router
func NewRouter(registry *provider.Registry, events *eventlog.Logger, allowCloud bool) *Router {
	return &Router{
		registry:   registry,
		events:     events,
		allowCloud: allowCloud,
		newBackend: NewBackend,
	}
}

// Chat invokes the first usable runtime. providerID/model override the active
// setting when non-empty; req.Model overrides both.
func (r *Router) Chat(ctx context.Context, req *ChatRequest, providerID, model string) (*ChatResponse, error) {
	candidates, err := r.registry.Candidates(ctx, providerID, model, r.allowCloud)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, sel := range candidates {
		resp, err := r.attempt(ctx, sel, req)
		if err != nil && isTransient(err) {
			logging.Warnf("transient failure on %s/%s, retrying once: %v", sel.Provider.ID, sel.Model, err)
			retryReq := *req
			if retryReq.MaxTokens > 1 {
				retryReq.MaxTokens /= 2
			}
			resp, err = r.attempt(ctx, sel, &retryReq)
		}
		if err == nil {
			r.events.Info(ctx, eventlog.CodeInvokeOK, eventlog.ModuleAIRuntime,
				fmt.Sprintf("invoked %s/%s", sel.Provider.ID, resp.Model), "",
				map[string]any{"provider": sel.Provider.ID, "model": resp.Model,
					"prompt_tokens": resp.Usage.PromptTokens, "completion_tokens": resp.Usage.CompletionTokens})
			return resp, nil
		}

		lastErr = err
		r.events.Error(ctx, eventlog.CodeInvokeFail, eventlog.ModuleAIRuntime,
			fmt.Sprintf("invocation failed on %s/%s", sel.Provider.ID, sel.Model), err.Error(),
			map[string]any{"provider": sel.Provider.ID, "model": sel.Model})
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("%w: all candidates failed: %v", provider.ErrNoRuntime, lastErr)
}

func (r *Router) attempt(ctx context.Context, sel *provider.Selection, req *ChatRequest) (*ChatResponse, error) {
	backend, err := r.newBackend(sel)
	if err != nil {
		return nil, err
	}
	attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	attemptReq := *req
	if attemptReq.Model == "" {
		attemptReq.Model = sel.Model
	}
	return backend.Chat(attemptCtx, &attemptReq)
}

// isTransient classifies a failure as retryable: timeouts and HTTP 408/429/5xx
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if status, ok := statusCode(err); ok {
		return status == 408 || status == 429 || status >= 500
	}
	msg := err.Error()
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "connection refused")
}

func statusCode(err error) (int, bool) {
	var openaiErr *openaisdk.Error
	if errors.As(err, &openaiErr) {
		return openaiErr.StatusCode, true
	}
	var anthropicErr *anthropicsdk.Error
	if errors.As(err, &anthropicErr) {
		return anthropicErr.StatusCode, true
	}
	var googleErr *googleapi.Error
	if errors.As(err, &googleErr) {
		return googleErr.Code, true
	}
	var ollamaErr ollamaapi.StatusError
	if errors.As(err, &ollamaErr) {
		return ollamaErr.StatusCode, true
	}
	return 0, false
}
