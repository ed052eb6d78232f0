package mock

import (
	"context"
	"time"

	"github.com/sentinelstack/sentinel-slice/internal/ai/aierrors"
	"github.com/sentinelstack/sentinel-slice/pkg/models"
)

// MockProvider satisfies models.CompletionProvider for testing and for
// running the service without a real language model behind it.
type MockProvider struct {
	Name_        string
	CompleteFunc func(ctx context.Context, req models.CompletionRequest) (*models.Completion, error)
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) Complete(ctx context.Context, req models.CompletionRequest) (*models.Completion, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &models.Completion{}, nil
}

// NewMockProvider returns a MockProvider with sensible default responses.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock",
		CompleteFunc: func(_ context.Context, req models.CompletionRequest) (*models.Completion, error) {
			return &models.Completion{
				Text:             "Simulated completion from mock provider.",
				Model:            "mock-v1",
				PromptTokens:     len(req.Prompt) / 4,
				CompletionTokens: 8,
				Latency:          5 * time.Millisecond,
			}, nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_: "mock-failing",
		CompleteFunc: func(_ context.Context, _ models.CompletionRequest) (*models.Completion, error) {
			return nil, err
		},
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock-timeout",
		CompleteFunc: func(ctx context.Context, _ models.CompletionRequest) (*models.Completion, error) {
			<-ctx.Done()
			return nil, aierrors.ErrInferenceTimeout
		},
	}
}

// Compile-time check that MockProvider implements CompletionProvider.
var _ models.CompletionProvider = (*MockProvider)(nil)
