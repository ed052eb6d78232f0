package mock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sentinelstack/sentinel-slice/internal/ai"
	"github.com/sentinelstack/sentinel-slice/internal/ai/mock"
	"github.com/sentinelstack/sentinel-slice/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRequest() models.CompletionRequest {
	return models.CompletionRequest{
		Prompt:    "You are an expert SRE analyst. Identify the root cause pattern.",
		MaxTokens: 300,
	}
}

// --- NewMockProvider ---

func TestNewMockProvider_Name(t *testing.T) {
	p := mock.NewMockProvider()
	assert.Equal(t, "mock", p.Name())
}

func TestNewMockProvider_Complete(t *testing.T) {
	p := mock.NewMockProvider()
	c, err := p.Complete(context.Background(), sampleRequest())

	require.NoError(t, err)
	assert.Equal(t, "mock-v1", c.Model)
	assert.NotEmpty(t, c.Text)
	assert.Positive(t, c.PromptTokens)
	assert.Positive(t, c.CompletionTokens)
}

// --- NewFailingProvider ---

func TestNewFailingProvider_Name(t *testing.T) {
	p := mock.NewFailingProvider(ai.ErrProviderUnavailable)
	assert.Equal(t, "mock-failing", p.Name())
}

func TestNewFailingProvider_Complete(t *testing.T) {
	p := mock.NewFailingProvider(ai.ErrProviderUnavailable)
	_, err := p.Complete(context.Background(), sampleRequest())

	assert.ErrorIs(t, err, ai.ErrProviderUnavailable)
}

func TestNewFailingProvider_CustomError(t *testing.T) {
	customErr := errors.New("custom AI error")
	p := mock.NewFailingProvider(customErr)

	_, err := p.Complete(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, customErr)
}

// --- NewTimeoutProvider ---

func TestNewTimeoutProvider_Name(t *testing.T) {
	p := mock.NewTimeoutProvider()
	assert.Equal(t, "mock-timeout", p.Name())
}

func TestNewTimeoutProvider_Complete(t *testing.T) {
	p := mock.NewTimeoutProvider()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Complete(ctx, sampleRequest())
	assert.ErrorIs(t, err, ai.ErrInferenceTimeout)
}

// --- Sentinel errors ---

func TestSentinelErrors(t *testing.T) {
	assert.NotNil(t, ai.ErrProviderUnavailable)
	assert.NotNil(t, ai.ErrInferenceTimeout)
	assert.NotNil(t, ai.ErrInvalidResponse)
	assert.NotNil(t, ai.ErrRateLimited)

	// Ensure they are distinct
	assert.NotEqual(t, ai.ErrProviderUnavailable, ai.ErrInferenceTimeout)
	assert.NotEqual(t, ai.ErrInferenceTimeout, ai.ErrInvalidResponse)
	assert.NotEqual(t, ai.ErrInvalidResponse, ai.ErrRateLimited)
}

// --- Zero-value MockProvider ---

func TestMockProvider_NilFunc(t *testing.T) {
	p := &mock.MockProvider{Name_: "bare"}

	c, err := p.Complete(context.Background(), sampleRequest())
	assert.NoError(t, err)
	assert.Equal(t, &models.Completion{}, c)
}
