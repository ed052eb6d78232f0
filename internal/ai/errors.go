package ai

import "github.com/sentinelstack/sentinel-slice/internal/ai/aierrors"

// The sentinel error values are defined in the aierrors leaf package so the
// provider subpackages can reference them without importing this package
// (whose factory imports them back). These are the same error values, so
// errors.Is comparisons work across both names.
var (
	ErrProviderUnavailable = aierrors.ErrProviderUnavailable
	ErrInferenceTimeout    = aierrors.ErrInferenceTimeout
	ErrInvalidResponse     = aierrors.ErrInvalidResponse
	ErrRateLimited         = aierrors.ErrRateLimited
)
