// Package aierrors holds the provider sentinel errors in a leaf package so
// that the ai package (which imports the provider subpackages from its
// factory) and the provider subpackages can share them without an import
// cycle. The canonical names remain exported from package ai.
package aierrors

import "errors"

var (
	ErrProviderUnavailable = errors.New("ai provider unavailable")
	ErrInferenceTimeout    = errors.New("ai inference timeout")
	ErrInvalidResponse     = errors.New("ai provider returned invalid response")
	ErrRateLimited         = errors.New("ai provider rate limited")
)
