package database

import "errors"

// Sentinel errors for store operations. Use errors.Is() to check these
// rather than inspecting error message strings.
var (
	ErrPromptNotFound     = errors.New("prompt not found")
	ErrVersionNotFound    = errors.New("prompt version not found")
	ErrEvaluationNotFound = errors.New("evaluation not found")

	// ErrLockConflict means the submitted lock_version no longer matches
	// the stored value: the prompt was modified by a concurrent request.
	// The caller must re-fetch before retrying.
	ErrLockConflict = errors.New("prompt was modified by another request")

	// ErrNoCurrentVersion means an evaluation was requested for a prompt
	// that has no content version.
	ErrNoCurrentVersion = errors.New("prompt has no content version")
)
