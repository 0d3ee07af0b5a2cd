package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the content-service transport
var (
	// ErrServiceOffline indicates the content service is unreachable
	ErrServiceOffline = errors.New("content service is unreachable")

	// ErrAuthFailed indicates the access token was rejected
	ErrAuthFailed = errors.New("authentication token is invalid")

	// ErrNotFound indicates the requested title or episode does not exist
	ErrNotFound = errors.New("content not found")
)

// ContentLoadError means fetching the initial or switch-target media
// failed. It reaches the user with a retry-via-back action and is not
// retried automatically.
type ContentLoadError struct {
	Message string
	Err     error
}

func (e *ContentLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ContentLoadError) Unwrap() error { return e.Err }

// EpisodeSwitchError means a switch attempt failed after committing to the
// switching phase. NoSource marks the one sub-case with an automatic
// degraded fallback (route-parameter-only update); every other cause
// leaves the prior session playing untouched.
type EpisodeSwitchError struct {
	Message  string
	NoSource bool
	Err      error
}

func (e *EpisodeSwitchError) Error() string { return e.Message }

func (e *EpisodeSwitchError) Unwrap() error { return e.Err }

// PlaybackDeviceError is an audio-codec or video-decode failure surfaced
// by the player handle. Fatal for the session; no automatic recovery.
type PlaybackDeviceError struct {
	Code    string
	Message string
}

func (e *PlaybackDeviceError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("playback failed (%s): %s", e.Code, e.Message)
	}
	return "playback failed: " + e.Message
}

// ProgressReportError wraps a failed persistence call. Always logged,
// never surfaced, never retried; the next periodic tick self-corrects
// with a fresher position.
type ProgressReportError struct {
	Err error
}

func (e *ProgressReportError) Error() string { return "progress report failed: " + e.Err.Error() }

func (e *ProgressReportError) Unwrap() error { return e.Err }
