/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"errors"
	"fmt"
)

// Board and pool construction failures. These abort room creation.
var (
	ErrNoCandidate         = errors.New("no candidate")
	ErrConflict            = errors.New("conflict")
	ErrWrongCount          = errors.New("wrong count")
	ErrInsufficientFiller  = errors.New("insufficient filler")
	ErrDuplicateAssignment = errors.New("duplicate assignment")
	ErrSnapshotMismatch    = errors.New("snapshot does not match generated board")
)

type GenerationError struct {
	Err    error
	Detail string
}

func (e *GenerationError) Error() string {
	if e.Detail == "" {
		return "generation failed: " + e.Err.Error()
	}
	return fmt.Sprintf("generation failed: %v: %s", e.Err, e.Detail)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func generationError(err error, format string, args ...any) error {
	return &GenerationError{Err: err, Detail: fmt.Sprintf(format, args...)}
}

type ErrorCode string

const (
	CodeNotPlaying    ErrorCode = "NOT_PLAYING"
	CodeUnknownPlayer ErrorCode = "UNKNOWN_PLAYER"
	CodeInvalidSlot   ErrorCode = "INVALID_SLOT"
	CodeAlreadySolved ErrorCode = "ALREADY_SOLVED"
	CodeNoCurrentItem ErrorCode = "NO_CURRENT_ITEM"
	CodeStaleItem     ErrorCode = "STALE_ITEM"
	CodeUnknownRule   ErrorCode = "UNKNOWN_RULE"
	CodeUnsupported   ErrorCode = "UNSUPPORTED"
)

var actionMessages = map[ErrorCode]string{
	CodeNotPlaying:    "The game is not in progress.",
	CodeUnknownPlayer: "Unknown player.",
	CodeInvalidSlot:   "That slot does not exist.",
	CodeAlreadySolved: "That slot has already been claimed.",
	CodeNoCurrentItem: "There is no country to place.",
	CodeStaleItem:     "The active country has changed.",
	CodeUnknownRule:   "The rule for that slot could not be found.",
	CodeUnsupported:   "Unsupported message type.",
}

// ActionError is a recoverable rejection of a single action. It is reported
// to the acting participant only and never changes the room.
type ActionError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message,omitempty"`
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func actionError(code ErrorCode) *ActionError {
	return &ActionError{Code: code, Message: actionMessages[code]}
}

func rejected(code ErrorCode) Update {
	return Update{Err: actionError(code)}
}
