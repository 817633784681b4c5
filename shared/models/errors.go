package models

import (
	"errors"
	"fmt"
)

// Application-wide standard errors
var (
	// Common Resource/DB Errors
	ErrNotFound       = errors.New("resource not found") // General not found
	ErrStoryNotFound  = fmt.Errorf("story: %w", ErrNotFound)
	ErrPageNotFound   = fmt.Errorf("page: %w", ErrNotFound)
	ErrChoiceNotFound = fmt.Errorf("choice: %w", ErrNotFound)
	ErrPlayNotFound   = fmt.Errorf("play: %w", ErrNotFound)

	// Graph integrity
	ErrInvalidReference = errors.New("referenced page does not belong to the same story")

	// Traversal
	ErrUnknownPage     = fmt.Errorf("current page: %w", ErrNotFound)
	ErrInvalidChoice   = errors.New("choice is not available on the current page")
	ErrDiceNotRolled   = errors.New("this choice requires a dice roll")
	ErrDiceTooLow      = errors.New("dice roll is below the requirement")
	ErrInvalidDiceRoll = errors.New("dice roll must be between 1 and 6")
	ErrNoStartPage     = errors.New("story has no start page")
	ErrStorySuspended  = errors.New("story is suspended")
	ErrSessionMoved    = errors.New("play session has moved on or ended")

	// Identity & Authentication Errors
	ErrInvalidIdentity = errors.New("either a user or an anonymous session key is required")
	ErrUnauthorized    = errors.New("unauthorized") // Authentication required or failed
	ErrForbidden       = errors.New("forbidden")    // Authenticated, but lacks permission

	// Token Errors
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")

	// General Request Errors
	ErrInvalidInput = errors.New("invalid input data")
)

// Machine-readable codes returned in ErrorResponse.Code.
const (
	CodeNotFound         = "not_found"
	CodeInvalidReference = "invalid_reference"
	CodeInvalidChoice    = "invalid_choice"
	CodeDiceNotRolled    = "dice_not_rolled"
	CodeDiceTooLow       = "dice_too_low"
	CodeInvalidDiceRoll  = "invalid_dice_roll"
	CodeNoStartPage      = "no_start_page"
	CodeStorySuspended   = "story_suspended"
	CodeSessionMoved     = "session_moved"
	CodeBadRequest       = "bad_request"
	CodeUnauthorized     = "unauthorized"
	CodeForbidden        = "forbidden"
	CodeInternal         = "internal_error"
	CodeRateLimited      = "rate_limited"
)
