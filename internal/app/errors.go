package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrAmbiguousProject = errors.New("project id is required when more than one project exists")
	ErrInvalidSnapshot  = errors.New("invalid snapshot")
)

// NotFoundError reports a missing entity along with close id matches.
type NotFoundError struct {
	Kind        string
	ID          string
	Suggestions []string
}

// Error implements error.
func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s %q not found", e.Kind, e.ID)
	if len(e.Suggestions) > 0 {
		msg += " (did you mean " + strings.Join(e.Suggestions, ", ") + "?)"
	}
	return msg
}

// Unwrap lets errors.Is match ErrNotFound.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

const maxSuggestions = 3

// notFound builds a NotFoundError with fuzzy suggestions drawn from candidates.
func notFound(kind, id string, candidates []string) error {
	err := &NotFoundError{Kind: kind, ID: id}
	if strings.TrimSpace(id) == "" || len(candidates) == 0 {
		return err
	}
	for _, match := range fuzzy.Find(id, candidates) {
		err.Suggestions = append(err.Suggestions, match.Str)
		if len(err.Suggestions) == maxSuggestions {
			break
		}
	}
	return err
}
