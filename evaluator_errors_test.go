package uistate

import (
	"errors"
	"strings"
	"testing"
)

func TestEvaluationErrorMessage(t *testing.T) {
	inner := errors.New("boom")
	err := &EvaluationError{Engine: "expr", Expr: "count > 1", Store: "submit", Err: inner}
	message := err.Error()
	if !strings.Contains(message, "expr evaluator") || !strings.Contains(message, `expr="count > 1"`) {
		t.Fatalf("message = %q", message)
	}
	if !strings.Contains(message, "store=submit") {
		t.Fatalf("message must carry the store label: %q", message)
	}
	if !errors.Is(err, inner) {
		t.Fatalf("unwrap must reach the original error")
	}
}

func TestWrapEvaluationErrorFillsMissingFields(t *testing.T) {
	partial := &EvaluationError{Err: errors.New("boom")}
	wrapped := wrapEvaluationError("cel", "count", "settings", partial)

	var evalErr *EvaluationError
	if !errors.As(wrapped, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", wrapped)
	}
	if evalErr.Engine != "cel" || evalErr.Expr != "count" || evalErr.Store != "settings" {
		t.Fatalf("fields not filled: %+v", evalErr)
	}
}

func TestWrapEvaluationErrorPreservesExistingFields(t *testing.T) {
	original := &EvaluationError{Engine: "expr", Expr: "a", Store: "x", Err: errors.New("boom")}
	wrapped := wrapEvaluationError("cel", "b", "y", original)

	var evalErr *EvaluationError
	if !errors.As(wrapped, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", wrapped)
	}
	if evalErr.Engine != "expr" || evalErr.Expr != "a" || evalErr.Store != "x" {
		t.Fatalf("existing fields overwritten: %+v", evalErr)
	}
}

func TestWrapEvaluationErrorNil(t *testing.T) {
	if wrapEvaluationError("expr", "count", "submit", nil) != nil {
		t.Fatalf("nil error must stay nil")
	}
	if wrapEvaluatorError("expr", nil) != nil {
		t.Fatalf("nil error must stay nil")
	}
}

func TestWrapEvaluatorErrorKeepsPrefixedErrors(t *testing.T) {
	prefixed := errors.New("uistate: already labelled")
	if got := wrapEvaluatorError("expr", prefixed); got != prefixed {
		t.Fatalf("prefixed error must pass through, got %v", got)
	}
	plain := errors.New("boom")
	got := wrapEvaluatorError("expr", plain)
	if !strings.HasPrefix(got.Error(), "uistate: expr evaluator") {
		t.Fatalf("plain error must gain the evaluator prefix: %v", got)
	}
}
