package uistate

import (
	"errors"
	"testing"
)

func TestEvaluateWithDefaultExprBackend(t *testing.T) {
	store := New(map[string]any{"count": 2}, WithName("submit"))
	response, err := store.Evaluate("count * 2")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !equalValues(response.Value, 4) {
		t.Fatalf("value = %v, want 4", response.Value)
	}
}

func TestEvaluateTypedRootBindsByJSONTag(t *testing.T) {
	store := New(submitPageState(), WithName("submit"))
	response, err := store.Evaluate(`settings.download_encoding.value`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if response.Value != "cart" {
		t.Fatalf("value = %v", response.Value)
	}
}

func TestEvaluateEmptyExpression(t *testing.T) {
	store := New(map[string]any{})
	if _, err := store.Evaluate(""); err == nil {
		t.Fatalf("empty expression must fail")
	}
}

func TestEvaluateWrapsEvaluationErrors(t *testing.T) {
	store := New(map[string]any{"count": 0}, WithName("submit"))
	_, err := store.Evaluate("count + ")
	if err == nil {
		t.Fatalf("malformed expression must fail")
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T: %v", err, err)
	}
	if evalErr.Store != "submit" {
		t.Fatalf("error must carry the store label: %+v", evalErr)
	}
}

func TestEvaluateCustomFunction(t *testing.T) {
	store := New(map[string]any{"count": 3},
		WithCustomFunction("double", func(args ...any) (any, error) {
			return args[0].(int) * 2, nil
		}),
	)
	response, err := store.Evaluate("double(count)")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !equalValues(response.Value, 6) {
		t.Fatalf("value = %v, want 6", response.Value)
	}
}

func TestEvaluateWithCELBackend(t *testing.T) {
	store := New(map[string]any{"count": int64(2)}, WithEvaluator(NewCELEvaluator()))
	response, err := store.Evaluate("count > 1")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if response.Value != true {
		t.Fatalf("value = %v, want true", response.Value)
	}
}

func TestSubscribeExprNotifiesOnDerivedChange(t *testing.T) {
	store := New(map[string]any{"count": 1}, WithName("submit"))
	var got []any
	unsubscribe, err := store.SubscribeExpr("count > 2", func(value any) {
		got = append(got, value)
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsubscribe()

	if err := store.SetField("count", 3); err != nil {
		t.Fatalf("set field: %v", err)
	}
	if err := store.SetField("count", 4); err != nil {
		t.Fatalf("set field: %v", err)
	}
	if err := store.SetField("count", 1); err != nil {
		t.Fatalf("set field: %v", err)
	}

	if len(got) != 2 || got[0] != true || got[1] != false {
		t.Fatalf("notifications = %v, want [true false]", got)
	}
}

func TestSubscribeExprErrorSuppressesNotification(t *testing.T) {
	var logged []EvaluatorLogEvent
	store := New(map[string]any{"count": 2},
		WithName("submit"),
		WithEvaluatorLogger(EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
			logged = append(logged, event)
		})),
	)

	fired := 0
	unsubscribe, err := store.SubscribeExpr("10 / count", func(any) { fired++ })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsubscribe()

	// Division by zero fails at evaluation time; the subscriber must not hear
	// about it.
	if err := store.SetField("count", 0); err != nil {
		t.Fatalf("set field: %v", err)
	}
	if fired != 0 {
		t.Fatalf("evaluation error must suppress the notification")
	}
	if len(logged) == 0 || logged[len(logged)-1].Err == nil {
		t.Fatalf("evaluation error must be logged, got %v", logged)
	}

	if err := store.SetField("count", 10); err != nil {
		t.Fatalf("set field: %v", err)
	}
	if fired != 1 {
		t.Fatalf("recovery must notify, fired = %d", fired)
	}
}

func TestSubscribeExprRejectsBadInput(t *testing.T) {
	store := New(map[string]any{})
	if _, err := store.SubscribeExpr("", func(any) {}); err == nil {
		t.Fatalf("empty expression must fail")
	}
	if _, err := store.SubscribeExpr("count", nil); err == nil {
		t.Fatalf("nil callback must fail")
	}
	if _, err := store.SubscribeExpr("count + ", func(any) {}); err == nil {
		t.Fatalf("malformed expression must fail at subscription time")
	}
}

func TestProgramCacheReusesCompiledPrograms(t *testing.T) {
	cache := NewMemoryProgramCache()
	store := New(map[string]any{"count": 1}, WithProgramCache(cache))

	if _, err := store.Evaluate("count + 1"); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if _, ok := cache.Get("count + 1"); !ok {
		t.Fatalf("program must land in the cache")
	}
	if _, err := store.Evaluate("count + 1"); err != nil {
		t.Fatalf("evaluate from cache: %v", err)
	}
}

func TestFunctionRegistry(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("Upper", func(args ...any) (any, error) {
		return args[0], nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("upper", func(args ...any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("duplicate registration must fail regardless of case")
	}
	if _, err := registry.Call("missing"); err == nil {
		t.Fatalf("unknown function must fail")
	}
	if names := registry.Names(); len(names) != 1 || names[0] != "upper" {
		t.Fatalf("names = %v", names)
	}
}
