package fn

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestOkErr(t *testing.T) {
	ok := Ok(42)
	if !ok.IsOk() || ok.IsErr() {
		t.Fatal("Ok should be ok")
	}
	v, err := ok.Unwrap()
	if v != 42 || err != nil {
		t.Fatalf("unexpected unwrap: %d %v", v, err)
	}

	bad := Err[int](errors.New("boom"))
	if bad.IsOk() || !bad.IsErr() {
		t.Fatal("Err should be err")
	}
	if bad.UnwrapOr(7) != 7 {
		t.Fatal("UnwrapOr should return fallback")
	}
}

func TestErrf(t *testing.T) {
	r := Errf[string]("bad %s", "thing")
	_, err := r.Unwrap()
	if err == nil || err.Error() != "bad thing" {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestFromPair(t *testing.T) {
	if r := FromPair(1, nil); !r.IsOk() {
		t.Fatal("expected ok")
	}
	boom := errors.New("boom")
	r := FromPair(0, boom)
	if _, err := r.Unwrap(); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestErrNil(t *testing.T) {
	r := Err[int](nil)
	if r.IsOk() {
		t.Fatal("Err(nil) must still be a failure")
	}
	if _, err := r.Unwrap(); err == nil {
		t.Fatal("expected a placeholder error")
	}
}

func TestOkZeroValue(t *testing.T) {
	if r := Ok(""); !r.IsOk() {
		t.Fatal("zero value must still be ok")
	}
}

func TestThen(t *testing.T) {
	double := MapStage(func(v int) int { return v * 2 })
	str := MapStage(func(v int) string { return string(rune('a' + v)) })
	r := Then(double, str)(context.Background(), 1)
	if v, _ := r.Unwrap(); v != "c" {
		t.Fatalf("got %q", v)
	}
}

func TestThenShortCircuits(t *testing.T) {
	boom := errors.New("boom")
	fail := Stage[int, int](func(context.Context, int) Result[int] { return Err[int](boom) })
	called := false
	next := Stage[int, int](func(_ context.Context, v int) Result[int] {
		called = true
		return Ok(v)
	})
	r := Then(fail, next)(context.Background(), 1)
	if _, err := r.Unwrap(); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if called {
		t.Fatal("second stage should not run")
	}
}

func TestTracedStage(t *testing.T) {
	boom := errors.New("boom")
	s := TracedStage("fail", Stage[int, int](func(context.Context, int) Result[int] { return Err[int](boom) }))
	if _, err := s(context.Background(), 1).Unwrap(); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	ok := TracedStage("ok", MapStage(func(v int) int { return v + 1 }))
	if v, _ := ok(context.Background(), 1).Unwrap(); v != 2 {
		t.Fatalf("got %d", v)
	}
}

func TestTracedStageAttrs(t *testing.T) {
	var seen []int
	attrs := func(v int) []attribute.KeyValue {
		seen = append(seen, v)
		return []attribute.KeyValue{attribute.Int("input", v)}
	}
	s := TracedStage("attrs", MapStage(func(v int) int { return v * 2 }), attrs, attrs)
	if v, _ := s(context.Background(), 3).Unwrap(); v != 6 {
		t.Fatalf("got %d", v)
	}
	if len(seen) != 2 || seen[0] != 3 {
		t.Fatalf("attrs called with %v", seen)
	}
}

func TestMapFilter(t *testing.T) {
	got := Filter(Map([]int{1, 2, 3, 4}, func(v int) int { return v * 3 }), func(v int) bool { return v%2 == 0 })
	if len(got) != 2 || got[0] != 6 || got[1] != 12 {
		t.Fatalf("unexpected: %v", got)
	}
	if Filter([]int{1}, func(int) bool { return false }) != nil {
		t.Fatal("expected nil for no matches")
	}
}
