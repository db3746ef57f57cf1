package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRecover(t *testing.T) {
	testCases := []struct {
		name       string
		panicValue interface{}
		wantMsg    string
	}{
		{name: "string", panicValue: "index out of range", wantMsg: "panic in Train: index out of range"},
		{name: "error", panicValue: errors.New("nil tree"), wantMsg: "panic in Train: nil tree"},
		{name: "int", panicValue: 42, wantMsg: "panic in Train: 42"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := SafeExecute("Train", func() error {
				panic(tc.panicValue)
			})

			var panicErr *PanicError
			if !errors.As(err, &panicErr) {
				t.Fatalf("Expected PanicError, got %T", err)
			}
			if panicErr.Error() != tc.wantMsg {
				t.Errorf("Error() = %q, want %q", panicErr.Error(), tc.wantMsg)
			}
			if panicErr.StackTrace == "" {
				t.Error("Expected non-empty stack trace")
			}
		})
	}
}

func TestRecover_UnwrapsErrorPanic(t *testing.T) {
	cause := errors.New("matrix dimension error")
	err := SafeExecute("Fit", func() error { panic(cause) })

	if !errors.Is(err, cause) {
		t.Error("expected panic error to unwrap to the panicked error")
	}
}

func TestRecover_WithoutPanic(t *testing.T) {
	err := SafeExecute("Fit", func() error { return nil })
	if err != nil {
		t.Fatalf("Expected no error when no panic occurs, got: %v", err)
	}

	want := fmt.Errorf("plain failure")
	if got := SafeExecute("Fit", func() error { return want }); got != want {
		t.Errorf("expected original error to pass through, got %v", got)
	}
}

func TestRecover_WithExistingError(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "Evaluate")
		err = fmt.Errorf("original error")
		panic("panic after error")
	}

	err := testFunc()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("expected wrapped PanicError, got %T", err)
	}
	if !strings.Contains(err.Error(), "original error") {
		t.Errorf("error should mention the original error: %s", err.Error())
	}
}
