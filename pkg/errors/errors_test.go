package errors

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
)

func TestNewEmptyDatasetError(t *testing.T) {
	err := NewEmptyDatasetError("FeatureEncoder.Fit", "training")

	want := "taxifare: FeatureEncoder.Fit: training dataset is empty"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	// ErrEmptyData として判定できること
	if !Is(err, ErrEmptyData) {
		t.Error("Expected Is(err, ErrEmptyData) to be true")
	}

	var emptyErr *EmptyDatasetError
	if !As(err, &emptyErr) {
		t.Fatal("Error should be castable to *EmptyDatasetError")
	}
	if emptyErr.Dataset != "training" {
		t.Errorf("Dataset = %q, want training", emptyErr.Dataset)
	}

	// スタックトレースの存在確認
	formatted := fmt.Sprintf("%+v", err)
	if !strings.Contains(formatted, "errors_test.go") {
		t.Error("Expected stack trace to contain test file name")
	}
}

func TestStructuredErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
		check   func(error) bool
	}{
		{
			name:    "schema mismatch",
			err:     NewSchemaMismatchError("CSVSource.Records", "vendor_id", "column missing from header"),
			wantMsg: "taxifare: CSVSource.Records: schema mismatch on field 'vendor_id': column missing from header",
			check: func(err error) bool {
				var target *SchemaMismatchError
				return As(err, &target) && target.Field == "vendor_id"
			},
		},
		{
			name:    "shape mismatch",
			err:     NewShapeMismatchError("Trainer.Fit", "labels", 10, 9),
			wantMsg: "taxifare: Trainer.Fit: shape mismatch in labels. Expected 10, got 9",
			check: func(err error) bool {
				var target *ShapeMismatchError
				return As(err, &target) && target.Expected == 10 && target.Got == 9
			},
		},
		{
			name:    "not fitted",
			err:     NewNotFittedError("FittedPipeline", "Apply"),
			wantMsg: "taxifare: FittedPipeline: this model is not fitted yet. Call Train() before using Apply()",
			check: func(err error) bool {
				var target *NotFittedError
				return As(err, &target)
			},
		},
		{
			name:    "validation",
			err:     NewValidationError("learning_rate", "must be in (0, 1]", -0.5),
			wantMsg: "taxifare: validation failed for parameter 'learning_rate': must be in (0, 1] (got: -0.5)",
			check: func(err error) bool {
				var target *ValidationError
				return As(err, &target) && target.ParamName == "learning_rate"
			},
		},
		{
			name:    "model error with cause",
			err:     NewModelError("pipeline.Load", "decode failed", fmt.Errorf("unexpected EOF")),
			wantMsg: "taxifare: pipeline.Load: decode failed: unexpected EOF",
			check: func(err error) bool {
				var target *ModelError
				return As(err, &target)
			},
		},
		{
			name:    "model error without cause",
			err:     NewModelError("store.Load", "not found", nil),
			wantMsg: "taxifare: store.Load: not found",
			check: func(err error) bool {
				var target *ModelError
				return As(err, &target)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", tt.err.Error(), tt.wantMsg)
			}
			if !tt.check(tt.err) {
				t.Errorf("type assertion failed for %T", tt.err)
			}
		})
	}
}

func TestWarn(t *testing.T) {
	var (
		mu       sync.Mutex
		received []error
	)
	SetWarningHandler(func(w error) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, w)
	})
	defer SetWarningHandler(func(error) {})

	Warn(NewUnknownCategoryWarning("vendor_id", "XYZ"))
	Warn(NewUndefinedMetricWarning("r_squared", "zero variance in labels", math.NaN()))

	if len(received) != 2 {
		t.Fatalf("expected 2 warnings, got %d", len(received))
	}
	if !strings.Contains(received[0].Error(), `category "XYZ" of field vendor_id`) {
		t.Errorf("unexpected warning message: %v", received[0])
	}

	// zerolog関数が設定されている場合はそちらが優先される
	var viaZerolog int
	SetZerologWarnFunc(func(error) { viaZerolog++ })
	defer SetZerologWarnFunc(nil)
	Warn(NewUnknownCategoryWarning("payment_type", "DIS"))
	if viaZerolog != 1 {
		t.Errorf("expected zerolog warn func to be used once, got %d", viaZerolog)
	}
	if len(received) != 2 {
		t.Errorf("fallback handler should not be called, got %d warnings", len(received))
	}
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrapf(ErrZeroVariance, "in %s", "R2Score")

	if !Is(wrapped, ErrZeroVariance) {
		t.Error("Expected Is(wrapped, ErrZeroVariance) to be true")
	}
	if !strings.Contains(wrapped.Error(), "in R2Score") {
		t.Error("Expected wrapped error to contain wrapping message")
	}
}

func TestCheckNumericalStability(t *testing.T) {
	if err := CheckNumericalStability("predict", []float64{1, 2, 3}, 0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := CheckNumericalStability("predict", []float64{1, math.NaN(), 3}, 4)
	var numErr *NumericalInstabilityError
	if !As(err, &numErr) {
		t.Fatalf("expected NumericalInstabilityError, got %v", err)
	}
	if numErr.Iteration != 4 {
		t.Errorf("Iteration = %d, want 4", numErr.Iteration)
	}

	if err := CheckScalar("apply", math.Inf(1), 0); err == nil {
		t.Error("expected error for +Inf")
	}
	if !IsFinite(4.375) || IsFinite(math.NaN()) {
		t.Error("IsFinite returned wrong result")
	}
}
