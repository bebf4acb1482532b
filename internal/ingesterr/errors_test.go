package ingesterr

import (
	"errors"
	"testing"
)

func TestClassifyPassesThroughKnownErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"invalid input", NewInvalidInput("bad url"), CodeInvalidInput},
		{"not found", NewResourceNotFound("no such channel"), CodeResourceNotFound},
		{"quota exceeded", NewQuotaExceeded("quota exceeded"), CodeQuotaExceeded},
		{"api config", NewApiConfigError("missing key"), CodeAPIConfigError},
		{"service unavailable", NewServiceUnavailable("circuit open"), CodeServiceUnavailable},
		{"timeout", NewTimeout("deadline exceeded"), CodeTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			resp := ToResponse(got)
			if resp.Code != tt.want {
				t.Errorf("Classify(%v).Code = %v, want %v", tt.err, resp.Code, tt.want)
			}
		})
	}
}

func TestClassifyWrapsUnknownErrors(t *testing.T) {
	err := errors.New("boom")
	got := Classify(err)

	var internal *InternalError
	if !errors.As(got, &internal) {
		t.Fatalf("Classify(unknown) = %T, want *InternalError", got)
	}
	if !errors.Is(got, err) {
		t.Errorf("Classify(unknown) does not unwrap to original error")
	}
}

func TestClassifyNilIsNil(t *testing.T) {
	if Classify(nil) != nil {
		t.Errorf("Classify(nil) should be nil")
	}
}

func TestQuotaExceededRetryAfter(t *testing.T) {
	resp := ToResponse(NewQuotaExceeded("quota exceeded"))
	if resp.RetryAfter == nil || *resp.RetryAfter <= 0 {
		t.Errorf("expected a positive RetryAfter for quota exceeded, got %v", resp.RetryAfter)
	}
}
