package settings

import (
	"errors"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestApplyPartialPatch(t *testing.T) {
	temperature := 0.1
	got, err := Default().Apply(Patch{Temperature: &temperature})
	if err != nil {
		t.Fatalf("Apply err: %v", err)
	}
	if got.Temperature != 0.1 {
		t.Fatalf("unexpected temperature: %v", got.Temperature)
	}
	if got.Model != DefaultModel || got.MaxTokens != DefaultMaxTokens || got.TopP != DefaultTopP {
		t.Fatalf("untouched fields changed: %+v", got)
	}
}

func TestApplyRejectsOutOfRange(t *testing.T) {
	cases := []Patch{
		{Temperature: ptr(1.5)},
		{Temperature: ptr(-0.1)},
		{TopP: ptr(0.0)},
		{TopP: ptr(1.2)},
		{MaxTokens: intPtr(0)},
		{MaxTokens: intPtr(100000)},
		{Model: strPtr("")},
	}

	for i, patch := range cases {
		if _, err := Default().Apply(patch); !errors.Is(err, ErrInvalid) {
			t.Fatalf("case %d: expected ErrInvalid, got %v", i, err)
		}
	}
}

func ptr(f float64) *float64  { return &f }
func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }
