package validator

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestMinLength(t *testing.T) {
	cases := []struct {
		input string
		n     int
		want  bool
	}{
		{"Me quedé dormido por una emergencia familiar", 20, true},
		{"corto", 20, false},
		{"   " + "abcdefghijklmnopqrs" + "   ", 20, false},
		{strings.Repeat("ñ", 20), 20, true},
	}
	for _, c := range cases {
		if got := MinLength(c.input, c.n); got != c.want {
			t.Errorf("MinLength(%q, %d) = %v, want %v", c.input, c.n, got, c.want)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	valid := []string{"2023-01-01", "2000-12-31"}
	invalid := []string{"2023-13-01", "2023-01-32", "2023/01/01", "01-01-2023", ""}
	for _, s := range valid {
		_, ok := IsValidDate(s)
		if !ok {
			t.Errorf("IsValidDate(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		_, ok := IsValidDate(s)
		if ok {
			t.Errorf("IsValidDate(%q) = true, want false", s)
		}
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "justification", Message: "too short"},
		{Field: "comments", Message: "required"},
	}
	got := errs.Error()
	want := "justification: too short; comments: required"
	if got != want {
		t.Errorf("ValidationErrors.Error() = %q, want %q", got, want)
	}
}

func TestValidationErrors_Is(t *testing.T) {
	var err error = ValidationErrors{{Field: "comments", Message: "required"}}
	wrapped := fmt.Errorf("submit review: %w", err)
	if !errors.Is(wrapped, ErrValidation) {
		t.Errorf("errors.Is(wrapped, ErrValidation) = false, want true")
	}

	var got ValidationErrors
	if !errors.As(wrapped, &got) {
		t.Fatalf("errors.As did not find ValidationErrors")
	}
	if msg, ok := got.Field("comments"); !ok || msg != "required" {
		t.Errorf("Field(comments) = %q, %v", msg, ok)
	}
}

func TestValidationErrors_ToMap(t *testing.T) {
	errs := ValidationErrors{
		{Field: "justification", Message: "too short"},
		{Field: "comments", Message: "required"},
	}
	got := errs.ToMap()
	want := map[string]string{"justification": "too short", "comments": "required"}
	if len(got) != len(want) {
		t.Errorf("ValidationErrors.ToMap() length = %d, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("ValidationErrors.ToMap()[%q] = %q, want %q", k, got[k], v)
		}
	}

	back := FromMap(got)
	if len(back) != 2 {
		t.Errorf("FromMap length = %d, want 2", len(back))
	}
}
