package utils

import (
	"reflect"
	"strings"
	"testing"
)

func TestValidateThreadData(t *testing.T) {
	tests := []struct {
		name  string
		title string
		text  string
		ok    bool
		msg   string
	}{
		{"valid", "Hi", "Hello world", true, ""},
		{"missing title", "  ", "Hello", false, "missing title"},
		{"missing text", "Hi", "", false, "missing text"},
		{"long title", strings.Repeat("t", 121), "Hello", false, "title too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, msg := ValidateThreadData(tt.title, tt.text)
			if ok != tt.ok || msg != tt.msg {
				t.Errorf("ValidateThreadData() = (%v, %q), want (%v, %q)", ok, msg, tt.ok, tt.msg)
			}
		})
	}
}

func TestValidateRating(t *testing.T) {
	if ok, _ := ValidateRating(nil); !ok {
		t.Error("nil rating should be accepted")
	}

	tests := []struct {
		rating float64
		want   bool
	}{
		{5, true},
		{1, true},
		{4.5, true},
		{0, false},
		{5.5, false},
	}
	for _, tt := range tests {
		r := tt.rating
		if ok, _ := ValidateRating(&r); ok != tt.want {
			t.Errorf("ValidateRating(%v) = %v, want %v", tt.rating, ok, tt.want)
		}
	}
}

func TestNormalizeKeywords(t *testing.T) {
	got := NormalizeKeywords([]string{" Art ", "art", "", "Video"})
	want := []string{"art", "video"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeKeywords() = %v, want %v", got, want)
	}
	if ParseKeywords("") != nil {
		t.Error("ParseKeywords(\"\") should be nil")
	}
	if got := ParseKeywords("x, y"); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Errorf("ParseKeywords() = %v", got)
	}
}

func TestToggle(t *testing.T) {
	likes, present := Toggle([]string{"a"}, "b")
	if !present || !reflect.DeepEqual(likes, []string{"a", "b"}) {
		t.Fatalf("add: got %v %v", likes, present)
	}
	likes, present = Toggle(likes, "b")
	if present || !reflect.DeepEqual(likes, []string{"a"}) {
		t.Fatalf("remove: got %v %v", likes, present)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("Truncate() = %q", got)
	}
	if got := Truncate("hello world", 5); got != "hello..." {
		t.Errorf("Truncate() = %q", got)
	}
}
