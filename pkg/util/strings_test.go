package util

import (
	"reflect"
	"testing"
)

func TestSplitSymbols(t *testing.T) {
	got := SplitSymbols(" aapl,MSFT,,msft , goog")
	want := []string{"AAPL", "MSFT", "GOOG"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if len(SplitSymbols("")) != 0 {
		t.Fatalf("expected empty")
	}
}

func TestParseIntDefault(t *testing.T) {
	if ParseIntDefault("", 7) != 7 {
		t.Fatalf("expected default on empty")
	}
	if ParseIntDefault("x", 7) != 7 {
		t.Fatalf("expected default on garbage")
	}
	if ParseIntDefault("42", 7) != 42 {
		t.Fatalf("expected parsed value")
	}
}
