package catalog

import (
	"testing"

	"grace-checkin-bot/pkg/store"
)

func testCatalog() *Catalog {
	return New(map[string]map[string]string{
		"G": {
			"G1": "Disfórica",
			"G2": "Incómoda",
			"G3": "Conectada",
			"G4": "Afirmada",
			"G5": "Eufórica",
		},
		"R": {
			"R2": "Tensa",
			"R1": "Aislada",
		},
	})
}

func TestOptionsStableOrder(t *testing.T) {
	c := testCatalog()

	options := c.Options("R")
	if len(options) != 2 {
		t.Fatalf("expected 2 options, got %d", len(options))
	}
	if options[0].Code != "R1" || options[1].Code != "R2" {
		t.Errorf("options not in code order: %v", options)
	}

	if got := c.Options("X"); len(got) != 0 {
		t.Errorf("unknown dimension should yield no options, got %v", got)
	}
}

func TestBitForCode(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantBit int
		wantOK  bool
	}{
		{"digit one is yin", "G1", 0, true},
		{"digit two is yin", "C2", 0, true},
		{"digit three has no polarity", "G3", 0, false},
		{"digit four is yang", "R4", 1, true},
		{"digit five is yang", "E5", 1, true},
		{"malformed code", "G", 0, false},
		{"out of range digit", "G9", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bit, ok := BitForCode(tt.code)
			if bit != tt.wantBit || ok != tt.wantOK {
				t.Errorf("BitForCode(%q) = (%d, %v), want (%d, %v)",
					tt.code, bit, ok, tt.wantBit, tt.wantOK)
			}
		})
	}
}

func TestIsNeutral(t *testing.T) {
	if !IsNeutral("A3") {
		t.Error("A3 should be neutral")
	}
	if IsNeutral("A4") {
		t.Error("A4 should not be neutral")
	}
	if IsNeutral("") {
		t.Error("empty code should not be neutral")
	}
}

func TestResolveAnswer(t *testing.T) {
	options := []store.Option{
		{Code: "G1", Label: "Disfórica"},
		{Code: "G2", Label: "Incómoda"},
		{Code: "G3", Label: "Conectada"},
	}

	tests := []struct {
		name     string
		input    string
		wantCode string
		wantOK   bool
	}{
		{"numeral picks positionally", "2", "G2", true},
		{"numeral with spaces", " 1 ", "G1", true},
		{"numeral out of range", "4", "", false},
		{"zero is out of range", "0", "", false},
		{"overflowing numeral", "99999999999999999999", "", false},
		{"wrapping numeral", "18446744073709551617", "", false},
		{"exact code", "G3", "G3", true},
		{"case-insensitive code", "g3", "G3", true},
		{"unknown code", "R1", "", false},
		{"free text", "me siento bien", "", false},
		{"empty input", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := ResolveAnswer(tt.input, options)
			if code != tt.wantCode || ok != tt.wantOK {
				t.Errorf("ResolveAnswer(%q) = (%q, %v), want (%q, %v)",
					tt.input, code, ok, tt.wantCode, tt.wantOK)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	c := testCatalog()
	if got := c.Label("G", "G3"); got != "Conectada" {
		t.Errorf("Label(G, G3) = %q, want Conectada", got)
	}
	if got := c.Label("G", "G9"); got != "" {
		t.Errorf("unknown code should have empty label, got %q", got)
	}
}
