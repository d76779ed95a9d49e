package analysis

import (
	"math"
	"testing"
)

func testCircumplex() *Circumplex {
	return New(map[string]Point{
		"G3": {Valence: 0.5, Arousal: 0.5},
		"R2": {Valence: -0.5, Arousal: 0.7},
	})
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAnalyzeModulatesByBit(t *testing.T) {
	c := testCircumplex()

	// Yang amplifies the base point.
	yang := c.Analyze(map[string]string{"G": "G3"}, map[string]int{"G": 1})
	if !almostEqual(yang.Valence, 0.6) || !almostEqual(yang.Arousal, 0.6) {
		t.Errorf("yang modulation = (%f, %f), want (0.6, 0.6)", yang.Valence, yang.Arousal)
	}

	// Yin dampens it.
	yin := c.Analyze(map[string]string{"G": "G3"}, map[string]int{"G": 0})
	if !almostEqual(yin.Valence, 0.4) || !almostEqual(yin.Arousal, 0.4) {
		t.Errorf("yin modulation = (%f, %f), want (0.4, 0.4)", yin.Valence, yin.Arousal)
	}
}

func TestAnalyzeAveragesDimensions(t *testing.T) {
	c := testCircumplex()

	summary := c.Analyze(
		map[string]string{"G": "G3", "R": "R2"},
		map[string]int{"G": 1, "R": 0},
	)

	// (0.6 + -0.4) / 2 and (0.6 + 0.56) / 2
	if !almostEqual(summary.Valence, 0.1) {
		t.Errorf("valence = %f, want 0.1", summary.Valence)
	}
	if !almostEqual(summary.Arousal, 0.58) {
		t.Errorf("arousal = %f, want 0.58", summary.Arousal)
	}
	if summary.ValenceLabel != "Positiva" {
		t.Errorf("valence label = %q", summary.ValenceLabel)
	}
	if summary.ArousalLabel != "Alta" {
		t.Errorf("arousal label = %q", summary.ArousalLabel)
	}
}

func TestAnalyzeUnknownCodeFallsBack(t *testing.T) {
	c := testCircumplex()

	// Unknown code uses the neutral mid-arousal fallback {0.0, 0.5}, dampened
	// by the default yin bit.
	summary := c.Analyze(map[string]string{"E": "E9"}, map[string]int{})
	if !almostEqual(summary.Valence, 0.0) || !almostEqual(summary.Arousal, 0.4) {
		t.Errorf("fallback = (%f, %f), want (0.0, 0.4)", summary.Valence, summary.Arousal)
	}
}

func TestAnalyzeEmptyVector(t *testing.T) {
	c := testCircumplex()

	summary := c.Analyze(map[string]string{}, map[string]int{})
	if summary.GlobalState != "Sin datos suficientes." {
		t.Errorf("global state = %q", summary.GlobalState)
	}
}

func TestGlobalStateLabels(t *testing.T) {
	c := New(map[string]Point{
		"A": {Valence: 0.8, Arousal: 0.8},
		"B": {Valence: -0.8, Arousal: 0.2},
	})

	high := c.Analyze(map[string]string{"G": "A"}, map[string]int{"G": 1})
	if high.GlobalState != "Activación creativa con potencial de ansiedad si no se regula." {
		t.Errorf("high state = %q", high.GlobalState)
	}

	low := c.Analyze(map[string]string{"G": "B"}, map[string]int{"G": 0})
	if low.GlobalState != "Desgano reflexivo con baja energía." {
		t.Errorf("low state = %q", low.GlobalState)
	}
}
