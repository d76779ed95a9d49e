// Package analysis interprets a resolved GRACE vector against the circumplex
// valence/arousal lookup table. The table is plain config data; nothing here
// models emotion, it only averages and labels what the table says.
package analysis

import (
	"encoding/json"
	"fmt"
	"os"
)

// Point is the base valence/arousal pair configured for one state code.
type Point struct {
	Valence float64 `json:"valence"`
	Arousal float64 `json:"arousal"`
}

// Summary is the interpreted result for a full vector.
type Summary struct {
	Valence      float64
	Arousal      float64
	ValenceLabel string
	ArousalLabel string
	GlobalState  string
}

// Circumplex is the read-only code → point mapping.
type Circumplex struct {
	mapping map[string]Point
}

// Load reads the circumplex map file (code → {valence, arousal}).
func Load(path string) (*Circumplex, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read circumplex map: %w", err)
	}
	var mapping map[string]Point
	if err := json.Unmarshal(raw, &mapping); err != nil {
		return nil, fmt.Errorf("parse circumplex map: %w", err)
	}
	return New(mapping), nil
}

// New builds a Circumplex from an already-parsed mapping.
func New(mapping map[string]Point) *Circumplex {
	return &Circumplex{mapping: mapping}
}

// modulate adjusts a base point by the Yin/Yang bit: Yang amplifies (×1.2),
// Yin dampens (×0.8).
func modulate(p Point, bit int) Point {
	factor := 0.8
	if bit == 1 {
		factor = 1.2
	}
	return Point{Valence: p.Valence * factor, Arousal: p.Arousal * factor}
}

// Analyze averages the modulated points of every answered dimension and
// labels the result. Codes missing from the table fall back to a neutral
// mid-arousal point, matching the original behavior.
func (c *Circumplex) Analyze(answers map[string]string, bits map[string]int) Summary {
	var valenceSum, arousalSum float64
	count := 0

	for dim, code := range answers {
		base, ok := c.mapping[code]
		if !ok {
			base = Point{Valence: 0.0, Arousal: 0.5}
		}
		mod := modulate(base, bits[dim])
		valenceSum += mod.Valence
		arousalSum += mod.Arousal
		count++
	}

	if count == 0 {
		return Summary{
			ValenceLabel: "Negativa",
			ArousalLabel: "Baja",
			GlobalState:  "Sin datos suficientes.",
		}
	}

	summary := Summary{
		Valence: valenceSum / float64(count),
		Arousal: arousalSum / float64(count),
	}

	if summary.Valence >= 0 {
		summary.ValenceLabel = "Positiva"
	} else {
		summary.ValenceLabel = "Negativa"
	}
	if summary.Arousal >= 0.5 {
		summary.ArousalLabel = "Alta"
	} else {
		summary.ArousalLabel = "Baja"
	}

	switch {
	case summary.Valence > 0 && summary.Arousal > 0.5:
		summary.GlobalState = "Activación creativa con potencial de ansiedad si no se regula."
	case summary.Valence < 0 && summary.Arousal < 0.5:
		summary.GlobalState = "Desgano reflexivo con baja energía."
	default:
		summary.GlobalState = "Equilibrio emocional moderado."
	}

	return summary
}
