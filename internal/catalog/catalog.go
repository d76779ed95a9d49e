// Package catalog holds the static GRACE state tables: per-dimension option
// lists loaded from config, and the code → polarity mapping.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"grace-checkin-bot/pkg/store"
)

// DimOrder is the fixed prompt sequence of the five identity dimensions.
var DimOrder = []string{"G", "R", "A", "C", "E"}

// StepNote is the free-text step appended after the dimensions.
const StepNote = "NOTE"

// SessionSteps is the full guided sequence. Reaching the end of this slice is
// the sole finalize trigger.
var SessionSteps = []string{"G", "R", "A", "C", "E", StepNote}

// DimEmoji decorates prompts per dimension.
var DimEmoji = map[string]string{
	"G": "⚧️",
	"R": "🤝",
	"A": "🧠",
	"C": "💪",
	"E": "🌌",
}

// DimDescriptions reminds the user what each dimension means.
var DimDescriptions = map[string]string{
	"G": "Género: cómo sientes tu identidad/expresión hoy",
	"R": "Relaciones: calidad de tus vínculos hoy",
	"A": "Aprendizaje cognitivo: claridad mental",
	"C": "Cuerpo: energía, tensión o desconexión",
	"E": "Experiencia personal: tono emocional/narrativo",
}

// Catalog is the read-only mapping from dimension to its ordered option list.
type Catalog struct {
	states map[string]map[string]string
}

// Load reads the states file (dimension → code → label).
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read states file: %w", err)
	}
	var states map[string]map[string]string
	if err := json.Unmarshal(raw, &states); err != nil {
		return nil, fmt.Errorf("parse states file: %w", err)
	}
	return New(states), nil
}

// New builds a catalog from an already-parsed states table.
func New(states map[string]map[string]string) *Catalog {
	return &Catalog{states: states}
}

// Options returns the dimension's option list in stable code order.
func (c *Catalog) Options(dim string) []store.Option {
	states := c.states[dim]
	codes := make([]string, 0, len(states))
	for code := range states {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	options := make([]store.Option, 0, len(codes))
	for _, code := range codes {
		options = append(options, store.Option{Code: code, Label: states[code]})
	}
	return options
}

// Label returns the human label for a selected code, or "" if unknown.
func (c *Catalog) Label(dim, code string) string {
	return c.states[dim][code]
}

// codeIndex extracts the 1-5 strength digit from a two-character code.
func codeIndex(code string) (int, bool) {
	if len(code) < 2 || code[1] < '1' || code[1] > '5' {
		return 0, false
	}
	return int(code[1] - '0'), true
}

// BitForCode resolves a code to its Yin/Yang polarity. Digit 3 (neutral) has
// no automatic polarity and must go through the collapse prompt, so ok is
// false for it.
func BitForCode(code string) (bit int, ok bool) {
	idx, valid := codeIndex(code)
	if !valid || idx == 3 {
		return 0, false
	}
	if idx > 3 {
		return 1, true
	}
	return 0, true
}

// IsNeutral reports whether a code needs the collapse sub-prompt.
func IsNeutral(code string) bool {
	idx, valid := codeIndex(code)
	return valid && idx == 3
}

// ResolveAnswer matches user input against the shown options: a 1-based
// numeral, or an exact case-insensitive code.
func ResolveAnswer(input string, options []store.Option) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", false
	}

	if isDigits(input) {
		idx, err := strconv.Atoi(input)
		if err == nil && idx >= 1 && idx <= len(options) {
			return options[idx-1].Code, true
		}
		return "", false
	}

	upper := strings.ToUpper(input)
	for _, opt := range options {
		if upper == opt.Code {
			return opt.Code, true
		}
	}
	return "", false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
