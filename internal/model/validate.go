package model

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	DefaultWeight    = 1.0
	DefaultMinWeight = 0.5
	DefaultMaxWeight = 5.0
	DefaultCampColor = "#3b82f6"
)

// WeightBounds is the accepted inclusive range for keyword weights.
type WeightBounds struct {
	Min float64
	Max float64
}

// DefaultWeightBounds returns [0.5, 5.0].
func DefaultWeightBounds() WeightBounds {
	return WeightBounds{Min: DefaultMinWeight, Max: DefaultMaxWeight}
}

// NewKeyword validates input and returns a keyword ready to store.
// A zero weight means the default weight.
func NewKeyword(campID int64, term string, weight float64, sentiment string, b WeightBounds) (Keyword, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return Keyword{}, &ConfigError{Field: "term", Reason: "must not be empty"}
	}
	if weight == 0 {
		weight = DefaultWeight
	}
	if math.IsNaN(weight) || math.IsInf(weight, 0) || weight <= 0 {
		return Keyword{}, &ConfigError{Field: "weight", Reason: "must be a positive number"}
	}
	if weight < b.Min || weight > b.Max {
		return Keyword{}, &ConfigError{
			Field:  "weight",
			Reason: "must be within [" + formatFloat(b.Min) + ", " + formatFloat(b.Max) + "]",
		}
	}
	s, err := ParseExpected(sentiment)
	if err != nil {
		return Keyword{}, err
	}
	return Keyword{CampID: campID, Term: term, Weight: weight, Sentiment: s}, nil
}

var colorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// NewCamp validates input and fills the default color.
func NewCamp(name, description, color string) (Camp, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Camp{}, &ConfigError{Field: "name", Reason: "must not be empty"}
	}
	color = strings.TrimSpace(color)
	if color == "" {
		color = DefaultCampColor
	}
	if !colorRe.MatchString(color) {
		return Camp{}, &ConfigError{Field: "color", Reason: "must look like #rrggbb"}
	}
	return Camp{Name: name, Description: strings.TrimSpace(description), Color: color}, nil
}

// LessID is a total order over platform ids. All-digit ids come first, in
// numeric order (shorter wins, then lexical), followed by every other id in
// lexical order.
func LessID(a, b string) bool {
	da, db := isDigits(a), isDigits(b)
	switch {
	case da && db:
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	case da != db:
		return da
	}
	return a < b
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
