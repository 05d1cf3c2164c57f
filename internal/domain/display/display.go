// Package display maps domain values to presentational strings and CSS classes.
// All functions are pure and total: unknown or absent input yields a fallback.
package display

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/okian/vitaldash/internal/domain/model"
)

// Placeholder is rendered for any field without a value.
const Placeholder = "N/A"

// BMI categories.
const (
	BMIUnderweight = "Underweight"
	BMINormal      = "Normal"
	BMIOverweight  = "Overweight"
	BMIObese       = "Obese"
	BMIUnknown     = "Unknown"
)

const neutralText = "text-gray-600"

// BMICategory buckets a BMI by the 18.5 / 25 / 30 thresholds.
func BMICategory(bmi float64) string {
	switch {
	case math.IsNaN(bmi):
		return BMIUnknown
	case bmi < 18.5:
		return BMIUnderweight
	case bmi < 25:
		return BMINormal
	case bmi < 30:
		return BMIOverweight
	default:
		return BMIObese
	}
}

// BMIColor returns the text color class for a BMI.
func BMIColor(bmi float64) string {
	switch BMICategory(bmi) {
	case BMIUnderweight:
		return "text-yellow-600"
	case BMINormal:
		return "text-green-600"
	case BMIOverweight:
		return "text-orange-600"
	case BMIObese:
		return "text-red-600"
	default:
		return neutralText
	}
}

// BMICategoryOf is BMICategory for an optional value.
func BMICategoryOf(bmi *float64) string {
	if bmi == nil {
		return BMIUnknown
	}
	return BMICategory(*bmi)
}

// BMIColorOf is BMIColor for an optional value.
func BMIColorOf(bmi *float64) string {
	if bmi == nil {
		return neutralText
	}
	return BMIColor(*bmi)
}

// StatusColor returns badge classes for a policy status.
func StatusColor(status model.PolicyStatus) string {
	switch status {
	case model.PolicyStatusActive:
		return "bg-green-100 text-green-800"
	case model.PolicyStatusPending:
		return "bg-yellow-100 text-yellow-800"
	case model.PolicyStatusExpired:
		return "bg-red-100 text-red-800"
	default:
		return "bg-gray-100 text-gray-800"
	}
}

// RiskLevelColor returns the text color class for a risk level.
func RiskLevelColor(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "low":
		return "text-green-600"
	case "moderate", "medium":
		return "text-yellow-600"
	case "high", "very_high":
		return "text-red-600"
	default:
		return neutralText
	}
}

// Text returns s, or the placeholder when blank.
func Text(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}

// Number formats an optional number without trailing zeros.
func Number(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return Placeholder
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// Fixed1 formats an optional number with one decimal.
func Fixed1(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return Placeholder
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

// WithUnit formats an optional number followed by its unit.
func WithUnit(v *float64, unit string) string {
	n := Number(v)
	if n == Placeholder || unit == "" {
		return n
	}
	return n + " " + unit
}

// Percent formats an optional 0..100 score as a percentage.
func Percent(v *float64) string {
	n := Number(v)
	if n == Placeholder {
		return n
	}
	return n + "%"
}

// Fraction formats an optional 0..1 fraction as a percentage.
func Fraction(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return Placeholder
	}
	pct := math.Round(*v*1000) / 10
	return strconv.FormatFloat(pct, 'f', -1, 64) + "%"
}

// BarWidth clamps an optional score to a 0..100 CSS width.
func BarWidth(v *float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return 0
	}
	return math.Max(0, math.Min(100, *v))
}

// Money formats an amount with thousands separators.
func Money(v float64) string {
	if math.IsNaN(v) {
		return Placeholder
	}
	if v < 0 {
		return "-$" + humanize.Commaf(-v)
	}
	return "$" + humanize.Commaf(v)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ParseDate parses the date formats the API emits.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Date formats an API date as M/D/YYYY. Unparseable input is returned as is.
func Date(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	t, ok := ParseDate(s)
	if !ok {
		return s
	}
	return DateOf(t)
}

// DateOf formats a time as M/D/YYYY.
func DateOf(t time.Time) string {
	if t.IsZero() {
		return Placeholder
	}
	return t.Format("1/2/2006")
}

// HumanizeKey turns a snake_case key into title words: inpatient_care -> Inpatient Care.
func HumanizeKey(key string) string {
	parts := strings.Split(key, "_")
	words := parts[:0]
	for _, p := range parts {
		if p == "" {
			continue
		}
		words = append(words, strings.ToUpper(p[:1])+p[1:])
	}
	return strings.Join(words, " ")
}
