package dataset

import (
	"strconv"
	"strings"
	"time"

	"github.com/csv-profiler/backend/internal/models"
)

// InferType classifies a raw column. A column is numeric when at least
// threshold of its non-missing values parse as floats, datetime when every
// non-missing value matches one of the layouts, boolean when every value is a
// recognised true/false token, otherwise categorical.
func InferType(col *Column, threshold float64, layouts []string) models.ColumnType {
	valid := 0
	numeric := 0
	boolean := 0
	for i, v := range col.Raw {
		if col.Missing[i] {
			continue
		}
		valid++
		if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			numeric++
		}
		if _, ok := ParseBool(v); ok {
			boolean++
		}
	}
	if valid == 0 {
		return models.ColumnCategorical
	}

	if float64(numeric)/float64(valid) >= threshold {
		return models.ColumnNumeric
	}

	if layout := DetectDateLayout(col, layouts); layout != "" {
		return models.ColumnDatetime
	}

	if boolean == valid {
		return models.ColumnBoolean
	}

	return models.ColumnCategorical
}

// DetectDateLayout returns the first layout that parses every non-missing
// value of the column, or "" when none does.
func DetectDateLayout(col *Column, layouts []string) string {
	for _, layout := range layouts {
		ok := true
		seen := false
		for i, v := range col.Raw {
			if col.Missing[i] {
				continue
			}
			seen = true
			if _, err := time.Parse(layout, strings.TrimSpace(v)); err != nil {
				ok = false
				break
			}
		}
		if ok && seen {
			return layout
		}
	}
	return ""
}

// ParseBool recognises common boolean tokens.
func ParseBool(v string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "yes", "y", "t":
		return true, true
	case "false", "no", "n", "f":
		return false, true
	}
	return false, false
}
