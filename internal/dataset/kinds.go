package dataset

import (
	"strconv"
	"strings"
	"time"
)

// inferSchema assigns each column the kind all of its non-empty cells parse as.
// Mixed columns and columns with no values are text.
func inferSchema(t *Table) []Column {
	out := make([]Column, len(t.Columns))
	for j, name := range t.Columns {
		var num, dt, boolean, txt int
		for _, row := range t.Rows {
			v := strings.TrimSpace(row[j])
			if v == "" {
				continue
			}
			switch {
			case isBool(v):
				boolean++
			case isNumeric(v):
				num++
			case isTime(v):
				dt++
			default:
				txt++
			}
		}
		kind := KindText
		switch {
		case txt > 0:
			kind = KindText
		case boolean > 0 && num == 0 && dt == 0:
			kind = KindBoolean
		case num > 0 && dt == 0 && boolean == 0:
			kind = KindNumeric
		case dt > 0 && num == 0 && boolean == 0:
			kind = KindDatetime
		}
		out[j] = Column{Name: name, Kind: kind}
	}
	return out
}

func isBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false":
		return true
	}
	return false
}

// isNumeric accepts what the execution runtime parses as a number: plain
// decimals with '.' as separator, scientific notation, inf and nan.
func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func isTime(s string) bool {
	_, ok := parseTimeMaybe(s)
	return ok
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseNumeric is more forgiving than isNumeric: it strips percent signs and
// detects ',' decimal separators and thousands grouping. Used for profiling.
func parseNumeric(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "%", "")
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	dec := '.'
	cpos := strings.LastIndex(raw, ",")
	dpos := strings.LastIndex(raw, ".")
	if cpos >= 0 && (dpos < 0 || cpos > dpos) {
		dec = ','
	}
	for _, sep := range []rune{',', '.', ' '} {
		if sep != dec {
			raw = strings.ReplaceAll(raw, string(sep), "")
		}
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
