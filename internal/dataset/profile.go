package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ProfileOptions controls column profiling.
type ProfileOptions struct {
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// GroupBy computes per-group numeric means for the given column names.
	GroupBy []string
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// Outliers counts values with robust Z-score (MAD) above OutlierThreshold.
	Outliers         bool
	OutlierThreshold float64
}

// DefaultProfileOptions returns reasonable defaults.
func DefaultProfileOptions() ProfileOptions {
	return ProfileOptions{SampleRows: 5, Outliers: true, OutlierThreshold: 3.5}
}

// Profile is a markdown-friendly summary of a table.
type Profile struct {
	Name     string
	Rows     int
	Cols     []ColumnProfile
	Samples  [][]string
	Groups   []GroupSummary
	Corr     *CorrMatrix
	Warnings []string
}

// ColumnProfile captures the inferred kind and statistics of one column.
type ColumnProfile struct {
	Name    string
	Kind    string
	NonNull int
	Missing int
	Unique  int
	// numeric
	Min, Max, Mean, Std float64
	OutliersCount       int
	OutliersMaxAbsZ     float64
	OutlierThreshold    float64
	// text
	TopValues []CategoryCount
}

type CategoryCount struct {
	Value string
	Count int
}

// GroupSummary holds per-group numeric means.
type GroupSummary struct {
	Key   string
	Size  int
	Means map[string]float64
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64
}

// BuildProfile computes per-column statistics for t.
func BuildProfile(t *Table, opt ProfileOptions) *Profile {
	p := &Profile{Name: t.Name, Rows: len(t.Rows)}
	sampleRows := opt.SampleRows
	if sampleRows <= 0 {
		sampleRows = 5
	}
	for i := 0; i < len(t.Rows) && i < sampleRows; i++ {
		p.Samples = append(p.Samples, t.Rows[i])
	}

	numeric := make(map[int][]float64)
	for j, col := range t.schema {
		cp := ColumnProfile{Name: col.Name, Kind: col.Kind}
		cats := map[string]int{}
		var n int
		var mean, m2 float64
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, row := range t.Rows {
			v := strings.TrimSpace(row[j])
			if v == "" {
				cp.Missing++
				continue
			}
			cp.NonNull++
			cats[v]++
			if col.Kind != KindNumeric {
				continue
			}
			x, ok := parseNumeric(v)
			if !ok || math.IsNaN(x) {
				continue
			}
			numeric[j] = append(numeric[j], x)
			// Welford update
			n++
			lo = math.Min(lo, x)
			hi = math.Max(hi, x)
			delta := x - mean
			mean += delta / float64(n)
			m2 += delta * (x - mean)
		}
		cp.Unique = len(cats)
		if col.Kind == KindNumeric && n > 0 {
			cp.Min, cp.Max, cp.Mean = lo, hi, mean
			if n > 1 {
				cp.Std = math.Sqrt(m2 / float64(n-1))
			}
			if opt.Outliers && n >= 8 {
				cp.OutlierThreshold = opt.OutlierThreshold
				if cp.OutlierThreshold <= 0 {
					cp.OutlierThreshold = 3.5
				}
				cp.OutliersCount, cp.OutliersMaxAbsZ = robustOutliers(numeric[j], cp.OutlierThreshold)
			}
		} else {
			cp.TopValues = topValues(cats, 8)
		}
		p.Cols = append(p.Cols, cp)
	}

	if len(opt.GroupBy) > 0 {
		groups, missing := groupMeans(t, opt.GroupBy)
		p.Groups = groups
		for _, m := range missing {
			p.Warnings = append(p.Warnings, fmt.Sprintf("group-by column %q not found", m))
		}
	}
	if opt.Correlations {
		p.Corr = correlations(t)
	}
	return p
}

func robustOutliers(vals []float64, thr float64) (count int, maxAbsZ float64) {
	median, mad := medianMAD(vals)
	if mad == 0 {
		return 0, 0
	}
	for _, v := range vals {
		az := math.Abs(0.6745 * (v - median) / mad)
		if az > thr {
			count++
		}
		if az > maxAbsZ {
			maxAbsZ = az
		}
	}
	return count, maxAbsZ
}

func topValues(cats map[string]int, limit int) []CategoryCount {
	tops := make([]CategoryCount, 0, len(cats))
	for k, v := range cats {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > limit {
		tops = tops[:limit]
	}
	return tops
}

func groupMeans(t *Table, by []string) ([]GroupSummary, []string) {
	index := map[string]int{}
	for i, c := range t.Columns {
		index[strings.ToLower(c)] = i
	}
	var keys []int
	var missing []string
	for _, name := range by {
		idx, ok := index[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			missing = append(missing, name)
			continue
		}
		keys = append(keys, idx)
	}
	if len(keys) == 0 {
		return nil, missing
	}
	type acc struct {
		size int
		sum  map[string]float64
		cnt  map[string]int
	}
	groups := map[string]*acc{}
	for _, row := range t.Rows {
		parts := make([]string, 0, len(keys))
		for _, idx := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", t.Columns[idx], safeVal(strings.TrimSpace(row[idx]))))
		}
		key := strings.Join(parts, " | ")
		g := groups[key]
		if g == nil {
			g = &acc{sum: map[string]float64{}, cnt: map[string]int{}}
			groups[key] = g
		}
		g.size++
		for j, col := range t.schema {
			if col.Kind != KindNumeric {
				continue
			}
			if x, ok := parseNumeric(row[j]); ok && !math.IsNaN(x) {
				g.sum[col.Name] += x
				g.cnt[col.Name]++
			}
		}
	}
	out := make([]GroupSummary, 0, len(groups))
	for k, g := range groups {
		gs := GroupSummary{Key: k, Size: g.size, Means: map[string]float64{}}
		for name, c := range g.cnt {
			gs.Means[name] = g.sum[name] / float64(c)
		}
		out = append(out, gs)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size == out[j].Size {
			return out[i].Key < out[j].Key
		}
		return out[i].Size > out[j].Size
	})
	if len(out) > 20 {
		out = out[:20]
	}
	return out, missing
}

// correlations computes pairwise Pearson r over rows where both values are present.
func correlations(t *Table) *CorrMatrix {
	var idxs []int
	for j, c := range t.schema {
		if c.Kind == KindNumeric {
			idxs = append(idxs, j)
		}
	}
	if len(idxs) < 2 {
		return nil
	}
	n := len(idxs)
	m := &CorrMatrix{Columns: make([]string, n), Values: make([][]float64, n)}
	for a := range idxs {
		m.Columns[a] = t.Columns[idxs[a]]
		m.Values[a] = make([]float64, n)
		m.Values[a][a] = 1
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			var k, sx, sy, sxx, syy, sxy float64
			for _, row := range t.Rows {
				x, okx := parseNumeric(row[idxs[a]])
				y, oky := parseNumeric(row[idxs[b]])
				if !okx || !oky || math.IsNaN(x) || math.IsNaN(y) {
					continue
				}
				k++
				sx += x
				sy += y
				sxx += x * x
				syy += y * y
				sxy += x * y
			}
			var r float64
			if k >= 2 {
				if denom := math.Sqrt((k*sxx - sx*sx) * (k*syy - sy*sy)); denom != 0 {
					r = (k*sxy - sx*sy) / denom
				}
			}
			r = math.Max(-1, math.Min(1, r))
			if math.IsNaN(r) || math.IsInf(r, 0) {
				r = 0
			}
			m.Values[a][b], m.Values[b][a] = r, r
		}
	}
	return m
}

// Markdown renders a compact report suitable for prompts or standalone docs.
func (p *Profile) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if p.Name != "" {
		fmt.Fprintf(&b, "File: %s\n", p.Name)
	}
	fmt.Fprintf(&b, "Rows: %d\n", p.Rows)
	fmt.Fprintf(&b, "Columns: %d\n\n", len(p.Cols))

	b.WriteString("[SCHEMA]\n")
	for _, c := range p.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		fmt.Fprintf(&b, "- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, missPct)
		switch {
		case c.Kind == KindNumeric && c.NonNull > 0:
			fmt.Fprintf(&b, ": min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std)
			if c.OutlierThreshold > 0 {
				fmt.Fprintf(&b, "; outliers: %d above |z|>%.1f", c.OutliersCount, c.OutlierThreshold)
				if c.OutliersMaxAbsZ > 0 {
					fmt.Fprintf(&b, " (max |z|≈%.2f)", c.OutliersMaxAbsZ)
				}
			}
		case len(c.TopValues) > 0:
			b.WriteString(": top ")
			for i, kv := range c.TopValues {
				if i > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, "%s(%d)", safeVal(kv.Value), kv.Count)
			}
			if c.Unique > len(c.TopValues) {
				fmt.Fprintf(&b, "; unique=%d", c.Unique)
			}
		}
		b.WriteString("\n")
	}
	if len(p.Groups) > 0 {
		b.WriteString("\n[GROUP-BY SUMMARY]\n")
		for _, g := range p.Groups {
			fmt.Fprintf(&b, "- %s (n=%d)\n", g.Key, g.Size)
			keys := make([]string, 0, len(g.Means))
			for k := range g.Means {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			if len(keys) > 6 {
				keys = keys[:6]
			}
			for _, k := range keys {
				fmt.Fprintf(&b, "  • %s: mean %.4g\n", k, g.Means[k])
			}
		}
	}
	if p.Corr != nil {
		b.WriteString("\n[CORRELATIONS]\n")
		type pr struct {
			A, B string
			R    float64
		}
		var pairs []pr
		n := len(p.Corr.Columns)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				pairs = append(pairs, pr{A: p.Corr.Columns[i], B: p.Corr.Columns[j], R: p.Corr.Values[i][j]})
			}
		}
		sort.Slice(pairs, func(i, j int) bool {
			ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
			if ai == aj {
				return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
			}
			return ai > aj
		})
		if len(pairs) > 10 {
			pairs = pairs[:10]
		}
		for _, pp := range pairs {
			fmt.Fprintf(&b, "- %s ~ %s: r=%.3f\n", pp.A, pp.B, pp.R)
		}
	}
	if len(p.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n| ")
		for i, c := range p.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n|")
		for range p.Cols {
			b.WriteString(" --- |")
		}
		b.WriteString("\n")
		for _, row := range p.Samples {
			b.WriteString("| ")
			for i := range p.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	if len(p.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range p.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
