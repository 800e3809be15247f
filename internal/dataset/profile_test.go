package dataset

import (
	"math"
	"strings"
	"testing"
)

const profileCSV = "group,score,temp,label\n" +
	"A,10,20,alpha\n" +
	"A,11,22,alpha\n" +
	"A,9.5,19,beta\n" +
	"B,10.5,21,alpha\n" +
	"B,9.8,20,beta\n" +
	"B,10.2,21,alpha\n" +
	"A,8.8,18,gamma\n" +
	"B,9.7,20,beta\n" +
	"A,50,80,alpha\n" +
	"B,10.1,,gamma\n"

func loadProfileTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := Load("scores.csv", []byte(profileCSV), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return tbl
}

func TestBuildProfileNumericStats(t *testing.T) {
	p := BuildProfile(loadProfileTable(t), DefaultProfileOptions())
	if p.Rows != 10 || len(p.Cols) != 4 {
		t.Fatalf("unexpected shape rows=%d cols=%d", p.Rows, len(p.Cols))
	}
	score := p.Cols[1]
	if score.Kind != KindNumeric {
		t.Fatalf("score kind = %s", score.Kind)
	}
	if score.Min != 8.8 || score.Max != 50 {
		t.Fatalf("score min/max = %v/%v", score.Min, score.Max)
	}
	vals := []float64{10, 11, 9.5, 10.5, 9.8, 10.2, 8.8, 9.7, 50, 10.1}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	if math.Abs(score.Mean-sum/float64(len(vals))) > 1e-9 {
		t.Fatalf("score mean = %v", score.Mean)
	}
	if score.OutliersCount != 1 {
		t.Fatalf("expected one outlier in score, got %d", score.OutliersCount)
	}
	temp := p.Cols[2]
	if temp.Missing != 1 || temp.NonNull != 9 {
		t.Fatalf("temp missing/non-null = %d/%d", temp.Missing, temp.NonNull)
	}
	label := p.Cols[3]
	if label.Kind != KindText || len(label.TopValues) == 0 || label.TopValues[0].Value != "alpha" || label.TopValues[0].Count != 5 {
		t.Fatalf("label top values = %+v", label.TopValues)
	}
}

func TestBuildProfileCorrelationsAndGroups(t *testing.T) {
	opt := DefaultProfileOptions()
	opt.Correlations = true
	opt.GroupBy = []string{"Group", "missing"}
	p := BuildProfile(loadProfileTable(t), opt)
	if p.Corr == nil || len(p.Corr.Columns) != 2 {
		t.Fatalf("expected 2x2 correlation matrix, got %+v", p.Corr)
	}
	r := p.Corr.Values[0][1]
	if r < 0.9 || r > 1 || r != p.Corr.Values[1][0] {
		t.Fatalf("score~temp r = %v", r)
	}
	if len(p.Groups) != 2 || p.Groups[0].Size != 5 {
		t.Fatalf("unexpected groups: %+v", p.Groups)
	}
	if len(p.Warnings) != 1 || !strings.Contains(p.Warnings[0], "missing") {
		t.Fatalf("expected warning for unknown group column, got %v", p.Warnings)
	}
	md := p.Markdown()
	for _, want := range []string{"[DATASET SUMMARY]", "File: scores.csv", "[SCHEMA]", "[GROUP-BY SUMMARY]", "[CORRELATIONS]", "score ~ temp", "[HEAD AND SAMPLE ROWS]", "[NOTES]"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestParseNumericLocales(t *testing.T) {
	cases := map[string]float64{
		"1.000,5": 1000.5,
		"1,000.5": 1000.5,
		"0,25":    0.25,
		"12%":     12,
		"3e2":     300,
	}
	for in, want := range cases {
		got, ok := parseNumeric(in)
		if !ok || math.Abs(got-want) > 1e-9 {
			t.Fatalf("parseNumeric(%q) = %v,%v want %v", in, got, ok, want)
		}
	}
	if _, ok := parseNumeric("abc"); ok {
		t.Fatalf("expected non-numeric")
	}
}
