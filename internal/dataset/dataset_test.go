package dataset

import (
	"bytes"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"
)

const sampleCSV = " age , income,city,active,joined\n" +
	"34,5200.5,Recife,true,2021-03-01\n" +
	"28,3100,São Paulo,false,2020-11-15\n" +
	"45,,Natal,true,2019-01-20\n" +
	"51,8800,\"Rio, RJ\",false,2022-06-30\n"

func TestLoadSchemaAndInfo(t *testing.T) {
	tbl, err := Load("people.csv", []byte(sampleCSV), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	info := tbl.Info()
	if info.RowCount != 4 || info.ColumnCount != 5 {
		t.Fatalf("unexpected shape: %+v", info)
	}
	wantNames := []string{"age", "income", "city", "active", "joined"}
	if !reflect.DeepEqual(info.ColumnNames, wantNames) {
		t.Fatalf("column names not trimmed: %v", info.ColumnNames)
	}
	want := []Column{
		{Name: "age", Kind: KindNumeric},
		{Name: "income", Kind: KindNumeric},
		{Name: "city", Kind: KindText},
		{Name: "active", Kind: KindBoolean},
		{Name: "joined", Kind: KindDatetime},
	}
	if got := tbl.Schema(); !reflect.DeepEqual(got, want) {
		t.Fatalf("schema mismatch:\n got %+v\nwant %+v", got, want)
	}
	if got := tbl.NumericColumns(); !reflect.DeepEqual(got, []string{"age", "income"}) {
		t.Fatalf("numeric columns: %v", got)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	inputs := map[string]string{
		"comma":     sampleCSV,
		"semicolon": "a;b;c\n1;2;x\n3;4;y\n",
		"tab":       "a\tb\n1\t2\n",
		"quoted":    "name,note\n\"Smith, J\",\"line1\nline2\"\n",
		"header":    "only,header\n",
		// a quoted empty cell in a single column table is a row, not a blank line
		"single empty field": "x\n1\n\"\"\n3\n",
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			tbl, err := Load(name, []byte(in), nil)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			snap, err := tbl.Snapshot()
			if err != nil {
				t.Fatalf("Snapshot: %v", err)
			}
			again, err := Load(name, snap, nil)
			if err != nil {
				t.Fatalf("reload snapshot: %v", err)
			}
			if !reflect.DeepEqual(tbl.Info(), again.Info()) {
				t.Fatalf("shape changed: %+v vs %+v", tbl.Info(), again.Info())
			}
			if !reflect.DeepEqual(tbl.Rows, again.Rows) {
				t.Fatalf("rows changed")
			}
		})
	}
}

func TestSnapshotKeepsEmptySingleFieldRows(t *testing.T) {
	tbl, err := Load("x.csv", []byte("x\n1\n\"\"\n3\n"), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.Info().RowCount != 3 {
		t.Fatalf("expected 3 rows, got %d", tbl.Info().RowCount)
	}
	snap, err := tbl.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if string(snap) != "x\n1\n\"\"\n3\n" {
		t.Fatalf("unexpected snapshot %q", snap)
	}
}

func TestDuplicateColumnsAfterTrim(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, nil))
	tbl, err := Load("dup.csv", []byte("x, x ,x.1,x\n1,2,3,4\n"), log)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"x", "x.1", "x.1.1", "x.2"}
	if !reflect.DeepEqual(tbl.Columns, want) {
		t.Fatalf("columns = %v, want %v", tbl.Columns, want)
	}
	if !strings.Contains(logs.String(), "duplicate column renamed") {
		t.Fatalf("expected warning, got %q", logs.String())
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load("empty.csv", nil, nil); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if _, err := Load("bad.csv", []byte("a,b\n1,2,3\n"), nil); err == nil {
		t.Fatalf("expected error for row wider than header")
	}
	if _, err := Load("quote.csv", []byte("a,b\n\"unterminated,2\n"), nil); err == nil {
		t.Fatalf("expected parse error for unterminated quote")
	}
}

func TestShortRowsArePadded(t *testing.T) {
	tbl, err := Load("short.csv", []byte("a,b,c\n1\n"), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tbl.Rows[0]) != 3 || tbl.Rows[0][2] != "" {
		t.Fatalf("row not padded: %q", tbl.Rows[0])
	}
}

func TestWelcome(t *testing.T) {
	tbl, err := Load("wide.csv", []byte("a,b,c,d,e,f\n1,2,3,4,5,6\n"), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	w := tbl.Welcome()
	for _, want := range []string{"wide.csv", "1 linhas", "6 colunas", "a, b, c, d, e..."} {
		if !strings.Contains(w, want) {
			t.Fatalf("welcome missing %q:\n%s", want, w)
		}
	}
	if strings.Contains(w, "f\n") {
		t.Fatalf("welcome should list only the first five columns:\n%s", w)
	}
}
