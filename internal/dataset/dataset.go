package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// ErrEmpty is returned when the input holds no header row.
var ErrEmpty = errors.New("dataset is empty")

// Kind tags used in the schema.
const (
	KindNumeric  = "numeric"
	KindText     = "text"
	KindDatetime = "datetime"
	KindBoolean  = "boolean"
)

// Column pairs a normalized column name with its inferred kind.
type Column struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// Info is the shape metadata derived at load time.
type Info struct {
	RowCount    int      `json:"row_count"`
	ColumnCount int      `json:"column_count"`
	ColumnNames []string `json:"column_names"`
}

// Table is an in-memory row/column dataset. Cells are kept as raw strings;
// the schema records how each column is best interpreted.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
	schema  []Column
}

// Load parses raw delimited bytes into a Table. Column names are trimmed and
// collisions are resolved with ".N" suffixes in first-seen order.
func Load(name string, raw []byte, log *slog.Logger) (*Table, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(raw))
	r.Comma = sniffDelimiter(raw)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, renamed := normalizeHeader(header)
	for _, rn := range renamed {
		log.Warn("duplicate column renamed", "column", rn[0], "renamed_to", rn[1])
	}
	if len(cols) == 0 {
		return nil, ErrEmpty
	}

	t := &Table{Name: name, Columns: cols}
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		if len(rec) > len(cols) {
			return nil, fmt.Errorf("read row %d: expected %d fields, saw %d", line, len(cols), len(rec))
		}
		row := make([]string, len(cols))
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	t.schema = inferSchema(t)
	log.Debug("dataset loaded", "name", name, "rows", len(t.Rows), "columns", len(cols), "delimiter", string(r.Comma))
	return t, nil
}

// Schema returns the column kinds in column order.
func (t *Table) Schema() []Column {
	out := make([]Column, len(t.schema))
	copy(out, t.schema)
	return out
}

// Info returns row count, column count and column names.
func (t *Table) Info() Info {
	names := make([]string, len(t.Columns))
	copy(names, t.Columns)
	return Info{RowCount: len(t.Rows), ColumnCount: len(t.Columns), ColumnNames: names}
}

// NumericColumns lists the columns whose inferred kind is numeric.
func (t *Table) NumericColumns() []string {
	var out []string
	for _, c := range t.schema {
		if c.Kind == KindNumeric {
			out = append(out, c.Name)
		}
	}
	return out
}

// Snapshot serializes the table to comma separated text with a header row.
// Loading the snapshot again yields the same shape, column names and rows.
func (t *Table) Snapshot() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := writeRecord(w, &buf, t.Columns); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.Rows {
		if err := writeRecord(w, &buf, row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write rows: %w", err)
	}
	return buf.Bytes(), nil
}

// writeRecord writes one record. csv.Writer renders a record holding a
// single empty field as a blank line, which readers skip, so that record is
// written as a quoted empty string instead.
func writeRecord(w *csv.Writer, buf *bytes.Buffer, record []string) error {
	if len(record) == 1 && record[0] == "" {
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
		buf.WriteString("\"\"\n")
		return nil
	}
	return w.Write(record)
}

// Welcome renders the short summary shown after a file is loaded.
func (t *Table) Welcome() string {
	var b strings.Builder
	b.WriteString("**Arquivo carregado com sucesso!**\n\n")
	if t.Name != "" {
		fmt.Fprintf(&b, "**%s**\n", t.Name)
	}
	fmt.Fprintf(&b, "- %d linhas\n", len(t.Rows))
	fmt.Fprintf(&b, "- %d colunas\n", len(t.Columns))
	shown := t.Columns
	more := ""
	if len(shown) > 5 {
		shown = shown[:5]
		more = "..."
	}
	fmt.Fprintf(&b, "- Colunas: %s%s\n\n", strings.Join(shown, ", "), more)
	b.WriteString("Pergunte, explore e visualize seus dados de forma simples.\n")
	return b.String()
}

func normalizeHeader(header []string) ([]string, [][2]string) {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	var renamed [][2]string
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if n, dup := seen[name]; dup {
			candidate := name
			for {
				n++
				candidate = name + "." + strconv.Itoa(n)
				if _, taken := seen[candidate]; !taken {
					break
				}
			}
			seen[name] = n
			renamed = append(renamed, [2]string{name, candidate})
			name = candidate
		}
		seen[name] = 0
		out[i] = name
	}
	return out, renamed
}

// sniffDelimiter picks among ',', ';' and tab by counting them in the header line.
func sniffDelimiter(raw []byte) rune {
	line := raw
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		line = raw[:i]
	}
	best, bestN := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}
