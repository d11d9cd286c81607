package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{name: "table", input: "table", want: FormatTable},
		{name: "empty defaults to table", input: "", want: FormatTable},
		{name: "json", input: "json", want: FormatJSON},
		{name: "JSON uppercase", input: "JSON", want: FormatJSON},
		{name: "yaml", input: "yaml", want: FormatYAML},
		{name: "yml alias", input: "yml", want: FormatYAML},
		{name: "whitespace trimmed", input: "  table  ", want: FormatTable},
		{name: "invalid format", input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type cacheRow struct {
	ID       string `json:"id" yaml:"id"`
	Interval string `json:"interval" yaml:"interval"`
}

type cacheRows []cacheRow

func (c cacheRows) Headers() []string { return []string{"ID", "Interval"} }
func (c cacheRows) Rows() [][]string {
	rows := make([][]string, 0, len(c))
	for _, r := range c {
		rows = append(rows, []string{r.ID, r.Interval})
	}
	return rows
}

func TestPrinterPrint(t *testing.T) {
	data := cacheRows{{ID: "audit", Interval: "5s"}}

	tests := []struct {
		format Format
		want   string
	}{
		{FormatTable, "audit"},
		{FormatJSON, `"interval": "5s"`},
		{FormatYAML, "- id: audit"},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewPrinter(&buf, tt.format, false).Print(data))
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestPrinterTableFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatTable, false).Print(map[string]int{"pending": 3}))
	assert.Contains(t, buf.String(), `"pending": 3`)
}

func TestPrinterUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, NewPrinter(&buf, Format("xml"), false).Print(1))
}

func TestPrinterMessages(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter(&buf, FormatTable, false)

	printer.Success("created")
	printer.Warning("careful")
	printer.Error("failed")
	printer.Printf("%d caches\n", 2)

	assert.Equal(t, "created\ncareful\nfailed\n2 caches\n", buf.String())
}

func TestPrinterColor(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter(&buf, FormatTable, true)

	assert.True(t, printer.ColorEnabled())
	printer.Success("ok")
	assert.Equal(t, "\033[32mok\033[0m\n", buf.String())
}
