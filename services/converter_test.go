package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"vlmax-platform/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestToCSV(t *testing.T) {
	tests := []struct {
		name string
		html string
		want [][]string
	}{
		{
			name: "header and body rows",
			html: sampleTableHTML,
			want: [][]string{{"Name", "Qty"}, {"apple", "3"}},
		},
		{
			name: "three by three with tbody",
			html: `<table><thead><tr><th>a</th><th>b</th><th>c</th></tr></thead>
				<tbody><tr><td>1</td><td>2</td><td>3</td></tr><tr><td>4</td><td>5</td><td>6</td></tr></tbody></table>`,
			want: [][]string{{"a", "b", "c"}, {"1", "2", "3"}, {"4", "5", "6"}},
		},
		{
			name: "only first table is used",
			html: `<p>intro</p><table><tr><td>x</td></tr></table><table><tr><td>y</td></tr></table>`,
			want: [][]string{{"x"}},
		},
		{
			name: "row without cells",
			html: `<table><tr></tr><tr><td>only</td></tr></table>`,
			want: [][]string{{}, {"only"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := ToCSV(tt.html)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rows)
		})
	}
}

func TestToCSVWithoutTable(t *testing.T) {
	_, err := ToCSV("<p>The model did not return a table</p>")
	assert.True(t, errors.Is(err, models.ErrTableNotFound))
}

func TestConvertSanitizesMarkup(t *testing.T) {
	gen := &fakeGenerator{html: `<table><tr><td colspan="2">ok<script>alert(1)</script></td></tr></table>`}
	mc := NewMarkupConverter(gen, 0)

	html, err := mc.Convert(context.Background(), testImage(20, 10))
	require.NoError(t, err)

	assert.Equal(t, 1, gen.calls)
	assert.NotContains(t, html, "script")
	assert.Contains(t, html, `colspan="2"`)
	assert.Contains(t, html, "<td")
}

func TestConvertPropagatesModelError(t *testing.T) {
	gen := &fakeGenerator{err: models.ErrModelError}
	mc := NewMarkupConverter(gen, 1024)

	_, err := mc.Convert(context.Background(), testImage(5, 5))
	assert.ErrorIs(t, err, models.ErrModelError)
	assert.Equal(t, 1, gen.calls, "conversion must not retry")
}

func TestWriteCSVAndXLSX(t *testing.T) {
	dir := t.TempDir()
	rows := [][]string{{"Name", "Qty"}, {"apple, red", "3"}}

	csvPath := filepath.Join(dir, "t.csv")
	require.NoError(t, WriteCSV(rows, csvPath))
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "Name,Qty\n\"apple, red\",3\n", string(data))

	xlsxPath := filepath.Join(dir, "t.xlsx")
	require.NoError(t, WriteXLSX(rows, xlsxPath))

	f, err := excelize.OpenFile(xlsxPath)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(xlsxSheet)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}
