package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	"vlmax-platform/internal/ai"
	"vlmax-platform/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/xuri/excelize/v2"
	"golang.org/x/net/html/atom"
)

// DefaultMarkupTokens is the generation budget for one table.
const DefaultMarkupTokens = 1024

const xlsxSheet = "Table"

// MarkupConverter turns cropped table images into HTML and the HTML into
// rows for CSV/XLSX export.
type MarkupConverter struct {
	generator    ai.MarkupGenerator
	maxNewTokens int
	policy       *bluemonday.Policy
}

func NewMarkupConverter(generator ai.MarkupGenerator, maxNewTokens int) *MarkupConverter {
	if maxNewTokens <= 0 {
		maxNewTokens = DefaultMarkupTokens
	}
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("colspan", "rowspan").OnElements("td", "th")

	return &MarkupConverter{
		generator:    generator,
		maxNewTokens: maxNewTokens,
		policy:       policy,
	}
}

// Convert makes a single markup-generation call for the image. The returned
// HTML is sanitized; failures are not retried.
func (mc *MarkupConverter) Convert(ctx context.Context, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode table image: %w", err)
	}

	raw, err := mc.generator.GenerateMarkup(ctx, buf.Bytes(), mc.maxNewTokens)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(mc.policy.Sanitize(raw)), nil
}

// ToCSV extracts the first <table> of htmlText: one row per <tr>, one column
// per <td>/<th> child, cell text trimmed, in document order.
func ToCSV(htmlText string) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, models.ErrTableNotFound
	}

	rows := [][]string{}
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cols := []string{}
		tr.Children().Each(func(_ int, cell *goquery.Selection) {
			node := cell.Get(0)
			if node.DataAtom == atom.Td || node.DataAtom == atom.Th {
				cols = append(cols, strings.TrimSpace(cell.Text()))
			}
		})
		rows = append(rows, cols)
	})

	return rows, nil
}

func WriteCSV(rows [][]string, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv %s: %w", path, err)
	}
	return nil
}

func WriteXLSX(rows [][]string, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save xlsx %s: %w", path, err)
	}
	return nil
}
