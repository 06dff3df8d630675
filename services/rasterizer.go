package services

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"vlmax-platform/internal/logger"
	"vlmax-platform/models"
	"vlmax-platform/utils"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const (
	DefaultRenderDPI   = 200
	DefaultMaxPDFPages = 200
)

// PageVisitor receives each page image with its 1-based page number.
type PageVisitor func(pageNumber int, page image.Image) error

// PageSource yields the page images of an input document.
type PageSource interface {
	Pages(ctx context.Context, path string, visit PageVisitor) (int, error)
}

// DocumentSource renders PDFs page by page and treats a PNG/JPEG as a
// single page.
type DocumentSource struct {
	dpi      float64
	maxPages int
}

func NewDocumentSource(dpi float64, maxPages int) *DocumentSource {
	if dpi <= 0 {
		dpi = DefaultRenderDPI
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPDFPages
	}
	return &DocumentSource{dpi: dpi, maxPages: maxPages}
}

func (s *DocumentSource) Pages(ctx context.Context, path string, visit PageVisitor) (int, error) {
	switch {
	case utils.IsPDF(path):
		return s.pdfPages(ctx, path, visit)
	case utils.IsSupportedImage(path):
		img, err := decodeImage(path)
		if err != nil {
			return 0, err
		}
		return 1, visit(1, img)
	default:
		return 0, fmt.Errorf("%s: %w", path, models.ErrUnsupportedFormat)
	}
}

func (s *DocumentSource) pdfPages(ctx context.Context, path string, visit PageVisitor) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, conf); err != nil {
		return 0, fmt.Errorf("invalid pdf %s: %w", path, err)
	}

	count, err := pdfPageCount(path)
	if err != nil {
		return 0, err
	}
	if count > s.maxPages {
		return 0, fmt.Errorf("pdf has %d pages, limit is %d", count, s.maxPages)
	}

	doc, err := fitz.New(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	defer doc.Close()

	logger.Info("Rendering pdf", "path", path, "pages", doc.NumPage(), "dpi", s.dpi)

	rendered := 0
	for n := 0; n < doc.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return rendered, err
		}
		img, err := doc.ImageDPI(n, s.dpi)
		if err != nil {
			return rendered, fmt.Errorf("failed to render page %d: %w", n+1, err)
		}
		rendered++
		if err := visit(n+1, img); err != nil {
			return rendered, err
		}
	}
	return rendered, nil
}

func pdfPageCount(path string) (int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read pdf %s: %w", path, err)
	}
	defer f.Close()
	return r.NumPage(), nil
}

func decodeImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}
