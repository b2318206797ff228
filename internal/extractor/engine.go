package extractor

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/avelacruz/fintrack-api/internal/config"
	"github.com/avelacruz/fintrack-api/internal/utils"
)

// minViableTextLen is the minimum trimmed length for an extraction result to
// count as usable. Below this the cascade moves on to the next tier.
const minViableTextLen = 50

// Extra reliability scaling applied on top of textConfidence for the weaker
// tiers.
const (
	fallbackScale = 0.8
	ocrScale      = 0.6
)

// Engine extracts text from statement PDFs using a prioritized cascade of
// methods: structured text layer, content-stream fallback, then OCR.
type Engine struct {
	ocr    *ocrClient
	logger *utils.Logger
}

func NewEngine(cfg *config.Config, logger *utils.Logger) *Engine {
	return &Engine{
		ocr:    newOCRClient(cfg.PDFToPPMBin, cfg.TesseractBin, logger),
		logger: logger,
	}
}

// ExtractText extracts text from the whole document using the best available
// method. Returns the text and a confidence score in [0,1]. Extraction
// failure is reported as ("", 0.0), never as an error.
func (e *Engine) ExtractText(path string) (string, float64) {
	if _, err := os.Stat(path); err != nil {
		e.logger.Error("PDF not readable", "path", path, "error", err)
		return "", 0.0
	}

	type tier struct {
		method  Method
		extract func(string) (string, float64)
	}
	tiers := []tier{
		{MethodStructured, e.extractStructured},
		{MethodFallback, e.extractFallback},
		{MethodOCR, e.extractOCR},
	}

	for _, t := range tiers {
		text, confidence := t.extract(path)
		if len(strings.TrimSpace(text)) >= minViableTextLen {
			e.logger.Info("Extracted text",
				"method", string(t.method),
				"chars", len(text),
				"confidence", confidence)
			return text, confidence
		}
		e.logger.Warn("Extraction method returned insufficient text",
			"method", string(t.method), "chars", len(text))
	}

	e.logger.Error("All extraction methods failed", "path", path)
	return "", 0.0
}

// ExtractPageText extracts a single page (zero-based index), trying the
// structured layer then the content-stream fallback. OCR is reserved for
// whole-document last-resort use and is not attempted here.
func (e *Engine) ExtractPageText(path string, pageIndex int) (string, float64) {
	text := e.structuredPageText(path, pageIndex)
	if len(strings.TrimSpace(text)) >= minViableTextLen {
		return text, textConfidence(text, MethodStructured)
	}

	ctx, err := openContentContext(path)
	if err == nil && pageIndex < ctx.PageCount {
		text = contentStreamPageText(ctx, pageIndex+1)
		if len(strings.TrimSpace(text)) >= minViableTextLen {
			return text, textConfidence(text, MethodFallback) * fallbackScale
		}
	}

	e.logger.Warn("Could not extract text from page", "path", path, "page", pageIndex+1)
	return "", 0.0
}

// PageCount returns the document's page count, failing closed to 1 when the
// document is unreadable.
func (e *Engine) PageCount(path string) int {
	ctx, err := openContentContext(path)
	if err != nil {
		e.logger.Error("Failed to get page count", "path", path, "error", err)
		return 1
	}
	if ctx.PageCount < 1 {
		return 1
	}
	return ctx.PageCount
}

// extractStructured pulls the text layer of every page via the primary PDF
// library. The library can panic on malformed documents, so the whole pass is
// fenced with recover.
func (e *Engine) extractStructured(path string) (text string, confidence float64) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("Structured extraction panicked", "path", path, "panic", fmt.Sprint(r))
			text, confidence = "", 0.0
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		e.logger.Warn("Structured extraction failed to open PDF", "path", path, "error", err)
		return "", 0.0
	}
	defer f.Close()

	var parts []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil || pageText == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("--- PAGE %d ---\n%s\n", i, pageText))
	}

	full := strings.Join(parts, "\n")
	return full, textConfidence(full, MethodStructured)
}

func (e *Engine) structuredPageText(path string, pageIndex int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	if pageIndex >= reader.NumPage() {
		return ""
	}
	page := reader.Page(pageIndex + 1)
	if page.V.IsNull() {
		return ""
	}
	pageText, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return pageText
}

func (e *Engine) extractFallback(path string) (string, float64) {
	ctx, err := openContentContext(path)
	if err != nil {
		e.logger.Warn("Fallback extraction failed to open PDF", "path", path, "error", err)
		return "", 0.0
	}

	var parts []string
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		pageText := contentStreamPageText(ctx, pageNr)
		if pageText == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("--- PAGE %d ---\n%s\n", pageNr, pageText))
	}

	full := strings.Join(parts, "\n")
	return full, textConfidence(full, MethodFallback) * fallbackScale
}

func (e *Engine) extractOCR(path string) (string, float64) {
	total := e.PageCount(path)

	var parts []string
	for pageNr := 1; pageNr <= total; pageNr++ {
		pageText, err := e.ocr.recognizePage(path, pageNr)
		if err != nil {
			e.logger.Warn("OCR failed for page", "path", path, "page", pageNr, "error", err)
			continue
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("--- PAGE %d ---\n%s\n", pageNr, pageText))
	}

	full := strings.Join(parts, "\n")
	return full, textConfidence(full, MethodOCR) * ocrScale
}
