package extractor

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/avelacruz/fintrack-api/internal/utils"
)

// ocrClient shells out to pdftoppm and tesseract. OCR is the last-resort tier
// for scanned/image-only statements and is by far the slowest step in the
// pipeline.
type ocrClient struct {
	pdftoppmBin  string
	tesseractBin string
	logger       *utils.Logger
}

func newOCRClient(pdftoppmBin, tesseractBin string, logger *utils.Logger) *ocrClient {
	return &ocrClient{
		pdftoppmBin:  pdftoppmBin,
		tesseractBin: tesseractBin,
		logger:       logger,
	}
}

// recognizePage rasterizes a single page (1-based) at 2x scale and runs
// tesseract over the image.
func (c *ocrClient) recognizePage(pdfPath string, pageNumber int) (string, error) {
	tmpDir, err := os.MkdirTemp("", "fintrack-ocr-")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	// 144 dpi = 2x the 72 dpi PDF user space, enough resolution for OCR
	prefix := filepath.Join(tmpDir, "page")
	raster := exec.Command(c.pdftoppmBin,
		"-png", "-r", "144",
		"-f", strconv.Itoa(pageNumber),
		"-l", strconv.Itoa(pageNumber),
		pdfPath, prefix,
	)
	if out, err := raster.CombinedOutput(); err != nil {
		return "", fmt.Errorf("pdftoppm failed: %w (%s)", err, bytes.TrimSpace(out))
	}

	// pdftoppm zero-pads page numbers depending on the document size
	images, err := filepath.Glob(prefix + "*.png")
	if err != nil || len(images) == 0 {
		return "", fmt.Errorf("no rasterized page produced for page %d", pageNumber)
	}

	var stdout, stderr bytes.Buffer
	// --psm 6: assume a uniform block of text
	recognize := exec.Command(c.tesseractBin, images[0], "stdout", "--psm", "6")
	recognize.Stdout = &stdout
	recognize.Stderr = &stderr
	if err := recognize.Run(); err != nil {
		return "", fmt.Errorf("tesseract failed: %w (%s)", err, bytes.TrimSpace(stderr.Bytes()))
	}

	return stdout.String(), nil
}
