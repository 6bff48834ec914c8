package validation

import (
	"bytes"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// xlsxMagic is the ZIP local-file-header signature every xlsx starts with.
var xlsxMagic = []byte("PK\x03\x04")

var allowedExtensions = map[string]bool{
	".csv":  true,
	".xlsx": true,
}

// UploadValidator performs cheap pre-parse checks on an uploaded survey
// spreadsheet so obviously broken requests are rejected before the
// normalizer runs.
type UploadValidator struct {
	maxBytes int64
	logger   *slog.Logger
}

// NewUploadValidator creates an upload validator with a size ceiling.
func NewUploadValidator(maxBytes int64, logger *slog.Logger) *UploadValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadValidator{
		maxBytes: maxBytes,
		logger:   logger.With(slog.String("component", "upload_validator")),
	}
}

// Validate checks the filename and content of an upload. It accepts
// xlsx payloads (by magic number) and text CSV payloads; anything
// binary that is not a ZIP container is rejected.
func (v *UploadValidator) Validate(filename string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("uploaded file %q is empty", filename)
	}
	if v.maxBytes > 0 && int64(len(data)) > v.maxBytes {
		v.logger.Warn("upload exceeds size limit",
			slog.String("filename", filename),
			slog.Int("bytes", len(data)),
			slog.Int64("limit", v.maxBytes))
		return fmt.Errorf("uploaded file %q exceeds the %d byte limit", filename, v.maxBytes)
	}

	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" && !allowedExtensions[ext] {
		return fmt.Errorf("unsupported file extension %q (want .csv or .xlsx)", ext)
	}

	if bytes.HasPrefix(data, xlsxMagic) {
		return nil
	}

	// Not a ZIP container, so it must be text. A NUL byte in the first
	// window means some other binary format was uploaded.
	window := data
	if len(window) > 512 {
		window = window[:512]
	}
	if bytes.ContainsRune(window, 0) {
		return fmt.Errorf("uploaded file %q is neither a CSV nor an xlsx workbook", filename)
	}

	return nil
}
