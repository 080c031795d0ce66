package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/nguyenthenguyen/docx"
	"go.uber.org/zap"
)

// Content under this length cannot produce a meaningful evaluation.
const minContentLength = 100

// ExtractionError reports a handle that could not be turned into text.
type ExtractionError struct {
	Handle string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract text from %s: %v", e.Handle, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Store resolves a document handle to its extracted UTF-8 text.
type Store interface {
	GetText(ctx context.Context, handle string) (string, error)
}

// FileStore treats handles as paths of previously uploaded files and
// extracts text by extension: PDF, DOCX or TXT.
type FileStore struct {
	logger *zap.Logger
}

func NewFileStore(logger *zap.Logger) *FileStore {
	return &FileStore{logger: logger}
}

func (s *FileStore) GetText(ctx context.Context, handle string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(handle)) {
	case ".pdf":
		text, err = extractPDF(handle)
	case ".docx":
		text, err = extractDocx(handle)
	case ".txt":
		text, err = extractTxt(handle)
	default:
		err = fmt.Errorf("unsupported file type %q", filepath.Ext(handle))
	}
	if err != nil {
		return "", &ExtractionError{Handle: handle, Err: err}
	}

	text = strings.TrimSpace(text)
	if len(text) < minContentLength {
		return "", &ExtractionError{Handle: handle, Err: fmt.Errorf("content too short for meaningful evaluation (%d chars)", len(text))}
	}

	s.logger.Debug("document text extracted",
		zap.String("handle", handle),
		zap.Int("chars", len(text)),
	)
	return text, nil
}

func extractPDF(path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	var builder strings.Builder
	for n := 0; n < doc.NumPage(); n++ {
		pageText, err := doc.Text(n)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", n+1, err)
		}
		builder.WriteString(pageText)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

var docxTagPattern = regexp.MustCompile(`<[^>]+>`)

func extractDocx(path string) (string, error) {
	reader, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer reader.Close()

	content := reader.Editable().GetContent()
	// Paragraph ends become newlines before the markup is stripped.
	content = strings.ReplaceAll(content, "</w:p>", "\n")
	return docxTagPattern.ReplaceAllString(content, ""), nil
}

func extractTxt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
