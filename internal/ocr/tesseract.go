package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"
)

// TesseractEngine wraps a persistent gosseract client. The client is
// created lazily on first use and reused across calls; after any
// recognition error it is torn down so the next call starts fresh.
type TesseractEngine struct {
	mu        sync.Mutex
	client    *gosseract.Client
	languages []string
	logger    *zap.Logger
}

// NewTesseractEngine creates an engine for the given languages
// (e.g. "kor+eng").
func NewTesseractEngine(languages string, logger *zap.Logger) *TesseractEngine {
	langs := strings.Split(languages, "+")
	if len(langs) == 0 || languages == "" {
		langs = []string{"eng"}
	}
	return &TesseractEngine{languages: langs, logger: logger}
}

// Recognize runs OCR over preprocessed image bytes.
func (e *TesseractEngine) Recognize(ctx context.Context, imageData []byte) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	client, err := e.getClient()
	if err != nil {
		return "", err
	}

	if err := client.SetImageFromBytes(imageData); err != nil {
		e.reset()
		return "", fmt.Errorf("failed to load image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		e.reset()
		return "", fmt.Errorf("recognition failed: %w", err)
	}
	return text, nil
}

func (e *TesseractEngine) getClient() (*gosseract.Client, error) {
	if e.client != nil {
		return e.client, nil
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(e.languages...); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to set languages: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	e.logger.Debug("Tesseract client initialized", zap.Strings("languages", e.languages))
	e.client = client
	return client, nil
}

// reset tears down the client so the next call recreates it.
func (e *TesseractEngine) reset() {
	if e.client != nil {
		_ = e.client.Close()
		e.client = nil
		e.logger.Debug("Tesseract client reset after error")
	}
}

// Close releases the underlying client.
func (e *TesseractEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}
