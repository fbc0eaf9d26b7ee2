package ocr

import "context"

// Engine recognizes text from image bytes. Implementations may keep
// expensive state between calls; Close releases it.
type Engine interface {
	Recognize(ctx context.Context, imageData []byte) (string, error)
	Close() error
}
