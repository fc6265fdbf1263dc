// Package uploads stores user-submitted files under unique paths.
package uploads

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"time"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/google/uuid"
)

// Save stores a file under "<kind>/YYYY/MM/<uuid8><ext>" and returns the
// storage path.
func Save(ctx context.Context, store storage.Store, kind, filename string, file io.Reader, contentType string) (string, error) {
	now := time.Now().UTC()
	ext := filepath.Ext(filename)
	uniqueName := fmt.Sprintf("%s%s", uuid.New().String()[:8], ext)
	path := fmt.Sprintf("%s/%04d/%02d/%s", kind, now.Year(), now.Month(), uniqueName)

	opts := &storage.PutOptions{
		ContentType: contentType,
	}
	if err := store.Put(ctx, path, file, opts); err != nil {
		return "", fmt.Errorf("failed to store %s upload: %w", kind, err)
	}

	return path, nil
}

// SaveHeader stores the file behind a multipart header. It returns an
// empty path when the header is nil or empty.
func SaveHeader(ctx context.Context, store storage.Store, kind string, header *multipart.FileHeader) (string, error) {
	if header == nil || header.Size == 0 {
		return "", nil
	}

	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s upload: %w", kind, err)
	}
	defer file.Close()

	return Save(ctx, store, kind, header.Filename, file, header.Header.Get("Content-Type"))
}
