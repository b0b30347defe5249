// Package upload accepts recipe images from multipart forms.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/pageza/recipebox/internal/apperrors"
)

const (
	// FieldName is the only multipart field that may carry a file
	FieldName = "recipeImage"
	// MaxFileSize is the upload ceiling in bytes
	MaxFileSize int64 = 1000000

	MessageImagesOnly      = "Error: Images Only!"
	MessageFileTooLarge    = "File too large"
	MessageUnexpectedField = "Unexpected field"
)

var (
	allowedExtensions = map[string]bool{".jpeg": true, ".jpg": true, ".png": true, ".gif": true}
	allowedMediaTypes = map[string]bool{"image/jpeg": true, "image/jpg": true, "image/png": true, "image/gif": true}
	sniffedTypes      = []string{"image/jpeg", "image/png", "image/gif"}
)

// Image describes an accepted and stored upload
type Image struct {
	Filename    string
	Path        string
	Size        int64
	ContentType string
}

// Acceptor validates uploads and hands them to a Storage
type Acceptor struct {
	storage Storage
	now     func() time.Time
	maxSize int64
}

// Option configures an Acceptor
type Option func(*Acceptor)

// WithClock overrides the clock used for generated filenames
func WithClock(now func() time.Time) Option {
	return func(a *Acceptor) { a.now = now }
}

// NewAcceptor creates an Acceptor storing into storage
func NewAcceptor(storage Storage, opts ...Option) *Acceptor {
	a := &Acceptor{storage: storage, now: time.Now, maxSize: MaxFileSize}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CheckFileType reports whether both the extension of filename and the
// declared media type are on the image allow-list.
func CheckFileType(filename, mediaType string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(mediaType, ";", 2)[0]))
	return allowedExtensions[ext] && allowedMediaTypes[mediaType]
}

// GenerateFilename builds "<field>-<unix millis><original extension>"
func GenerateFilename(field, original string, at time.Time) string {
	return fmt.Sprintf("%s-%d%s", field, at.UnixMilli(), filepath.Ext(original))
}

// Accept validates the file in form and stores it. A form without files
// returns nil and no error.
func (a *Acceptor) Accept(ctx context.Context, form *multipart.Form) (*Image, error) {
	if form == nil || len(form.File) == 0 {
		return nil, nil
	}

	var header *multipart.FileHeader
	for field, files := range form.File {
		if field != FieldName || len(files) != 1 {
			return nil, apperrors.Validation(MessageUnexpectedField, fmt.Errorf("file field %q with %d files", field, len(files)))
		}
		header = files[0]
	}

	contentType := header.Header.Get("Content-Type")
	if !CheckFileType(header.Filename, contentType) {
		return nil, apperrors.Validation(MessageImagesOnly, fmt.Errorf("rejected %q as %q", header.Filename, contentType))
	}
	if header.Size > a.maxSize {
		return nil, apperrors.Validation(MessageFileTooLarge, fmt.Errorf("%d bytes", header.Size))
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, a.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > a.maxSize {
		return nil, apperrors.Validation(MessageFileTooLarge, fmt.Errorf("more than %d bytes", a.maxSize))
	}

	detected := mimetype.Detect(data)
	if !isImage(detected) {
		return nil, apperrors.Validation(MessageImagesOnly, fmt.Errorf("content sniffed as %s", detected.String()))
	}

	name := GenerateFilename(FieldName, header.Filename, a.now())
	ref, err := a.storage.Save(ctx, name, bytes.NewReader(data), detected.String())
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	return &Image{
		Filename:    path.Base(ref),
		Path:        ref,
		Size:        int64(len(data)),
		ContentType: detected.String(),
	}, nil
}

// Discard removes a stored image whose recipe was never saved
func (a *Acceptor) Discard(ctx context.Context, img *Image) error {
	if img == nil {
		return nil
	}
	return a.storage.Delete(ctx, img.Filename)
}

func isImage(m *mimetype.MIME) bool {
	for _, t := range sniffedTypes {
		if m.Is(t) {
			return true
		}
	}
	return false
}
