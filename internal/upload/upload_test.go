package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pageza/recipebox/internal/apperrors"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

type filePart struct {
	field, filename, contentType string
	body                         []byte
}

func buildForm(t *testing.T, parts ...filePart) *multipart.Form {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("name", "Pesto"))
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.filename+`"`)
		h.Set("Content-Type", p.contentType)
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write(p.body)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, "/", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))
	return req.MultipartForm
}

func fixedClock() time.Time {
	return time.UnixMilli(1700000000123)
}

func TestCheckFileType(t *testing.T) {
	tests := []struct {
		filename, mediaType string
		want                bool
	}{
		{"photo.jpg", "image/jpeg", true},
		{"photo.JPEG", "image/jpeg", true},
		{"photo.png", "image/png", true},
		{"photo.gif", "image/gif", true},
		{"photo.jpg", "image/jpg", true},
		{"photo.exe", "image/png", false},
		{"photo.exe", "application/octet-stream", false},
		{"photo.png", "text/plain", false},
		{"photo", "image/png", false},
		{"photo.webp", "image/webp", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CheckFileType(tt.filename, tt.mediaType), "%s %s", tt.filename, tt.mediaType)
	}
}

func TestGenerateFilename(t *testing.T) {
	assert.Equal(t, "recipeImage-1700000000123.PNG", GenerateFilename(FieldName, "Cake.PNG", fixedClock()))
}

func TestAcceptStoresOnDisk(t *testing.T) {
	dir := t.TempDir()
	a := NewAcceptor(NewDiskStorage(dir, "/uploads"), WithClock(fixedClock))

	img, err := a.Accept(context.Background(), buildForm(t, filePart{FieldName, "cake.png", "image/png", pngBytes}))
	require.NoError(t, err)
	require.NotNil(t, img)
	assert.Equal(t, "recipeImage-1700000000123.png", img.Filename)
	assert.Equal(t, "/uploads/recipeImage-1700000000123.png", img.Path)
	assert.Equal(t, "image/png", img.ContentType)

	stored, err := os.ReadFile(filepath.Join(dir, img.Filename))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, stored)
}

func TestAcceptWithoutFile(t *testing.T) {
	a := NewAcceptor(NewDiskStorage(t.TempDir(), "/uploads"))
	img, err := a.Accept(context.Background(), buildForm(t))
	assert.NoError(t, err)
	assert.Nil(t, img)

	img, err = a.Accept(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, img)
}

func TestAcceptRejections(t *testing.T) {
	big := append(append([]byte{}, pngBytes...), make([]byte, MaxFileSize)...)

	tests := []struct {
		name    string
		parts   []filePart
		message string
	}{
		{"executable", []filePart{{FieldName, "photo.exe", "image/png", pngBytes}}, MessageImagesOnly},
		{"wrong media type", []filePart{{FieldName, "photo.png", "application/pdf", pngBytes}}, MessageImagesOnly},
		{"content is not an image", []filePart{{FieldName, "photo.png", "image/png", []byte("#!/bin/sh\necho hi\n")}}, MessageImagesOnly},
		{"too large", []filePart{{FieldName, "photo.png", "image/png", big}}, MessageFileTooLarge},
		{"other field", []filePart{{"avatar", "photo.png", "image/png", pngBytes}}, MessageUnexpectedField},
		{"two files", []filePart{
			{FieldName, "a.png", "image/png", pngBytes},
			{FieldName, "b.png", "image/png", pngBytes},
		}, MessageUnexpectedField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			a := NewAcceptor(NewDiskStorage(dir, "/uploads"))

			img, err := a.Accept(context.Background(), buildForm(t, tt.parts...))
			require.Error(t, err)
			assert.Nil(t, img)

			var appErr *apperrors.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, apperrors.KindValidation, appErr.Kind)
			assert.Equal(t, tt.message, appErr.Message)

			entries, _ := os.ReadDir(dir)
			assert.Empty(t, entries)
		})
	}
}

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.PutObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.DeleteObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestS3Storage(t *testing.T) {
	client := new(mockS3)
	var input *s3.PutObjectInput
	client.On("PutObject", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { input = args.Get(1).(*s3.PutObjectInput) }).
		Return(&s3.PutObjectOutput{}, nil).Once()

	ref, err := NewS3Storage(client, "bucket").Save(context.Background(), "recipeImage-1.png", bytes.NewReader(pngBytes), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.s3.amazonaws.com/uploads/recipeImage-1.png", ref)
	client.AssertExpectations(t)

	require.NotNil(t, input)
	assert.Equal(t, "bucket", *input.Bucket)
	assert.Equal(t, "uploads/recipeImage-1.png", *input.Key)
	assert.Equal(t, "image/png", *input.ContentType)
	body, err := io.ReadAll(input.Body)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, body)
}

func TestS3StorageError(t *testing.T) {
	client := new(mockS3)
	client.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	_, err := NewS3Storage(client, "bucket").Save(context.Background(), "x.png", bytes.NewReader(pngBytes), "image/png")
	assert.ErrorContains(t, err, "access denied")
}

func TestS3StorageDelete(t *testing.T) {
	client := new(mockS3)
	client.On("DeleteObject", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return *in.Bucket == "bucket" && *in.Key == "uploads/recipeImage-1.png"
	})).Return(&s3.DeleteObjectOutput{}, nil).Once()

	require.NoError(t, NewS3Storage(client, "bucket").Delete(context.Background(), "recipeImage-1.png"))
	client.AssertExpectations(t)
}

func TestDiskStorageKeepsCollidingNames(t *testing.T) {
	dir := t.TempDir()
	storage := NewDiskStorage(dir, "/uploads")
	ctx := context.Background()

	first, err := storage.Save(ctx, "recipeImage-1.png", bytes.NewReader([]byte("one")), "image/png")
	require.NoError(t, err)
	second, err := storage.Save(ctx, "recipeImage-1.png", bytes.NewReader([]byte("two")), "image/png")
	require.NoError(t, err)

	assert.Equal(t, "/uploads/recipeImage-1.png", first)
	assert.Equal(t, "/uploads/recipeImage-1-1.png", second)

	data, err := os.ReadFile(filepath.Join(dir, "recipeImage-1.png"))
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
	data, err = os.ReadFile(filepath.Join(dir, "recipeImage-1-1.png"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestAcceptSameMillisecondUploads(t *testing.T) {
	a := NewAcceptor(NewDiskStorage(t.TempDir(), "/uploads"), WithClock(fixedClock))
	form := func() *multipart.Form { return buildForm(t, filePart{FieldName, "cake.png", "image/png", pngBytes}) }

	first, err := a.Accept(context.Background(), form())
	require.NoError(t, err)
	second, err := a.Accept(context.Background(), form())
	require.NoError(t, err)

	assert.Equal(t, "recipeImage-1700000000123.png", first.Filename)
	assert.Equal(t, "recipeImage-1700000000123-1.png", second.Filename)
	assert.Equal(t, "/uploads/recipeImage-1700000000123-1.png", second.Path)
}

func TestDiscardRemovesStoredImage(t *testing.T) {
	dir := t.TempDir()
	a := NewAcceptor(NewDiskStorage(dir, "/uploads"), WithClock(fixedClock))

	img, err := a.Accept(context.Background(), buildForm(t, filePart{FieldName, "cake.png", "image/png", pngBytes}))
	require.NoError(t, err)
	require.NoError(t, a.Discard(context.Background(), img))

	_, err = os.Stat(filepath.Join(dir, img.Filename))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	// Already gone and nil images are fine
	assert.NoError(t, a.Discard(context.Background(), img))
	assert.NoError(t, a.Discard(context.Background(), nil))
}
