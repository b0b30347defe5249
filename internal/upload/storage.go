package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// maxNameAttempts bounds the suffixes tried when a disk filename is taken
const maxNameAttempts = 100

// Storage persists an accepted upload and returns its public reference.
// Delete removes an object by the base name of that reference.
type Storage interface {
	Save(ctx context.Context, name string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, name string) error
}

// DiskStorage writes uploads into a directory served under URLPrefix
type DiskStorage struct {
	Dir       string
	URLPrefix string
}

// NewDiskStorage creates a DiskStorage
func NewDiskStorage(dir, urlPrefix string) *DiskStorage {
	return &DiskStorage{Dir: dir, URLPrefix: urlPrefix}
}

// Save never overwrites. A taken name gets a numeric suffix before its
// extension: recipeImage-<ms>-1.png, recipeImage-<ms>-2.png and so on.
func (d *DiskStorage) Save(ctx context.Context, name string, r io.Reader, contentType string) (string, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	f, stored, err := d.create(filepath.Base(name))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(filepath.Join(d.Dir, stored))
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path.Join(d.URLPrefix, stored), nil
}

func (d *DiskStorage) create(base string) (*os.File, string, error) {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	candidate := base
	for i := 1; i <= maxNameAttempts; i++ {
		f, err := os.OpenFile(filepath.Join(d.Dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("create upload file: %w", err)
		}
		candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
	}
	return nil, "", fmt.Errorf("create upload file: no free name for %q", base)
}

// Delete removes a stored file. A missing file is not an error.
func (d *DiskStorage) Delete(ctx context.Context, name string) error {
	err := os.Remove(filepath.Join(d.Dir, filepath.Base(name)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove upload file: %w", err)
	}
	return nil
}

// ObjectAPI is the part of the S3 client S3Storage needs
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage uploads into a bucket under the uploads/ prefix
type S3Storage struct {
	client ObjectAPI
	bucket string
}

// NewS3Storage creates an S3Storage
func NewS3Storage(client ObjectAPI, bucket string) *S3Storage {
	return &S3Storage{client: client, bucket: bucket}
}

func (s *S3Storage) key(name string) string {
	return "uploads/" + path.Base(name)
}

func (s *S3Storage) Save(ctx context.Context, name string, r io.Reader, contentType string) (string, error) {
	key := s.key(name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key), nil
}

func (s *S3Storage) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}
