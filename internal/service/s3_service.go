package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/filtrotek/storefront/internal/config"
	"github.com/filtrotek/storefront/internal/utils"
)

// MaxImageSize is the largest accepted upload.
const MaxImageSize = 5 << 20

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ObjectAPI is the part of the S3 client used for images.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// UploadedImage describes a stored image.
type UploadedImage struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// S3Service stores product, category and blog images in S3-compatible storage.
type S3Service struct {
	client        ObjectAPI
	bucket        string
	publicBaseURL string
}

// NewS3Client builds the SDK client. A custom endpoint switches to
// path-style addressing for MinIO and similar stores.
func NewS3Client(ctx context.Context, cfg *config.S3Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewS3Service creates the image store. A nil client disables uploads.
func NewS3Service(client ObjectAPI, cfg *config.S3Config) *S3Service {
	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" && cfg.Bucket != "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return &S3Service{client: client, bucket: cfg.Bucket, publicBaseURL: base}
}

// UploadImage validates the content and stores it under folder with a
// random name.
func (s *S3Service) UploadImage(ctx context.Context, folder string, r io.Reader) (*UploadedImage, error) {
	if s.client == nil || s.bucket == "" {
		return nil, utils.ErrStorageDisabled
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, &utils.ValidationError{Fields: map[string]string{"file": "el archivo está vacío"}}
	}
	if len(data) > MaxImageSize {
		return nil, &utils.ValidationError{Fields: map[string]string{"file": "la imagen excede 5 MB"}}
	}
	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, &utils.ValidationError{Fields: map[string]string{"file": "solo se permiten imágenes JPG, PNG, WEBP o GIF"}}
	}

	key := path.Join(cleanFolder(folder), uuid.NewString()+ext)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return nil, upstream("s3", err)
	}

	log.Info().Str("key", key).Int("size", len(data)).Msg("Image uploaded")
	return &UploadedImage{
		Key:         key,
		URL:         s.GetObjectURL(key),
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// DeleteImage removes an object previously returned by UploadImage.
func (s *S3Service) DeleteImage(ctx context.Context, key string) error {
	if s.client == nil || s.bucket == "" {
		return utils.ErrStorageDisabled
	}
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, "..") {
		return &utils.ValidationError{Fields: map[string]string{"key": "clave inválida"}}
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return upstream("s3", err)
	}
	log.Info().Str("key", key).Msg("Image deleted")
	return nil
}

// GetObjectURL returns the public URL for key.
func (s *S3Service) GetObjectURL(key string) string {
	return s.publicBaseURL + "/" + key
}

// cleanFolder keeps the folder to a single slug segment under images/.
func cleanFolder(folder string) string {
	f := utils.Slugify(folder)
	if f == "" {
		f = "general"
	}
	return "images/" + f
}
