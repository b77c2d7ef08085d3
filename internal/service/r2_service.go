package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
	cfg "github.com/maheshrc27/contentpilot/configs"
)

// R2Service hosts asset files on Cloudflare R2 so that the Graph API can
// fetch them by URL.
type R2Service struct {
	config cfg.R2

	once   sync.Once
	client *s3.Client
	err    error
}

func NewR2Service(c cfg.R2) *R2Service {
	return &R2Service{config: c}
}

func (r *R2Service) R2Client() (*s3.Client, error) {
	r.once.Do(func() {
		awsCfg, err := config.LoadDefaultConfig(context.TODO(),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r.config.AccessKey, r.config.SecretKey, "")),
			config.WithRegion("auto"),
		)
		if err != nil {
			slog.Info(err.Error())
			r.err = err
			return
		}
		r.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r.config.AccountID))
		})
	})
	return r.client, r.err
}

// UploadToR2 stores file under key.
func (r *R2Service) UploadToR2(ctx context.Context, key string, file []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(r.config.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file),
		ContentType: aws.String(contentType),
	}

	r2Client, err := r.R2Client()
	if err != nil {
		return err
	}

	if _, err := r2Client.PutObject(ctx, input); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// UploadFile uploads the file at path and returns its public URL. The content
// type is sniffed from the file bytes.
func (r *R2Service) UploadFile(ctx context.Context, key, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	contentType := "application/octet-stream"
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		contentType = kind.MIME.Value
	}

	if err := r.UploadToR2(ctx, key, data, contentType); err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}
	return r.PublicURL(key), nil
}

func (r *R2Service) PublicURL(key string) string {
	return strings.TrimRight(r.config.PublicURL, "/") + "/" + key
}
