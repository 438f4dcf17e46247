package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	config "github.com/maheshrc27/crosspost/configs"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var ErrMediaStoreNotConfigured = errors.New("media store is not configured")

type MediaStore interface {
	// Upload stores the object and returns its public URL.
	Upload(ctx context.Context, owner string, data []byte, filename, contentType string) (string, error)
}

// objectPutter is the part of the S3 client the store needs.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type r2Service struct {
	bucket    string
	publicURL string
	client    objectPutter
}

// NewR2Service builds a Cloudflare R2 backed media store through the S3 API.
func NewR2Service(ctx context.Context, cfg config.R2) (MediaStore, error) {
	if cfg.AccountID == "" || cfg.BucketName == "" {
		return nil, ErrMediaStoreNotConfigured
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
	})

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.r2.cloudflarestorage.com/%s", cfg.AccountID, cfg.BucketName)
	}
	return newR2Service(cfg.BucketName, publicURL, client), nil
}

func newR2Service(bucket, publicURL string, client objectPutter) *r2Service {
	return &r2Service{bucket: bucket, publicURL: strings.TrimRight(publicURL, "/"), client: client}
}

func (r *r2Service) Upload(ctx context.Context, owner string, data []byte, filename, contentType string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	key := path.Join(owner, id+path.Ext(filename))
	input := &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}

	if _, err := r.client.PutObject(ctx, input); err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return r.publicURL + "/" + key, nil
}
