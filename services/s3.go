package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wardrobeapi/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// R2Storage is a Cloudflare R2 bucket reached through the S3 API.
type R2Storage struct {
	Client          *s3.Client
	S3PresignClient *s3.PresignClient
	BucketName      string
	PublicBaseURL   string
	Expiration      time.Duration
}

func NewR2Storage(ctx context.Context, cfg config.StorageConfig) (*R2Storage, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	}
	r2Resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: endpoint,
		}, nil
	})
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithEndpointResolverWithOptions(r2Resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2AccessKeySecret, "")),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	expiration := cfg.PresignExpiration
	if expiration <= 0 {
		expiration = presignedURLExpiration
	}
	return &R2Storage{
		Client:          client,
		S3PresignClient: s3.NewPresignClient(client),
		BucketName:      cfg.Bucket,
		PublicBaseURL:   cfg.PublicBaseURL,
		Expiration:      expiration,
	}, nil
}

func (r *R2Storage) PresignUpload(ctx context.Context, key string, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(r.BucketName),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	request, err := r.S3PresignClient.PresignPutObject(ctx, input, s3.WithPresignExpires(r.Expiration))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload: %w", err)
	}
	return request.URL, nil
}

func (r *R2Storage) PresignRead(ctx context.Context, key string) (string, error) {
	request, err := r.S3PresignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.BucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(r.Expiration))
	if err != nil {
		return "", fmt.Errorf("failed to presign request: %w", err)
	}
	return request.URL, nil
}

func (r *R2Storage) Delete(ctx context.Context, key string) error {
	_, err := r.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.BucketName),
		Key:    aws.String(key),
	})
	return err
}

func (r *R2Storage) PublicURL(key string) string {
	if r.PublicBaseURL == "" {
		return ""
	}
	return strings.TrimRight(r.PublicBaseURL, "/") + "/" + key
}
