// Package common holds infrastructure clients shared by the binaries.
package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Config contains the bucket and client settings for the image store.
// Unset client values fall back to the standard AWS config/credential chain.
type S3Config struct {
	Bucket string
	// Prefix is prepended to every key, e.g. "images/"
	Prefix string
	// Region to use for requests, e.g. "us-east-1". If empty, AWS defaults apply.
	Region string
	// Profile selects a named shared config/credentials profile.
	Profile string
	// UsePathStyle forces path-style addressing (useful for some S3-compatible providers).
	UsePathStyle bool
	// PublicBaseURL replaces the virtual-hosted bucket URL in returned links,
	// e.g. a CDN in front of the bucket.
	PublicBaseURL string
	// CacheControl is set on uploaded objects
	CacheControl string
}

// s3API is the part of the SDK client the store uses
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 stores publicly readable objects in one bucket
type S3 struct {
	client s3API
	cfg    S3Config
	region string
}

// NewS3 creates a store using the default AWS configuration chain,
// with optional overrides from S3Config.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	c := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3(c, cfg, awsCfg.Region), nil
}

func newS3(client s3API, cfg S3Config, region string) *S3 {
	if cfg.CacheControl == "" {
		cfg.CacheControl = "public, max-age=31536000"
	}
	return &S3{client: client, cfg: cfg, region: region}
}

// PutPublic uploads data under key with a public-read ACL and returns the URL
// readers should use.
func (s *S3) PutPublic(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	fullKey := s.cfg.Prefix + strings.TrimLeft(key, "/")
	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(fullKey),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		CacheControl:  aws.String(s.cfg.CacheControl),
		ACL:           s3types.ObjectCannedACLPublicRead,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", describe("put", fullKey, err)
	}
	return s.PublicURL(fullKey), nil
}

// PublicURL is the link for an already prefixed key
func (s *S3) PublicURL(fullKey string) string {
	escaped := (&url.URL{Path: fullKey}).EscapedPath()
	if s.cfg.PublicBaseURL != "" {
		return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + escaped
	}
	if s.cfg.UsePathStyle || s.region == "" {
		host := "s3.amazonaws.com"
		if s.region != "" {
			host = fmt.Sprintf("s3.%s.amazonaws.com", s.region)
		}
		return fmt.Sprintf("https://%s/%s/%s", host, s.cfg.Bucket, escaped)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.region, escaped)
}

func describe(op, key string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("s3 %s %s: %s: %w", op, key, apiErr.ErrorCode(), err)
	}
	return fmt.Errorf("s3 %s %s: %w", op, key, err)
}
