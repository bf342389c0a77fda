// Package attachments uploads sub-item files to S3-compatible object
// storage and deletes them again.
package attachments

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/trialdraft/internal/client/models"
	"github.com/google/uuid"
)

type Store interface {
	Upload(ctx context.Context, name string, body io.Reader, contentType string) (models.Attachment, error)
	// Delete removes the object behind rawURL. Use ClassifyDeleteError on
	// the result.
	Delete(ctx context.Context, rawURL string) error
}

// s3API is the part of *s3.Client used by S3Store.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// PublicBaseURL prefixes object keys in returned URLs. Defaults to
	// Endpoint/Bucket.
	PublicBaseURL string
	Timeout       time.Duration
}

type S3Store struct {
	client  s3API
	bucket  string
	baseURL string
	timeout time.Duration
	now     func() time.Time
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("attachment bucket is not configured")
	}

	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	base := cfg.PublicBaseURL
	if base == "" {
		base = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &S3Store{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(base, "/"),
		timeout: timeout,
		now:     time.Now,
	}, nil
}

func (s *S3Store) objectKey(name string) string {
	d := s.now().UTC()
	return fmt.Sprintf("attachments/%d/%02d/%02d/%s/%s", d.Year(), d.Month(), d.Day(), uuid.New(), path.Base(name))
}

func (s *S3Store) Upload(ctx context.Context, name string, body io.Reader, contentType string) (models.Attachment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// request signing needs a seekable body
	rs, ok := body.(io.ReadSeeker)
	if !ok {
		b, err := io.ReadAll(body)
		if err != nil {
			return models.Attachment{}, fmt.Errorf("read %s: %w", name, err)
		}
		rs = bytes.NewReader(b)
	}

	key := s.objectKey(name)
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   rs,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return models.Attachment{}, fmt.Errorf("upload %s: %w", name, err)
	}

	base := path.Base(name)
	return models.Attachment{
		Name: base,
		URL:  s.baseURL + "/" + escapeKey(key),
		Type: strings.ToLower(strings.TrimPrefix(path.Ext(base), ".")),
	}, nil
}

func (s *S3Store) Delete(ctx context.Context, rawURL string) error {
	key, ok := s.keyFromURL(rawURL)
	if !ok {
		return fmt.Errorf("%q is not an object of bucket %s", rawURL, s.bucket)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// DeleteObject succeeds for missing keys; HEAD tells them apart
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// keyFromURL accepts URLs under the public base URL and s3://bucket/key.
func (s *S3Store) keyFromURL(rawURL string) (string, bool) {
	raw := strings.TrimSpace(rawURL)
	if rest, ok := strings.CutPrefix(raw, s.baseURL+"/"); ok {
		key, err := url.PathUnescape(rest)
		return key, err == nil && key != ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if u.Scheme == "s3" && u.Host == s.bucket {
		key := strings.TrimPrefix(u.Path, "/")
		return key, key != ""
	}
	if prefix := "/" + s.bucket + "/"; strings.HasPrefix(u.Path, prefix) {
		key := strings.TrimPrefix(u.Path, prefix)
		return key, key != ""
	}
	return "", false
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
