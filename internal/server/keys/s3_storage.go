package keys

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) ObjectAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// ObjectAPI is the part of *s3.Client the storage uses.
type ObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config locates the bucket holding the keypair. Endpoint is set for
// S3 compatible servers such as MinIO.
type S3Config struct {
	Region   string
	User     string
	Password string
	Endpoint string
	Bucket   string
	Prefix   string
}

// S3Storage keeps the keypair as two objects in a bucket. The private key is
// written with If-None-Match so only the first writer succeeds.
type S3Storage struct {
	client ObjectAPI
	bucket string
	prefix string
}

func NewS3Storage(ctx context.Context, c S3Config) (*S3Storage, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.User,
			c.Password,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3StorageWithClient(client, c.Bucket, c.Prefix), nil
}

func NewS3StorageWithClient(client ObjectAPI, bucket, prefix string) *S3Storage {
	return &S3Storage{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Storage) key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *S3Storage) Load(ctx context.Context) ([]byte, []byte, error) {
	private, err := s.get(ctx, PrivateKeyFile)
	if err != nil {
		return nil, nil, err
	}
	public, err := s.get(ctx, PublicKeyFile)
	if err != nil {
		return nil, nil, err
	}
	return private, public, nil
}

func (s *S3Storage) get(ctx context.Context, name string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isAPIError(err, "NoSuchKey", "NotFound") {
			return nil, nil
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.bucket, s.key(name), err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", s.bucket, s.key(name), err)
	}
	return b, nil
}

func (s *S3Storage) Save(ctx context.Context, private, public []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(PrivateKeyFile)),
		Body:        bytes.NewReader(private),
		ContentType: aws.String("application/x-pem-file"),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		if isAPIError(err, "PreconditionFailed", "ConditionalRequestConflict") || httpStatus(err) == http.StatusPreconditionFailed {
			return ErrKeyExists
		}
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, s.key(PrivateKeyFile), err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(PublicKeyFile)),
		Body:        bytes.NewReader(public),
		ContentType: aws.String("application/x-pem-file"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, s.key(PublicKeyFile), err)
	}
	return nil
}

func isAPIError(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, c := range codes {
		if apiErr.ErrorCode() == c {
			return true
		}
	}
	return false
}

func httpStatus(err error) int {
	var re interface{ HTTPStatusCode() int }
	if errors.As(err, &re) {
		return re.HTTPStatusCode()
	}
	return 0
}
