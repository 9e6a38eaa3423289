package storage

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/juju/errors"
)

// S3Store keeps blobs in an S3 (or S3 compatible) bucket.
type S3Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // MinIO, LocalStack...
	PublicURL string // defaults to the virtual-hosted bucket URL
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.NotValidf("empty S3 bucket")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, errors.Annotate(err, "load AWS config")
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	public := cfg.PublicURL
	if public == "" {
		if cfg.Endpoint != "" {
			public = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			public = "https://" + cfg.Bucket + ".s3." + cfg.Region + ".amazonaws.com"
		}
	}
	return &S3Store{client: client, bucket: cfg.Bucket, publicURL: strings.TrimRight(public, "/")}, nil
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	k, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(k),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", errors.Annotatef(err, "s3 put %s", k)
	}
	return s.publicURL + "/" + k, nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	k, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, errors.NotFoundf("blob %q", k)
		}
		return nil, errors.Annotatef(err, "s3 get %s", k)
	}
	defer func() { _ = out.Body.Close() }()
	b, err := io.ReadAll(out.Body)
	return b, errors.Trace(err)
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	k, err := CleanKey(key)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
	})
	return errors.Annotatef(err, "s3 delete %s", k)
}

func (s *S3Store) KeyFor(url string) (string, bool) {
	rest, ok := strings.CutPrefix(url, s.publicURL+"/")
	if !ok {
		return "", false
	}
	k, err := CleanKey(rest)
	return k, err == nil
}
