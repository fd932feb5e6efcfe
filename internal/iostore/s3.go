package iostore

import (
	"context"
	"log/slog"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gnames/gntree/pkg/guide"
)

type s3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Client creates an S3 client with the default credential chain.
func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region))
	if err != nil {
		return nil, ClientError(region, err)
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	return s3.NewFromConfig(cfg), nil
}

// NewS3 creates a store that uploads files to a bucket. Keys are
// prepended with prefix.
func NewS3(client *s3.Client, bucket, prefix string) guide.AttachmentStore {
	return &s3Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *s3Store) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

func (s *s3Store) Put(
	ctx context.Context,
	key, filePath string,
) (*guide.Attachment, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, PutError(key, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, PutError(key, err)
	}
	ct := contentType(filePath)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(ct),
	})
	if err != nil {
		return nil, PutError(key, err)
	}

	slog.Info("Uploaded file", "bucket", s.bucket,
		"key", s.objectKey(key), "size", info.Size())
	return &guide.Attachment{
		Key:         key,
		Size:        info.Size(),
		ContentType: ct,
	}, nil
}

func (s *s3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return DeleteError(key, err)
	}
	return nil
}
