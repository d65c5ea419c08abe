package publish

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

const DefaultRegion = "us-east-1"

// ObjectPutter is the part of the S3 client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Settings struct {
	Bucket  string
	Prefix  string
	Profile string
	Region  string
}

// S3Publisher uploads stored snapshots under bucket/prefix.
type S3Publisher struct {
	client ObjectPutter
	bucket string
	prefix string
}

func NewS3Publisher(client ObjectPutter, bucket, prefix string) *S3Publisher {
	return &S3Publisher{client: client, bucket: bucket, prefix: prefix}
}

// NewS3PublisherFromSettings loads the shared AWS config for the profile.
func NewS3PublisherFromSettings(ctx context.Context, settings Settings) (*S3Publisher, error) {
	if settings.Bucket == "" {
		return nil, fmt.Errorf("publish bucket is required")
	}
	region := settings.Region
	if region == "" {
		region = DefaultRegion
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithDefaultRegion(region)}
	if settings.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(settings.Profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	return NewS3Publisher(s3.NewFromConfig(cfg), settings.Bucket, settings.Prefix), nil
}

func (p *S3Publisher) Publish(ctx context.Context, name string, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("file", file).Msg("failed to close snapshot")
		}
	}()

	key := path.Join(p.prefix, name)
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", p.bucket, key, err)
	}

	zerolog.Ctx(ctx).Info().Str("bucket", p.bucket).Str("key", key).Msg("snapshot published")
	return nil
}
