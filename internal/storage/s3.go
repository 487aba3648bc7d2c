package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/shohan-001/ffmpeg-video-bot/internal/logging"
	"github.com/shohan-001/ffmpeg-video-bot/internal/services"
)

// ObjectPutter is the slice of the S3 client the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader delivers outputs by uploading each file to a bucket and
// returning public object URLs.
type S3Uploader struct {
	client ObjectPutter
	bucket string
	region string
	prefix string
	logger *slog.Logger
}

// NewS3Uploader resolves AWS credentials from the default chain and builds an
// uploader for the given bucket.
func NewS3Uploader(ctx context.Context, bucket, region, prefix string, logger *slog.Logger) (*S3Uploader, error) {
	if bucket == "" {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "new_s3_uploader",
			"s3 bucket is required", nil)
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "new_s3_uploader",
			"loading AWS configuration failed", err)
	}
	return newS3Uploader(s3.NewFromConfig(cfg), bucket, region, prefix, logger), nil
}

func newS3Uploader(client ObjectPutter, bucket, region, prefix string, logger *slog.Logger) *S3Uploader {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &S3Uploader{
		client: client,
		bucket: bucket,
		region: region,
		prefix: strings.Trim(prefix, "/"),
		logger: logging.WithComponent(logger, "storage"),
	}
}

// Deliver uploads every artifact under <prefix>/<userID>/<filename> and
// returns the object URLs. A failed upload aborts the delivery; objects
// already uploaded are left in place.
func (u *S3Uploader) Deliver(ctx context.Context, d Delivery) (Receipt, error) {
	if len(d.Paths) == 0 {
		return Receipt{}, services.Wrap(services.ErrValidation, "storage", "deliver",
			"nothing to deliver", nil)
	}

	urls := make([]string, 0, len(d.Paths))
	for _, filePath := range d.Paths {
		url, err := u.uploadFile(ctx, d.UserID, filePath)
		if err != nil {
			return Receipt{}, err
		}
		urls = append(urls, url)
	}

	u.logger.Info("delivered to s3",
		logging.Int64(logging.FieldUserID, d.UserID),
		logging.Int("files", len(urls)),
		logging.String("bucket", u.bucket))
	return Receipt{Destination: "s3", URLs: urls}, nil
}

func (u *S3Uploader) uploadFile(ctx context.Context, userID int64, filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "storage", "upload_file",
			fmt.Sprintf("opening %s failed", filePath), err)
	}
	defer func() { _ = file.Close() }()

	key := u.objectKey(userID, filepath.Base(filePath))
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "storage", "upload_file",
			fmt.Sprintf("uploading %s to bucket %s failed", filepath.Base(filePath), u.bucket), err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key), nil
}

func (u *S3Uploader) objectKey(userID int64, name string) string {
	parts := make([]string, 0, 3)
	if u.prefix != "" {
		parts = append(parts, u.prefix)
	}
	parts = append(parts, strconv.FormatInt(userID, 10), name)
	return path.Join(parts...)
}
