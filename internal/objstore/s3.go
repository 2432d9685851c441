package objstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dgnsrekt/chart_vault/internal/fault"
)

// deleteBatchSize is the DeleteObjects per-call limit.
const deleteBatchSize = 1000

// S3Bucket implements Bucket on any S3-compatible endpoint (AWS S3,
// Cloudflare R2, MinIO).
type S3Bucket struct {
	client *s3.Client
	bucket string
}

// NewS3Client builds an S3 client for the given endpoint and static
// credentials. An empty endpoint falls back to AWS.
func NewS3Client(ctx context.Context, endpoint, region, accessKey, secretKey string) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load storage credentials: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = true
	}), nil
}

// NewS3Bucket wraps an S3 client for one bucket.
func NewS3Bucket(client *s3.Client, bucket string) *S3Bucket {
	return &S3Bucket{client: client, bucket: bucket}
}

func (b *S3Bucket) Put(ctx context.Context, key string, body []byte, opts PutOptions) (ObjectMeta, error) {
	in := &s3.PutObjectInput{
		Bucket:   aws.String(b.bucket),
		Key:      aws.String(key),
		Body:     bytes.NewReader(body),
		Metadata: opts.Metadata,
	}
	if opts.ContentType != "" {
		in.ContentType = aws.String(opts.ContentType)
	}
	if opts.CacheControl != "" {
		in.CacheControl = aws.String(opts.CacheControl)
	}

	out, err := b.client.PutObject(ctx, in)
	if err != nil {
		return ObjectMeta{}, fault.Wrap(fault.CodeStorage, "failed to put object "+key, err)
	}

	return ObjectMeta{
		Key:         key,
		Size:        int64(len(body)),
		ETag:        cleanETag(aws.ToString(out.ETag)),
		ContentType: opts.ContentType,
		Uploaded:    time.Now().UTC(),
		Metadata:    opts.Metadata,
	}, nil
}

func (b *S3Bucket) Head(ctx context.Context, key string) (*ObjectMeta, error) {
	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fault.Wrap(fault.CodeStorage, "failed to head object "+key, err)
	}

	meta := headMeta(key, out)
	return &meta, nil
}

func (b *S3Bucket) Get(ctx context.Context, key string) (*Object, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fault.Wrap(fault.CodeStorage, "failed to get object "+key, err)
	}

	return &Object{
		Body: out.Body,
		Meta: ObjectMeta{
			Key:         key,
			Size:        aws.ToInt64(out.ContentLength),
			ETag:        cleanETag(aws.ToString(out.ETag)),
			ContentType: aws.ToString(out.ContentType),
			Uploaded:    aws.ToTime(out.LastModified),
			Metadata:    out.Metadata,
		},
	}, nil
}

// List pages with ListObjectsV2. The S3 list call does not return user
// metadata, so each listed key is headed to populate it; a failed head
// leaves that object's metadata empty rather than failing the page.
func (b *S3Bucket) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}

	in := &s3.ListObjectsV2Input{
		Bucket:  aws.String(b.bucket),
		MaxKeys: aws.Int32(limit),
	}
	if opts.Prefix != "" {
		in.Prefix = aws.String(opts.Prefix)
	}
	if opts.Cursor != "" {
		in.ContinuationToken = aws.String(opts.Cursor)
	}

	out, err := b.client.ListObjectsV2(ctx, in)
	if err != nil {
		return ListResult{}, fault.Wrap(fault.CodeStorage, "failed to list objects", err)
	}

	objects := make([]ObjectMeta, 0, len(out.Contents))
	for _, c := range out.Contents {
		key := aws.ToString(c.Key)
		meta := ObjectMeta{
			Key:      key,
			Size:     aws.ToInt64(c.Size),
			ETag:     cleanETag(aws.ToString(c.ETag)),
			Uploaded: aws.ToTime(c.LastModified),
		}
		head, headErr := b.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(key),
		})
		if headErr != nil {
			slog.Debug("list head failed", "key", key, "error", headErr)
		} else {
			meta.ContentType = aws.ToString(head.ContentType)
			meta.Metadata = head.Metadata
		}
		objects = append(objects, meta)
	}

	return ListResult{
		Objects:   objects,
		Truncated: aws.ToBool(out.IsTruncated),
		Cursor:    aws.ToString(out.NextContinuationToken),
	}, nil
}

func (b *S3Bucket) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fault.Wrap(fault.CodeStorage, "failed to delete object "+key, err)
	}
	return nil
}

func (b *S3Bucket) DeleteMany(ctx context.Context, keys []string) error {
	for start := 0; start < len(keys); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(keys))

		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(key)})
		}

		out, err := b.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(b.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fault.Wrap(fault.CodeStorage, "failed to bulk delete objects", err)
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return fault.Newf(fault.CodeStorage, "bulk delete rejected %d objects, first: %s %s",
				len(out.Errors), aws.ToString(first.Key), aws.ToString(first.Message))
		}
	}
	return nil
}

func headMeta(key string, out *s3.HeadObjectOutput) ObjectMeta {
	return ObjectMeta{
		Key:         key,
		Size:        aws.ToInt64(out.ContentLength),
		ETag:        cleanETag(aws.ToString(out.ETag)),
		ContentType: aws.ToString(out.ContentType),
		Uploaded:    aws.ToTime(out.LastModified),
		Metadata:    out.Metadata,
	}
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound"
}

func cleanETag(etag string) string {
	return strings.Trim(etag, `"`)
}
