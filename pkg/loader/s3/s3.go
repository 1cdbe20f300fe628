// Package s3 loads documents from an Amazon S3 (or S3-compatible) bucket.
package s3

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/loom-graph/loom/pkg/common"
	"github.com/loom-graph/loom/pkg/logger"
)

// BucketSource lists text objects under a bucket prefix and reads each
// one as a document. Object keys become titles; dates come from the
// object's last-modified time unless the content carries its own.
type BucketSource struct {
	bucket string
	prefix string
	client *s3.Client
}

// NewBucketSourceParams defines the configuration for creating a new
// BucketSource. Endpoint allows S3-compatible storage like MinIO.
type NewBucketSourceParams struct {
	Bucket    string
	Prefix    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// NewBucketSource creates a source over the given bucket and prefix,
// initializing an S3 client with static credentials.
func NewBucketSource(ctx context.Context, params NewBucketSourceParams) (*BucketSource, error) {
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(params.Region),
		config.WithBaseEndpoint(params.Endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			params.AccessKey,
			params.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	return &BucketSource{
		bucket: params.Bucket,
		prefix: params.Prefix,
		client: s3.NewFromConfig(cfg),
	}, nil
}

// NewBucketSourceWithClient creates a source using an existing s3.Client.
func NewBucketSourceWithClient(bucket, prefix string, client *s3.Client) *BucketSource {
	return &BucketSource{bucket: bucket, prefix: prefix, client: client}
}

// Load lists and reads every .md and .txt object under the prefix.
// Unreadable objects are skipped with a warning.
func (s *BucketSource) Load(ctx context.Context) ([]common.Document, error) {
	var docs []common.Document

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing s3://%s/%s: %w", s.bucket, s.prefix, err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			ext := strings.ToLower(path.Ext(key))
			if ext != ".md" && ext != ".txt" {
				continue
			}

			content, err := s.readObject(ctx, key)
			if err != nil {
				logger.Warn("skipping object", "key", key, "err", err)
				continue
			}

			date := ""
			if obj.LastModified != nil {
				date = obj.LastModified.UTC().Format("2006-01-02")
			}

			docs = append(docs, common.Document{
				Title:   strings.TrimSuffix(path.Base(key), ext),
				Date:    date,
				Content: strings.TrimSpace(content),
			})
		}
	}

	return docs, nil
}

func (s *BucketSource) readObject(ctx context.Context, key string) (string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", err
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
