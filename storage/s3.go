package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// Object is one stored object with its user metadata.
type Object struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// S3Store is a thin wrapper over one S3 bucket.
type S3Store struct {
	client s3iface.S3API
	bucket string
	region string
}

// NewS3Store creates a store from static credentials. Empty credentials fall
// back to the default AWS credential chain.
func NewS3Store(region, accessKeyID, secretAccessKey, bucket string) (*S3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("S3 bucket name is not configured")
	}
	cfg := &aws.Config{Region: aws.String(region)}
	if accessKeyID != "" && secretAccessKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKeyID, secretAccessKey, "")
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %v", err)
	}
	return NewS3StoreWithClient(s3.New(sess), bucket, region), nil
}

// NewS3StoreWithClient wraps an existing client.
func NewS3StoreWithClient(client s3iface.S3API, bucket, region string) *S3Store {
	return &S3Store{client: client, bucket: bucket, region: region}
}

// Put uploads body under key.
func (s *S3Store) Put(ctx context.Context, key string, body io.ReadSeeker, contentType string, metadata map[string]string) error {
	meta := make(map[string]*string, len(metadata))
	for k, v := range metadata {
		meta[k] = aws.String(v)
	}
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		Metadata:    meta,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %v", err)
	}
	return nil
}

// List returns every object under prefix, with metadata.
func (s *S3Store) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}
	for {
		out, err := s.client.ListObjectsV2WithContext(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to list S3 objects: %v", err)
		}
		for _, item := range out.Contents {
			obj := Object{
				Key:          aws.StringValue(item.Key),
				Size:         aws.Int64Value(item.Size),
				LastModified: aws.TimeValue(item.LastModified),
			}
			head, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    item.Key,
			})
			if err == nil {
				obj.ContentType = aws.StringValue(head.ContentType)
				obj.Metadata = aws.StringValueMap(head.Metadata)
			}
			objects = append(objects, obj)
		}
		if !aws.BoolValue(out.IsTruncated) {
			return objects, nil
		}
		input.ContinuationToken = out.NextContinuationToken
	}
}

// Delete removes the object at key
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete S3 object: %v", err)
	}
	return nil
}

// URL returns the public URL of key.
func (s *S3Store) URL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
