// Package objstore stores origin files and exported reports in S3.
package objstore

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"
)

// Store is an S3-backed blob store scoped to one bucket.
type Store struct {
	bucket string
	s3     *s3.S3
}

// New builds a store for the bucket using the ambient AWS credential chain.
func New(region, bucket string) (*Store, error) {
	if bucket == "" {
		return nil, errors.New("bucket name required")
	}
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, errors.Wrap(err, "creating AWS session")
	}
	return &Store{bucket: bucket, s3: s3.New(sess)}, nil
}

// Put uploads a blob.
func (s *Store) Put(ctx context.Context, key, contentType string, body []byte) error {
	_, err := s.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	return errors.Wrapf(err, "putting s3://%s/%s", s.bucket, key)
}

// Get downloads a blob.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "getting s3://%s/%s", s.bucket, key)
	}
	defer out.Body.Close()
	body, err := io.ReadAll(out.Body)
	return body, errors.Wrapf(err, "reading s3://%s/%s", s.bucket, key)
}

// Delete removes a blob. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.s3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return errors.Wrapf(err, "deleting s3://%s/%s", s.bucket, key)
}

// PresignGet returns a time-limited download URL for a blob, used to hand
// report exports to browsers without proxying them.
func (s *Store) PresignGet(key string, expiry time.Duration) (string, error) {
	req, _ := s.s3.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	url, err := req.Presign(expiry)
	return url, errors.Wrapf(err, "presigning s3://%s/%s", s.bucket, key)
}
