package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3FoodState implements FoodState backed by S3.
type S3FoodState struct {
	bucket string
	key    string
	s3     *s3.Client
}

func NewS3FoodState(s3Client *s3.Client, bucket, key string) *S3FoodState {
	return &S3FoodState{
		bucket: bucket,
		key:    key,
		s3:     s3Client,
	}
}

func (s *S3FoodState) Load(ctx context.Context) ([]byte, error) {
	resp, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get food table object from S3: %w", err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
