// Package objectstore is the gateway to the log archive bucket.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Bucket puts and gets blobs in one bucket of an S3-compatible store.
type Bucket interface {
	Put(ctx context.Context, key string, payload []byte) error
	Get(ctx context.Context, key string) ([]byte, error)

	// Aggregate concatenates the blobs at keys, in order.
	Aggregate(ctx context.Context, keys []string) ([]byte, error)
}

// Config locates the bucket.
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Secure    bool
}

type minioBucket struct {
	client *minio.Client
	bucket string
}

// New connects to the store and makes sure the bucket exists.
func New(ctx context.Context, config Config) (Bucket, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Region: config.Region,
		Secure: config.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to object store at %s: %w", config.Endpoint, err)
	}

	exists, err := client.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("probing bucket %s: %w", config.Bucket, err)
	}
	if !exists {
		err := client.MakeBucket(ctx, config.Bucket, minio.MakeBucketOptions{Region: config.Region})
		if err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", config.Bucket, err)
		}
	}

	return &minioBucket{client: client, bucket: config.Bucket}, nil
}

func (b *minioBucket) Put(ctx context.Context, key string, payload []byte) error {
	_, err := b.client.PutObject(
		ctx, b.bucket, key,
		bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "text/plain"},
	)
	if err != nil {
		return fmt.Errorf("putting %s: %w", key, err)
	}
	return nil
}

func (b *minioBucket) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", key, err)
	}
	defer obj.Close()

	payload, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", key, err)
	}
	return payload, nil
}

func (b *minioBucket) Aggregate(ctx context.Context, keys []string) ([]byte, error) {
	aggregated := bytes.Buffer{}
	for _, key := range keys {
		payload, err := b.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		aggregated.Write(payload)
	}
	return aggregated.Bytes(), nil
}
