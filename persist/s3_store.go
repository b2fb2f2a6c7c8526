package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const ctxTimeout = 10 * time.Second

// S3Config holds the connection settings for an S3-compatible backend.
type S3Config struct {
	Endpoint        string `json:"endpoint"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	UseSSL          bool   `json:"use_ssl"`
	Region          string `json:"region"`
	Bucket          string `json:"bucket"`
	KeyPrefix       string `json:"key_prefix"`
}

// S3Store implements Store against an S3-compatible object store (MinIO).
// Each lifecycle document is one object:
//
//	bucket/
//	└── [keyPrefix/]
//	    ├── key-metadata.json
//	    ├── audit-trail.json
//	    ├── rotation-history.json
//	    └── encryption-tracking.json
type S3Store struct {
	client     *minio.Client
	bucketName string
	keyPrefix  string
}

// NewS3Store connects to the configured endpoint and verifies the bucket
// exists, creating it when missing.
func NewS3Store(config S3Config) (*S3Store, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required for s3 store")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket is required for s3 store")
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	store := &S3Store{
		client:     client,
		bucketName: config.Bucket,
		keyPrefix:  strings.Trim(config.KeyPrefix, "/"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	if err = store.ensureBucket(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// NewS3StoreFromConfig creates an S3Store from StoreConfig
func NewS3StoreFromConfig(config StoreConfig) (*S3Store, error) {
	jsonData, err := json.Marshal(config.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal s3 config: %w", err)
	}

	var s3Config S3Config
	if err = json.Unmarshal(jsonData, &s3Config); err != nil {
		return nil, fmt.Errorf("invalid s3 config: %w", err)
	}

	return NewS3Store(s3Config)
}

func (s3s *S3Store) Load(name string, into interface{}) (bool, error) {
	objectName, err := s3s.objectName(name)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	object, err := s3s.client.GetObject(ctx, s3s.bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return false, fmt.Errorf("failed to get document %s: %w", name, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		if s3s.isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read document %s: %w", name, err)
	}

	if err = json.Unmarshal(data, into); err != nil {
		// Corrupt document: operate on the default rather than failing
		return false, nil
	}

	return true, nil
}

func (s3s *S3Store) Save(name string, doc interface{}) error {
	objectName, err := s3s.objectName(name)
	if err != nil {
		return err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", name, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	_, err = s3s.client.PutObject(ctx, s3s.bucketName, objectName,
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: "application/json",
		})
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", name, err)
	}

	return nil
}

func (s3s *S3Store) Exists(name string) (bool, error) {
	objectName, err := s3s.objectName(name)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	_, err = s3s.client.StatObject(ctx, s3s.bucketName, objectName, minio.StatObjectOptions{})
	if err != nil {
		if s3s.isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat document %s: %w", name, err)
	}

	return true, nil
}

// Ping tests connectivity to the S3 endpoint.
func (s3s *S3Store) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	exists, err := s3s.client.BucketExists(ctx, s3s.bucketName)
	if err != nil {
		return fmt.Errorf("s3 store not reachable: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", s3s.bucketName)
	}
	return nil
}

// Close is a no-op; the MinIO client holds no persistent connections.
func (s3s *S3Store) Close() error {
	return nil
}

// GetType returns the store type identifier.
func (s3s *S3Store) GetType() string {
	return string(StoreTypeS3)
}

func (s3s *S3Store) objectName(name string) (string, error) {
	if !documentNameRegex.MatchString(name) {
		return "", fmt.Errorf("invalid document name: %q", name)
	}
	if s3s.keyPrefix != "" {
		return s3s.keyPrefix + "/" + name, nil
	}
	return name, nil
}

func (s3s *S3Store) ensureBucket(ctx context.Context) error {
	exists, err := s3s.client.BucketExists(ctx, s3s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err = s3s.client.MakeBucket(ctx, s3s.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s3s.bucketName, err)
		}
	}
	return nil
}

func (s3s *S3Store) isNotFoundError(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket"
}
