package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"git.home.luguber.info/inful/repodoc/internal/config"
	rderrors "git.home.luguber.info/inful/repodoc/internal/errors"
	"git.home.luguber.info/inful/repodoc/internal/logfields"
)

// DefaultPresignValidity bounds how long an issued access URL stays usable.
const DefaultPresignValidity = 24 * time.Hour

// S3Backend stores bundles in an S3-compatible object store, one object per
// file under the {jobID}/ key prefix, and issues presigned access URLs.
type S3Backend struct {
	client          *minio.Client
	bucket          string
	presignValidity time.Duration
}

// NewS3Backend connects to the configured object store endpoint.
func NewS3Backend(cfg config.S3Config) (*S3Backend, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, rderrors.StorageFailure("connect", err)
	}
	return &S3Backend{
		client:          client,
		bucket:          cfg.Bucket,
		presignValidity: DefaultPresignValidity,
	}, nil
}

// Store uploads every bundle file and only then issues the presigned URL for
// the primary artifact, so a returned URL always refers to a complete bundle.
func (b *S3Backend) Store(ctx context.Context, jobID, bundleDir string) (string, error) {
	err := filepath.WalkDir(bundleDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(bundleDir, path)
		if err != nil {
			return err
		}
		key := jobID + "/" + filepath.ToSlash(rel)
		_, err = b.client.FPutObject(ctx, b.bucket, key, path, minio.PutObjectOptions{
			ContentType: ContentTypeFor(d.Name()),
		})
		return err
	})
	if err != nil {
		return "", rderrors.StorageFailure("upload bundle", err)
	}

	accessURL, err := b.presign(ctx, jobID+"/"+PrimaryArtifact)
	if err != nil {
		return "", err
	}

	slog.Info("Bundle uploaded to object store",
		logfields.JobID(jobID),
		logfields.Backend("s3"),
		slog.String("bucket", b.bucket))
	return accessURL, nil
}

// StoreMetadata writes metadata.json under the job's key prefix.
func (b *S3Backend) StoreMetadata(ctx context.Context, jobID string, meta Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return rderrors.StorageFailure("metadata", err)
	}
	key := jobID + "/" + MetadataArtifact
	_, err = b.client.PutObject(ctx, b.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return rderrors.StorageFailure("metadata", err)
	}
	return nil
}

// Resolve is a local-backend-only capability; the remote variant serves
// bundles exclusively through presigned URLs.
func (b *S3Backend) Resolve(jobID, relativePath string) (string, error) {
	return "", rderrors.New(rderrors.CategoryStorage, rderrors.SeverityWarning,
		"local serving is not supported by the object store backend")
}

func (b *S3Backend) presign(ctx context.Context, key string) (string, error) {
	u, err := b.client.PresignedGetObject(ctx, b.bucket, key, b.presignValidity, url.Values{})
	if err != nil {
		return "", rderrors.StorageFailure("presign", err)
	}
	return u.String(), nil
}
