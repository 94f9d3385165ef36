package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// Mirror replicates artifact trees to and from shared object storage so a
// fleet of instances can reuse each other's generation work.
//
// Implementations must be safe for concurrent use.
type Mirror interface {
	// Has reports whether a completed artifact for key exists in the mirror.
	Has(ctx context.Context, key string) (bool, error)

	// Pull downloads the artifact tree for key into destDir.
	Pull(ctx context.Context, key, destDir string) error

	// Push uploads the artifact tree rooted at srcDir under key.
	Push(ctx context.Context, key, srcDir string) error

	// Close releases any resources held by the mirror.
	Close() error
}

// MirrorConfig configures an S3-backed mirror.
type MirrorConfig struct {
	Bucket string
	Prefix string

	// Region overrides SDK region resolution. Optional.
	Region string

	// Endpoint targets an S3-compatible store. Optional.
	Endpoint string

	// Profile selects a shared-config profile. Optional.
	Profile string

	// AccessKeyID is an explicit access key. If set, SecretAccessKey must
	// also be set; explicit keys take precedence over the default chain.
	AccessKeyID string

	// SecretAccessKey is an explicit secret key.
	SecretAccessKey string

	// ForcePathStyle is required by most S3-compatible stores.
	ForcePathStyle bool
}

func (c MirrorConfig) Validate() error {
	if strings.TrimSpace(c.Bucket) == "" {
		return fmt.Errorf("mirror bucket is required")
	}
	return nil
}

// S3Mirror stores artifact trees in an S3 bucket, one object per file:
//
//	s3://<bucket>/<prefix>/<key>/<relative-path>
//
// Authentication uses the SDK default credential chain unless explicit keys
// are configured.
type S3Mirror struct {
	client *s3.Client
	bucket string
	prefix string
}

var _ Mirror = (*S3Mirror)(nil)

// NewS3Mirror creates an S3-backed mirror.
func NewS3Mirror(ctx context.Context, cfg MirrorConfig) (*S3Mirror, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	s3Opts := []func(*s3.Options){
		func(o *s3.Options) {
			if cfg.ForcePathStyle {
				o.UsePathStyle = true
			}
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		},
	}

	return &S3Mirror{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Has heads the marker object for key.
func (m *S3Mirror) Has(ctx context.Context, key string) (bool, error) {
	_, err := m.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(m.objectKey(key, DefaultEntryDocument)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("mirror head %s: %w", key, err)
	}
	return true, nil
}

// Pull downloads every object under the key prefix into destDir. The marker
// file is written last so a partially pulled tree never reads as complete.
func (m *S3Mirror) Pull(ctx context.Context, key, destDir string) error {
	prefix := m.objectKey(key, "")

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(m.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(m.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("mirror list %s: %w", key, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	if len(keys) == 0 {
		return fmt.Errorf("mirror has no objects for %s", key)
	}

	marker := m.objectKey(key, DefaultEntryDocument)
	ordered := make([]string, 0, len(keys))
	hasMarker := false
	for _, k := range keys {
		if k == marker {
			hasMarker = true
			continue
		}
		ordered = append(ordered, k)
	}
	if hasMarker {
		ordered = append(ordered, marker)
	}

	for _, objKey := range ordered {
		rel := strings.TrimPrefix(objKey, prefix)
		if rel == "" {
			continue
		}
		if err := m.pullObject(ctx, objKey, filepath.Join(destDir, filepath.FromSlash(rel))); err != nil {
			return err
		}
	}
	return nil
}

func (m *S3Mirror) pullObject(ctx context.Context, objKey, dest string) error {
	out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(objKey),
	})
	if err != nil {
		return fmt.Errorf("mirror get %s: %w", objKey, err)
	}
	defer func() { _ = out.Body.Close() }()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create artifact file: %w", err)
	}
	if _, err := io.Copy(f, out.Body); err != nil {
		_ = f.Close()
		return fmt.Errorf("write artifact file %s: %w", dest, err)
	}
	return f.Close()
}

// Push uploads the tree rooted at srcDir, marker last.
func (m *S3Mirror) Push(ctx context.Context, key, srcDir string) error {
	var files []string
	err := filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk artifact dir: %w", err)
	}

	marker := filepath.Join(srcDir, DefaultEntryDocument)
	ordered := make([]string, 0, len(files))
	hasMarker := false
	for _, f := range files {
		if f == marker {
			hasMarker = true
			continue
		}
		ordered = append(ordered, f)
	}
	if hasMarker {
		ordered = append(ordered, marker)
	}

	for _, file := range ordered {
		rel, err := filepath.Rel(srcDir, file)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", file, err)
		}
		if err := m.pushObject(ctx, m.objectKey(key, filepath.ToSlash(rel)), file); err != nil {
			return err
		}
	}
	return nil
}

func (m *S3Mirror) pushObject(ctx context.Context, objKey, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open artifact file: %w", err)
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat artifact file: %w", err)
	}
	size := st.Size()

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(objKey),
		Body:          f,
		ContentLength: &size,
	})
	if err != nil {
		return fmt.Errorf("mirror put %s: %w", objKey, err)
	}
	return nil
}

// Close releases any resources held by the mirror.
// The S3 client doesn't require explicit cleanup, but this satisfies the interface.
func (m *S3Mirror) Close() error {
	return nil
}

func (m *S3Mirror) objectKey(key, rel string) string {
	parts := make([]string, 0, 3)
	if m.prefix != "" {
		parts = append(parts, m.prefix)
	}
	parts = append(parts, key)
	joined := strings.Join(parts, "/") + "/"
	if rel == "" {
		return joined
	}
	return joined + rel
}

// isNotFound detects S3 missing-object responses across AWS and
// S3-compatible stores.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return strings.Contains(err.Error(), "404")
}
