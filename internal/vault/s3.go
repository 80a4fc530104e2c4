package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"exifrec-go/internal/exifrec"
)

// versionKey is the user metadata entry holding a metadata item's version.
const versionKey = "exifrec-version"

// s3Client is the part of *s3.Client the vault uses.
type s3Client interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Options configures an S3Vault.
type S3Options struct {
	Bucket string
	Prefix string
	Region string

	// Endpoint overrides the AWS endpoint, for S3-compatible stores.
	Endpoint  string
	PathStyle bool

	// Static credentials. When empty the default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
}

// S3Vault stores backups in an S3 bucket under an optional prefix:
//
//	<prefix>/content/<key>
//	<prefix>/metadata/<hostID>/<name>
type S3Vault struct {
	name     string
	bucket   string
	prefix   string
	client   s3Client
	uploader *manager.Uploader
}

// NewS3Vault creates a vault backed by the bucket in opts.
func NewS3Vault(ctx context.Context, name string, opts S3Options) (*S3Vault, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 vault requires s3_bucket to be set")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	})
	return newS3VaultWithClient(name, opts.Bucket, opts.Prefix, client), nil
}

func newS3VaultWithClient(name, bucket, prefix string, client s3Client) *S3Vault {
	return &S3Vault{
		name:     name,
		bucket:   bucket,
		prefix:   prefix,
		client:   client,
		uploader: manager.NewUploader(client),
	}
}

func (v *S3Vault) contentKey(key string) string {
	return path.Join(v.prefix, "content", key)
}

func (v *S3Vault) metadataKey(hostID, name string) string {
	return path.Join(v.prefix, "metadata", hostID, name)
}

// PutContent uploads content under key. Keys already present are not
// uploaded again.
func (v *S3Vault) PutContent(key string, r io.Reader, size int64) error {
	if err := checkName(key); err != nil {
		return err
	}
	has, err := v.HasContent(key)
	if err != nil {
		return err
	}
	if has {
		written, err := io.Copy(io.Discard, r)
		if err != nil {
			return fmt.Errorf("failed to read content: %w", err)
		}
		if written != size {
			return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
		}
		return nil
	}
	return v.upload(v.contentKey(key), r, size, nil)
}

func (v *S3Vault) GetContent(key string, w io.Writer) error {
	if err := checkName(key); err != nil {
		return err
	}
	return v.download(v.contentKey(key), w, fmt.Sprintf("content not found: %s", key))
}

func (v *S3Vault) HasContent(key string) (bool, error) {
	if err := checkName(key); err != nil {
		return false, err
	}
	_, err := v.head(v.contentKey(key))
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking content %s: %w", key, err)
	}
	return true, nil
}

// PutMetadata uploads a named item for a host, recording version in the
// object's user metadata.
func (v *S3Vault) PutMetadata(hostID string, name string, r io.Reader, size int64, version int64) error {
	if err := checkName(hostID); err != nil {
		return err
	}
	if err := checkName(name); err != nil {
		return err
	}
	meta := map[string]string{versionKey: strconv.FormatInt(version, 10)}
	return v.upload(v.metadataKey(hostID, name), r, size, meta)
}

func (v *S3Vault) GetMetadata(hostID string, name string, w io.Writer) error {
	return v.download(v.metadataKey(hostID, name), w, fmt.Sprintf("metadata %q not found for host: %s", name, hostID))
}

func (v *S3Vault) GetMetadataVersion(hostID string, name string) (int64, error) {
	out, err := v.head(v.metadataKey(hostID, name))
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading metadata version: %w", err)
	}
	raw, ok := out.Metadata[versionKey]
	if !ok {
		return 0, nil
	}
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

// ValidateSetup checks that the bucket exists and is reachable with the
// configured credentials.
func (v *S3Vault) ValidateSetup() error {
	_, err := v.client.HeadBucket(context.Background(), &s3.HeadBucketInput{Bucket: aws.String(v.bucket)})
	if err != nil {
		return fmt.Errorf("s3 bucket %s not accessible: %w", v.bucket, err)
	}
	return nil
}

func (v *S3Vault) upload(key string, r io.Reader, size int64, meta map[string]string) error {
	ctx := context.Background()
	cr := &countingReader{r: r}
	_, err := v.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(v.bucket),
		Key:      aws.String(key),
		Body:     cr,
		Metadata: meta,
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	if cr.n != size {
		// The object is incomplete or carries extra bytes.
		v.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(v.bucket), Key: aws.String(key)})
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, cr.n)
	}
	return nil
}

func (v *S3Vault) download(key string, w io.Writer, notFoundMsg string) error {
	out, err := v.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%s", notFoundMsg)
		}
		return fmt.Errorf("downloading %s: %w", key, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("failed to read object: %w", err)
	}
	return nil
}

func (v *S3Vault) head(key string) (*s3.HeadObjectOutput, error) {
	return v.client.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

var _ exifrec.Vault = (*S3Vault)(nil)
