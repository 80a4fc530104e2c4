package vault

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeObject struct {
	data []byte
	meta map[string]string
}

// fakeS3 is an in-memory bucket. Multipart uploads are not supported; the
// uploader only uses them above its part size.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string]fakeObject)}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = fakeObject{data: data, meta: in.Metadata}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.data)), Metadata: obj.meta}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{Metadata: obj.meta, ContentLength: aws.Int64(int64(len(obj.data)))}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if aws.ToString(in.Bucket) != "photos-backup" {
		return nil, errors.New("no such bucket")
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

var errMultipart = errors.New("multipart upload not supported by fake")

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return nil, errMultipart
}

func TestS3Vault(t *testing.T) {
	fake := newFakeS3()
	v := newS3VaultWithClient("offsite", "photos-backup", "exifrec", fake)

	t.Run("content round trip", func(t *testing.T) {
		data := "original bytes"
		if err := v.PutContent("abc123", strings.NewReader(data), int64(len(data))); err != nil {
			t.Fatalf("PutContent() error = %v", err)
		}
		if _, ok := fake.objects["exifrec/content/abc123"]; !ok {
			t.Errorf("object keys = %v, want exifrec/content/abc123", fake.objects)
		}

		has, err := v.HasContent("abc123")
		if err != nil {
			t.Fatalf("HasContent() error = %v", err)
		}
		if !has {
			t.Error("HasContent() = false, want true")
		}

		var buf bytes.Buffer
		if err := v.GetContent("abc123", &buf); err != nil {
			t.Fatalf("GetContent() error = %v", err)
		}
		if buf.String() != data {
			t.Errorf("GetContent() = %q, want %q", buf.String(), data)
		}
	})

	t.Run("missing content", func(t *testing.T) {
		has, err := v.HasContent("nope")
		if err != nil {
			t.Fatalf("HasContent() error = %v", err)
		}
		if has {
			t.Error("HasContent() = true, want false")
		}

		var buf bytes.Buffer
		err = v.GetContent("nope", &buf)
		if err == nil || !strings.Contains(err.Error(), "content not found") {
			t.Errorf("GetContent() error = %v, want content not found", err)
		}
	})

	t.Run("size mismatch removes the object", func(t *testing.T) {
		if err := v.PutContent("short", strings.NewReader("abc"), 10); err == nil {
			t.Fatal("PutContent() expected error for size mismatch")
		}
		if _, ok := fake.objects["exifrec/content/short"]; ok {
			t.Error("incomplete object left in bucket")
		}
	})

	t.Run("metadata version", func(t *testing.T) {
		data := "sqlite bytes"
		if err := v.PutMetadata("host-1", "db", strings.NewReader(data), int64(len(data)), 42); err != nil {
			t.Fatalf("PutMetadata() error = %v", err)
		}

		version, err := v.GetMetadataVersion("host-1", "db")
		if err != nil {
			t.Fatalf("GetMetadataVersion() error = %v", err)
		}
		if version != 42 {
			t.Errorf("GetMetadataVersion() = %d, want 42", version)
		}

		version, err = v.GetMetadataVersion("host-2", "db")
		if err != nil {
			t.Fatalf("GetMetadataVersion() error = %v", err)
		}
		if version != 0 {
			t.Errorf("GetMetadataVersion() = %d, want 0 for unknown host", version)
		}
	})

	t.Run("validate setup", func(t *testing.T) {
		if err := v.ValidateSetup(); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
		other := newS3VaultWithClient("offsite", "missing-bucket", "", fake)
		if err := other.ValidateSetup(); err == nil {
			t.Error("ValidateSetup() expected error for missing bucket")
		}
	})
}
