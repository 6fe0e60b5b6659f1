package s3

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeAPI struct {
	getErr    error
	getBody   string
	putErr    error
	putBucket string
	putKey    string
}

func (f *fakeAPI) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewBufferString(f.getBody))}, nil
}

func (f *fakeAPI) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.putBucket = *params.Bucket
	f.putKey = *params.Key
	return &s3.PutObjectOutput{}, nil
}

func TestStore_DownloadWritesBodyToLocalPath(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "ammo.txt")

	store := &Store{client: &fakeAPI{getBody: "hello ammo"}}
	if err := store.Download("bucket", "key", dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(got) != "hello ammo" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestStore_DownloadNoSuchKeyIsNotFound(t *testing.T) {
	store := &Store{client: &fakeAPI{getErr: &types.NoSuchKey{}}}
	err := store.Download("bucket", "missing", filepath.Join(t.TempDir(), "x"))
	if err == nil {
		t.Fatal("expected an error")
	}
	nf, ok := err.(*objectStoreError)
	if !ok || !nf.NotFound() {
		t.Fatalf("expected NotFound error, got %#v", err)
	}
}

func TestStore_UploadSendsSourceFileToBucketAndKey(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "artifact.log")
	if err := os.WriteFile(src, []byte("log contents"), 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}

	fake := &fakeAPI{}
	store := &Store{client: fake}
	if err := store.Upload(src, "artifacts/artifact.log", "my-bucket"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.putBucket != "my-bucket" || fake.putKey != "artifacts/artifact.log" {
		t.Fatalf("unexpected put target: bucket=%s key=%s", fake.putBucket, fake.putKey)
	}
}

func TestStore_UploadMissingSourceFileFails(t *testing.T) {
	store := &Store{client: &fakeAPI{}}
	err := store.Upload(filepath.Join(t.TempDir(), "missing"), "key", "bucket")
	if err == nil {
		t.Fatal("expected an error for a missing source file")
	}
}
