package draft

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeS3 implements s3API over a map.
type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{objects: make(map[string][]byte)}
	store := &S3Store{client: fake, bucket: "drafts", prefix: "session-1"}

	if _, ok, err := store.Get(ctx, "compose"); ok || err != nil {
		t.Fatalf("Get on empty bucket = %v, %v", ok, err)
	}

	if err := store.Set(ctx, "compose", "dear team"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok := fake.objects["session-1/compose"]; !ok {
		t.Fatalf("object keys = %v, want prefix applied", fake.objects)
	}

	v, ok, err := store.Get(ctx, "compose")
	if err != nil || !ok || v != "dear team" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}

	if err := store.Clear(ctx, "compose"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "compose"); ok {
		t.Error("value survived Clear")
	}
}
