package bundle

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const blogJSON = `{"name":"blog","title":"All posts","heading":"Our blog","labels":{"empty":"Nothing yet"}}`

func TestLoadFromFS(t *testing.T) {
	src := NewFS(fstest.MapFS{
		"blog.json": {Data: []byte(blogJSON)},
		"post.json": {Data: []byte(`{"title":"Post"}`)},
	})

	b, err := Load(context.Background(), src, "blog")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b.Title != "All posts" || b.Heading != "Our blog" {
		t.Errorf("bundle = %+v", b)
	}
	if b.Label("empty", "none") != "Nothing yet" || b.Label("missing", "def") != "def" {
		t.Error("Label lookup wrong")
	}

	post, err := Load(context.Background(), src, "post")
	if err != nil {
		t.Fatalf("Load post: %v", err)
	}
	if post.Name != "post" {
		t.Errorf("name defaulted to %q", post.Name)
	}
}

func TestLoadErrors(t *testing.T) {
	src := NewFS(fstest.MapFS{
		"bad.json":      {Data: []byte(`{`)},
		"untitled.json": {Data: []byte(`{"name":"untitled"}`)},
		"renamed.json":  {Data: []byte(`{"name":"other","title":"x"}`)},
	})

	if _, err := Load(context.Background(), src, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
	for _, name := range []string{"bad", "untitled", "renamed"} {
		if _, err := Load(context.Background(), src, name); err == nil {
			t.Errorf("Load(%q) should fail", name)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Load(ctx, src, "bad"); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled err = %v", err)
	}
}

func TestNewDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "blog.json"), []byte(blogJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := NewDir(dir)
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	if _, err := Load(context.Background(), src, "blog"); err != nil {
		t.Errorf("Load: %v", err)
	}

	if _, err := NewDir(filepath.Join(dir, "nope")); err == nil {
		t.Error("missing dir should fail")
	}
	if _, err := NewDir(filepath.Join(dir, "blog.json")); err == nil {
		t.Error("file should not be accepted as dir")
	}
}

type fakeGetter struct {
	objects map[string]string
	keys    []string
	err     error
}

func (f *fakeGetter) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.keys = append(f.keys, *in.Bucket+"/"+*in.Key)
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3Source(t *testing.T) {
	getter := &fakeGetter{objects: map[string]string{"bundles/blog.json": blogJSON}}
	src, err := NewS3(getter, "pages", "bundles")
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}

	b, err := Load(context.Background(), src, "blog")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b.Heading != "Our blog" {
		t.Errorf("bundle = %+v", b)
	}
	if getter.keys[0] != "pages/bundles/blog.json" {
		t.Errorf("requested %v", getter.keys)
	}

	if _, err := Load(context.Background(), src, "post"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing object err = %v", err)
	}

	getter.err = errors.New("access denied")
	if _, err := Load(context.Background(), src, "blog"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("transport err = %v", err)
	}

	if _, err := NewS3(getter, "", ""); err == nil {
		t.Error("empty bucket should fail")
	}
}

func TestNewS3Client(t *testing.T) {
	client := NewS3Client(S3Config{Region: "us-east-1", Endpoint: "http://localhost:9000", PathStyle: true, AccessKey: "a", SecretKey: "b"})
	if client == nil {
		t.Fatal("nil client")
	}
	opts := client.Options()
	if opts.Region != "us-east-1" || !opts.UsePathStyle || opts.BaseEndpoint == nil {
		t.Errorf("options = %+v", opts)
	}
	creds, err := opts.Credentials.Retrieve(context.Background())
	if err != nil || creds.AccessKeyID != "a" {
		t.Errorf("credentials = %+v, %v", creds, err)
	}
}

type countingSource struct {
	opened int
}

func (c *countingSource) Open(ctx context.Context, object string) (io.ReadCloser, error) {
	c.opened++
	return io.NopCloser(bytes.NewReader([]byte(blogJSON))), nil
}

func TestDelayed(t *testing.T) {
	inner := &countingSource{}
	if Delayed(inner, 0) != Source(inner) {
		t.Error("zero delay should return the source unchanged")
	}

	src := Delayed(inner, 20*time.Millisecond)
	start := time.Now()
	if _, err := Load(context.Background(), src, "blog"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("delay not applied")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Open(ctx, "blog.json"); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled err = %v", err)
	}
	if inner.opened != 1 {
		t.Errorf("inner opened %d times", inner.opened)
	}
}
