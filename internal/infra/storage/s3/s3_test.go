package s3

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestHostOf(t *testing.T) {
	cases := map[string]string{
		"http://minio:9000":  "minio:9000",
		"https://s3.example": "s3.example",
		"minio:9000":         "minio:9000",
	}
	for in, want := range cases {
		if got := hostOf(in); got != want {
			t.Errorf("hostOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPublicReadPolicy(t *testing.T) {
	raw, err := publicReadPolicy("avatars")
	if err != nil {
		t.Fatalf("publicReadPolicy: %v", err)
	}
	var doc bucketPolicy
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("policy is not JSON: %v", err)
	}
	if len(doc.Statement) != 1 || doc.Statement[0].Resource[0] != "arn:aws:s3:::avatars/*" {
		t.Fatalf("unexpected policy: %s", raw)
	}
}

func TestNewClientPublicURL(t *testing.T) {
	c, err := NewClient(Config{Endpoint: "http://minio:9000", PublicEndpoint: "https://cdn.example/", Bucket: "avatars"}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if got := objectURL(c.baseURL, c.bucket, "users/u1.png"); got != "https://cdn.example/avatars/users/u1.png" {
		t.Fatalf("objectURL = %q", got)
	}
	if _, err := NewClient(Config{Endpoint: "http://minio:9000"}, nil); err == nil {
		t.Fatalf("expected missing bucket error")
	}
}

func TestUploadRejectsBadInput(t *testing.T) {
	c, err := NewClient(Config{Endpoint: "http://minio:9000", Bucket: "avatars"}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.Upload(context.Background(), "k", nil, 0, ""); err == nil {
		t.Fatalf("expected nil reader error")
	}
	if _, err := c.Upload(context.Background(), " / ", strings.NewReader("x"), 1, ""); err == nil {
		t.Fatalf("expected empty key error")
	}
	if _, err := (NoopUploader{}).Upload(context.Background(), "k", strings.NewReader("x"), 1, ""); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
