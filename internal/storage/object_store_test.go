package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"bizreport/api/internal/config"
)

func TestNewObjectStoreParsesEndpoint(t *testing.T) {
	store, err := NewObjectStore(config.StorageConfig{
		Endpoint:      "https://minio.example.com",
		AccessKey:     "key",
		SecretKey:     "secret",
		BucketReports: "reports",
		Region:        "us-east-1",
	})
	if err != nil {
		t.Fatalf("NewObjectStore() error: %v", err)
	}
	if store.ttl != 15*time.Minute {
		t.Fatalf("default presign ttl = %v", store.ttl)
	}

	// Presigning is computed locally and needs no server.
	u, err := store.PresignGet(context.Background(), "reports/2026/02/16/r1-photo.png")
	if err != nil {
		t.Fatalf("PresignGet() error: %v", err)
	}
	if !strings.HasPrefix(u, "https://minio.example.com/reports/reports/2026/02/16/r1-photo.png?") ||
		!strings.Contains(u, "X-Amz-Signature=") {
		t.Fatalf("unexpected presigned url %s", u)
	}
}
