package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/superonehealth/api/internal/config"
	"github.com/superonehealth/api/internal/platform/blobstore"
	"github.com/superonehealth/api/internal/platform/dispatch"
)

func TestBuildCollaborators_InMemoryFallback(t *testing.T) {
	cfg := &config.Config{}

	blobs, dispatcher, err := buildCollaborators(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := blobs.(*blobstore.Memory); !ok {
		t.Errorf("expected in-memory blob store without BLOB_BUCKET, got %T", blobs)
	}
	if _, ok := dispatcher.(*dispatch.Memory); !ok {
		t.Errorf("expected in-memory dispatcher without NOTIFY_QUEUE_URL, got %T", dispatcher)
	}
}

func TestBuildCollaborators_S3WhenBucketSet(t *testing.T) {
	cfg := &config.Config{
		BlobBucket:   "superone-lab-reports",
		BlobEndpoint: "http://localhost:9000",
	}

	blobs, _, err := buildCollaborators(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := blobs.(*blobstore.S3Store); !ok {
		t.Errorf("expected s3 blob store when BLOB_BUCKET is set, got %T", blobs)
	}
}
