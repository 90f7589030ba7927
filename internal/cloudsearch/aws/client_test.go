package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/csindex/internal/domain"
)

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{Region: "us-east-1"})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
}

func TestNew_StaticCredentials(t *testing.T) {
	c, err := New(context.Background(), Config{
		AccessKeyID:       "AKID",
		SecretAccessKey:   "SECRET",
		Region:            "eu-west-1",
		Endpoint:          "http://localhost:4566",
		RequestsPerSecond: 5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.cfg.Region != "eu-west-1" {
		t.Errorf("region = %q", c.cfg.Region)
	}
	if c.limiter.Limit() != 5 {
		t.Errorf("limit = %v, want 5", c.limiter.Limit())
	}
}

func TestEndpointClient_Cached(t *testing.T) {
	c, err := New(context.Background(), Config{AccessKeyID: "AKID", SecretAccessKey: "SECRET", Region: "us-east-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a := c.endpointClient("search-x.us-east-1.cloudsearch.amazonaws.com")
	b := c.endpointClient("search-x.us-east-1.cloudsearch.amazonaws.com")
	if a != b {
		t.Error("endpoint clients should be cached per endpoint")
	}
	if c.domains.Size() != 1 {
		t.Errorf("cache size = %d, want 1", c.domains.Size())
	}
}
