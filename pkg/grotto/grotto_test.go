package grotto

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/grotto-neuro/grotto/internal/testutil"
)

// setupTestRedis creates a test Redis client, skipping when unavailable.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

// newTestClient wires a grotto client against a mock service deployment.
func newTestClient(t *testing.T, mock *testutil.MockService, opts Options) *Client {
	t.Helper()

	opts.Server = mock.URL()
	opts.Redis = setupTestRedis(t)
	if opts.Datastack == "" {
		opts.Datastack = "minnie65"
	}

	c, err := New(context.Background(), opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNew_ResolvesDatastack(t *testing.T) {
	mock := testutil.NewMockService()
	defer mock.Close()
	mock.SetDatastackInfo("minnie65", "minnie3_v1", "minnie65_phase3")

	c := newTestClient(t, mock, Options{})

	info := c.Info()
	if info.SegmentationTable != "minnie3_v1" {
		t.Errorf("SegmentationTable = %q, want minnie3_v1", info.SegmentationTable)
	}
	if info.AlignedVolume != "minnie65_phase3" {
		t.Errorf("AlignedVolume = %q, want minnie65_phase3", info.AlignedVolume)
	}
	if c.Chunkedgraph().Table() != "minnie3_v1" {
		t.Errorf("chunkedgraph table = %q", c.Chunkedgraph().Table())
	}
}

func TestNew_OverridesSkipInfoLookup(t *testing.T) {
	mock := testutil.NewMockService()
	defer mock.Close()

	c := newTestClient(t, mock, Options{
		SegmentationTable: "fly_v31",
		AlignedVolume:     "fafb",
	})

	if mock.GetRequestCount() != 0 {
		t.Errorf("info lookup made %d requests, want 0 with overrides", mock.GetRequestCount())
	}
	if c.Info().SegmentationTable != "fly_v31" {
		t.Errorf("SegmentationTable = %q", c.Info().SegmentationTable)
	}
}

func TestNew_RequiresDatastack(t *testing.T) {
	if _, err := New(context.Background(), Options{Server: "https://example.org"}); err == nil {
		t.Error("New() should fail without a datastack")
	}
}

func TestGetRoot(t *testing.T) {
	mock := testutil.NewMockService()
	defer mock.Close()
	mock.SetRootResponse("fly_v31", 77, 864691135)

	c := newTestClient(t, mock, Options{SegmentationTable: "fly_v31", AlignedVolume: "fafb"})

	root, err := c.GetRoot(context.Background(), 77)
	if err != nil {
		t.Fatalf("GetRoot() error = %v", err)
	}
	if root != 864691135 {
		t.Errorf("GetRoot() = %d, want 864691135", root)
	}
}

func TestTableFromSource(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		want    string
		wantErr bool
	}{
		{"graphene source", "graphene://https://data.example.org/segmentation/table/minnie3_v1", "minnie3_v1", false},
		{"trailing slash", "graphene://https://data.example.org/segmentation/table/minnie3_v1/", "minnie3_v1", false},
		{"empty source", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tableFromSource(tt.source)
			if (err != nil) != tt.wantErr {
				t.Fatalf("tableFromSource(%q) error = %v, wantErr %v", tt.source, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("tableFromSource(%q) = %q, want %q", tt.source, got, tt.want)
			}
		})
	}
}
