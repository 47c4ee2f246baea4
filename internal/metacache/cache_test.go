package metacache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fulmenhq/repocheck/internal/githubapi"
)

var testID = githubapi.Identity{Owner: "cthoyt", Name: "autoreviewer"}

func countingFetch(calls *atomic.Int64, meta *githubapi.Metadata, err error) FetchFunc {
	return func(ctx context.Context, id githubapi.Identity) (*githubapi.Metadata, error) {
		calls.Add(1)
		return meta, err
	}
}

func TestGetFetchesOnceAndMemoizes(t *testing.T) {
	var calls atomic.Int64
	c := New(t.TempDir(), countingFetch(&calls, &githubapi.Metadata{DefaultBranch: "main"}, nil))

	for i := 0; i < 3; i++ {
		meta, err := c.Get(context.Background(), testID)
		if err != nil {
			t.Fatalf("Get error: %v", err)
		}
		if meta.DefaultBranch != "main" {
			t.Errorf("branch = %q", meta.DefaultBranch)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("fetch called %d times, want 1", calls.Load())
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestGetWritesThroughToDisk(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int64
	c := New(dir, countingFetch(&calls, &githubapi.Metadata{DefaultBranch: "develop", Language: "Python"}, nil))

	if _, err := c.Get(context.Background(), testID); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(c.Path(testID))
	if err != nil {
		t.Fatalf("expected on-disk cache file: %v", err)
	}
	var meta githubapi.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		t.Fatalf("cache file is not valid JSON: %v", err)
	}
	if meta.DefaultBranch != "develop" || meta.Language != "Python" {
		t.Errorf("round-trip mismatch: %+v", meta)
	}
}

func TestGetPrefersDiskOverFetch(t *testing.T) {
	dir := t.TempDir()

	// Seed the disk layer with a different branch than the fetcher would return.
	seed := New(dir, countingFetch(new(atomic.Int64), &githubapi.Metadata{DefaultBranch: "seeded"}, nil))
	if _, err := seed.Get(context.Background(), testID); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int64
	c := New(dir, countingFetch(&calls, &githubapi.Metadata{DefaultBranch: "fetched"}, nil))
	meta, err := c.Get(context.Background(), testID)
	if err != nil {
		t.Fatal(err)
	}
	if meta.DefaultBranch != "seeded" {
		t.Errorf("branch = %q, want seeded disk entry", meta.DefaultBranch)
	}
	if calls.Load() != 0 {
		t.Errorf("fetch called %d times, want 0", calls.Load())
	}
}

func TestGetMalformedDiskEntryRefetches(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int64
	c := New(dir, countingFetch(&calls, &githubapi.Metadata{DefaultBranch: "main"}, nil))

	if err := os.WriteFile(c.Path(testID), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	meta, err := c.Get(context.Background(), testID)
	if err != nil {
		t.Fatal(err)
	}
	if meta.DefaultBranch != "main" {
		t.Errorf("branch = %q", meta.DefaultBranch)
	}
	if calls.Load() != 1 {
		t.Errorf("fetch called %d times, want 1", calls.Load())
	}
}

func TestGetPropagatesFetchError(t *testing.T) {
	wantErr := errors.New("boom")
	c := New(t.TempDir(), countingFetch(new(atomic.Int64), nil, wantErr))

	_, err := c.Get(context.Background(), testID)
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestConcurrentGetsCoalesce(t *testing.T) {
	var calls atomic.Int64
	c := New(t.TempDir(), countingFetch(&calls, &githubapi.Metadata{DefaultBranch: "main"}, nil))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Get(context.Background(), testID); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("fetch called %d times under concurrency, want 1", calls.Load())
	}
}

func TestPathIsStablePerIdentity(t *testing.T) {
	c := New(t.TempDir(), nil)
	a := c.Path(githubapi.Identity{Owner: "a", Name: "b"})
	b := c.Path(githubapi.Identity{Owner: "a", Name: "b"})
	other := c.Path(githubapi.Identity{Owner: "a", Name: "c"})
	if a != b {
		t.Errorf("path not stable: %q vs %q", a, b)
	}
	if a == other {
		t.Errorf("distinct identities share path %q", a)
	}
}
