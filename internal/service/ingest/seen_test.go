package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupRedisSeenSet(t *testing.T) (*RedisSeenSet, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	set, err := NewRedisSeenSet(context.Background(), mr.Addr(), "", 0, time.Hour)
	if err != nil {
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}
	t.Cleanup(func() { set.Close() })
	return set, mr
}

func testSeenSetContract(t *testing.T, set SeenSet) {
	ctx := context.Background()

	added, err := set.Add(ctx, "token")
	if err != nil || !added {
		t.Fatalf("First Add: added=%v err=%v", added, err)
	}
	added, err = set.Add(ctx, "token")
	if err != nil || added {
		t.Fatalf("Second Add: added=%v err=%v", added, err)
	}

	if err := set.Forget(ctx, "token"); err != nil {
		t.Fatalf("Forget failed: %v", err)
	}
	added, err = set.Add(ctx, "token")
	if err != nil || !added {
		t.Fatalf("Add after Forget: added=%v err=%v", added, err)
	}
}

func testSeenSetConcurrency(t *testing.T, set SeenSet) {
	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if added, err := set.Add(context.Background(), "contended"); err == nil && added {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("Expected exactly one winner, got %d", wins.Load())
	}
}

func TestMemorySeenSet(t *testing.T) {
	testSeenSetContract(t, NewMemorySeenSet())
	testSeenSetConcurrency(t, NewMemorySeenSet())
}

func TestRedisSeenSet(t *testing.T) {
	set, _ := setupRedisSeenSet(t)
	testSeenSetContract(t, set)
	testSeenSetConcurrency(t, set)
}

func TestRedisSeenSet_TokensExpire(t *testing.T) {
	set, mr := setupRedisSeenSet(t)
	ctx := context.Background()

	if added, _ := set.Add(ctx, "old"); !added {
		t.Fatal("Expected first Add to succeed")
	}
	if ttl := mr.TTL(seenKeyPrefix + "old"); ttl != time.Hour {
		t.Errorf("Expected 1h TTL, got %v", ttl)
	}

	mr.FastForward(2 * time.Hour)

	if added, _ := set.Add(ctx, "old"); !added {
		t.Error("Expired token should be admitted again")
	}
}

func TestNewRedisSeenSet_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := NewRedisSeenSet(ctx, addr, "", 0, time.Hour); err == nil {
		t.Error("Expected connection error")
	}
}
