package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemorySetGet(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got string
	if err := mc.Get(ctx, "k", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "v" {
		t.Fatalf("expected v, got %q", got)
	}
}

func TestMemoryGetMiss(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	var got string
	if err := mc.Get(context.Background(), "absent", &got); err != ErrCacheMiss {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestSetIfAbsentClaimsOnce(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	ok, err := mc.SetIfAbsent(ctx, "claim", "a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first claim should win: ok=%v err=%v", ok, err)
	}
	ok, err = mc.SetIfAbsent(ctx, "claim", "b", time.Minute)
	if err != nil || ok {
		t.Fatalf("second claim should lose: ok=%v err=%v", ok, err)
	}
}

func TestSetIfAbsentExpiredCountsAbsent(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if ok, _ := mc.SetIfAbsent(ctx, "short", "a", 10*time.Millisecond); !ok {
		t.Fatalf("initial claim should win")
	}
	time.Sleep(20 * time.Millisecond)
	if ok, _ := mc.SetIfAbsent(ctx, "short", "b", time.Minute); !ok {
		t.Fatalf("expired key should be claimable again")
	}
}

func TestSetIfAbsentConcurrentSingleWinner(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	wins := make(chan bool, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := mc.SetIfAbsent(ctx, "race", "x", time.Minute)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			wins <- ok
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for w := range wins {
		if w {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}

func TestIncrementWithTTL(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := mc.IncrementWithTTL(ctx, "ctr", time.Minute)
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}
}

func TestIncrementWithTTLResetsAfterExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if _, err := mc.IncrementWithTTL(ctx, "ctr", 10*time.Millisecond); err != nil {
		t.Fatalf("increment: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	got, err := mc.IncrementWithTTL(ctx, "ctr", time.Minute)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if got != 1 {
		t.Fatalf("expired counter should restart at 1, got %d", got)
	}
}

func TestDeleteReleasesKey(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if ok, _ := mc.SetIfAbsent(ctx, "k", "v", time.Minute); !ok {
		t.Fatalf("claim should win")
	}
	if err := mc.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := mc.SetIfAbsent(ctx, "k", "v2", time.Minute); !ok {
		t.Fatalf("deleted key should be claimable")
	}
}
