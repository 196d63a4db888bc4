package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"quizroom-service/internal/domain"
)

type countingLoader struct {
	loads   atomic.Int64
	content domain.QuizContent
}

func (l *countingLoader) LoadQuizContent(_ context.Context, _ string) (domain.QuizContent, error) {
	l.loads.Add(1)
	return l.content, nil
}

func TestQuizCacheServesFromCacheWithinTTL(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{content: domain.QuizContent{Quiz: domain.Quiz{ID: "quiz-1", Title: "Capitals"}}}
	cache := NewQuizCache(loader, time.Minute)

	for i := 0; i < 3; i++ {
		got, err := cache.QuizContent(ctx, "quiz-1")
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if got.Quiz.Title != "Capitals" {
			t.Fatalf("content = %+v", got)
		}
	}
	if n := loader.loads.Load(); n != 1 {
		t.Fatalf("loader called %d times, want 1", n)
	}
}

func TestQuizCacheExpires(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{content: domain.QuizContent{Quiz: domain.Quiz{ID: "quiz-1"}}}
	cache := NewQuizCache(loader, time.Minute)

	now := time.Now()
	cache.clock = func() time.Time { return now }
	if _, err := cache.QuizContent(ctx, "quiz-1"); err != nil {
		t.Fatalf("first read: %v", err)
	}

	// jitter caps the expiry at ttl*1.1
	now = now.Add(2 * time.Minute)
	if _, err := cache.QuizContent(ctx, "quiz-1"); err != nil {
		t.Fatalf("read after expiry: %v", err)
	}
	if n := loader.loads.Load(); n != 2 {
		t.Fatalf("loader called %d times, want 2", n)
	}
}

func TestQuizCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{content: domain.QuizContent{Quiz: domain.Quiz{ID: "quiz-1", Title: "v1"}}}
	cache := NewQuizCache(loader, time.Minute)

	if _, err := cache.QuizContent(ctx, "quiz-1"); err != nil {
		t.Fatalf("first read: %v", err)
	}
	loader.content.Quiz.Title = "v2"
	cache.Invalidate(ctx, "quiz-1")

	got, err := cache.QuizContent(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("read after invalidate: %v", err)
	}
	if got.Quiz.Title != "v2" {
		t.Fatalf("stale content after invalidate: %q", got.Quiz.Title)
	}
}

func TestQuizCacheSingleflightCollapsesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{content: domain.QuizContent{Quiz: domain.Quiz{ID: "quiz-1"}}}
	cache := NewQuizCache(loader, time.Minute)

	const readers = 16
	var wg sync.WaitGroup
	wg.Add(readers)
	for i := 0; i < readers; i++ {
		go func() {
			defer wg.Done()
			if _, err := cache.QuizContent(ctx, "quiz-1"); err != nil {
				t.Errorf("read: %v", err)
			}
		}()
	}
	wg.Wait()
	if n := loader.loads.Load(); n != 1 {
		t.Fatalf("loader called %d times, want 1", n)
	}
}
