package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"quizroom-service/internal/domain"
)

type countingLoader struct {
	loads   atomic.Int64
	content domain.QuizContent
	err     error
}

func (l *countingLoader) LoadQuizContent(_ context.Context, _ string) (domain.QuizContent, error) {
	l.loads.Add(1)
	if l.err != nil {
		return domain.QuizContent{}, l.err
	}
	return l.content, nil
}

func testContent(quizID string) domain.QuizContent {
	return domain.QuizContent{
		Quiz: domain.Quiz{ID: quizID, Title: "Capitals", QuizType: domain.TypeQA},
		Questions: []domain.Question{
			{ID: "q1", QuizID: quizID, Position: 0, Text: "Capital of France?", Answer: "Paris"},
		},
	}
}

func newTestCache(t *testing.T, loader ContentLoader, ttl time.Duration) (*QuizCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewQuizCache(client, loader, ttl), mr
}

func TestQuizContentCachesAfterMiss(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{content: testContent("quiz-1")}
	cache, mr := newTestCache(t, loader, time.Minute)

	got, err := cache.QuizContent(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("miss read: %v", err)
	}
	if got.Quiz.Title != "Capitals" || len(got.Questions) != 1 {
		t.Fatalf("content = %+v", got)
	}
	if !mr.Exists("quiz:quiz-1:content") {
		t.Fatal("miss did not fill the cache key")
	}

	if _, err := cache.QuizContent(ctx, "quiz-1"); err != nil {
		t.Fatalf("hit read: %v", err)
	}
	if n := loader.loads.Load(); n != 1 {
		t.Fatalf("loader called %d times, want 1", n)
	}
}

func TestInvalidateForcesReload(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{content: testContent("quiz-1")}
	cache, mr := newTestCache(t, loader, time.Minute)

	if _, err := cache.QuizContent(ctx, "quiz-1"); err != nil {
		t.Fatalf("first read: %v", err)
	}
	cache.Invalidate(ctx, "quiz-1")
	if mr.Exists("quiz:quiz-1:content") {
		t.Fatal("invalidate left the key behind")
	}

	loader.content.Quiz.Title = "Capitals v2"
	got, err := cache.QuizContent(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("read after invalidate: %v", err)
	}
	if got.Quiz.Title != "Capitals v2" {
		t.Fatalf("stale content after invalidate: %q", got.Quiz.Title)
	}
	if n := loader.loads.Load(); n != 2 {
		t.Fatalf("loader called %d times, want 2", n)
	}
}

func TestLoaderErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{err: errors.New("store down")}
	cache, mr := newTestCache(t, loader, time.Minute)

	if _, err := cache.QuizContent(ctx, "quiz-1"); err == nil {
		t.Fatal("loader error swallowed")
	}
	if mr.Exists("quiz:quiz-1:content") {
		t.Fatal("failed load filled the cache")
	}

	loader.err = nil
	loader.content = testContent("quiz-1")
	if _, err := cache.QuizContent(ctx, "quiz-1"); err != nil {
		t.Fatalf("read after recovery: %v", err)
	}
}

func TestCorruptCacheEntryFallsBackToLoader(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{content: testContent("quiz-1")}
	cache, mr := newTestCache(t, loader, time.Minute)

	mr.Set("quiz:quiz-1:content", "{not json")
	got, err := cache.QuizContent(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("read over corrupt entry: %v", err)
	}
	if got.Quiz.ID != "quiz-1" {
		t.Fatalf("content = %+v", got)
	}
	if n := loader.loads.Load(); n != 1 {
		t.Fatalf("loader called %d times, want 1", n)
	}
}
