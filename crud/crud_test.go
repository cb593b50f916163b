package crud

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"microposts/database"
	"microposts/domain"
)

// newTestDB opens a fresh in-memory sqlite database with all tables migrated.
// A single connection keeps every query on the same in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func newTestServices(t *testing.T, cache domain.CountCache, publisher domain.EventPublisher) *Services {
	t.Helper()
	s, err := NewServices(newTestDB(t),
		WithUser("pepper", "hmac-key"),
		WithRelation(cache, publisher),
		WithMicropost())
	require.NoError(t, err)
	return s
}

var userSeq int

func createUser(t *testing.T, s *Services, name string) *domain.User {
	t.Helper()
	userSeq++
	user := &domain.User{
		Name:     name,
		Email:    fmt.Sprintf("%s%d@example.com", name, userSeq),
		Password: "password123",
	}
	require.NoError(t, s.User.Create(context.Background(), user))
	return user
}

func createMicropost(t *testing.T, s *Services, userID int, content string) *domain.Micropost {
	t.Helper()
	post := &domain.Micropost{UserID: userID, Content: content}
	require.NoError(t, s.Micropost.Create(context.Background(), post))
	return post
}

// fakeCache is an in-memory domain.CountCache that records its calls.
type fakeCache struct {
	mu     sync.Mutex
	values map[string]int64
	calls  []string
	err    error
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string]int64{}}
}

func (c *fakeCache) record(call string) {
	c.calls = append(c.calls, call)
}

func (c *fakeCache) Get(ctx context.Context, key string) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("get " + key)
	if c.err != nil {
		return 0, false, c.err
	}
	n, ok := c.values[key]
	return n, ok, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, n int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("set " + key)
	if c.err != nil {
		return c.err
	}
	c.values[key] = n
	return nil
}

func (c *fakeCache) CondIncr(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("incr " + key)
	if c.err != nil {
		return c.err
	}
	if _, ok := c.values[key]; ok {
		c.values[key]++
	}
	return nil
}

func (c *fakeCache) CondDecr(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("decr " + key)
	if c.err != nil {
		return c.err
	}
	if n, ok := c.values[key]; ok && n > 0 {
		c.values[key]--
	}
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		c.record("del " + key)
		delete(c.values, key)
	}
	return c.err
}

// fakePublisher collects published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []domain.RelationEvent
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, event domain.RelationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) published() []domain.RelationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.RelationEvent(nil), p.events...)
}
