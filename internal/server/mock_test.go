package server

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/realty-search/internal/model"
	"github.com/sells-group/realty-search/pkg/upstash"
)

// scriptedRunner feeds a fixed event sequence through a channel, the same
// contract the pipeline honors: the channel closes when the script ends or
// the request context is canceled.
type scriptedRunner struct {
	events   []model.Event
	err      error
	gotQuery string
}

func (s *scriptedRunner) Run(ctx context.Context, query string) (<-chan model.Event, error) {
	s.gotQuery = query
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan model.Event)
	go func() {
		defer close(ch)
		for _, ev := range s.events {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// mockRedis implements upstash.Client for testing.
type mockRedis struct {
	mock.Mock
}

func (m *mockRedis) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockRedis) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockRedis) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *mockRedis) Del(ctx context.Context, keys ...string) (int64, error) {
	args := m.Called(ctx, keys)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRedis) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	args := m.Called(ctx, key, field, delta)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRedis) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *mockRedis) ZIncrBy(ctx context.Context, key string, delta float64, member string) (float64, error) {
	args := m.Called(ctx, key, delta, member)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockRedis) ZRevRangeWithScores(ctx context.Context, key string, start, stop int) ([]upstash.MemberScore, error) {
	args := m.Called(ctx, key, start, stop)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]upstash.MemberScore), args.Error(1)
}

var (
	_ Runner         = (*scriptedRunner)(nil)
	_ upstash.Client = (*mockRedis)(nil)
)
