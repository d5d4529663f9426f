package pipeline

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/realty-search/internal/model"
	"github.com/sells-group/realty-search/internal/retrieve"
	"github.com/sells-group/realty-search/internal/store"
	"github.com/sells-group/realty-search/pkg/anthropic"
	"github.com/sells-group/realty-search/pkg/upstash"
)

// --- Anthropic Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func (m *mockAnthropicClient) StreamMessage(ctx context.Context, req anthropic.MessageRequest) (anthropic.MessageStream, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(anthropic.MessageStream), args.Error(1)
}

// --- Message Stream Mock ---

// mockMessageStream plays back scripted chunks, then yields final or err.
type mockMessageStream struct {
	chunks []string
	final  *anthropic.MessageResponse
	err    error
	idx    int
	closed bool
}

func newMockStream(final *anthropic.MessageResponse, chunks ...string) *mockMessageStream {
	return &mockMessageStream{chunks: chunks, final: final, idx: -1}
}

func (m *mockMessageStream) Next() bool {
	m.idx++
	return m.idx < len(m.chunks)
}

func (m *mockMessageStream) Delta() string {
	return m.chunks[m.idx]
}

func (m *mockMessageStream) Err() error {
	return m.err
}

func (m *mockMessageStream) Close() error {
	m.closed = true
	return nil
}

func (m *mockMessageStream) Final() (*anthropic.MessageResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.final, nil
}

// --- Retriever Mock ---

type mockRetriever struct {
	mock.Mock
}

func (m *mockRetriever) Retrieve(ctx context.Context, query string) ([]model.RawResult, int, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]model.RawResult), args.Int(1), args.Error(2)
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateRun(ctx context.Context, query string) (*model.Run, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	args := m.Called(ctx, runID, status)
	return args.Error(0)
}

func (m *mockStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, result *model.RunResult) error {
	args := m.Called(ctx, runID, status, result)
	return args.Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Upstash Mock ---

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

// --- Ensure interface compliance ---
var (
	_ anthropic.Client        = (*mockAnthropicClient)(nil)
	_ anthropic.MessageStream = (*mockMessageStream)(nil)
	_ retrieve.Retriever      = (*mockRetriever)(nil)
	_ store.Store             = (*mockStore)(nil)
	_ upstash.Client          = (*mockRedis)(nil)
)
