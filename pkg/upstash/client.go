// Package upstash is a minimal client for the Upstash Redis REST API.
//
// Commands are posted as JSON arrays to the database URL and replies come
// back as {"result": ...} or {"error": "..."}.
package upstash

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client executes Redis commands against an Upstash database.
type Client interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) (string, bool, error)
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	ZIncrBy(ctx context.Context, key string, delta float64, member string) (float64, error)
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int) ([]MemberScore, error)
}

// MemberScore is a sorted-set member with its score.
type MemberScore struct {
	Member string
	Score  float64
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit throttles outbound calls to rps requests per second.
// Zero or negative disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an Upstash REST client for the database at baseURL.
func NewClient(baseURL, token string, opts ...Option) Client {
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

type commandResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// do executes a single command and returns the raw result payload.
func (c *httpClient) do(ctx context.Context, cmd []string) (json.RawMessage, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "upstash: rate limit")
	}

	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, eris.Wrap(err, "upstash: marshal command")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "upstash: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "upstash: %s request", cmd[0])
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "upstash: read response")
	}

	var result commandResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Errorf("upstash: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	if result.Error != "" {
		return nil, eris.Errorf("upstash: %s: %s", cmd[0], result.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("upstash: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return result.Result, nil
}

func (c *httpClient) Ping(ctx context.Context) error {
	res, err := c.do(ctx, []string{"PING"})
	if err != nil {
		return err
	}
	var pong string
	if err := json.Unmarshal(res, &pong); err != nil || pong != "PONG" {
		return eris.Errorf("upstash: unexpected ping reply: %s", string(res))
	}
	return nil
}

// Get returns the value at key. The bool reports whether the key exists.
func (c *httpClient) Get(ctx context.Context, key string) (string, bool, error) {
	res, err := c.do(ctx, []string{"GET", key})
	if err != nil {
		return "", false, err
	}
	if len(res) == 0 || string(res) == "null" {
		return "", false, nil
	}
	var val string
	if err := json.Unmarshal(res, &val); err != nil {
		return "", false, eris.Wrap(err, "upstash: decode GET reply")
	}
	return val, true, nil
}

// SetEx stores value at key with the given expiry. TTL must be at least
// one second; Redis rejects sub-second expiries on SET EX.
func (c *httpClient) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	seconds := int(ttl / time.Second)
	if seconds < 1 {
		return eris.New("upstash: ttl must be at least one second")
	}
	_, err := c.do(ctx, []string{"SET", key, value, "EX", strconv.Itoa(seconds)})
	return err
}

// Del removes the given keys and returns the number actually deleted.
func (c *httpClient) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	res, err := c.do(ctx, append([]string{"DEL"}, keys...))
	if err != nil {
		return 0, err
	}
	return decodeInt(res, "DEL")
}

func (c *httpClient) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	res, err := c.do(ctx, []string{"HINCRBY", key, field, strconv.FormatInt(delta, 10)})
	if err != nil {
		return 0, err
	}
	return decodeInt(res, "HINCRBY")
}

func (c *httpClient) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	res, err := c.do(ctx, []string{"HGETALL", key})
	if err != nil {
		return nil, err
	}
	flat, err := decodeStringSlice(res, "HGETALL")
	if err != nil {
		return nil, err
	}
	if len(flat)%2 != 0 {
		return nil, eris.New("upstash: odd-length HGETALL reply")
	}
	m := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		m[flat[i]] = flat[i+1]
	}
	return m, nil
}

func (c *httpClient) ZIncrBy(ctx context.Context, key string, delta float64, member string) (float64, error) {
	res, err := c.do(ctx, []string{"ZINCRBY", key, strconv.FormatFloat(delta, 'f', -1, 64), member})
	if err != nil {
		return 0, err
	}
	// ZINCRBY replies with the new score as a string.
	var s string
	if err := json.Unmarshal(res, &s); err != nil {
		return 0, eris.Wrap(err, "upstash: decode ZINCRBY reply")
	}
	score, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Wrap(err, "upstash: parse ZINCRBY score")
	}
	return score, nil
}

// ZRevRangeWithScores returns members of the sorted set at key ordered by
// score descending, over the inclusive rank range [start, stop].
func (c *httpClient) ZRevRangeWithScores(ctx context.Context, key string, start, stop int) ([]MemberScore, error) {
	res, err := c.do(ctx, []string{"ZRANGE", key, strconv.Itoa(start), strconv.Itoa(stop), "REV", "WITHSCORES"})
	if err != nil {
		return nil, err
	}
	flat, err := decodeStringSlice(res, "ZRANGE")
	if err != nil {
		return nil, err
	}
	if len(flat)%2 != 0 {
		return nil, eris.New("upstash: odd-length ZRANGE reply")
	}
	out := make([]MemberScore, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		score, err := strconv.ParseFloat(flat[i+1], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "upstash: parse score for %q", flat[i])
		}
		out = append(out, MemberScore{Member: flat[i], Score: score})
	}
	return out, nil
}

func decodeInt(res json.RawMessage, cmd string) (int64, error) {
	var n int64
	if err := json.Unmarshal(res, &n); err != nil {
		return 0, eris.Wrapf(err, "upstash: decode %s reply", cmd)
	}
	return n, nil
}

func decodeStringSlice(res json.RawMessage, cmd string) ([]string, error) {
	if len(res) == 0 || string(res) == "null" {
		return nil, nil
	}
	var flat []string
	if err := json.Unmarshal(res, &flat); err != nil {
		return nil, eris.Wrapf(err, "upstash: decode %s reply", cmd)
	}
	return flat, nil
}
