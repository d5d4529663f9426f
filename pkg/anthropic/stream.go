package anthropic

import (
	"context"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/rotisserie/eris"
)

// MessageStream yields incremental text deltas from a streaming message.
// Next advances to the next text delta; once it returns false, check Err
// and read the accumulated response from Final.
type MessageStream interface {
	Next() bool
	Delta() string
	Err() error
	Close() error
	Final() (*MessageResponse, error)
}

func (c *sdkClient) StreamMessage(ctx context.Context, req MessageRequest) (MessageStream, error) {
	stream := c.client.Messages.NewStreaming(ctx, toSDKParams(req))
	if err := stream.Err(); err != nil {
		return nil, eris.Wrap(err, "anthropic: start message stream")
	}
	return &sdkMessageStream{stream: stream}, nil
}

// sdkMessageStream wraps the SDK's SSE stream and accumulates the full
// message as events arrive.
type sdkMessageStream struct {
	stream *ssestream.Stream[sdk.MessageStreamEventUnion]
	acc    sdk.Message
	delta  string
	err    error
}

func (s *sdkMessageStream) Next() bool {
	if s.err != nil {
		return false
	}
	for s.stream.Next() {
		event := s.stream.Current()
		if err := s.acc.Accumulate(event); err != nil {
			s.err = eris.Wrap(err, "anthropic: accumulate stream event")
			return false
		}

		switch eventVariant := event.AsAny().(type) {
		case sdk.ContentBlockDeltaEvent:
			switch deltaVariant := eventVariant.Delta.AsAny().(type) {
			case sdk.TextDelta:
				if deltaVariant.Text == "" {
					continue
				}
				s.delta = deltaVariant.Text
				return true
			}
		}
	}
	return false
}

func (s *sdkMessageStream) Delta() string {
	return s.delta
}

func (s *sdkMessageStream) Err() error {
	if s.err != nil {
		return s.err
	}
	if err := s.stream.Err(); err != nil {
		return eris.Wrap(err, "anthropic: message stream")
	}
	return nil
}

func (s *sdkMessageStream) Close() error {
	return s.stream.Close()
}

// Final returns the fully accumulated response. Valid once Next has
// returned false with a nil Err.
func (s *sdkMessageStream) Final() (*MessageResponse, error) {
	if err := s.Err(); err != nil {
		return nil, err
	}
	return fromSDKMessage(&s.acc), nil
}
