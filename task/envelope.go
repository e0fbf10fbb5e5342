package task

import (
	"fmt"
	"time"

	"github.com/csams/jack/codec"
)

// Bundle is one set of arguments for one delegate call. Every value is
// encoded on its own so the delegate can bind it into a concrete type.
type Bundle struct {
	Args   [][]byte          `json:"args"`
	Kwargs map[string][]byte `json:"kwargs"`
}

// NewBundle encodes args and kwargs with c.
func NewBundle(c codec.Codec, args []any, kwargs map[string]any) (Bundle, error) {
	b := Bundle{Args: make([][]byte, 0, len(args))}
	for i, a := range args {
		raw, err := c.Marshal(a)
		if err != nil {
			return Bundle{}, fmt.Errorf("encode argument %d: %w", i, err)
		}
		b.Args = append(b.Args, raw)
	}
	if len(kwargs) > 0 {
		b.Kwargs = make(map[string][]byte, len(kwargs))
		for k, v := range kwargs {
			raw, err := c.Marshal(v)
			if err != nil {
				return Bundle{}, fmt.Errorf("encode keyword %q: %w", k, err)
			}
			b.Kwargs[k] = raw
		}
	}
	return b, nil
}

// DelayedCall is the envelope put on the broker for one request, or for
// one chunk of a map request.
type DelayedCall struct {
	Name         string        `json:"name"`
	DelegateKey  string        `json:"delegate_key"`
	Args         []Bundle      `json:"args"`
	ExpectResult bool          `json:"expect_result"`
	Queue        string        `json:"queue"`
	ResultQueue  string        `json:"result_queue"`
	ID           uint64        `json:"id"`
	SeqID        int           `json:"seq_id"`
	TTR          time.Duration `json:"ttr"`
}

func (dc *DelayedCall) String() string {
	return fmt.Sprintf("%s[%d.%d]", dc.Name, dc.ID, dc.SeqID)
}

// IsMap reports whether dc is a chunk of a map request.
func (dc *DelayedCall) IsMap() bool { return dc.SeqID > 0 }

// ServerResult is the reply to one DelayedCall. Value holds one encoded
// value per argument bundle, in bundle order.
type ServerResult struct {
	ID        uint64   `json:"id"`
	SeqID     int      `json:"seq_id"`
	Value     [][]byte `json:"value"`
	Exception *Error   `json:"exception"`
}

// Failed builds the result carrying err for dc.
func Failed(dc *DelayedCall, err error) *ServerResult {
	return &ServerResult{ID: dc.ID, SeqID: dc.SeqID, Exception: NewError(err)}
}

// ResultQueueName names the private channel a reply to one request chunk
// is published on: task name, dispatching host, port and process, then the
// correlation and seq ids.
func ResultQueueName(name, host string, port, pid int, id uint64, seq int) string {
	return fmt.Sprintf("%s-%s-%d-%d-%d.%d", name, host, port, pid, id, seq)
}

// EncodeCall serializes an envelope.
func EncodeCall(c codec.Codec, dc *DelayedCall) ([]byte, error) {
	b, err := c.Marshal(dc)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", dc, err)
	}
	return b, nil
}

// DecodeCall deserializes an envelope.
func DecodeCall(c codec.Codec, data []byte) (*DelayedCall, error) {
	var dc DelayedCall
	if err := c.Unmarshal(data, &dc); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &dc, nil
}

// EncodeResult serializes a result.
func EncodeResult(c codec.Codec, r *ServerResult) ([]byte, error) {
	b, err := c.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode result %d.%d: %w", r.ID, r.SeqID, err)
	}
	return b, nil
}

// DecodeResult deserializes a result.
func DecodeResult(c codec.Codec, data []byte) (*ServerResult, error) {
	var r ServerResult
	if err := c.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &r, nil
}
