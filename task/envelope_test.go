package task_test

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/csams/jack/codec"
	"github.com/csams/jack/task"
)

func codecs(t *testing.T) []codec.Codec {
	t.Helper()
	cb, err := codec.CBOR()
	require.NoError(t, err)
	return []codec.Codec{codec.JSON(), cb}
}

func randBytes(r *rand.Rand) []byte {
	b := make([]byte, 1+r.IntN(8))
	for i := range b {
		b[i] = byte(r.UintN(256))
	}
	return b
}

func randBundle(r *rand.Rand) task.Bundle {
	b := task.Bundle{Args: make([][]byte, 1+r.IntN(3))}
	for i := range b.Args {
		b.Args[i] = randBytes(r)
	}
	if r.IntN(2) == 0 {
		b.Kwargs = map[string][]byte{fmt.Sprintf("k%d", r.IntN(100)): randBytes(r)}
	}
	return b
}

func randCall(r *rand.Rand) *task.DelayedCall {
	dc := &task.DelayedCall{
		Name:         fmt.Sprintf("ops.fn%d", r.IntN(1000)),
		ExpectResult: r.IntN(2) == 0,
		Queue:        fmt.Sprintf("q%d", r.IntN(10)),
		ID:           r.Uint64(),
		SeqID:        r.IntN(50),
		TTR:          time.Duration(r.Int64N(int64(time.Hour))),
	}
	dc.DelegateKey = dc.Name
	dc.ResultQueue = task.ResultQueueName(dc.Name, "localhost", 6379, 4242, dc.ID, dc.SeqID)
	dc.Args = make([]task.Bundle, 1+r.IntN(4))
	for i := range dc.Args {
		dc.Args[i] = randBundle(r)
	}
	return dc
}

func randResult(r *rand.Rand) *task.ServerResult {
	res := &task.ServerResult{ID: r.Uint64(), SeqID: r.IntN(50)}
	if r.IntN(2) == 0 {
		res.Exception = &task.Error{Type: "*errors.errorString", Message: fmt.Sprintf("boom %d", r.IntN(10))}
		return res
	}
	res.Value = make([][]byte, 1+r.IntN(4))
	for i := range res.Value {
		res.Value[i] = randBytes(r)
	}
	return res
}

func TestEnvelopeRoundTrip(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for _, c := range codecs(t) {
		t.Run(c.Name(), func(t *testing.T) {
			for range 200 {
				dc := randCall(r)
				b, err := task.EncodeCall(c, dc)
				require.NoError(t, err)
				got, err := task.DecodeCall(c, b)
				require.NoError(t, err)
				require.Equal(t, dc, got)

				res := randResult(r)
				b, err = task.EncodeResult(c, res)
				require.NoError(t, err)
				gotRes, err := task.DecodeResult(c, b)
				require.NoError(t, err)
				require.Equal(t, res, gotRes)
			}
		})
	}
}

func TestDecodeGarbage(t *testing.T) {
	for _, c := range codecs(t) {
		_, err := task.DecodeCall(c, []byte{0xff, 0x00, 0x13})
		require.Error(t, err, c.Name())
		_, err = task.DecodeResult(c, []byte{0xff, 0x00, 0x13})
		require.Error(t, err, c.Name())
	}
}

func TestResultQueueName(t *testing.T) {
	require.Equal(t, "ops.add-broker-6379-17-5.2", task.ResultQueueName("ops.add", "broker", 6379, 17, 5, 2))
}

func TestNewBundle(t *testing.T) {
	c := codec.JSON()
	b, err := task.NewBundle(c, []any{3, "x"}, map[string]any{"scale": 2.5})
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("3"), []byte(`"x"`)}, b.Args)
	require.Equal(t, []byte("2.5"), b.Kwargs["scale"])

	_, err = task.NewBundle(c, []any{make(chan int)}, nil)
	require.Error(t, err)
}
