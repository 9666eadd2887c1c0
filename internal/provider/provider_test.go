package provider_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/idealink/internal/provider"
)

var errPlain = errors.New("plain")

type gethError struct {
	code int
	data any
}

func (e *gethError) Error() string  { return "execution reverted" }
func (e *gethError) ErrorCode() int { return e.code }
func (e *gethError) ErrorData() any { return e.data }

func TestAsRPCError(t *testing.T) {
	t.Parallel()

	t.Run("native", func(t *testing.T) {
		t.Parallel()
		re, ok := provider.AsRPCError(fmt.Errorf("wrapped: %w", provider.UserRejected()))
		require.True(t, ok)
		assert.Equal(t, provider.CodeUserRejected, re.Code)
	})

	t.Run("go-ethereum error with data", func(t *testing.T) {
		t.Parallel()
		re, ok := provider.AsRPCError(&gethError{code: 3, data: "0x08c379a0"})
		require.True(t, ok)
		assert.Equal(t, 3, re.Code)
		assert.Equal(t, "execution reverted", re.Message)
		assert.JSONEq(t, `"0x08c379a0"`, string(re.Data))
	})

	t.Run("go-ethereum error without data", func(t *testing.T) {
		t.Parallel()
		re, ok := provider.AsRPCError(&gethError{code: -32000})
		require.True(t, ok)
		assert.Empty(t, re.Data)
	})

	t.Run("plain", func(t *testing.T) {
		t.Parallel()
		_, ok := provider.AsRPCError(errPlain)
		assert.False(t, ok)
		_, ok = provider.AsRPCError(nil)
		assert.False(t, ok)
	})
}

func TestIsUserRejectedAndHasCode(t *testing.T) {
	t.Parallel()
	assert.True(t, provider.IsUserRejected(provider.UserRejected()))
	assert.False(t, provider.IsUserRejected(provider.NewRPCError(provider.CodeRequestPending, "pending")))
	assert.True(t, provider.HasCode(provider.NewRPCError(provider.CodeRequestPending, "pending"), provider.CodeRequestPending))
	assert.False(t, provider.HasCode(errPlain, provider.CodeRequestPending))
}

func TestRPCErrorData(t *testing.T) {
	t.Parallel()
	re := &provider.RPCError{Code: 3, Message: "reverted", Data: json.RawMessage(`{"reason":"Sold out"}`)}
	assert.Equal(t, map[string]any{"reason": "Sold out"}, re.ErrorData())
	assert.Nil(t, provider.NewRPCError(1, "x").ErrorData())
	assert.Equal(t, "provider error 3: reverted", re.Error())
}

func TestEmitter(t *testing.T) {
	t.Parallel()

	var e provider.Emitter
	var got []string

	unsubA := e.On("evt", func(p json.RawMessage) { got = append(got, "a:"+string(p)) })
	e.On("evt", func(p json.RawMessage) { got = append(got, "b:"+string(p)) })
	e.On("other", func(json.RawMessage) { got = append(got, "other") })

	e.Emit("evt", json.RawMessage(`1`))
	assert.Equal(t, []string{"a:1", "b:1"}, got)

	unsubA()
	unsubA()
	got = nil
	e.Emit("evt", json.RawMessage(`2`))
	assert.Equal(t, []string{"b:2"}, got)
	assert.Equal(t, 1, e.Len("evt"))
}

func TestEmitterSelfUnsubscribe(t *testing.T) {
	t.Parallel()

	var e provider.Emitter
	calls := 0
	var unsub func()
	unsub = e.On("evt", func(json.RawMessage) {
		calls++
		unsub()
	})

	e.Emit("evt", nil)
	e.Emit("evt", nil)
	assert.Equal(t, 1, calls)
}

func TestEmitterConcurrent(t *testing.T) {
	t.Parallel()

	var e provider.Emitter
	var mu sync.Mutex
	count := 0
	e.On("evt", func(json.RawMessage) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Emit("evt", nil)
			unsub := e.On("evt2", func(json.RawMessage) {})
			unsub()
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, count)
}

func TestParseChainID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    uint64
		wantErr bool
	}{
		{`"0xa86a"`, 43114, false},
		{`"0xA869"`, 43113, false},
		{`"0x01"`, 1, false},
		{`"43114"`, 43114, false},
		{`43114`, 43114, false},
		{`"0xzz"`, 0, true},
		{`"abc"`, 0, true},
		{`{}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			got, err := provider.ParseChainID(json.RawMessage(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeHelpers(t *testing.T) {
	t.Parallel()

	accounts, err := provider.DecodeAccounts(json.RawMessage(`["0xabc"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"0xabc"}, accounts)

	_, err = provider.DecodeAccounts(json.RawMessage(`"0xabc"`))
	require.Error(t, err)

	b, err := provider.DecodeBig(json.RawMessage(`"0xde0b6b3a7640000"`))
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", b.String())

	n, err := provider.DecodeUint64(json.RawMessage(`"0x5208"`))
	require.NoError(t, err)
	assert.Equal(t, uint64(21000), n)

	data, err := provider.DecodeBytes(json.RawMessage(`"0x0102"`))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, data)

	h, err := provider.DecodeHash(json.RawMessage(`"0x` + fmt.Sprintf("%064x", 1) + `"`))
	require.NoError(t, err)
	assert.Equal(t, byte(1), h[31])

	assert.JSONEq(t, `"0xa86a"`, string(provider.EncodeChainID(43114)))
	assert.JSONEq(t, `[]`, string(provider.EncodeAccounts(nil)))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTimeout(t *testing.T) {
	t.Parallel()
	assert.True(t, provider.IsTimeout(context.DeadlineExceeded))
	assert.True(t, provider.IsTimeout(fmt.Errorf("call: %w", context.DeadlineExceeded)))
	assert.True(t, provider.IsTimeout(timeoutErr{}))
	assert.False(t, provider.IsTimeout(context.Canceled))
	assert.False(t, provider.IsTimeout(errPlain))
	assert.False(t, provider.IsTimeout(nil))
}
