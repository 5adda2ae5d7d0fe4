package lane

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Target
		wantErr bool
	}{
		{name: "integration", in: "integration", want: Integration},
		{name: "production with whitespace", in: " Production ", want: Production},
		{name: "unknown", in: "staging", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTarget(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToken_TryAcquire(t *testing.T) {
	tok := NewToken()

	require.NoError(t, tok.TryAcquire())
	assert.True(t, tok.Held())

	err := tok.TryAcquire()
	assert.ErrorIs(t, err, ErrLaneUnavailable)

	tok.Release()
	assert.False(t, tok.Held())
	require.NoError(t, tok.TryAcquire())
	tok.Release()
}

func TestToken_AcquireRespectsContext(t *testing.T) {
	tok := NewToken()
	require.NoError(t, tok.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := tok.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	tok.Release()
}

func TestToken_MutualExclusion(t *testing.T) {
	tok := NewToken()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
	)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, tok.Acquire(context.Background()))
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			tok.Release()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen, "at most one holder at any instant")
}

func TestToken_ReleaseUnheldPanics(t *testing.T) {
	tok := NewToken()
	assert.Panics(t, func() { tok.Release() })
}
