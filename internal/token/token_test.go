package token

import (
	"strings"
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
)

func TestNew_IsUniqueUnderConcurrency(t *testing.T) {
	t.Parallel()

	const workers = 8
	const perWorker = 250

	var mu sync.Mutex
	seen := make(map[Token]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]Token, 0, perWorker)
			for range perWorker {
				local = append(local, New())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, tok := range local {
				seen[tok] = struct{}{}
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*perWorker, "every minted token must be distinct")
}

func TestNew_Format(t *testing.T) {
	t.Parallel()

	tok := New()

	require.False(t, tok.IsZero())
	require.True(t, strings.HasPrefix(tok.String(), Prefix))
	_, err := ulid.Parse(strings.TrimPrefix(tok.String(), Prefix))
	require.NoError(t, err)
}

func TestToken_ZeroValue(t *testing.T) {
	t.Parallel()

	var tok Token
	require.True(t, tok.IsZero())
}
