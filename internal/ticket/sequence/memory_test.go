package sequence

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgdesk/internal/ticket/models"
)

func TestInMemoryAllocatesSequentially(t *testing.T) {
	alloc := NewInMemory()
	ctx := context.Background()

	first, err := alloc.Next(ctx, models.TypeAccessRequest)
	require.NoError(t, err)
	second, err := alloc.Next(ctx, models.TypeAccessRequest)
	require.NoError(t, err)
	other, err := alloc.Next(ctx, models.TypeOrgFeedback)
	require.NoError(t, err)

	assert.Equal(t, "A00001", first)
	assert.Equal(t, "A00002", second)
	assert.Equal(t, "F00001", other, "types count independently")
}

func TestInMemoryIsUniqueUnderConcurrency(t *testing.T) {
	alloc := NewInMemory()
	ctx := context.Background()
	const goroutines = 100

	var mu sync.Mutex
	seen := make(map[string]struct{}, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, err := alloc.Next(ctx, models.TypeOrgSuggestion)
			assert.NoError(t, err)
			mu.Lock()
			seen[code] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines, "every allocation must be unique")
}

func TestFormatZeroPads(t *testing.T) {
	assert.Equal(t, "S00042", Format(models.TypeOrgSuggestion, 42))
	assert.Equal(t, "A12345", Format(models.TypeAccessRequest, 12345))
}
