package taxonomy

import (
	"context"
	"sync"
	"testing"

	"eventtts/memdb"
	"eventtts/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCategoryIsCaseInsensitive(t *testing.T) {
	r := NewResolver(memdb.New())
	ctx := context.Background()

	a, err := r.ResolveCategory(ctx, "Tech Talks")
	require.NoError(t, err)
	b, err := r.ResolveCategory(ctx, "  tech talks ")
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, "Tech Talks", b.Name)

	cats, err := r.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}

func TestResolveCategoryConcurrent(t *testing.T) {
	r := NewResolver(memdb.New())
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make(chan string, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := r.ResolveCategory(ctx, "Cultural")
			if assert.NoError(t, err) {
				ids <- c.ID.Hex()
			}
		}()
	}
	wg.Wait()
	close(ids)

	distinct := map[string]bool{}
	for id := range ids {
		distinct[id] = true
	}
	assert.Len(t, distinct, 1)
}

func TestResolveCategoryRejectsBlank(t *testing.T) {
	r := NewResolver(memdb.New())
	_, err := r.ResolveCategory(context.Background(), "   ")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestResolveTagsDedupesAndSkipsBlank(t *testing.T) {
	r := NewResolver(memdb.New())
	tags, err := r.ResolveTags(context.Background(), []string{"AI", "", "ai", "Robotics"})
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "AI", tags[0].Name)
	assert.Equal(t, "Robotics", tags[1].Name)
}
