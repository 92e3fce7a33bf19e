package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/internal/repository/memory"
)

type wishlist struct {
	Owner string   `json:"owner"`
	IDs   []string `json:"ids"`
}

func TestDocumentLoadAbsentIsNoData(t *testing.T) {
	doc := repository.NewDocument[wishlist](memory.New(), repository.KeyWishlist)

	value, ok, err := doc.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value.IDs)
}

func TestDocumentLoadCorruptIsNoData(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.Put(context.Background(), repository.KeyWishlist, []byte("{not json")))

	doc := repository.NewDocument[wishlist](store, repository.KeyWishlist)
	_, ok, err := doc.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDocumentRoundTrip(t *testing.T) {
	ctx := context.Background()
	doc := repository.NewDocument[wishlist](memory.New(), repository.KeyWishlist)
	saved := wishlist{Owner: "u-1", IDs: []string{"p-1", "p-2"}}

	require.NoError(t, doc.Save(ctx, saved))
	loaded, ok, err := doc.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, saved, loaded)

	require.NoError(t, doc.Clear(ctx))
	_, ok, err = doc.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCommitRestoresEarlierWritesOnFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Put(ctx, "a", []byte(`"old"`)))
	store.FailWrites("c", errors.New("disk full"))

	err := repository.Commit(ctx, store,
		repository.Write{Key: "a", Value: []byte(`"new"`)},
		repository.Write{Key: "b", Value: []byte(`"created"`)},
		repository.Write{Key: "c", Value: []byte(`"boom"`)},
	)
	require.Error(t, err)

	a, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, `"old"`, string(a))
	_, err = store.Get(ctx, "b")
	assert.ErrorIs(t, err, repository.ErrNoData)
}

func TestCommitDeletesOnNilValue(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Put(ctx, "a", []byte(`1`)))

	require.NoError(t, repository.Commit(ctx, store, repository.Write{Key: "a"}))
	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, repository.ErrNoData)
}

func TestWatchCarriesOrigin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := memory.New()
	changes := store.Watch(ctx)

	require.NoError(t, store.Put(repository.WithOrigin(ctx, "tab-a"), repository.KeyCart, []byte(`[]`)))

	select {
	case c := <-changes:
		assert.Equal(t, repository.KeyCart, c.Key)
		assert.Equal(t, "tab-a", c.Origin)
		assert.False(t, c.Deleted)
	case <-time.After(time.Second):
		t.Fatal("expected a change notification")
	}
}
