package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	cities map[string]string
	err    error
	calls  int
}

func (f *fakeLoader) LoadCatalog(context.Context) (map[string]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.cities, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCatalog_LoadAndSlug(t *testing.T) {
	loader := &fakeLoader{cities: map[string]string{"самара": "smr", "москва": "msk"}}
	c := New(loader, testLogger())

	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, 2, c.Size())

	slug, ok := c.Slug("самара")
	assert.True(t, ok)
	assert.Equal(t, "smr", slug)

	slug, ok = c.Slug("  МОСКВА ")
	assert.True(t, ok, "lookup must be case-insensitive and trimmed")
	assert.Equal(t, "msk", slug)

	_, ok = c.Slug("урюпинск")
	assert.False(t, ok)
}

func TestCatalog_EmptyBeforeLoad(t *testing.T) {
	c := New(&fakeLoader{}, testLogger())

	assert.Equal(t, 0, c.Size())
	_, ok := c.Slug("самара")
	assert.False(t, ok)
}

func TestCatalog_FailedLoadKeepsPreviousMap(t *testing.T) {
	loader := &fakeLoader{cities: map[string]string{"самара": "smr"}}
	c := New(loader, testLogger())

	require.NoError(t, c.Load(context.Background()))

	loader.err = errors.New("site down")
	require.Error(t, c.Load(context.Background()))

	slug, ok := c.Slug("самара")
	assert.True(t, ok, "previous catalog must survive a failed reload")
	assert.Equal(t, "smr", slug)
}
