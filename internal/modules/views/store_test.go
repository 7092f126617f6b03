package views

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgalanis/beacon/internal/domain"
)

func strPtr(s string) *string { return &s }
func boolPtr(v bool) *bool    { return &v }

func TestNewStore_Defaults(t *testing.T) {
	store := NewStore(zerolog.Nop())
	state := store.State()

	assert.Equal(t, DefaultTheme, state.Theme)
	assert.Equal(t, DefaultActiveTab, state.ActiveTab)
	assert.Equal(t, DefaultExportFormat, state.ExportFormat)
	assert.True(t, state.ShowFilters)
	assert.False(t, state.LastUpdated.IsZero())
}

func TestApply_MergesPartialUpdates(t *testing.T) {
	store := NewStore(zerolog.Nop())
	before := store.State().LastUpdated

	time.Sleep(time.Millisecond)

	state, err := store.Apply(Update{
		Theme:       strPtr("dark"),
		ShowFilters: boolPtr(false),
	})
	require.NoError(t, err)

	assert.Equal(t, "dark", state.Theme)
	assert.False(t, state.ShowFilters)
	assert.Equal(t, DefaultActiveTab, state.ActiveTab, "untouched fields keep their value")
	assert.True(t, state.LastUpdated.After(before))
}

func TestApply_RejectsInvalidTheme(t *testing.T) {
	store := NewStore(zerolog.Nop())

	_, err := store.Apply(Update{Theme: strPtr("sepia")})
	assert.Error(t, err)
	assert.Equal(t, DefaultTheme, store.State().Theme)
}

func TestApply_RejectsInvalidFilters(t *testing.T) {
	store := NewStore(zerolog.Nop())

	bad := domain.FilterSelection{
		StartDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	_, err := store.Apply(Update{Filters: &bad})
	assert.Error(t, err)
}

func TestResetFilters(t *testing.T) {
	store := NewStore(zerolog.Nop())

	sel := domain.FilterSelection{Regions: []string{"North"}}
	_, err := store.Apply(Update{Filters: &sel})
	require.NoError(t, err)

	state := store.ResetFilters()
	assert.Empty(t, state.Filters.Regions)
}

func TestSavedViews_Lifecycle(t *testing.T) {
	store := NewStore(zerolog.Nop())

	sel := domain.FilterSelection{Regions: []string{"North"}}
	_, err := store.Apply(Update{Filters: &sel, ActiveTab: strPtr("forecast")})
	require.NoError(t, err)

	view, err := store.SaveView("q1-north", "Q1 northern region")
	require.NoError(t, err)
	assert.Equal(t, []string{"North"}, view.Filters.Regions)
	assert.Equal(t, "forecast", view.ActiveTab)

	// Change state, then load the snapshot back.
	store.ResetFilters()
	state, err := store.LoadView("q1-north")
	require.NoError(t, err)
	assert.Equal(t, []string{"North"}, state.Filters.Regions)
	assert.Equal(t, "forecast", state.ActiveTab)

	// Overwrite by name.
	_, err = store.SaveView("q1-north", "updated")
	require.NoError(t, err)
	views := store.ListViews()
	require.Len(t, views, 1)
	assert.Equal(t, "updated", views[0].Description)

	require.NoError(t, store.DeleteView("q1-north"))
	assert.Empty(t, store.ListViews())
}

func TestSavedViews_Errors(t *testing.T) {
	store := NewStore(zerolog.Nop())

	_, err := store.SaveView("", "no name")
	assert.Error(t, err)

	_, err = store.LoadView("missing")
	assert.Error(t, err)

	assert.Error(t, store.DeleteView("missing"))
}

func TestRegistry_Lifecycle(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())

	id, store := registry.Create()
	assert.NotEmpty(t, id)
	require.NotNil(t, store)
	assert.Equal(t, 1, registry.Count())

	got, err := registry.Get(id)
	require.NoError(t, err)
	assert.Same(t, store, got)

	id2, _ := registry.Create()
	assert.NotEqual(t, id, id2, "session IDs must be unique")

	require.NoError(t, registry.Delete(id))
	_, err = registry.Get(id)
	assert.Error(t, err)
	assert.Equal(t, 1, registry.Count())

	assert.Error(t, registry.Delete(id))
}
