package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type both struct{}

func (both) Name() string                     { return "both" }
func (both) Map(item string) any              { return len(item) }
func (both) Label(v any) string               { return DefaultLabel(v) }
func (both) Reduce(values []any) (any, error) { return len(values), nil }

func TestRegistryLookup(t *testing.T) {
	t.Parallel()

	reg := NewRegistry[string]()
	require.NoError(t, RegisterBuiltins(reg))

	t.Run("builtins", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, []string{"self"}, reg.MapperNames())
		assert.Equal(t, []string{"average", "count", "count_unique", "max", "min", "sum"}, reg.ReducerNames())
	})

	t.Run("unknown_mapper", func(t *testing.T) {
		t.Parallel()

		_, err := reg.Mapper("weekly")
		require.ErrorIs(t, err, ErrUnknownCapability)
		assert.EqualError(t, err, `unknown mapper: "weekly"`)
	})

	t.Run("unknown_reducer", func(t *testing.T) {
		t.Parallel()

		_, err := reg.Reducer("median")
		assert.EqualError(t, err, `unknown reducer: "median"`)
	})
}

func TestRegistryFindKeepsOrderAndDuplicates(t *testing.T) {
	t.Parallel()

	reg := NewRegistry[string]()
	require.NoError(t, RegisterBuiltins(reg))
	length := NewMapper("length", func(s string) any { return len(s) }, nil)
	require.NoError(t, reg.RegisterMapper(length))

	mappers, err := reg.FindMappers([]string{"length", "self", "length"})
	require.NoError(t, err)
	require.Len(t, mappers, 3)
	assert.Equal(t, "length", mappers[0].Name())
	assert.Equal(t, "self", mappers[1].Name())
	assert.Equal(t, "length", mappers[2].Name())

	reducers, err := reg.FindReducers([]string{"sum", "sum", "count"})
	require.NoError(t, err)
	assert.Len(t, reducers, 3)

	_, err = reg.FindReducers([]string{"sum", "nope", "alsonope"})
	var unknown *UnknownCapabilityError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.Name, "fails on the first unknown name")
}

func TestRegistryRegister(t *testing.T) {
	t.Parallel()

	t.Run("overwrites_same_name", func(t *testing.T) {
		t.Parallel()

		reg := NewRegistry[string]()
		require.NoError(t, reg.RegisterMapper(NewMapper("x", func(string) any { return 1 }, nil)))
		require.NoError(t, reg.RegisterMapper(NewMapper("x", func(string) any { return 2 }, nil)))

		m, err := reg.Mapper("x")
		require.NoError(t, err)
		assert.Equal(t, 2, m.Map("anything"))
	})

	t.Run("dispatches_by_capability", func(t *testing.T) {
		t.Parallel()

		reg := NewRegistry[string]()
		require.NoError(t, reg.Register(Sum{}))
		require.NoError(t, reg.Register(Self[string]{}))
		require.NoError(t, reg.Register(both{}))

		assert.Equal(t, []string{"both", "self"}, reg.MapperNames())
		assert.Equal(t, []string{"both", "sum"}, reg.ReducerNames())
	})

	t.Run("rejects_unsupported", func(t *testing.T) {
		t.Parallel()

		reg := NewRegistry[string]()
		// A Mapper over a different item type is not a Mapper[string].
		err := reg.Register(Self[int]{})
		assert.ErrorIs(t, err, ErrUnsupportedCapability)
	})

	t.Run("rejects_empty_name", func(t *testing.T) {
		t.Parallel()

		reg := NewRegistry[string]()
		assert.ErrorIs(t, reg.RegisterReducer(NewReducer("", nil)), ErrEmptyName)
		assert.ErrorIs(t, reg.RegisterFactory(Request{}), ErrEmptyName)
	})

	t.Run("saved_requests_are_copies", func(t *testing.T) {
		t.Parallel()

		reg := NewRegistry[string]()
		req := Request{Name: "r", Group: []string{"a"}}
		require.NoError(t, reg.RegisterFactory(req))
		req.Group[0] = "mutated"

		got, err := reg.Factory("r")
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, got.Group)
		assert.Equal(t, []string{"r"}, reg.FactoryNames())
	})
}
