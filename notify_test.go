package controltree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBubblingInvariant(t *testing.T) {
	c := newTestTree()
	c.Set(houseWithRoom())
	room := c.Child("house1").Base().Child("room1").Base()

	var local, atRoot any
	room.On(EventData, func(v any, _ Metadata) { local = v }, nil)
	c.On(EventData, func(v any, _ Metadata) { atRoot = v }, nil)

	room.SetProperty("windows", 3)

	assert.Equal(t, map[string]any{"windows": 3}, local, "the raw delta fires locally")
	assert.Equal(t, map[string]any{
		"house1": map[string]any{"room1": map[string]any{"windows": 3}},
	}, atRoot, "the delta reaches the root nested under each ancestor's name")
}

func TestHiddenSuppression(t *testing.T) {
	c := newTestTree()
	c.Set(houseWithRoom())
	house := c.Child("house1").Base()
	room := house.Child("room1").Base()

	house.SetHidden(true)

	rootDataEvents := 0
	localDataEvents := 0
	c.On(EventData, func(any, Metadata) { rootDataEvents++ }, nil)
	room.On(EventData, func(any, Metadata) { localDataEvents++ }, nil)

	room.SetProperty("windows", 6)

	assert.Equal(t, 0, rootDataEvents, "a hidden ancestor stops upward propagation")
	assert.Equal(t, 1, localDataEvents, "the hidden subtree still observes its own changes")
	assert.NotContains(t, c.Get(), "house1", "hidden subtrees are excluded from collection")
}

func TestHiddenNodeItselfStillNotifiesLocally(t *testing.T) {
	c := newTestTree()
	c.Set(houseWithRoom())
	room := c.Child("house1").Base().Child("room1").Base()
	room.SetHidden(true)

	localDataEvents := 0
	houseDataEvents := 0
	room.On(EventData, func(any, Metadata) { localDataEvents++ }, nil)
	c.Child("house1").Base().On(EventData, func(any, Metadata) { houseDataEvents++ }, nil)

	room.SetProperty("windows", 8)
	assert.Equal(t, 1, localDataEvents)
	assert.Equal(t, 0, houseDataEvents)
}

func TestGetDeniedPropertyExcludedFromDeltas(t *testing.T) {
	c := newTestTree()
	c.Set(houseWithRoom())
	room := c.Child("house1").Base().Child("room1").Base()
	room.SetAccess("windows", AccessPolicy{Get: None})

	rootDataEvents := 0
	c.On(EventData, func(any, Metadata) { rootDataEvents++ }, nil)

	room.SetProperty("windows", 4)
	assert.Equal(t, 0, rootDataEvents, "a fully filtered delta produces no data event")

	got := c.Get()["house1"].(map[string]any)["room1"].(map[string]any)
	assert.NotContains(t, got, "windows")
	assert.Contains(t, got, "doors")
}

func TestNotifyPropertyAggregates(t *testing.T) {
	c := newTestTree()
	c.Set(houseWithRoom())
	room := c.Child("house1").Base().Child("room1").Base()

	var atRoot any
	c.On(EventData, func(v any, _ Metadata) { atRoot = v }, nil)

	room.NotifyProperty("windows", "doors")

	assert.Equal(t, map[string]any{
		"house1": map[string]any{"room1": map[string]any{"windows": 2, "doors": 1}},
	}, atRoot)
}

func TestBulkSetEmitsOneAggregateDelta(t *testing.T) {
	c := newTestTree()
	c.Set(houseWithRoom())
	room := c.Child("house1").Base().Child("room1").Base()

	var deltas []any
	c.On(EventData, func(v any, _ Metadata) { deltas = append(deltas, v) }, nil)

	room.Set(map[string]any{"windows": 10, "nickname": "attic"})

	require.Len(t, deltas, 1, "one aggregate notification per control per Set")
	assert.Equal(t, map[string]any{
		"house1": map[string]any{"room1": map[string]any{"windows": 10, "nickname": "attic"}},
	}, deltas[0])
}

func TestMetadataDelivery(t *testing.T) {
	c := newTestTree()
	c.Set(houseWithRoom())
	room := c.Child("house1").Base().Child("room1").Base()
	room.SetPropertyMetadata("windows", Metadata{"unit": "count"})

	var propMeta, dataMeta Metadata
	room.On("windows", func(_ any, m Metadata) { propMeta = m }, nil)
	room.On(EventData, func(_ any, m Metadata) { dataMeta = m }, nil)

	room.SetProperty("windows", 11)

	assert.Equal(t, Metadata{"unit": "count"}, propMeta)
	assert.Equal(t, Metadata{"unit": "count"}, dataMeta,
		"single-property notifications carry that property's metadata")
}

func TestAggregateNotifyCarriesNoMetadata(t *testing.T) {
	c := newTestTree()
	c.Set(houseWithRoom())
	room := c.Child("house1").Base().Child("room1").Base()
	room.SetPropertyMetadata("windows", Metadata{"unit": "count"})
	room.SetPropertyMetadata("doors", Metadata{"unit": "count"})

	dataEvents := 0
	var dataMeta Metadata
	room.On(EventData, func(_ any, m Metadata) {
		dataEvents++
		dataMeta = m
	}, nil)

	room.Set(map[string]any{"windows": 20, "doors": 3})

	require.Equal(t, 1, dataEvents)
	assert.Nil(t, dataMeta, "metadata is a single-property side channel")
}
