package controltree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioHouseWithRoom(t *testing.T) {
	c := newTestTree()
	c.Set(houseWithRoom())

	assert.Equal(t, map[string]any{
		"house1": map[string]any{
			"streetNumber": "12",
			"room1": map[string]any{
				"doors":   1,
				"windows": 2,
			},
		},
	}, c.Get(), "sparse mode omits the empty nickname")
}

func TestSparseFalseIncludesEmptyStrings(t *testing.T) {
	c := newTestTree()
	c.Set(houseWithRoom())

	got := c.GetWithOptions(GetOptions{Sparse: false})
	house := got["house1"].(map[string]any)
	room := house["room1"].(map[string]any)
	assert.Equal(t, "", room["nickname"])
}

func TestIdempotentSet(t *testing.T) {
	c := newTestTree()
	data := houseWithRoom()
	c.Set(data)
	first := c.Get()

	rootDataEvents := 0
	c.On(EventData, func(any, Metadata) { rootDataEvents++ }, nil)

	c.Set(data)
	assert.Equal(t, first, c.Get())
	assert.Equal(t, 0, rootDataEvents, "equality-gated writes make a repeated Set silent")
}

func TestGetSetRoundTrip(t *testing.T) {
	c := newTestTree()
	c.Set(houseWithRoom())
	c.Set(map[string]any{"house1": map[string]any{"room1": map[string]any{"nickname": "attic"}}})

	state := c.GetWithOptions(GetOptions{Sparse: false})

	fresh := newTestTree()
	fresh.Set(houseWithRoom())
	fresh.Set(state)

	assert.Equal(t, state, fresh.GetWithOptions(GetOptions{Sparse: false}))
}

func TestSetForwardsToExistingChild(t *testing.T) {
	c := newTestTree()
	c.Set(houseWithRoom())

	c.Set(map[string]any{"house1": map[string]any{"room1": map[string]any{"windows": 4}}})
	room := c.Child("house1").Base().Child("room1").(*Room)
	assert.Equal(t, 4, room.Windows)
}

func TestUnknownKeysIgnored(t *testing.T) {
	c := newTestTree()
	c.Set(houseWithRoom())

	assert.NotPanics(t, func() {
		c.Set(map[string]any{
			"house1": map[string]any{
				"nosuchproperty": 1,
				"nosuchchild":    map[string]any{"windows": 2},
				"_internal":      "ignored",
			},
			"scalarkey": 42,
		})
	})
	assert.NotContains(t, c.Get()["house1"], "nosuchproperty")
}

func TestUnknownTypeSkippedSilently(t *testing.T) {
	c := newTestTree()
	c.Set(map[string]any{
		"ghost": map[string]any{TypeKey: "ghost", "windows": 2},
		"bad":   map[string]any{TypeKey: "not a valid name!"},
		"house1": map[string]any{
			TypeKey: "house",
		},
	})

	assert.Nil(t, c.Child("ghost"))
	assert.Nil(t, c.Child("bad"))
	assert.NotNil(t, c.Child("house1"), "a malformed sibling does not abort the rest of the Set")
}

func TestNullCoercion(t *testing.T) {
	c := newTestTree()
	c.Set(houseWithRoom())

	c.Set(map[string]any{"house1": map[string]any{
		"streetNumber": nil,
		"room1":        map[string]any{"windows": nil},
	}})

	house := c.Child("house1").(*House)
	assert.Equal(t, "null", house.StreetNumber, "nil becomes its string representation for string properties")
	assert.Equal(t, 2, house.Room1.Windows, "nil is dropped for numeric properties")
}

func TestRemoveChild(t *testing.T) {
	c := newTestTree()
	c.Set(houseWithRoom())
	house := c.Child("house1").Base()

	removed := false
	house.Child("room1").Base().On(EventRemove, func(any, Metadata) { removed = true }, nil)

	house.RemoveChild("room1")
	assert.True(t, removed, "remove fires on the child before detachment")
	assert.Nil(t, house.Child("room1"))

	assert.NotPanics(t, func() { house.RemoveChild("room1") }, "removing a non-existent child is a no-op")
}

func TestDeclarativeRemoval(t *testing.T) {
	c := newTestTree()
	c.Set(houseWithRoom())

	c.Set(map[string]any{"house1": map[string]any{"room1": map[string]any{
		RemoveKey: true,
		"windows": 99,
	}}})

	house := c.Child("house1").Base()
	assert.Nil(t, house.Child("room1"))
	assert.NotContains(t, c.Get()["house1"], "room1",
		"keys alongside remove are not applied to the detached control")
}

func TestRemoveFalseIsIgnored(t *testing.T) {
	c := newTestTree()
	c.Set(houseWithRoom())

	c.Set(map[string]any{"house1": map[string]any{"room1": map[string]any{
		RemoveKey: false,
		"windows": 7,
	}}})

	room := c.Child("house1").Base().Child("room1").(*Room)
	require.NotNil(t, room)
	assert.Equal(t, 7, room.Windows, "only remove == true requests detachment")
}

func TestRootCannotRemoveItself(t *testing.T) {
	c := newTestTree()
	assert.NotPanics(t, func() {
		c.Set(map[string]any{RemoveKey: true})
	})
}

func TestRemovalInvalidatesSubtree(t *testing.T) {
	c := newTestTree()
	c.Set(houseWithRoom())
	house := c.Child("house1")
	room := house.Base().Child("room1")

	roomRemoved := false
	room.Base().On(EventRemove, func(any, Metadata) { roomRemoved = true }, nil)

	c.RemoveChild("house1")
	assert.True(t, roomRemoved, "descendants fire remove too")
	assert.Nil(t, room.Base().Parent())
	assert.Nil(t, room.Base().Root())
	assert.Empty(t, c.Get())
}

func TestLifecycleHooks(t *testing.T) {
	c := newTestTree()
	c.Set(map[string]any{"w": map[string]any{TypeKey: "widget", "count": 3}})

	w := c.Child("w").(*Widget)
	assert.Equal(t, 1, w.createdCalls, "Created runs once, after the declarative data is applied")
	assert.Equal(t, 3, w.Count)

	c.RemoveChild("w")
	assert.Equal(t, 1, w.removedCalls)
}

func TestChildCreationEvents(t *testing.T) {
	c := newTestTree()

	var byKey, generic Control
	c.On("house1", func(v any, _ Metadata) { byKey, _ = v.(Control) }, nil)
	c.On(EventNewChildControl, func(v any, _ Metadata) { generic, _ = v.(Control) }, nil)

	c.Set(map[string]any{"house1": map[string]any{TypeKey: "house"}})

	require.NotNil(t, byKey)
	assert.Same(t, byKey, generic)
	assert.Same(t, c.Child("house1"), byKey)
}

func TestPropertyTakesPrecedenceOverChild(t *testing.T) {
	// A widget has a "label" property; installing a child under the same key
	// cannot happen via Set (the property match wins), so the value routes to
	// the property.
	c := newTestTree()
	c.Set(map[string]any{"w": map[string]any{TypeKey: "widget"}})
	w := c.Child("w").(*Widget)

	w.Set(map[string]any{"label": "renamed"})
	assert.Equal(t, "renamed", w.Label)
}
