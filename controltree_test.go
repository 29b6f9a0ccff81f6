package controltree

// Test control types. A house holds rooms; the Room1 pointer receives the
// child alias when a room is created under the key "room1".

type House struct {
	BaseControl
	StreetNumber string
	Room1        *Room
}

type Room struct {
	BaseControl
	Doors    int
	Windows  int
	Nickname string
}

// Widget exercises every observable field kind plus the opt-out tag.
type Widget struct {
	BaseControl
	Count   int
	Ratio   float64
	Enabled bool
	Label   string
	Tags    []string
	Secret  string `control:"-"`

	createdCalls int
	removedCalls int
}

func (w *Widget) Created() { w.createdCalls++ }
func (w *Widget) Removed() { w.removedCalls++ }

func newTestRegistry() *Registry {
	r := NewRegistry()
	r.Register("house", func() Control { return &House{StreetNumber: "12"} })
	r.Register("room", func() Control { return &Room{Doors: 1} })
	r.Register("widget", func() Control { return &Widget{Label: "widget", Tags: []string{}} })
	return r
}

func newTestTree() *Container {
	return NewContainer(newTestRegistry())
}

// houseWithRoom is the declarative scenario most tests start from.
func houseWithRoom() map[string]any {
	return map[string]any{
		"house1": map[string]any{
			TypeKey: "house",
			"room1": map[string]any{
				TypeKey:   "room",
				"windows": 2,
			},
		},
	}
}
