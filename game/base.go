package game

// Base represents a player-owned structure: a fixed location and a resource inventory.
type Base struct {
	location  Location
	order     []string       // Resource names in the order they were first added
	resources map[string]int // Resource name -> running total
}

// NewBase creates a base at the given location with an empty inventory.
func NewBase(location Location) *Base {
	return &Base{
		location:  location,
		resources: make(map[string]int),
	}
}

func (b *Base) Location() Location {
	return b.location
}

// add applies amount to the named total, creating the entry at 0 first.
func (b *Base) add(name string, amount int) {
	if _, ok := b.resources[name]; !ok {
		b.order = append(b.order, name)
		b.resources[name] = 0
	}
	b.resources[name] += amount
}

func (b *Base) inventory() Inventory {
	inv := make(Inventory, len(b.order))
	for i, name := range b.order {
		inv[i] = Resource{Name: name, Amount: b.resources[name]}
	}
	return inv
}

func (b *Base) Copy() *Base {
	orderCopy := make([]string, len(b.order))
	copy(orderCopy, b.order)

	resourcesCopy := make(map[string]int, len(b.resources))
	for name, amount := range b.resources {
		resourcesCopy[name] = amount
	}

	return &Base{
		location:  b.location,
		order:     orderCopy,
		resources: resourcesCopy,
	}
}

// Inventory is a point-in-time copy of a base's resources, ordered by first insertion.
type Inventory []Resource

func (inv Inventory) Len() int {
	return len(inv)
}

// Get returns the amount held for name and whether the entry exists.
func (inv Inventory) Get(name string) (int, bool) {
	for _, r := range inv {
		if r.Name == name {
			return r.Amount, true
		}
	}
	return 0, false
}

func (inv Inventory) Map() map[string]int {
	m := make(map[string]int, len(inv))
	for _, r := range inv {
		m[r.Name] = r.Amount
	}
	return m
}
