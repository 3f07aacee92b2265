package game

// BaseID identifies a player-owned base.
type BaseID = uint64

// Location is a point in world space. The zero value is the origin.
type Location struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Resource is one named entry of a base's inventory.
type Resource struct {
	Name   string `json:"name" yaml:"name"`
	Amount int    `json:"amount" yaml:"amount"`
}

// Registry is the view of the base registry the raid engine and scheduler work against.
type Registry interface {
	Location(id BaseID) (Location, bool)
	Resources(id BaseID) (Inventory, bool)
	AddResource(id BaseID, name string, amount int) bool
	TakeResource(id BaseID, name string, limit int) (taken, remaining int, ok bool)
	IDs() []BaseID
}
