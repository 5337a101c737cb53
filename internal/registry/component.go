package registry

import "fmt"

// Kind groups components the way they are scanned: every provider before
// any controller.
type Kind int

const (
	KindProvider Kind = iota
	KindController
)

func (k Kind) String() string {
	switch k {
	case KindProvider:
		return "provider"
	case KindController:
		return "controller"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Component describes one live application object.
type Component struct {
	Name     string
	Instance any
	Kind     Kind
	// Transient marks instances created per request or on demand. They are
	// not scanned for handlers.
	Transient bool
}
