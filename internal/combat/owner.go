package combat

import "fmt"

// OwnerKind classifies who controls a stack.
type OwnerKind uint8

const (
	OwnerNeutral OwnerKind = iota
	OwnerEmpire
	OwnerMonster
)

func (k OwnerKind) String() string {
	switch k {
	case OwnerEmpire:
		return "empire"
	case OwnerMonster:
		return "monster"
	default:
		return "neutral"
	}
}

// Owner identifies a side in a battle. Two owners are the same side when kind and ID match.
type Owner struct {
	Kind OwnerKind
	ID   int
	Name string
}

// Neutral is the owner reported as victor when nobody won.
var Neutral = Owner{Kind: OwnerNeutral, Name: "neutral"}

// Empire returns an empire owner.
func Empire(id int, name string) Owner {
	return Owner{Kind: OwnerEmpire, ID: id, Name: name}
}

// Monsters returns the owner shared by every space monster.
func Monsters() Owner {
	return Owner{Kind: OwnerMonster, ID: -1, Name: "monsters"}
}

// Same reports whether o and other are the same side.
func (o Owner) Same(other Owner) bool {
	return o.Kind == other.Kind && o.ID == other.ID
}

func (o Owner) IsNeutral() bool {
	return o.Kind == OwnerNeutral
}

func (o Owner) key() ownerKey {
	return ownerKey{kind: o.Kind, id: o.ID}
}

func (o Owner) String() string {
	if o.Name != "" {
		return o.Name
	}
	return fmt.Sprintf("%s#%d", o.Kind, o.ID)
}

type ownerKey struct {
	kind OwnerKind
	id   int
}

// HostilityFunc decides whether stacks of a and b fight each other.
type HostilityFunc func(a, b Owner) bool

// DefaultHostility makes every pair of distinct non-neutral owners hostile.
func DefaultHostility(a, b Owner) bool {
	if a.IsNeutral() || b.IsNeutral() {
		return false
	}
	return !a.Same(b)
}
