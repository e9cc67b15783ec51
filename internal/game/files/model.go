// Package files holds owner-scoped game files: prop instances, what an entity
// knows about other actors and stages, and the registry that is the sole
// authority on where each prop file lives.
package files

import (
	"errors"
	"fmt"
)

// PropKind classifies a prop definition.
type PropKind string

const (
	KindSpecial       PropKind = "Special"
	KindWeapon        PropKind = "Weapon"
	KindClothes       PropKind = "Clothes"
	KindNonConsumable PropKind = "NonConsumableItem"
	KindConsumable    PropKind = "ConsumableItem"
	KindSkill         PropKind = "Skill"
)

// Valid reports whether k is a known kind.
func (k PropKind) Valid() bool {
	switch k {
	case KindSpecial, KindWeapon, KindClothes, KindNonConsumable, KindConsumable, KindSkill:
		return true
	}
	return false
}

// Equippable reports whether props of kind k can be equipped.
func (k PropKind) Equippable() bool {
	return k == KindWeapon || k == KindClothes
}

// Lootable reports whether a killer takes props of kind k from the victim.
func (k PropKind) Lootable() bool {
	return k == KindWeapon || k == KindClothes || k == KindNonConsumable
}

// PropAttributes are a prop's combat modifiers.
type PropAttributes struct {
	MaxHP   int `json:"max_hp"`
	HP      int `json:"hp"`
	Damage  int `json:"damage"`
	Defense int `json:"defense"`
}

// PropDef is a prop prototype from the blueprint database.
type PropDef struct {
	Name        string         `json:"name"`
	Codename    string         `json:"codename"`
	Description string         `json:"description"`
	Kind        PropKind       `json:"type"`
	Attributes  PropAttributes `json:"attributes"`
	Appearance  string         `json:"appearance"`
}

// PropInstance is the per-copy state of a prop.
type PropInstance struct {
	Name       string `json:"name"`
	GUID       int    `json:"guid"`
	Count      int    `json:"count"`
	Durability int    `json:"durability"`
}

// PropFile is a prop owned by an entity.
type PropFile struct {
	Owner    string       `json:"owner"`
	Def      PropDef      `json:"prop"`
	Instance PropInstance `json:"instance"`
}

// Name returns the name the prop is addressed by.
func (p PropFile) Name() string { return p.Instance.Name }

// Kind returns the prop's kind.
func (p PropFile) Kind() PropKind { return p.Def.Kind }

// ActorArchive is what Owner knows about another actor.
type ActorArchive struct {
	Owner      string `json:"owner"`
	Name       string `json:"name"`
	Appearance string `json:"appearance"`
}

// StageArchive is what Owner knows about a stage.
type StageArchive struct {
	Owner     string   `json:"owner"`
	Name      string   `json:"name"`
	Narration string   `json:"narration"`
	Tags      []string `json:"tags"`
}

var (
	// ErrPropNotFound is returned when an owner does not hold the named prop.
	ErrPropNotFound = errors.New("prop not found")
	// ErrPropExists is returned when adding a non-stacking prop an owner already holds.
	ErrPropExists = errors.New("prop already owned")
)

func propNotFound(owner, name string) error {
	return fmt.Errorf("%w: %q owned by %q", ErrPropNotFound, name, owner)
}
