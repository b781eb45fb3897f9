// Package weapons holds the static weapon table shared by every session.
// A Table is built once at startup and never mutated afterwards.
package weapons

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/mcoot/battlerelay/internal/model"
)

// DefaultWeaponID is the base weapon given to players who do not pick one
const DefaultWeaponID model.WeaponID = "rifle"

// Table is a read-only lookup of weapon specs keyed by id
type Table struct {
	specs         map[model.WeaponID]model.WeaponSpec
	defaultWeapon model.WeaponID
}

// fileFormat is the YAML layout of a weapons file
type fileFormat struct {
	Default string                      `yaml:"default"`
	Weapons map[string]model.WeaponSpec `yaml:"weapons"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// New builds a table from the given specs. Every spec is validated and the
// default weapon must be present.
func New(specs map[model.WeaponID]model.WeaponSpec, defaultWeapon model.WeaponID) (*Table, error) {
	if len(specs) == 0 {
		return nil, errors.New("weapons: table is empty")
	}

	copied := make(map[model.WeaponID]model.WeaponSpec, len(specs))
	for id, spec := range specs {
		if id == "" {
			return nil, errors.New("weapons: empty weapon id")
		}
		if err := validate.Struct(spec); err != nil {
			return nil, fmt.Errorf("weapons: %s: %w", id, err)
		}
		copied[id] = spec
	}

	if _, ok := copied[defaultWeapon]; !ok {
		return nil, fmt.Errorf("weapons: default weapon %q not in table", defaultWeapon)
	}

	return &Table{specs: copied, defaultWeapon: defaultWeapon}, nil
}

// Default returns the built-in table used when no weapons file is configured
func Default() *Table {
	t, err := New(map[model.WeaponID]model.WeaponSpec{
		"rifle":  {Name: "Rifle", Damage: 25, Accuracy: 85, Range: 100, FireRate: 600, ReloadTime: 3000, Ammo: 30, MaxAmmo: 30},
		"sniper": {Name: "Sniper", Damage: 100, Accuracy: 95, Range: 200, FireRate: 1200, ReloadTime: 4000, Ammo: 5, MaxAmmo: 5},
		"smg":    {Name: "SMG", Damage: 15, Accuracy: 75, Range: 50, FireRate: 900, ReloadTime: 2000, Ammo: 25, MaxAmmo: 25},
		"pistol": {Name: "Pistol", Damage: 20, Accuracy: 80, Range: 30, FireRate: 500, ReloadTime: 1500, Ammo: 12, MaxAmmo: 12},
	}, DefaultWeaponID)
	if err != nil {
		panic(err) // built-in data is static
	}
	return t
}

// LoadFile reads a YAML weapons file. A default listed in the file wins over
// fallbackDefault; an empty fallback means DefaultWeaponID.
func LoadFile(path string, fallbackDefault model.WeaponID) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("weapons file: %w", err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("weapons file: %w", err)
	}

	specs := make(map[model.WeaponID]model.WeaponSpec, len(f.Weapons))
	for id, spec := range f.Weapons {
		specs[model.WeaponID(id)] = spec
	}

	def := model.WeaponID(f.Default)
	if def == "" {
		def = fallbackDefault
	}
	if def == "" {
		def = DefaultWeaponID
	}

	return New(specs, def)
}

// Get looks up a weapon by id
func (t *Table) Get(id model.WeaponID) (model.WeaponSpec, error) {
	spec, ok := t.specs[id]
	if !ok {
		return model.WeaponSpec{}, model.ErrInvalidWeapon
	}
	return spec, nil
}

// Has reports whether id is in the table
func (t *Table) Has(id model.WeaponID) bool {
	_, ok := t.specs[id]
	return ok
}

// DefaultWeapon returns the base weapon id
func (t *Table) DefaultWeapon() model.WeaponID {
	return t.defaultWeapon
}

// All returns a copy of the table
func (t *Table) All() map[model.WeaponID]model.WeaponSpec {
	out := make(map[model.WeaponID]model.WeaponSpec, len(t.specs))
	for id, spec := range t.specs {
		out[id] = spec
	}
	return out
}

// IDs returns the weapon ids in sorted order
func (t *Table) IDs() []model.WeaponID {
	ids := make([]model.WeaponID, 0, len(t.specs))
	for id := range t.specs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
