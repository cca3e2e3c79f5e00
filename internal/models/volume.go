package models

import (
	"errors"
	"fmt"
)

// SentinelName is the name of the material that always occupies index 0.
const SentinelName = "Free Space"

var (
	// ErrOutOfRange is returned when a material index falls outside the table.
	ErrOutOfRange = errors.New("material index out of range")

	// ErrDataLength is returned by Validate when the label buffer does not
	// hold exactly NX*NY*NZ voxels.
	ErrDataLength = errors.New("label data length does not match grid extent")

	// ErrInvalidLabel is returned by Validate when a voxel references a
	// material that is not in the table.
	ErrInvalidLabel = errors.New("voxel label is not a valid material index")
)

// Material is one entry of a volume's material table
type Material struct {
	// Index is the position of the material in the table
	Index int

	// Name is the full material name, possibly path-like
	// (e.g. "Adult_male_1_34y/Adrenal_gland")
	Name string

	// R, G, B are the display colour components in [0,1]
	R, G, B float64
}

// Volume represents a segmented voxel model: a regular grid of single byte
// labels, each label indexing into an ordered material table.
type Volume struct {
	// Name identifies the model and is the base name of its files
	Name string

	// NX, NY, NZ are the grid extents in cells
	NX, NY, NZ int

	// DX, DY, DZ are the physical voxel spacing in metres
	DX, DY, DZ float64

	// Data is the label volume as a flat byte slice, x fastest
	Data []byte

	materials []Material
}

// NewVolume returns an empty volume whose material table holds only the
// Free Space sentinel.
func NewVolume() *Volume {
	return &Volume{
		materials: []Material{{Index: 0, Name: SentinelName}},
	}
}

// AppendMaterial adds a material at the end of the table. Duplicate names
// are allowed and receive distinct indices.
func (v *Volume) AppendMaterial(name string, r, g, b float64) {
	v.materials = append(v.materials, Material{
		Index: len(v.materials),
		Name:  name,
		R:     r,
		G:     g,
		B:     b,
	})
}

// RemoveMaterial deletes every material called name and renumbers the
// remaining entries. The sentinel is removed too if it is named explicitly.
// It returns the number of entries removed.
func (v *Volume) RemoveMaterial(name string) int {
	kept := v.materials[:0]
	removed := 0
	for _, m := range v.materials {
		if m.Name == name {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	// clear the tail so dropped names are not retained by the backing array
	for i := len(kept); i < len(v.materials); i++ {
		v.materials[i] = Material{}
	}
	v.materials = kept
	v.renumberMaterials()
	return removed
}

func (v *Volume) renumberMaterials() {
	for i := range v.materials {
		v.materials[i].Index = i
	}
}

// Material returns the table entry at idx.
func (v *Volume) Material(idx int) (Material, error) {
	if idx < 0 || idx >= len(v.materials) {
		return Material{}, fmt.Errorf("%w: %d not in [0,%d)", ErrOutOfRange, idx, len(v.materials))
	}
	return v.materials[idx], nil
}

// NumMaterials returns the number of materials including the sentinel.
func (v *Volume) NumMaterials() int {
	return len(v.materials)
}

// Materials returns a copy of the material table.
func (v *Volume) Materials() []Material {
	out := make([]Material, len(v.materials))
	copy(out, v.materials)
	return out
}

// NumVoxels returns the number of cells implied by the grid extent.
func (v *Volume) NumVoxels() int {
	return v.NX * v.NY * v.NZ
}

// Validate checks that Data covers the whole grid and that every label
// indexes an existing material.
func (v *Volume) Validate() error {
	if len(v.Data) != v.NumVoxels() {
		return fmt.Errorf("%w: have %d bytes, grid %dx%dx%d needs %d",
			ErrDataLength, len(v.Data), v.NX, v.NY, v.NZ, v.NumVoxels())
	}

	n := len(v.materials)
	if n > 256 {
		return nil
	}
	for i, label := range v.Data {
		if int(label) >= n {
			return fmt.Errorf("%w: voxel %d has label %d, table has %d materials",
				ErrInvalidLabel, i, label, n)
		}
	}
	return nil
}
