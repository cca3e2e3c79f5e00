// Package reduction merges the materials of a voxel model into a smaller
// set of target materials using a name substitution map.
package reduction

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"voxelmod/internal/models"
)

// ReducedSuffix is appended to the source name to name the reduced model.
const ReducedSuffix = "_reduced"

// maxLabels is the number of materials a single byte label can address
const maxLabels = 256

var (
	ErrNoSource         = errors.New("no source volume")
	ErrUnmappedMaterial = errors.New("material has no substitution")
	ErrInvalidLabel     = errors.New("voxel label has no source material")
	ErrTooManyMaterials = errors.New("reduced material table exceeds label range")
)

// Params holds the reduction inputs.
type Params struct {
	// MapFile is the path of the substitution map. Ignored when
	// Substitutions is set.
	MapFile string

	// Substitutions is an already parsed map
	Substitutions *Substitutions

	// Source is the volume to reduce. It is read but never modified.
	Source *models.Volume

	// Seed drives the placeholder colours of the reduced materials.
	// Zero picks a random seed.
	Seed uint64

	Logger *slog.Logger
}

// Reducer builds a reduced copy of a voxel model.
//
// The reduction runs in four steps:
// 1. Load the substitution map (a missing file is a warning)
// 2. Append each distinct target material to a fresh volume
// 3. Build the source index -> reduced index lookup from bare names
// 4. Remap every voxel label through the lookup
type Reducer struct {
	params *Params
	logger *slog.Logger

	subs *Substitutions

	// lookup[i] is the reduced index of source material i
	lookup []int

	reduced  *models.Volume
	warnings []error
}

// NewReducer creates a reducer for the given parameters. Nothing is read
// until Process is called.
func NewReducer(params *Params) *Reducer {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reducer{
		params: params,
		logger: logger,
	}
}

// Process runs the reduction. On error no reduced volume is produced.
func (r *Reducer) Process() error {
	src := r.params.Source
	if src == nil {
		return ErrNoSource
	}

	if err := r.loadSubstitutions(); err != nil {
		return err
	}

	reduced, newIndex, err := r.buildReducedTable()
	if err != nil {
		return err
	}

	lookup, err := r.buildLookup(src, newIndex)
	if err != nil {
		return err
	}

	data, err := remap(src.Data, lookup)
	if err != nil {
		return err
	}

	reduced.Name = src.Name + ReducedSuffix
	reduced.NX, reduced.NY, reduced.NZ = src.NX, src.NY, src.NZ
	reduced.DX, reduced.DY, reduced.DZ = src.DX, src.DY, src.DZ
	reduced.Data = data

	r.lookup = lookup
	r.reduced = reduced

	r.logger.Info("reduced voxel model",
		"source", src.Name,
		"source_materials", src.NumMaterials(),
		"reduced_materials", reduced.NumMaterials(),
		"voxels", len(data))
	return nil
}

// VoxelModel returns the reduced volume, or nil before a successful Process.
func (r *Reducer) VoxelModel() *models.Volume {
	return r.reduced
}

// Lookup returns a copy of the source index -> reduced index table.
func (r *Reducer) Lookup() []int {
	out := make([]int, len(r.lookup))
	copy(out, r.lookup)
	return out
}

// Warnings returns the tolerated problems met during Process.
func (r *Reducer) Warnings() []error {
	return r.warnings
}

func (r *Reducer) loadSubstitutions() error {
	if r.params.Substitutions != nil {
		r.subs = r.params.Substitutions
		return nil
	}

	subs, err := LoadSubstitutions(r.params.MapFile)
	switch {
	case errors.Is(err, ErrMapNotFound):
		r.logger.Warn("substitution map not found, using empty mapping", "path", r.params.MapFile)
		r.warnings = append(r.warnings, err)
	case err != nil:
		return err
	default:
		r.logger.Info("loaded substitution map", "path", r.params.MapFile, "entries", subs.Len())
	}
	r.subs = subs
	return nil
}

// buildReducedTable appends every distinct target to a new volume and
// returns the index each target received.
func (r *Reducer) buildReducedTable() (*models.Volume, map[string]int, error) {
	targets := r.subs.Targets()
	if len(targets)+1 > maxLabels {
		return nil, nil, fmt.Errorf("%w: %d targets", ErrTooManyMaterials, len(targets))
	}

	seed := r.params.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	reduced := models.NewVolume()
	newIndex := make(map[string]int, len(targets))
	for _, name := range targets {
		newIndex[name] = reduced.NumMaterials()
		reduced.AppendMaterial(name, rng.Float64(), rng.Float64(), rng.Float64())
	}

	for _, m := range reduced.Materials() {
		r.logger.Debug("reduced material", "index", m.Index, "name", m.Name)
	}
	return reduced, newIndex, nil
}

// buildLookup resolves each source material through the substitution map.
// The sentinel always maps onto itself.
func (r *Reducer) buildLookup(src *models.Volume, newIndex map[string]int) ([]int, error) {
	lookup := make([]int, src.NumMaterials())
	for i := 1; i < src.NumMaterials(); i++ {
		m, err := src.Material(i)
		if err != nil {
			return nil, err
		}
		bare := BareName(m.Name)
		target, ok := r.subs.Target(bare)
		if !ok {
			return nil, fmt.Errorf("%w: %q (material %d, %s)", ErrUnmappedMaterial, bare, i, m.Name)
		}
		lookup[i] = newIndex[target]
	}
	return lookup, nil
}

// remap produces a new label buffer. Source materials beyond the byte
// range cannot occur in data and are left out of the table.
func remap(data []byte, lookup []int) ([]byte, error) {
	var table [maxLabels]int16
	for i := range table {
		table[i] = -1
	}
	for i := 0; i < len(lookup) && i < maxLabels; i++ {
		table[i] = int16(lookup[i])
	}

	out := make([]byte, len(data))
	for i, label := range data {
		idx := table[label]
		if idx < 0 {
			return nil, fmt.Errorf("%w: voxel %d has label %d, source has %d materials",
				ErrInvalidLabel, i, label, len(lookup))
		}
		out[i] = byte(idx)
	}
	return out, nil
}

// BareName strips the path-like prefix from a material name:
// "Adult_male_1_34y/Bone" becomes "Bone".
func BareName(name string) string {
	return name[strings.LastIndex(name, "/")+1:]
}
