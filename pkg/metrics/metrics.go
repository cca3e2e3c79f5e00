// Package metrics summarises label volumes and checks reductions.
package metrics

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"voxelmod/internal/models"
)

// ErrMismatch is returned when two volumes cannot be compared voxel by voxel.
var ErrMismatch = errors.New("volumes do not match")

// MaterialCount is the number of voxels labelled with one material
type MaterialCount struct {
	Index  int
	Name   string
	Voxels int
}

// VolumeSummary describes the label content of a volume.
type VolumeSummary struct {
	Name      string
	Voxels    int
	Materials int

	// Used is the number of materials referenced by at least one voxel
	Used int

	// Occupied is the fraction of voxels that are not Free Space
	Occupied float64

	// Entropy is the Shannon entropy (nats) of the label distribution
	Entropy float64

	// Digest is the xxhash64 of the label buffer
	Digest uint64

	Counts []MaterialCount
}

// ReductionMetrics compares a source volume with its reduced copy.
type ReductionMetrics struct {
	Source  VolumeSummary
	Reduced VolumeSummary

	// EntropyDiff is the information lost by merging materials. It is
	// never negative for a consistent reduction.
	EntropyDiff float64

	// MaterialRatio is reduced materials over source materials
	MaterialRatio float64

	// Consistent reports whether every reduced bin equals the sum of the
	// source bins mapped onto it
	Consistent bool
}

// Histogram returns the number of voxels per material index. Labels
// outside the material table are counted in extra trailing bins so the
// total always equals len(vol.Data).
func Histogram(vol *models.Volume) []float64 {
	var counts [256]float64
	for _, label := range vol.Data {
		counts[label]++
	}

	n := vol.NumMaterials()
	for i := 255; i >= n; i-- {
		if counts[i] != 0 {
			n = i + 1
			break
		}
	}
	if n > len(counts) {
		hist := make([]float64, n)
		copy(hist, counts[:])
		return hist
	}
	return append([]float64(nil), counts[:n]...)
}

// Entropy returns the Shannon entropy of a histogram in nats.
func Entropy(hist []float64) float64 {
	total := floats.Sum(hist)
	if total == 0 {
		return 0
	}
	p := make([]float64, len(hist))
	floats.ScaleTo(p, 1/total, hist)
	return stat.Entropy(p)
}

// Summarize computes the summary of a volume.
func Summarize(vol *models.Volume) (VolumeSummary, error) {
	if vol == nil {
		return VolumeSummary{}, fmt.Errorf("%w: nil volume", ErrMismatch)
	}

	hist := Histogram(vol)
	s := VolumeSummary{
		Name:      vol.Name,
		Voxels:    len(vol.Data),
		Materials: vol.NumMaterials(),
		Entropy:   Entropy(hist),
		Digest:    xxhash.Sum64(vol.Data),
	}

	for i, c := range hist {
		if c == 0 {
			continue
		}
		s.Used++
		name := ""
		if m, err := vol.Material(i); err == nil {
			name = m.Name
		}
		s.Counts = append(s.Counts, MaterialCount{Index: i, Name: name, Voxels: int(c)})
	}

	if s.Voxels > 0 {
		s.Occupied = 1 - hist[0]/float64(s.Voxels)
	}
	return s, nil
}

// CompareReduction checks reduced against src using the source index ->
// reduced index lookup that produced it.
func CompareReduction(src, reduced *models.Volume, lookup []int) (ReductionMetrics, error) {
	if src == nil || reduced == nil {
		return ReductionMetrics{}, fmt.Errorf("%w: nil volume", ErrMismatch)
	}
	if len(src.Data) != len(reduced.Data) {
		return ReductionMetrics{}, fmt.Errorf("%w: %d source voxels, %d reduced voxels",
			ErrMismatch, len(src.Data), len(reduced.Data))
	}

	var m ReductionMetrics
	var err error
	if m.Source, err = Summarize(src); err != nil {
		return m, err
	}
	if m.Reduced, err = Summarize(reduced); err != nil {
		return m, err
	}

	m.EntropyDiff = m.Source.Entropy - m.Reduced.Entropy
	if m.Source.Materials > 0 {
		m.MaterialRatio = float64(m.Reduced.Materials) / float64(m.Source.Materials)
	}

	srcHist := Histogram(src)
	reducedHist := Histogram(reduced)
	expected := make([]float64, len(reducedHist))
	m.Consistent = true
	for i, c := range srcHist {
		if c == 0 {
			continue
		}
		if i >= len(lookup) || lookup[i] >= len(expected) {
			m.Consistent = false
			break
		}
		expected[lookup[i]] += c
	}
	if m.Consistent {
		m.Consistent = floats.Equal(expected, reducedHist)
	}
	return m, nil
}
