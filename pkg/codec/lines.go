package codec

import (
	"fmt"
	"regexp"
	"strconv"

	"voxelmod/internal/models"
)

// LineKind tags the shape of a metadata line
type LineKind int

const (
	Unrecognized LineKind = iota
	MaterialLine
	ExtentLine
	SpacingLine
)

func (k LineKind) String() string {
	switch k {
	case MaterialLine:
		return "material"
	case ExtentLine:
		return "extent"
	case SpacingLine:
		return "spacing"
	default:
		return "unrecognized"
	}
}

const number = `[-+]?(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][-+]?[0-9]+)?`

var (
	materialPattern = regexp.MustCompile(`^([0-9]+)\s+(` + number + `)\s+(` + number + `)\s+(` + number + `)\s+([A-Za-z0-9_/]+)`)
	extentPattern   = regexp.MustCompile(`^n([xyz])\s+([0-9]+)`)
	spacingPattern  = regexp.MustCompile(`^d([xyz])\s+(` + number + `)`)
)

// Line is a classified metadata line. Only the fields belonging to Kind
// are set.
type Line struct {
	Kind LineKind

	// Material line fields. Index is the number written in the file; the
	// reader keeps it for inspection but orders materials by appearance.
	Index   int
	R, G, B float64
	Name    string

	// Axis is 'x', 'y' or 'z' for extent and spacing lines
	Axis    byte
	Extent  int
	Spacing float64
}

// ClassifyLine parses a single metadata line without applying it.
func ClassifyLine(line string) Line {
	if m := materialPattern.FindStringSubmatch(line); m != nil {
		return classifyMaterial(m)
	}
	if m := extentPattern.FindStringSubmatch(line); m != nil {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return Line{}
		}
		return Line{Kind: ExtentLine, Axis: m[1][0], Extent: n}
	}
	if m := spacingPattern.FindStringSubmatch(line); m != nil {
		d, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return Line{}
		}
		return Line{Kind: SpacingLine, Axis: m[1][0], Spacing: d}
	}
	return Line{}
}

func classifyMaterial(m []string) Line {
	idx, err := strconv.Atoi(m[1])
	if err != nil {
		return Line{}
	}
	var rgb [3]float64
	for i := range rgb {
		c, err := strconv.ParseFloat(m[2+i], 64)
		if err != nil || c < 0 || c > 1 {
			return Line{}
		}
		rgb[i] = c
	}
	return Line{
		Kind:  MaterialLine,
		Index: idx,
		R:     rgb[0],
		G:     rgb[1],
		B:     rgb[2],
		Name:  m[5],
	}
}

// Apply interprets the line against vol. Unrecognized lines are a no-op.
func (l Line) Apply(vol *models.Volume) error {
	switch l.Kind {
	case MaterialLine:
		vol.AppendMaterial(l.Name, l.R, l.G, l.B)
	case ExtentLine:
		switch l.Axis {
		case 'x':
			vol.NX = l.Extent
		case 'y':
			vol.NY = l.Extent
		case 'z':
			vol.NZ = l.Extent
		default:
			return fmt.Errorf("invalid extent axis %q", l.Axis)
		}
	case SpacingLine:
		switch l.Axis {
		case 'x':
			vol.DX = l.Spacing
		case 'y':
			vol.DY = l.Spacing
		case 'z':
			vol.DZ = l.Spacing
		default:
			return fmt.Errorf("invalid spacing axis %q", l.Axis)
		}
	}
	return nil
}
