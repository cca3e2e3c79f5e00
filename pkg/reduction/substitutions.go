package reduction

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"voxelmod/internal/textio"
)

// ErrMapNotFound is reported when the substitution map file is missing.
// Reduction continues with an empty mapping.
var ErrMapNotFound = errors.New("substitution map not found")

var substitutionPattern = regexp.MustCompile(`^([A-Za-z_]+)\s+([A-Za-z_][A-Za-z_\s]*)$`)

// Substitutions maps bare material names onto target material names
type Substitutions struct {
	targets map[string]string
	order   []string
}

// NewSubstitutions returns an empty mapping.
func NewSubstitutions() *Substitutions {
	return &Substitutions{targets: make(map[string]string)}
}

// Set maps original onto target. A later Set for the same original wins.
func (s *Substitutions) Set(original, target string) {
	if _, ok := s.targets[original]; !ok {
		s.order = append(s.order, original)
	}
	s.targets[original] = target
}

// Target returns the target name for a bare material name.
func (s *Substitutions) Target(original string) (string, bool) {
	t, ok := s.targets[original]
	return t, ok
}

// Len returns the number of mapped original names.
func (s *Substitutions) Len() int {
	return len(s.targets)
}

// Targets returns the distinct target names, ordered by the first line of
// each original name. Targets only referenced by overridden lines are
// dropped.
func (s *Substitutions) Targets() []string {
	seen := make(map[string]bool, len(s.targets))
	var out []string
	for _, original := range s.order {
		t := s.targets[original]
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// ParseSubstitutions reads "<original> <target>" lines. Lines of any other
// shape, including over-long ones, are skipped.
func ParseSubstitutions(r io.Reader) (*Substitutions, error) {
	subs := NewSubstitutions()
	_, err := textio.EachLine(r, textio.MaxLineSize, func(_ int, line string) error {
		m := substitutionPattern.FindStringSubmatch(strings.TrimRightFunc(line, isSpace))
		if m != nil {
			subs.Set(m[1], m[2])
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read substitution map: %w", err)
	}
	return subs, nil
}

// LoadSubstitutions reads a substitution map file. A missing file yields
// an empty mapping together with an error wrapping ErrMapNotFound.
func LoadSubstitutions(path string) (*Substitutions, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewSubstitutions(), fmt.Errorf("%w: %s", ErrMapNotFound, path)
		}
		return nil, fmt.Errorf("failed to open substitution map: %w", err)
	}
	defer f.Close()

	return ParseSubstitutions(f)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n' || r == '\v' || r == '\f'
}
