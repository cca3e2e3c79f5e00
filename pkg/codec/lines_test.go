package codec

import (
	"testing"

	"voxelmod/internal/models"
)

func TestClassifyLine(t *testing.T) {
	testCases := []struct {
		line     string
		expected Line
	}{
		{
			line: "1\t0.500000\t0.250000\t1.000000\tAdult_male_1_34y/Adrenal_gland",
			expected: Line{Kind: MaterialLine, Index: 1, R: 0.5, G: 0.25, B: 1,
				Name: "Adult_male_1_34y/Adrenal_gland"},
		},
		{
			line:     "12 0 1 0 Bone",
			expected: Line{Kind: MaterialLine, Index: 12, G: 1, Name: "Bone"},
		},
		{
			line:     "3 .5 0.1 1.0 Fat trailing words",
			expected: Line{Kind: MaterialLine, Index: 3, R: 0.5, G: 0.1, B: 1, Name: "Fat"},
		},
		{line: "nx\t122", expected: Line{Kind: ExtentLine, Axis: 'x', Extent: 122}},
		{line: "ny 62", expected: Line{Kind: ExtentLine, Axis: 'y', Extent: 62}},
		{line: "nz\t93", expected: Line{Kind: ExtentLine, Axis: 'z', Extent: 93}},
		{line: "dx\t0.005", expected: Line{Kind: SpacingLine, Axis: 'x', Spacing: 0.005}},
		{line: "dy\t5e-05", expected: Line{Kind: SpacingLine, Axis: 'y', Spacing: 5e-05}},
		{line: "dz 2", expected: Line{Kind: SpacingLine, Axis: 'z', Spacing: 2}},
		{line: "", expected: Line{}},
		{line: "Grid extent (number of cells)", expected: Line{}},
		{line: "Spatial steps [m]", expected: Line{}},
		{line: "nw\t10", expected: Line{}},
		{line: "dx\tabc", expected: Line{}},
		{line: "1\t1.5\t0\t0\tBone", expected: Line{}},
		{line: "1\t0.5\t0.5\tBone", expected: Line{}},
		{line: "-1\t0.5\t0.5\t0.5\tBone", expected: Line{}},
	}

	for _, tc := range testCases {
		got := ClassifyLine(tc.line)
		if got != tc.expected {
			t.Errorf("ClassifyLine(%q): expected %+v, got %+v", tc.line, tc.expected, got)
		}
	}
}

// TestApplyIgnoresEmbeddedIndex verifies that materials are numbered by
// appearance, not by the index column
func TestApplyIgnoresEmbeddedIndex(t *testing.T) {
	vol := models.NewVolume()
	for _, line := range []string{
		"7\t0.1\t0.1\t0.1\tSkin",
		"nx\t4",
		"2\t0.2\t0.2\t0.2\tBone",
		"dz\t0.5",
	} {
		if err := ClassifyLine(line).Apply(vol); err != nil {
			t.Fatalf("Apply(%q): %v", line, err)
		}
	}

	if vol.NumMaterials() != 3 {
		t.Fatalf("Expected 3 materials, got %d", vol.NumMaterials())
	}
	skin, _ := vol.Material(1)
	bone, _ := vol.Material(2)
	if skin.Name != "Skin" || skin.Index != 1 {
		t.Errorf("Expected Skin at 1, got %+v", skin)
	}
	if bone.Name != "Bone" || bone.Index != 2 {
		t.Errorf("Expected Bone at 2, got %+v", bone)
	}
	if vol.NX != 4 || vol.DZ != 0.5 {
		t.Errorf("Expected nx=4 dz=0.5, got nx=%d dz=%f", vol.NX, vol.DZ)
	}
}

func TestLineKindString(t *testing.T) {
	kinds := map[LineKind]string{
		Unrecognized: "unrecognized",
		MaterialLine: "material",
		ExtentLine:   "extent",
		SpacingLine:  "spacing",
	}
	for k, want := range kinds {
		if k.String() != want {
			t.Errorf("Expected %s, got %s", want, k.String())
		}
	}
}
