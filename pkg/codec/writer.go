package codec

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"voxelmod/internal/models"
)

// Writer status codes
const (
	StatusOK      = 0
	StatusInvalid = -1
)

// ErrWrite wraps I/O failures that happen after the output files were
// opened. Partially written files are left in place.
var ErrWrite = errors.New("unexpected error writing voxel model")

type writeOptions struct {
	logger      *slog.Logger
	compression Compression
}

// WriteOption configures WriteVolume
type WriteOption func(*writeOptions)

// WithLogger sets the logger used to report rejected writes and failures.
func WithLogger(logger *slog.Logger) WriteOption {
	return func(o *writeOptions) { o.logger = logger }
}

// WithCompression selects the label file encoding.
func WithCompression(c Compression) WriteOption {
	return func(o *writeOptions) { o.compression = c }
}

// InfoFileName returns the metadata file name for a model.
func InfoFileName(name string) string {
	return name + infoExt
}

// DataFileName returns the label file name for a model.
func DataFileName(name string, c Compression) string {
	if c == CompressionZstd {
		return name + dataExt + zstdExt
	}
	return name + dataExt
}

// WriteVolume writes vol to dir as <name>.txt and <name>.raw.
//
// A missing destination directory, a nil volume or a name that is not a
// plain file name (empty, "." or "..", or containing a separator) is not
// an error: the problem is logged and StatusInvalid is returned with a nil
// error. I/O failures while writing return StatusInvalid and an error
// wrapping both ErrWrite and the underlying OS error.
func WriteVolume(vol *models.Volume, dir string, opts ...WriteOption) (int, error) {
	o := writeOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		o.logger.Warn("destination directory not found", "dir", dir)
		return StatusInvalid, nil
	}
	if vol == nil {
		o.logger.Warn("voxel model not valid", "dir", dir)
		return StatusInvalid, nil
	}
	if !validName(vol.Name) {
		o.logger.Warn("voxel model name is not a plain file name", "name", vol.Name, "dir", dir)
		return StatusInvalid, nil
	}

	infoPath := filepath.Join(dir, InfoFileName(vol.Name))
	if err := writeInfo(infoPath, vol); err != nil {
		o.logger.Error("failed to write metadata file", "path", infoPath, "error", err)
		return StatusInvalid, fmt.Errorf("%w: %w", ErrWrite, err)
	}

	dataPath := filepath.Join(dir, DataFileName(vol.Name, o.compression))
	payload := vol.Data
	if o.compression == CompressionZstd {
		payload = compressZstd(vol.Data)
	}
	if err := writeData(dataPath, payload); err != nil {
		o.logger.Error("failed to write data file", "path", dataPath, "error", err)
		return StatusInvalid, fmt.Errorf("%w: %w", ErrWrite, err)
	}

	o.logger.Debug("wrote voxel model",
		"name", vol.Name,
		"materials", vol.NumMaterials(),
		"bytes", len(vol.Data),
		"compression", o.compression.String())
	return StatusOK, nil
}

// validName reports whether name stays inside the destination directory
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

func writeInfo(path string, vol *models.Volume) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)

	// Material table, sentinel excluded
	for i := 1; i < vol.NumMaterials(); i++ {
		m, err := vol.Material(i)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d\t%.6f\t%.6f\t%.6f\t%s\n", m.Index, m.R, m.G, m.B, m.Name)
	}

	fmt.Fprint(w, "\nGrid extent (number of cells)\n")
	fmt.Fprintf(w, "nx\t%d\n", vol.NX)
	fmt.Fprintf(w, "ny\t%d\n", vol.NY)
	fmt.Fprintf(w, "nz\t%d\n", vol.NZ)

	fmt.Fprint(w, "\nSpatial steps [m]\n")
	fmt.Fprintf(w, "dx\t%s\n", formatStep(vol.DX))
	fmt.Fprintf(w, "dy\t%s\n", formatStep(vol.DY))
	fmt.Fprintf(w, "dz\t%s\n", formatStep(vol.DZ))

	return w.Flush()
}

func formatStep(d float64) string {
	return strconv.FormatFloat(d, 'g', -1, 64)
}

func writeData(path string, data []byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	_, err = f.Write(data)
	return err
}
