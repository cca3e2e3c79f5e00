// Package codec reads and writes voxel models stored as a text metadata
// file (materials, grid extent, spacing) paired with a raw label file.
package codec

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"voxelmod/internal/models"
	"voxelmod/internal/textio"
)

// ErrFileNotFound is returned when a metadata or data file does not exist.
var ErrFileNotFound = errors.New("file not found")

// ReadVolume loads the metadata file at infoPath and the label file at
// dataPath into a new volume named after the metadata file. The metadata
// is parsed before the label file is touched. A data path ending in ".zst"
// is decompressed after loading.
func ReadVolume(infoPath, dataPath string) (*models.Volume, error) {
	if err := checkFile(infoPath); err != nil {
		return nil, err
	}

	vol := models.NewVolume()
	vol.Name = ModelName(infoPath)

	if err := readInfo(infoPath, vol); err != nil {
		return nil, err
	}

	if err := checkFile(dataPath); err != nil {
		return nil, err
	}
	data, err := readData(dataPath)
	if err != nil {
		return nil, err
	}
	vol.Data = data

	return vol, nil
}

// ModelName derives a model name from a metadata path: the base name with
// its extension removed.
func ModelName(infoPath string) string {
	base := filepath.Base(infoPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrFileNotFound, path)
	}
	return nil
}

func readInfo(path string, vol *models.Volume) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open metadata file: %w", err)
	}
	defer f.Close()

	_, err = textio.EachLine(f, textio.MaxLineSize, func(lineNo int, line string) error {
		if err := ClassifyLine(line).Apply(vol); err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to read metadata file %s: %w", path, err)
	}
	return nil
}

func readData(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	if strings.HasSuffix(path, zstdExt) {
		data, err = decompressZstd(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode data file %s: %w", path, err)
		}
	}
	return data, nil
}
