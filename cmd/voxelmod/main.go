// voxelmod rewrites segmented voxel models: it reads a model stored as a
// metadata text file plus a raw label file, merges its materials through a
// substitution map, and writes the reduced copy next to the original format.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"voxelmod/internal/models"
	"voxelmod/pkg/codec"
	"voxelmod/pkg/config"
	"voxelmod/pkg/metrics"
	"voxelmod/pkg/reduction"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		printUsage(stderr)
		return errors.New("no command given")
	}

	switch args[0] {
	case "reduce":
		return reduceCmd(args[1:], stdout, stderr)
	case "info":
		return infoCmd(args[1:], stdout)
	case "init-config":
		return initConfigCmd(args[1:], stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage: voxelmod <command> [flags]

Commands:
  reduce       merge the materials of a model through a substitution map
  info         print a summary of a model
  init-config  write a default YAML configuration file`)
}

// modelFlags are shared by commands that read a model
type modelFlags struct {
	infoPath string
	dataPath string
}

func (m *modelFlags) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&m.infoPath, "info", "", "model metadata file (.txt)")
	fs.StringVar(&m.dataPath, "data", "", "model label file (.raw or .raw.zst); defaults to the metadata name with .raw")
}

func (m *modelFlags) resolve() (string, string, error) {
	if m.infoPath == "" {
		return "", "", errors.New("--info is required")
	}
	dataPath := m.dataPath
	if dataPath == "" {
		dataPath = strings.TrimSuffix(m.infoPath, ".txt") + ".raw"
	}
	return m.infoPath, dataPath, nil
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Logging.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func reduceCmd(args []string, stdout, stderr io.Writer) error {
	var model modelFlags
	var configPath, mapFile, outDir, compression, logLevel, logFormat, name string
	var seed uint64
	var verbose bool

	fs := pflag.NewFlagSet("voxelmod reduce", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	model.addFlags(fs)
	fs.StringVar(&configPath, "config", "voxelmod.yaml", "configuration file")
	fs.StringVar(&mapFile, "map", "", "material substitution map")
	fs.StringVarP(&outDir, "out", "o", "", "output directory (default: working directory)")
	fs.StringVar(&name, "name", "", "name of the reduced model (default: <source>_reduced)")
	fs.StringVar(&compression, "compress", "", "label file compression: none or zstd")
	fs.Uint64Var(&seed, "seed", 0, "seed for reduced material colours (0: random)")
	fs.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&logFormat, "log-format", "", "text or json")
	fs.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if fs.Changed("map") {
		cfg.Reduction.MapFile = mapFile
	}
	if fs.Changed("out") {
		cfg.Output.Dir = outDir
	}
	if fs.Changed("compress") {
		cfg.Output.Compression = compression
	}
	if fs.Changed("seed") {
		cfg.Reduction.Seed = seed
	}
	if fs.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if fs.Changed("log-format") {
		cfg.Logging.Format = logFormat
	}
	if verbose {
		cfg.Output.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}
	if cfg.Reduction.MapFile == "" {
		return errors.New("--map is required (or reduction.mapFile in the config)")
	}
	comp, err := codec.ParseCompression(cfg.Output.Compression)
	if err != nil {
		return err
	}

	infoPath, dataPath, err := model.resolve()
	if err != nil {
		return err
	}

	start := time.Now()
	src, err := codec.ReadVolume(infoPath, dataPath)
	if err != nil {
		return err
	}
	logger.Info("read voxel model",
		"name", src.Name,
		"materials", src.NumMaterials(),
		"extent", fmt.Sprintf("%dx%dx%d", src.NX, src.NY, src.NZ),
		"bytes", len(src.Data))
	if err := src.Validate(); err != nil {
		logger.Warn("source model is inconsistent", "error", err)
	}

	reducer := reduction.NewReducer(&reduction.Params{
		MapFile: cfg.Reduction.MapFile,
		Source:  src,
		Seed:    cfg.Reduction.Seed,
		Logger:  logger,
	})
	if err := reducer.Process(); err != nil {
		return fmt.Errorf("reduction failed: %w", err)
	}
	reduced := reducer.VoxelModel()
	if name != "" {
		reduced.Name = name
	}

	dir, err := cfg.ResolveOutputDir()
	if err != nil {
		return err
	}
	status, err := codec.WriteVolume(reduced, dir,
		codec.WithLogger(logger),
		codec.WithCompression(comp))
	if err != nil {
		return err
	}
	if status != codec.StatusOK {
		return fmt.Errorf("could not write reduced model to %s", dir)
	}

	m, err := metrics.CompareReduction(src, reduced, reducer.Lookup())
	if err != nil {
		return err
	}
	if !m.Consistent {
		logger.Warn("reduced label histogram does not match the source")
	}

	fmt.Fprintf(stdout, "Reduced %s: %d -> %d materials in %.2fs\n",
		src.Name, m.Source.Materials, m.Reduced.Materials, time.Since(start).Seconds())
	fmt.Fprintf(stdout, "Label entropy: %.4f -> %.4f nats (loss %.4f)\n",
		m.Source.Entropy, m.Reduced.Entropy, m.EntropyDiff)
	fmt.Fprintf(stdout, "Written: %s, %s in %s\n",
		codec.InfoFileName(reduced.Name), codec.DataFileName(reduced.Name, comp), dir)
	return nil
}

func infoCmd(args []string, stdout io.Writer) error {
	var model modelFlags
	fs := pflag.NewFlagSet("voxelmod info", pflag.ContinueOnError)
	model.addFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	infoPath, dataPath, err := model.resolve()
	if err != nil {
		return err
	}
	vol, err := codec.ReadVolume(infoPath, dataPath)
	if err != nil {
		return err
	}
	s, err := metrics.Summarize(vol)
	if err != nil {
		return err
	}

	printSummary(stdout, vol, s)
	return nil
}

func printSummary(w io.Writer, vol *models.Volume, s metrics.VolumeSummary) {
	fmt.Fprintf(w, "Model:      %s\n", vol.Name)
	fmt.Fprintf(w, "Extent:     %d x %d x %d cells\n", vol.NX, vol.NY, vol.NZ)
	fmt.Fprintf(w, "Spacing:    %g x %g x %g m\n", vol.DX, vol.DY, vol.DZ)
	fmt.Fprintf(w, "Voxels:     %d\n", s.Voxels)
	fmt.Fprintf(w, "Materials:  %d (%d used)\n", s.Materials, s.Used)
	fmt.Fprintf(w, "Occupied:   %.2f%%\n", s.Occupied*100)
	fmt.Fprintf(w, "Entropy:    %.4f nats\n", s.Entropy)
	fmt.Fprintf(w, "Digest:     %016x\n", s.Digest)
	if err := vol.Validate(); err != nil {
		fmt.Fprintf(w, "Warning:    %v\n", err)
	}
	fmt.Fprintln(w)
	for _, c := range s.Counts {
		fmt.Fprintf(w, "%4d  %-40s %d\n", c.Index, c.Name, c.Voxels)
	}
}

func initConfigCmd(args []string, stdout io.Writer) error {
	path := "voxelmod.yaml"
	if len(args) > 0 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.CreateDefaultConfigFile(path); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Wrote default configuration to %s\n", path)
	return nil
}
