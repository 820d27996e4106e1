package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/segenergy/internal/batch"
	"github.com/MeKo-Tech/segenergy/internal/config"
	"github.com/MeKo-Tech/segenergy/internal/version"
	"github.com/MeKo-Tech/segenergy/internal/volio"
	"github.com/MeKo-Tech/segenergy/internal/volume"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// manifestFileName is written into the output directory after every run.
const manifestFileName = "manifest.yaml"

// imageExtension returns the file extension of an image output format.
func imageExtension(format string) string {
	if format == config.FormatTIFF {
		return ".tiff"
	}
	return ".png"
}

// outputStem returns the file name of path without directory and extension.
func outputStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// saveSlices writes a 2D map as one image and a 3D map as one image per
// leading-axis slice, returning the written paths.
func saveSlices[T any](a volume.Array[T], dir, stem, ext string, save func(volume.Array[T], string) error) ([]string, error) {
	switch a.NDim() {
	case 2:
		path := filepath.Join(dir, stem+ext)
		if err := save(a, path); err != nil {
			return nil, err
		}
		return []string{path}, nil
	case 3:
		paths := make([]string, 0, a.Shape[0])
		for z := range a.Shape[0] {
			path := filepath.Join(dir, fmt.Sprintf("%s_z%03d%s", stem, z, ext))
			if err := save(volume.Slice(a, z), path); err != nil {
				return paths, err
			}
			paths = append(paths, path)
		}
		return paths, nil
	default:
		return nil, fmt.Errorf("%w: image output needs 2D or 3D maps, got shape %v (use --format raw)",
			volio.ErrRank, a.Shape)
	}
}

// saveEnergy writes an energy map in the configured output format.
func saveEnergy(energy volume.Array[float64], lo float64, dir, stem, format string) ([]string, error) {
	if format == config.FormatRaw {
		path := filepath.Join(dir, stem+volio.RawExtension)
		return []string{path}, volio.SaveRaw(energy, path)
	}
	return saveSlices(energy, dir, stem, imageExtension(format), func(a volume.Array[float64], path string) error {
		return volio.SaveEnergy(a, lo, path)
	})
}

// saveClasses writes a quantized map in the configured output format.
func saveClasses(classes volume.Array[int64], dir, stem, format string) ([]string, error) {
	if format == config.FormatRaw {
		path := filepath.Join(dir, stem+volio.RawExtension)
		return []string{path}, volio.SaveRaw(classes, path)
	}
	return saveSlices(classes, dir, stem, imageExtension(format), volio.SaveClasses)
}

// finishRun writes the manifest and metrics textfile when configured and
// prints a one-line summary.
func finishRun(out io.Writer, cfg *config.Config, m volio.Manifest, verb string, total int) error {
	if cfg.Output.Manifest {
		path := filepath.Join(cfg.Output.Dir, manifestFileName)
		if err := volio.WriteManifest(m, path); err != nil {
			return err
		}
		slog.Debug("Wrote manifest", "path", path, "entries", len(m.Entries))
	}
	if cfg.Metrics.Textfile != "" {
		if err := prometheus.WriteToTextfile(cfg.Metrics.Textfile, prometheus.DefaultGatherer); err != nil {
			return fmt.Errorf("write metrics textfile: %w", err)
		}
	}

	outputs := 0
	for _, e := range m.Entries {
		outputs += len(e.Outputs)
	}
	p := message.NewPrinter(language.English)
	_, _ = p.Fprintf(out, "%s %d of %d input(s), %d output file(s) in %s\n",
		verb, len(m.Entries), total, outputs, cfg.Output.Dir)

	if len(m.Failures) > 0 {
		return fmt.Errorf("%d of %d input(s) failed", len(m.Failures), total)
	}
	return nil
}

// newManifest starts a manifest for one command.
func newManifest(command string, cfg *config.Config) volio.Manifest {
	return volio.Manifest{
		Tool:    "segenergy",
		Version: version.Version,
		Command: command,
		BgValue: cfg.Encode.BgValue,
	}
}

// prepareOutputDir creates the output directory.
func prepareOutputDir(cfg *config.Config) error {
	if err := os.MkdirAll(cfg.Output.Dir, 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}

// addOutputFlags registers the output flags shared by all conversion commands.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output-dir", "o", ".", "directory for output files")
	cmd.Flags().String("format", config.FormatPNG, "output format (png, tiff, raw)")
	cmd.Flags().Bool("manifest", true, "write "+manifestFileName+" into the output directory")
	cmd.Flags().String("metrics-textfile", "", "write Prometheus metrics to this node-exporter textfile")
}

// applyOutputFlags overrides the output settings of cfg with changed flags.
func applyOutputFlags(cfg *config.Config, cmd *cobra.Command) {
	if cmd.Flags().Changed("output-dir") {
		cfg.Output.Dir, _ = cmd.Flags().GetString("output-dir")
	}
	if cmd.Flags().Changed("format") {
		cfg.Output.Format, _ = cmd.Flags().GetString("format")
	}
	if cmd.Flags().Changed("manifest") {
		cfg.Output.Manifest, _ = cmd.Flags().GetBool("manifest")
	}
	if cmd.Flags().Changed("metrics-textfile") {
		cfg.Metrics.Textfile, _ = cmd.Flags().GetString("metrics-textfile")
	}
}

// rawInputPatterns selects raw volumes when a directory is given as input.
var rawInputPatterns = []string{"*" + volio.RawExtension}

// addInputFlags registers the directory expansion flags.
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories of directory inputs")
	cmd.Flags().StringSlice("include", nil, "glob patterns selecting files inside directory inputs")
	cmd.Flags().StringSlice("exclude", nil, "glob patterns dropping files inside directory inputs")
}

// expandInputs replaces directory arguments with the files they hold.
// Without --include, defaults selects the files.
func expandInputs(cmd *cobra.Command, args, defaults []string) ([]string, error) {
	opts := batch.Options{Include: defaults}
	opts.Recursive, _ = cmd.Flags().GetBool("recursive")
	if cmd.Flags().Changed("include") {
		opts.Include, _ = cmd.Flags().GetStringSlice("include")
	}
	opts.Exclude, _ = cmd.Flags().GetStringSlice("exclude")

	files, err := batch.Discover(args, opts)
	if err != nil {
		return nil, fmt.Errorf("discover inputs: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files found in %s", strings.Join(args, ", "))
	}
	return files, nil
}
