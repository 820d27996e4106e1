package cmd

import (
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/segenergy/internal/config"
	"github.com/MeKo-Tech/segenergy/internal/energy"
	"github.com/MeKo-Tech/segenergy/internal/volio"
	"github.com/spf13/cobra"
)

// quantizeCmd turns stored energy maps into class maps.
var quantizeCmd = &cobra.Command{
	Use:   "quantize [files...]",
	Short: "Quantize raw energy maps into ordinal class maps",
	Long: `Quantize raw float64 energy volumes (.sgev) into class maps with values in
[0, levels]. Class 0 collects background and energies below 0; class k holds
energies in [(k-1)/levels, k/levels).

Examples:
  segenergy quantize labels_energy.sgev
  segenergy quantize *.sgev --levels 20 --format raw -o classes/`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runQuantizeCommand,
}

func init() {
	rootCmd.AddCommand(quantizeCmd)
	quantizeCmd.Flags().Int("levels", energy.DefaultLevels, "number of quantization levels")
	addInputFlags(quantizeCmd)
	addOutputFlags(quantizeCmd)
}

func configToQuantizeConfig(base *config.Config, cmd *cobra.Command) (*config.Config, error) {
	cfg := *base
	if cmd.Flags().Changed("levels") {
		cfg.Quantize.Levels, _ = cmd.Flags().GetInt("levels")
	}
	applyOutputFlags(&cfg, cmd)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func runQuantizeCommand(cmd *cobra.Command, args []string) error {
	cfg, err := configToQuantizeConfig(GetConfig(), cmd)
	if err != nil {
		return err
	}
	quantizer, err := energy.NewQuantizer(cfg.Quantize.Levels)
	if err != nil {
		return err
	}
	inputs, err := expandInputs(cmd, args, rawInputPatterns)
	if err != nil {
		return err
	}
	if err := prepareOutputDir(cfg); err != nil {
		return err
	}

	m := newManifest("quantize", cfg)
	m.Levels = quantizer.Levels()
	for _, path := range inputs {
		e, err := volio.LoadRaw[float64](path)
		if err != nil {
			slog.Error("Failed to load energy", "input", path, "error", err)
			m.Failures = append(m.Failures, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		classes := quantizer.QuantizeArray(e)
		outputs, err := saveClasses(classes, cfg.Output.Dir, outputStem(path)+"_classes", cfg.Output.Format)
		if err != nil {
			slog.Error("Failed to write classes", "input", path, "error", err)
			m.Failures = append(m.Failures, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		m.Entries = append(m.Entries, volio.Entry{
			Input:   path,
			Outputs: outputs,
			Shape:   e.Shape,
			Energy:  volio.Summarize(e, cfg.Encode.BgValue),
			Classes: volio.ClassHistogram(classes),
		})
		slog.Info("Quantized energy", "input", path, "shape", e.Shape, "levels", quantizer.Levels())
	}
	return finishRun(cmd.OutOrStdout(), cfg, m, "Quantized", len(inputs))
}
