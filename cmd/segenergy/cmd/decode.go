package cmd

import (
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/segenergy/internal/config"
	"github.com/MeKo-Tech/segenergy/internal/energy"
	"github.com/MeKo-Tech/segenergy/internal/volio"
	"github.com/MeKo-Tech/segenergy/internal/volume"
	"github.com/spf13/cobra"
)

// decodeCmd turns predicted class distributions back into energy.
var decodeCmd = &cobra.Command{
	Use:   "decode [files...]",
	Short: "Decode predicted class logits into energy maps",
	Long: `Decode raw float64 logit volumes (.sgev) into energy maps.

Layouts:
  channel_first  (C, spatial...)     classes on the leading axis
  batched        (N, C, spatial...)  classes on the second axis

Policies:
  max   argmax class index divided by the class count
  mean  softmax expectation over the 11 bin centers -0.1, 0.0, ..., 0.9

Examples:
  segenergy decode logits.sgev
  segenergy decode batch.sgev --layout batched --policy mean --format raw`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runDecodeCommand,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().String("policy", string(energy.PolicyMax), "decoding policy (max, mean)")
	decodeCmd.Flags().String("layout", config.LayoutChannelFirst, "logit layout (channel_first, batched)")
	addInputFlags(decodeCmd)
	addOutputFlags(decodeCmd)
}

func configToDecodeConfig(base *config.Config, cmd *cobra.Command) (*config.Config, error) {
	cfg := *base
	if cmd.Flags().Changed("policy") {
		cfg.Decode.Policy, _ = cmd.Flags().GetString("policy")
	}
	if cmd.Flags().Changed("layout") {
		cfg.Decode.Layout, _ = cmd.Flags().GetString("layout")
	}
	applyOutputFlags(&cfg, cmd)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// logitsFor wraps values in the configured layout.
func logitsFor(values volume.Array[float64], layout string) energy.Logits {
	if layout == config.LayoutBatched {
		return energy.BatchedLogits{Values: values}
	}
	return energy.ChannelFirstLogits{Values: values}
}

func runDecodeCommand(cmd *cobra.Command, args []string) error {
	cfg, err := configToDecodeConfig(GetConfig(), cmd)
	if err != nil {
		return err
	}
	policy, err := energy.ParsePolicy(cfg.Decode.Policy)
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

	m := newManifest("decode", cfg)
	m.Policy = string(policy)
	for _, path := range inputs {
		entry, err := decodeOne(path, policy, cfg)
		if err != nil {
			slog.Error("Failed to decode logits", "input", path, "error", err)
			m.Failures = append(m.Failures, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		m.Entries = append(m.Entries, entry)
	}
	return finishRun(cmd.OutOrStdout(), cfg, m, "Decoded", len(inputs))
}

func decodeOne(path string, policy energy.Policy, cfg *config.Config) (volio.Entry, error) {
	values, err := volio.LoadRaw[float64](path)
	if err != nil {
		return volio.Entry{}, err
	}
	decoded, err := energy.DecodeQuantize(logitsFor(values, cfg.Decode.Layout), policy)
	if err != nil {
		return volio.Entry{}, err
	}
	outputs, err := saveEnergy(decoded, 0, cfg.Output.Dir, outputStem(path)+"_energy", cfg.Output.Format)
	if err != nil {
		return volio.Entry{}, err
	}
	slog.Info("Decoded logits", "input", path, "shape", values.Shape, "policy", policy)
	return volio.Entry{
		Input:   path,
		Outputs: outputs,
		Shape:   decoded.Shape,
		Energy:  volio.Summarize(decoded, cfg.Encode.BgValue),
	}, nil
}
