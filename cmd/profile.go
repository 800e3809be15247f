package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/csvinsight-cli/internal/dataset"
	"github.com/KaramelBytes/csvinsight-cli/internal/logging"
	"github.com/KaramelBytes/csvinsight-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	profOutputPath string
	profSampleRows int
	profGroupBy    []string
	profCorr       bool
	profOutliers   bool
	profOutlierThr float64
	profPlain      bool
)

var profileCmd = &cobra.Command{
	Use:   "profile <file.csv>",
	Short: "Profile a CSV file: column kinds, statistics, outliers and correlations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		log := logging.NewNop()
		if debug {
			log = logging.New(slog.LevelDebug)
		}
		tbl, err := dataset.Load(filepath.Base(path), raw, log)
		if err != nil {
			return err
		}

		opt := dataset.DefaultProfileOptions()
		if profSampleRows >= 0 {
			opt.SampleRows = profSampleRows
		}
		opt.GroupBy = profGroupBy
		opt.Correlations = profCorr
		opt.Outliers = profOutliers
		if profOutlierThr > 0 {
			opt.OutlierThreshold = profOutlierThr
		}
		md := dataset.BuildProfile(tbl, opt).Markdown()

		if profOutputPath != "" {
			if err := utils.SafeWriteFile(profOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote profile to %s\n", profOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), newRenderer(profPlain)(md))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVarP(&profOutputPath, "output", "o", "", "optional path to write the profile (Markdown)")
	profileCmd.Flags().IntVar(&profSampleRows, "sample-rows", 5, "number of sample rows to include")
	profileCmd.Flags().StringSliceVar(&profGroupBy, "group-by", nil, "comma-separated column names to group by (repeatable)")
	profileCmd.Flags().BoolVar(&profCorr, "correlations", false, "compute Pearson correlations among numeric columns")
	profileCmd.Flags().BoolVar(&profOutliers, "outliers", true, "compute robust outlier counts (MAD)")
	profileCmd.Flags().Float64Var(&profOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
	profileCmd.Flags().BoolVar(&profPlain, "plain", false, "print raw markdown without terminal rendering")
}
