package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cloudsweep-io/cloudsweep/internal/config"
	"github.com/cloudsweep-io/cloudsweep/internal/engine"
	"github.com/cloudsweep-io/cloudsweep/internal/models"
	"github.com/cloudsweep-io/cloudsweep/internal/output"
	"github.com/cloudsweep-io/cloudsweep/internal/providers/aws/common"
	"github.com/cloudsweep-io/cloudsweep/internal/version"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cloudsweep",
		Short:         "Find and clean up idle AWS resources",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newScanCmd())
	root.AddCommand(newCleanupCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// scanFlags are the flags shared by scan and cleanup.
type scanFlags struct {
	profile string
	regions []string
	types   []string
	minCost float64
	days    int
}

func (f *scanFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.profile, "profile", "", "AWS profile name (default: uses environment / default profile)")
	cmd.Flags().StringSliceVar(&f.regions, "region", nil, "AWS region(s) to scan (required)")
	cmd.Flags().StringSliceVar(&f.types, "types", nil, "Resource types to scan (default: all)")
	cmd.Flags().Float64Var(&f.minCost, "min-cost", 0, "Drop items with estimated monthly cost below this")
	cmd.Flags().IntVar(&f.days, "days", config.DefaultLookbackDays, "Lookback window in days for activity metrics")
}

// buildConfig turns the shared flags into a validated scan configuration.
func (f *scanFlags) buildConfig() (*config.Config, error) {
	cfg := config.Default()
	cfg.Regions = f.regions
	cfg.MinMonthlyCost = f.minCost
	cfg.LookbackDays = f.days
	for _, t := range f.types {
		rt, err := models.ParseResourceType(t)
		if err != nil {
			return nil, &config.ValidationError{Field: "types", Reason: err.Error()}
		}
		cfg.ResourceTypes = append(cfg.ResourceTypes, rt)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newScanCmd() *cobra.Command {
	var (
		flags     scanFlags
		reportFmt string
		outFile   string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan AWS regions for idle resources and estimate waste",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.buildConfig()
			if err != nil {
				return err
			}

			orch := engine.NewOrchestrator(common.NewDefaultClientProvider(), cfg, log.Logger)
			result, err := orch.Scan(cmd.Context(), flags.profile)
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			if outFile != "" {
				if err := writeResultFile(outFile, result); err != nil {
					return err
				}
			}
			if reportFmt == "json" {
				return printJSON(result)
			}
			output.RenderScanTable(os.Stdout, result, output.TableOptions{Colored: true})
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&reportFmt, "report", "table", "Output format: json or table")
	cmd.Flags().StringVar(&outFile, "output", "", "Write the full JSON scan result to this file path")
	return cmd
}

func newCleanupCmd() *cobra.Command {
	var (
		flags   scanFlags
		execute bool
		risks   []string
		inFile  string
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Clean up waste items found by a scan (dry run by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			riskFilter := make([]models.RiskLevel, 0, len(risks))
			for _, r := range risks {
				rl, err := models.ParseRiskLevel(r)
				if err != nil {
					return &config.ValidationError{Field: "risk", Reason: err.Error()}
				}
				riskFilter = append(riskFilter, rl)
			}

			provider := common.NewDefaultClientProvider()

			var items []models.WasteItem
			if inFile != "" {
				result, err := readResultFile(inFile)
				if err != nil {
					return err
				}
				items = result.WasteItems
			} else {
				cfg, err := flags.buildConfig()
				if err != nil {
					return err
				}
				orch := engine.NewOrchestrator(provider, cfg, log.Logger)
				result, err := orch.Scan(cmd.Context(), flags.profile)
				if err != nil {
					return fmt.Errorf("scan failed: %w", err)
				}
				items = result.WasteItems
			}

			cleaner := engine.NewCleanupEngine(provider, config.Default(), log.Logger)
			actions, err := cleaner.Cleanup(cmd.Context(), items, engine.CleanupOptions{
				Profile:    flags.profile,
				DryRun:     !execute,
				RiskFilter: riskFilter,
			})
			if err != nil {
				return fmt.Errorf("cleanup failed: %w", err)
			}

			output.RenderCleanupTable(os.Stdout, actions)
			for _, a := range actions {
				if !a.Success {
					return fmt.Errorf("%d of %d cleanup action(s) failed", countFailed(actions), len(actions))
				}
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&execute, "execute", false, "Actually delete resources; without this flag the run is simulated")
	cmd.Flags().StringSliceVar(&risks, "risk", nil, "Risk level(s) eligible for cleanup (default: safe only)")
	cmd.Flags().StringVar(&inFile, "input", "", "Read waste items from a previous scan's JSON file instead of scanning")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(version.Info())
		},
	}
}

// printJSON writes the scan result as indented JSON to stdout.
func printJSON(result *models.ScanResult) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// writeResultFile serialises result as indented JSON and writes it to path,
// creating or overwriting the file.
func writeResultFile(path string, result *models.ScanResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal scan result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write scan result %q: %w", path, err)
	}
	return nil
}

// readResultFile loads a scan result previously written by --output.
func readResultFile(path string) (*models.ScanResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scan result %q: %w", path, err)
	}
	var result models.ScanResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse scan result %q: %w", path, err)
	}
	return &result, nil
}

func countFailed(actions []models.CleanupAction) int {
	n := 0
	for _, a := range actions {
		if !a.Success {
			n++
		}
	}
	return n
}
