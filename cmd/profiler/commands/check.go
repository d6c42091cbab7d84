/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: check.go
Description: Self-check command for the Akaylee Profiler. Validates the configuration,
the matcher definitions, directory permissions and runs a small known stream through the
analyzer to confirm the installation classifies as expected.
*/

package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kleascm/akaylee-profiler/pkg/analysis"
	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// PerformSelfCheck performs system validation
func PerformSelfCheck(cmd *cobra.Command, args []string) error {
	printHeader("🔍 Akaylee Profiler - System Self-Check")

	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	checks := []struct {
		name     string
		function func() error
	}{
		{"Configuration Validation", checkConfiguration},
		{"Semantic Type Definitions", checkDefinitions},
		{"File System Permissions", checkFileSystemPermissions},
		{"Classification", checkClassification},
	}

	passed := 0
	for _, check := range checks {
		fmt.Printf("🔍 %s... ", check.name)
		if err := check.function(); err != nil {
			failColor.Printf("❌ FAILED: %v\n", err)
		} else {
			okColor.Println("✅ PASSED")
			passed++
		}
	}

	fmt.Println()
	fmt.Printf("📊 Results: %d/%d checks passed\n", passed, len(checks))
	if passed == len(checks) {
		okColor.Println("✨ All checks passed! The profiler is ready.")
		return nil
	}
	warnColor.Println("⚠️  Some checks failed. Please address the issues before profiling.")
	return fmt.Errorf("%d/%d checks failed", len(checks)-passed, len(checks))
}

func checkConfiguration() error {
	cfg, err := analysisConfig()
	if err != nil {
		return err
	}
	return cfg.Validate()
}

func checkDefinitions() error {
	registry, err := loadRegistry()
	if err != nil {
		return err
	}
	matchers, err := registry.BuildAll()
	if err != nil {
		return err
	}
	if len(matchers) == 0 {
		return fmt.Errorf("no matchers defined")
	}
	return nil
}

// checkFileSystemPermissions confirms every configured output directory is writable
func checkFileSystemPermissions() error {
	for _, key := range []string{"log.dir", "report.output_dir", "report.results_dir"} {
		dir := viper.GetString(key)
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		marker := filepath.Join(dir, ".akaylee-profiler-check")
		if err := os.WriteFile(marker, []byte("ok"), 0644); err != nil {
			return fmt.Errorf("%s is not writable: %w", dir, err)
		}
		os.Remove(marker)
	}
	return nil
}

// checkClassification profiles a stream with one outlier at a 75% threshold
func checkClassification() error {
	cfg := core.DefaultAnalysisConfig()
	if err := cfg.SetThreshold(75); err != nil {
		return err
	}
	a, err := analysis.NewTextAnalyzer(core.NewAnalysisContext("check"), cfg)
	if err != nil {
		return err
	}
	for _, s := range []string{"123", "456", "789", "12a"} {
		if _, err := a.Train(s); err != nil {
			return err
		}
	}
	r, err := a.Result()
	if err != nil {
		return err
	}
	if r.Type != core.BaseLong || r.MatchCount != 3 || r.OutlierCount != 1 {
		return fmt.Errorf("expected LONG with 3 matches and 1 outlier, got %s with %d/%d", r.Type, r.MatchCount, r.OutlierCount)
	}
	return nil
}
