package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/samijaber1/aegis-claims/internal/claims"
	"github.com/samijaber1/aegis-claims/internal/export"
	"github.com/samijaber1/aegis-claims/internal/metrics"
	"github.com/samijaber1/aegis-claims/internal/policy"
)

func main() {
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	validateFile := validateCmd.String("file", "", "claims dataset file to validate")
	validateDir := validateCmd.String("dir", "", "directory containing claims dataset files")

	analyzeCmd := flag.NewFlagSet("analyze", flag.ExitOnError)
	analyzeFile := analyzeCmd.String("file", "", "claims dataset file to analyze")
	analyzeOut := analyzeCmd.String("out", "", "write the full JSON report to this file instead of printing a summary")
	analyzeRules := ruleFlags(analyzeCmd)

	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	exportFile := exportCmd.String("file", "", "claims dataset file to export")
	exportDir := exportCmd.String("out-dir", "", "directory to write Parquet files into")
	exportRules := ruleFlags(exportCmd)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		validateCmd.Parse(os.Args[2:])
		if (*validateFile == "") == (*validateDir == "") {
			fmt.Fprintln(os.Stderr, "Error: exactly one of --file or --dir is required")
			validateCmd.Usage()
			os.Exit(1)
		}
		os.Exit(runValidate(*validateFile, *validateDir))
	case "analyze":
		analyzeCmd.Parse(os.Args[2:])
		if *analyzeFile == "" {
			fmt.Fprintln(os.Stderr, "Error: --file flag is required")
			analyzeCmd.Usage()
			os.Exit(1)
		}
		os.Exit(runAnalyze(*analyzeFile, *analyzeOut, *analyzeRules))
	case "export":
		exportCmd.Parse(os.Args[2:])
		if *exportFile == "" || *exportDir == "" {
			fmt.Fprintln(os.Stderr, "Error: --file and --out-dir flags are required")
			exportCmd.Usage()
			os.Exit(1)
		}
		os.Exit(runExport(*exportFile, *exportDir, *exportRules))
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: aegis-claims <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  validate --file <path> | --dir <path>    Validate claims dataset files")
	fmt.Println("  analyze --file <path> [--out <path>]     Derive metrics, flags and the regional summary")
	fmt.Println("  export --file <path> --out-dir <path>    Write derived claims and summary as Parquet")
	fmt.Println()
	fmt.Println("Rule options (analyze, export):")
	fmt.Println("  --sla-days <n>             SLA breach threshold in days (default 10)")
	fmt.Println("  --high-risk-ratio <x>      Loss ratio above which a claim is high-risk (default 1.0)")
	fmt.Println("  --zero-premium flag|error  Handling of zero premiums (default flag)")
	fmt.Println()
}

// ruleFlags registers the flag rule options on fs
func ruleFlags(fs *flag.FlagSet) *policy.Rules {
	rules := policy.DefaultRules()
	fs.IntVar(&rules.SLAThresholdDays, "sla-days", rules.SLAThresholdDays, "SLA breach threshold in days")
	fs.Float64Var(&rules.HighRiskLossRatio, "high-risk-ratio", rules.HighRiskLossRatio, "loss ratio above which a claim is high-risk")
	fs.Var(&rules.ZeroPremium, "zero-premium", "zero premium handling (flag|error)")
	return &rules
}

func runValidate(filePath, dirPath string) int {
	validator, err := claims.NewValidator()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize validator: %v\n", err)
		return 1
	}

	var errors []claims.ValidationError
	if filePath != "" {
		errors = validator.ValidateFile(filePath)
	} else {
		errors = validator.ValidateDirectory(dirPath)
	}

	if len(errors) == 0 {
		fmt.Println("✓ All claims datasets are valid")
		return 0
	}

	printValidationErrors(errors)
	return 1
}

func printValidationErrors(errors []claims.ValidationError) {
	// Group errors by file
	errorsByFile := make(map[string][]claims.ValidationError)
	for _, err := range errors {
		errorsByFile[err.File] = append(errorsByFile[err.File], err)
	}

	var files []string
	for file := range errorsByFile {
		files = append(files, file)
	}
	sort.Strings(files)

	fmt.Fprintf(os.Stderr, "✗ Validation failed with %d error(s):\n\n", len(errors))
	for _, file := range files {
		for _, err := range errorsByFile[file] {
			if err.Path != "" {
				fmt.Fprintf(os.Stderr, "%s: %s: %s\n", filepath.Base(err.File), err.Path, err.Message)
			} else {
				fmt.Fprintf(os.Stderr, "%s: %s\n", filepath.Base(err.File), err.Message)
			}
		}
	}
}

// analyzeFile parses, validates and analyzes a single dataset file
func analyzeFile(filePath string, rules policy.Rules) (*metrics.Report, int) {
	if err := rules.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid rules: %v\n", err)
		return nil, 1
	}

	validator, err := claims.DefaultValidator()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize validator: %v\n", err)
		return nil, 1
	}

	dataset, errors := validator.LoadFile(filePath)
	if len(errors) > 0 {
		printValidationErrors(errors)
		return nil, 1
	}

	report, err := metrics.NewAnalyzer(rules).Analyze(dataset, time.Now().UTC())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil, 1
	}
	return report, 0
}

func runAnalyze(filePath, outPath string, rules policy.Rules) int {
	report, code := analyzeFile(filePath, rules)
	if report == nil {
		return code
	}

	if outPath != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to encode report: %v\n", err)
			return 1
		}
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to write report: %v\n", err)
			return 1
		}
		fmt.Printf("✓ Report %s written to %s\n", report.ID, outPath)
		return 0
	}

	printReport(report)
	return 0
}

func printReport(report *metrics.Report) {
	norm := report.Normalization
	fmt.Printf("Dataset: %s (%d claims)\n", report.Dataset, norm.Rows)
	if norm.HasMissingValues() {
		fmt.Printf("Missing values: claim_amount=%d premium=%d (premium median %.2f)\n",
			norm.MissingClaimAmount, norm.MissingPremium, norm.PremiumMedian)
	}
	fmt.Println()

	fmt.Println("Summary by region and claim type:")
	fmt.Printf("  %-16s %-12s %6s %14s %14s %8s %10s\n",
		"region", "claim_type", "claims", "claim_amount", "premium", "days", "loss_ratio")
	for _, row := range report.Summary {
		fmt.Printf("  %-16s %-12s %6d %14.2f %14.2f %8.2f %10s\n",
			row.Region, row.ClaimType, row.ClaimCount, row.ClaimAmount, row.Premium,
			row.ProcessingDays, formatRatio(row.RegionalLossRatio))
	}
	fmt.Println()

	flagged := metrics.Project(report.Flagged)
	fmt.Printf("High-risk or SLA-breaching claims: %d\n", len(flagged))
	for _, row := range flagged {
		fmt.Printf("  claim %-6d %-16s amount=%.2f premium=%.2f loss_ratio=%s days=%d sla_breach=%s high_risk=%s\n",
			row.ClaimID, row.Region, row.ClaimAmount, row.Premium, formatRatio(row.LossRatio),
			row.ProcessingDays, row.SLABreach, row.HighRiskClaim)
	}
}

func formatRatio(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", *v)
}

func runExport(filePath, outDir string, rules policy.Rules) int {
	report, code := analyzeFile(filePath, rules)
	if report == nil {
		return code
	}

	result, err := export.WriteReport(outDir, report)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: export failed: %v\n", err)
		return 1
	}

	fmt.Printf("✓ %s (%d rows)\n", result.ClaimsFile, result.ClaimsRows)
	fmt.Printf("✓ %s (%d rows)\n", result.FlaggedFile, result.FlaggedRows)
	fmt.Printf("✓ %s (%d rows)\n", result.SummaryFile, result.SummaryRows)
	return 0
}
