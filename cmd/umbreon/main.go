package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/IvanShishkin/umbreon/internal/config"
	"github.com/IvanShishkin/umbreon/internal/deobfuscator"
	"github.com/IvanShishkin/umbreon/internal/report"
	"github.com/IvanShishkin/umbreon/internal/signatures"
	"github.com/IvanShishkin/umbreon/pkg/models"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorRed    = "\033[31m"
	colorPurple = "\033[38;5;99m"
	colorYellow = "\033[38;5;220m"
	colorGray   = "\033[38;5;245m"
	colorCyan   = "\033[36m"
)

var (
	version = "0.0.1"
	logger  *zap.Logger
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "umbreon",
		Short: "Umbreon - Malware Deobfuscation Engine",
		Long: `Static deobfuscation engine for malware analysis. Detects and reverses
layered encodings, simple ciphers, and script obfuscation without executing
the content.`,
		Version: version,
		Run: func(cmd *cobra.Command, args []string) {
			printBanner()
			cmd.Help()
		},
	}

	// Global verbose flag
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(deobCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(entropyCmd())
	rootCmd.AddCommand(stringsCmd())
	rootCmd.AddCommand(iocsCmd())
	rootCmd.AddCommand(techniquesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// printBanner prints the startup banner
func printBanner() {
	fmt.Println()
	fmt.Printf("%s", colorPurple)
	fmt.Println("██  ██ ███  ██▄ ██▄██▄ ▄████▄ ▄████▄ ███  ██")
	fmt.Println("██  ██ ██▀█ ██▀ ██▀ ██ ██▄▄   ██  ██ ██ ▀▄██")
	fmt.Println("▀████▀ ██ ▀███  ██  ██ ▀████▀ ▀████▀ ██   ██")
	fmt.Printf("%s", colorReset)
	fmt.Println()
	fmt.Printf("%sDeobfuscation Engine v%s%s\n", colorGray, version, colorReset)
	fmt.Println()
}

// initLogger builds the logger based on the verbose flag
func initLogger() error {
	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		// Silent logger - only errors
		cfg := zap.Config{
			Level:            zap.NewAtomicLevelAt(zapcore.ErrorLevel),
			Encoding:         "json",
			OutputPaths:      []string{"stderr"},
			ErrorOutputPaths: []string{"stderr"},
			EncoderConfig:    zap.NewProductionEncoderConfig(),
		}
		logger, err = cfg.Build()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
	}
	return err
}

// buildEngine loads configuration, signatures and constructs the engine
func buildEngine() (*deobfuscator.Engine, *config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", zap.Error(err))
		return nil, nil, err
	}

	sigs, err := signatures.NewLoader(cfg.SignaturesPath).Load()
	if err != nil {
		logger.Error("Failed to load signatures", zap.Error(err))
		return nil, nil, err
	}

	engine, err := deobfuscator.NewEngine(cfg, sigs, logger)
	if err != nil {
		return nil, nil, err
	}
	return engine, cfg, nil
}

// readInput reads the file argument
func readInput(path string) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf("file not found: %s", path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(content), nil
}

// deobCmd creates the deob command
func deobCmd() *cobra.Command {
	var (
		reportFormat  string
		outputFile    string
		maxLayers     uint32
		minConfidence float64
		timeoutMs     uint64
		noStrings     bool
	)

	cmd := &cobra.Command{
		Use:   "deob <file>",
		Short: "Deobfuscate a file and report the result",
		Long:  `Analyze a file for obfuscation, reverse every detected layer, and render a report.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initLogger(); err != nil {
				return err
			}
			defer logger.Sync()

			content, err := readInput(args[0])
			if err != nil {
				return err
			}

			engine, cfg, err := buildEngine()
			if err != nil {
				return err
			}

			// Override config with CLI flags
			if cmd.Flags().Changed("max-layers") {
				cfg.MaxLayers = maxLayers
			}
			if cmd.Flags().Changed("min-confidence") {
				cfg.MinConfidence = minConfidence
			}
			if cmd.Flags().Changed("timeout") {
				cfg.TimeoutMs = timeoutMs
			}
			if noStrings {
				cfg.ExtractStrings = false
			}
			if reportFormat != "" {
				cfg.ReportFormat = reportFormat
			}
			if outputFile != "" {
				cfg.OutputFile = outputFile
			}
			if err := engine.UpdateConfig(cfg); err != nil {
				fmt.Printf("\n  %s✗ Invalid parameter:%s %s\n\n", colorRed, colorReset, err.Error())
				return err
			}

			result, err := engine.Deobfuscate(content)
			if err != nil {
				logger.Error("Deobfuscation failed", zap.Error(err))
				return err
			}

			if len(result.TechniquesApplied) == 0 {
				fmt.Fprintf(os.Stderr, "%s⚠ No obfuscation detected or nothing to deobfuscate%s\n", colorYellow, colorReset)
			} else {
				fmt.Fprintf(os.Stderr, "%s✓ Reversed %d layers%s\n\n", colorPurple, result.Metadata.LayersDetected, colorReset)
			}

			return report.NewGenerator(cfg, logger).Generate(result)
		},
	}

	cmd.Flags().StringVarP(&reportFormat, "report", "r", "", "Report format: text, json, md")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path")
	cmd.Flags().Uint32Var(&maxLayers, "max-layers", 10, "Maximum reversal layers")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0.3, "Minimum detector confidence to apply a technique")
	cmd.Flags().Uint64Var(&timeoutMs, "timeout", 30000, "Soft time budget in milliseconds")
	cmd.Flags().BoolVar(&noStrings, "no-strings", false, "Skip string extraction")

	return cmd
}

// analyzeCmd creates the analyze command
func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file>",
		Short: "Detect obfuscation techniques without reversing them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initLogger(); err != nil {
				return err
			}
			defer logger.Sync()

			content, err := readInput(args[0])
			if err != nil {
				return err
			}

			engine, _, err := buildEngine()
			if err != nil {
				return err
			}

			analysis := engine.Analyze(content)

			fmt.Printf("\n  %sComplexity:%s %.2f\n\n", colorGray, colorReset, analysis.ComplexityScore)
			if len(analysis.DetectedTechniques) == 0 {
				fmt.Printf("  %sNo obfuscation techniques detected%s\n\n", colorGray, colorReset)
				return nil
			}

			fmt.Printf("  %s%sDETECTED TECHNIQUES%s\n", colorBold, colorPurple, colorReset)
			for _, dt := range analysis.DetectedTechniques {
				fmt.Printf("  %-36s %s%.2f%s\n", dt.Technique.Kind.Name(), colorCyan, dt.Confidence, colorReset)
			}

			fmt.Printf("\n  %s%sRECOMMENDED ORDER%s\n", colorBold, colorPurple, colorReset)
			for i, t := range analysis.RecommendedOrder {
				fmt.Printf("  %d. %s\n", i+1, t.Kind.Name())
			}
			fmt.Println()
			return nil
		},
	}
}

// entropyCmd creates the entropy command
func entropyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entropy <file>",
		Short: "Show entropy features for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initLogger(); err != nil {
				return err
			}
			defer logger.Sync()

			content, err := readInput(args[0])
			if err != nil {
				return err
			}

			engine, _, err := buildEngine()
			if err != nil {
				return err
			}

			features := engine.AnalyzeEntropy(content)
			fmt.Printf("\n  %sGlobal entropy:%s   %.4f\n", colorGray, colorReset, features.Global)
			fmt.Printf("  %sMax chunk:%s        %.4f\n", colorGray, colorReset, features.MaxChunk)
			fmt.Printf("  %sMin chunk:%s        %.4f\n", colorGray, colorReset, features.MinChunk)
			fmt.Printf("  %sVariance:%s         %.4f\n", colorGray, colorReset, features.Variance)
			fmt.Printf("  %sPrintable ratio:%s  %.4f\n", colorGray, colorReset, features.PrintableRatio)

			if anomalies := features.Anomalies(); len(anomalies) > 0 {
				fmt.Printf("\n  %s%sANOMALIES%s\n", colorBold, colorRed, colorReset)
				for _, a := range anomalies {
					fmt.Printf("  ! %s\n", a)
				}
			}
			fmt.Println()
			return nil
		},
	}
}

// stringsCmd creates the strings command
func stringsCmd() *cobra.Command {
	var minLength int

	cmd := &cobra.Command{
		Use:   "strings <file>",
		Short: "Extract printable strings from a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initLogger(); err != nil {
				return err
			}
			defer logger.Sync()

			content, err := readInput(args[0])
			if err != nil {
				return err
			}

			engine, cfg, err := buildEngine()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("min-length") {
				cfg.MinStringLength = minLength
				if err := engine.UpdateConfig(cfg); err != nil {
					return err
				}
			}

			for _, es := range engine.ExtractStrings(content) {
				fmt.Printf("%8d  %s\n", es.Offset, es.Value)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&minLength, "min-length", 4, "Minimum string length")
	return cmd
}

// iocsCmd creates the iocs command
func iocsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "iocs <file>",
		Short: "Extract indicators of compromise (URLs, IPs, paths)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initLogger(); err != nil {
				return err
			}
			defer logger.Sync()

			content, err := readInput(args[0])
			if err != nil {
				return err
			}

			engine, _, err := buildEngine()
			if err != nil {
				return err
			}

			iocs := engine.ExtractIOCs(content)
			if len(iocs) == 0 {
				fmt.Fprintf(os.Stderr, "%s⚠ No indicators found%s\n", colorYellow, colorReset)
				return nil
			}
			for _, ioc := range iocs {
				fmt.Println(ioc)
			}
			return nil
		},
	}
}

// techniquesCmd creates the techniques command
func techniquesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "techniques",
		Short: "List supported obfuscation techniques",
		Run: func(cmd *cobra.Command, args []string) {
			groups := []struct {
				title    string
				prefixes []string
			}{
				{"ENCODING", []string{"base64", "hex", "unicode", "url", "html", "charcode"}},
				{"ENCRYPTION", []string{"xor", "rc4"}},
				{"JAVASCRIPT", []string{"js"}},
				{"POWERSHELL", []string{"ps"}},
				{"BINARY", []string{"binary"}},
			}
			for _, g := range groups {
				fmt.Printf("\n%s:\n", g.title)
				for _, kind := range models.AllKinds() {
					for _, p := range g.prefixes {
						if strings.HasPrefix(string(kind), p) {
							fmt.Printf("  • %-32s %s\n", kind.Name(), kind)
							break
						}
					}
				}
			}
			fmt.Println()
		},
	}
}
