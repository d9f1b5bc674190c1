package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"foreachfix/internal/config"
	"foreachfix/internal/models"
	"foreachfix/internal/transformer"
	"foreachfix/internal/watcher"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	formatFlag         string
	writeFlag          bool
	watchFlag          bool
	verboseFlag        bool
	configFlag         string
	generateConfigFlag bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "foreachfix [files or directories]",
	Short: "Rewrite forEach callbacks in JavaScript and TypeScript into plain loops",
	Long: `foreachfix rewrites collection.forEach(callback) calls into equivalent
for...of or indexed for loops. Early returns in the callback become continue
statements; callbacks passed by name are called from the loop body.

Examples:
  foreachfix app.js                        # Print the transformed file
  foreachfix --write src/                  # Rewrite every source file in place
  foreachfix --format=console src/         # Show what would change
  foreachfix --format=json src/            # Same, as JSON
  foreachfix --watch --write src/          # Rewrite files as they change
  foreachfix --config=.foreachfix.yml .    # Use custom config
  foreachfix --generate-config             # Generate sample config file`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTransform,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Output format (source, console, json)")
	rootCmd.Flags().BoolVarP(&writeFlag, "write", "w", false, "Rewrite files in place")
	rootCmd.Flags().BoolVar(&watchFlag, "watch", false, "Watch files and transform them as they change")
	rootCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Verbose output")
	rootCmd.Flags().StringVarP(&configFlag, "config", "c", "", "Path to configuration file")
	rootCmd.Flags().BoolVar(&generateConfigFlag, "generate-config", false, "Generate sample configuration file")
}

func runTransform(cmd *cobra.Command, args []string) error {
	if generateConfigFlag {
		return generateConfig()
	}

	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !cfg.Output.Colors {
		color.NoColor = true
	}
	logger := newLogger(cfg)

	if len(args) == 0 {
		args = []string{"."}
	}

	files, err := collectFiles(cfg, args, logger)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		color.Yellow("⚠️  No source files found to transform\n")
		return nil
	}

	engine := transformer.NewTransformerWithConfig(cfg).WithLogger(logger)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Output.Verbose {
		color.New(color.FgCyan).Fprintf(os.Stderr, "🔁 Transforming %d files...\n", len(files))
	}

	if err := runOnce(ctx, engine, cfg, files, cmd.OutOrStdout()); err != nil {
		return err
	}

	if watchFlag {
		return watch(ctx, engine, cfg, args, cmd.OutOrStdout())
	}
	return nil
}

// applyFlags lets explicitly set flags override the configuration file.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if formatFlag != "" {
		cfg.Output.Format = formatFlag
	}
	if cmd.Flags().Changed("write") {
		cfg.Output.Write = writeFlag
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Output.Verbose = verboseFlag
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelWarn
	if cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runOnce(ctx context.Context, engine *transformer.Transformer, cfg *config.Config, files []string, out io.Writer) error {
	if cfg.Output.Write && cfg.Output.Progress && len(files) > 1 {
		bar := progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("transforming"),
			progressbar.OptionEnableColorCodes(cfg.Output.Colors),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
		engine.OnFile = func(string) { _ = bar.Add(1) }
		defer func() {
			engine.OnFile = nil
			_ = bar.Finish()
			fmt.Fprintln(os.Stderr)
		}()
	}

	result, err := engine.TransformFiles(ctx, files)
	if err != nil {
		return fmt.Errorf("transform failed: %w", err)
	}
	return emit(cfg, result, out)
}

// emit writes the transformed sources back or prints them, then the report.
func emit(cfg *config.Config, result *models.TransformResult, out io.Writer) error {
	if cfg.Output.Write {
		for _, fr := range result.Results {
			if !fr.Changed {
				continue
			}
			if err := writeFile(fr.File, fr.Output); err != nil {
				return err
			}
			if cfg.Output.Verbose {
				color.New(color.FgGreen).Fprintf(os.Stderr, "✅ Rewrote %s (%d calls)\n", fr.File, fr.Count(models.StatusRewritten))
			}
		}
	}

	if cfg.Output.Format == "source" {
		if cfg.Output.Write {
			return nil
		}
		for _, fr := range result.Results {
			if len(result.Results) > 1 {
				fmt.Fprintf(out, "==> %s <==\n", fr.File)
			}
			fmt.Fprint(out, fr.Output)
		}
		return nil
	}

	report := transformer.NewReportGeneratorWithConfig(cfg).Generate(result)
	if cfg.Output.OutputFile != "" {
		if err := writeReportToFile(report, cfg.Output.OutputFile); err != nil {
			return fmt.Errorf("failed to write report to file: %w", err)
		}
		color.Green("📄 Report saved to: %s\n", cfg.Output.OutputFile)
		return nil
	}
	fmt.Fprint(out, report)
	return nil
}

func watch(ctx context.Context, engine *transformer.Transformer, cfg *config.Config, paths []string, out io.Writer) error {
	fw, err := watcher.NewFileWatcher(cfg)
	if err != nil {
		return err
	}
	defer fw.Close()

	handler := func(changed []string) error {
		var files []string
		for _, path := range changed {
			if _, err := os.Stat(path); err == nil {
				files = append(files, path)
			}
		}
		if len(files) == 0 {
			return nil
		}
		color.New(color.FgCyan).Fprintf(os.Stderr, "🔁 %d file(s) changed\n", len(files))
		return runOnce(ctx, engine, cfg, files, out)
	}
	if err := fw.Watch(paths, handler); err != nil {
		return err
	}

	color.New(color.FgCyan).Fprintf(os.Stderr, "👀 Watching %d directories, press Ctrl+C to stop\n", len(fw.GetWatchedPaths()))
	<-ctx.Done()
	return nil
}

func writeFile(path, content string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func writeReportToFile(report, filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(filePath, []byte(report), 0644)
}

func generateConfig() error {
	configPath := ".foreachfix.yml"
	if err := config.GenerateConfig(configPath); err != nil {
		return fmt.Errorf("failed to generate config file: %w", err)
	}
	color.Green("✅ Generated sample configuration file: %s\n", configPath)
	color.Cyan("📝 Edit this file to customize foreachfix behavior\n")
	color.Cyan("🚀 Run 'foreachfix --config=%s .' to use it\n", configPath)
	return nil
}

// collectFiles expands the arguments into source files. Files named
// explicitly are always included; directories are walked and filtered by the
// configured extensions, exclusions and size limit.
func collectFiles(cfg *config.Config, paths []string, logger *slog.Logger) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}

		err = filepath.Walk(path, func(filePath string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if info.IsDir() {
				name := info.Name()
				if filePath != path && (name == "node_modules" || name == ".git" || cfg.IsExcluded(filePath)) {
					return filepath.SkipDir
				}
				return nil
			}

			if info.Mode()&os.ModeSymlink != 0 && !cfg.Files.FollowSymlinks {
				return nil
			}
			if !cfg.IsSourceFile(filePath) || cfg.IsExcluded(filePath) {
				return nil
			}
			if cfg.Files.MaxFileSize > 0 && info.Size() > int64(cfg.Files.MaxFileSize)*1024 {
				logger.Warn("skipping large file", "file", filePath, "size", info.Size())
				return nil
			}
			add(filePath)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to collect files from %s: %w", path, err)
		}
	}

	return files, nil
}
