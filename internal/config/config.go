// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the configuration for foreachfix
type Config struct {
	// General settings
	Version     string `yaml:"version" json:"version"`
	ProjectName string `yaml:"project_name,omitempty" json:"project_name,omitempty"`

	// Rewrite settings
	Transform TransformConfig `yaml:"transform" json:"transform"`

	// Run settings
	Analysis AnalysisConfig `yaml:"analysis" json:"analysis"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// File patterns
	Files FilesConfig `yaml:"files" json:"files"`
}

type TransformConfig struct {
	// Name of the iteration method to rewrite
	Method string `yaml:"method" json:"method"`

	// Bases for bindings the callback does not declare
	Names NamesConfig `yaml:"names" json:"names"`

	// Bind a non-repeatable collection expression once in indexed loops
	MaterializeCollections bool `yaml:"materialize_collections" json:"materialize_collections"`

	// Keep the expression of `return expr;` as a statement before continue
	KeepReturnValues bool `yaml:"keep_return_values" json:"keep_return_values"`

	// Label the loop when a return sits inside an inner loop of the callback
	LabelNestedReturns bool `yaml:"label_nested_returns" json:"label_nested_returns"`
}

type NamesConfig struct {
	Element  string `yaml:"element" json:"element"`
	Index    string `yaml:"index" json:"index"`
	Array    string `yaml:"array" json:"array"`
	Callback string `yaml:"callback" json:"callback"`
	Label    string `yaml:"label" json:"label"`
}

type AnalysisConfig struct {
	// Files transformed in parallel
	MaxWorkers int `yaml:"max_workers" json:"max_workers"`
}

type OutputConfig struct {
	// Default output format
	Format string `yaml:"format" json:"format"`

	// Rewrite files in place instead of printing them
	Write bool `yaml:"write" json:"write"`

	// Colorized output
	Colors bool `yaml:"colors" json:"colors"`

	// Verbosity level
	Verbose bool `yaml:"verbose" json:"verbose"`

	// Indentation unit for synthesized lines; empty means the unit used by
	// each file, or four spaces when the file has no indented lines
	Indent string `yaml:"indent" json:"indent"`

	// Show a progress bar while writing many files
	Progress bool `yaml:"progress" json:"progress"`

	// Report file path (optional)
	OutputFile string `yaml:"output_file,omitempty" json:"output_file,omitempty"`
}

type FilesConfig struct {
	// Extensions considered source files
	Extensions []string `yaml:"extensions" json:"extensions"`

	// Exclude patterns
	Exclude []string `yaml:"exclude" json:"exclude"`

	// Whether to follow symlinks
	FollowSymlinks bool `yaml:"follow_symlinks" json:"follow_symlinks"`

	// Max file size (in KB)
	MaxFileSize int `yaml:"max_file_size" json:"max_file_size"`
}

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
	validFormats      = []string{"source", "console", "json"}
)

func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Transform: TransformConfig{
			Method: "forEach",
			Names: NamesConfig{
				Element:  "_el",
				Index:    "_i",
				Array:    "_arr",
				Callback: "_fn",
				Label:    "_loop",
			},
			MaterializeCollections: true,
			KeepReturnValues:       false,
			LabelNestedReturns:     true,
		},
		Analysis: AnalysisConfig{
			MaxWorkers: 4,
		},
		Output: OutputConfig{
			Format:   "source",
			Write:    false,
			Colors:   true,
			Verbose:  false,
			Indent:   "",
			Progress: false,
		},
		Files: FilesConfig{
			Extensions:     []string{".js", ".mjs", ".cjs", ".jsx", ".ts", ".mts", ".cts", ".tsx"},
			Exclude:        []string{"node_modules/**", ".git/**", "dist/**", "*.min.js", "*.d.ts"},
			FollowSymlinks: false,
			MaxFileSize:    1024, // 1MB
		},
	}
}

// LoadConfig loads configuration from file or returns default
func LoadConfig(configPath string) (*Config, error) {
	// If no config path provided, look for default config files
	if configPath == "" {
		configPath = findConfigFile()
	}

	// If still no config found, return default
	if configPath == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	config := DefaultConfig() // Start with defaults

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// findConfigFile looks for config files in common locations
func findConfigFile() string {
	possiblePaths := []string{
		".foreachfix.yml",
		".foreachfix.yaml",
		"foreachfix.yml",
		"foreachfix.yaml",
		".config/foreachfix.yml",
		".config/foreachfix.yaml",
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if !identifierPattern.MatchString(c.Transform.Method) {
		return fmt.Errorf("transform.method must be an identifier, got %q", c.Transform.Method)
	}

	// Validate generated names
	names := map[string]string{
		"element":  c.Transform.Names.Element,
		"index":    c.Transform.Names.Index,
		"array":    c.Transform.Names.Array,
		"callback": c.Transform.Names.Callback,
		"label":    c.Transform.Names.Label,
	}
	seen := make(map[string]string, len(names))
	for _, role := range []string{"element", "index", "array", "callback", "label"} {
		name := names[role]
		if !identifierPattern.MatchString(name) {
			return fmt.Errorf("transform.names.%s must be an identifier, got %q", role, name)
		}
		if other, dup := seen[name]; dup {
			return fmt.Errorf("transform.names.%s and transform.names.%s must differ", other, role)
		}
		seen[name] = role
	}

	// Validate output format
	formatValid := false
	for _, format := range validFormats {
		if c.Output.Format == format {
			formatValid = true
			break
		}
	}
	if !formatValid {
		return fmt.Errorf("invalid output format: %s (valid: %v)", c.Output.Format, validFormats)
	}

	if strings.Trim(c.Output.Indent, " \t") != "" {
		return fmt.Errorf("output.indent may only contain spaces and tabs")
	}

	// Validate worker count
	if c.Analysis.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be at least 1")
	}

	if len(c.Files.Extensions) == 0 {
		return fmt.Errorf("files.extensions must not be empty")
	}
	for _, ext := range c.Files.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("file extension %q must start with a dot", ext)
		}
	}

	return nil
}

// SaveConfig saves configuration to file
func (c *Config) SaveConfig(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateConfig creates a sample configuration file
func GenerateConfig(configPath string) error {
	config := DefaultConfig()
	return config.SaveConfig(configPath)
}

// IsSourceFile checks whether path has one of the configured extensions
func (c *Config) IsSourceFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range c.Files.Extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

// IsExcluded checks a path against the exclude patterns. Patterns ending in
// "/**" exclude a directory and everything below it; other patterns match
// the base name or the whole path.
func (c *Config) IsExcluded(path string) bool {
	path = filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, pattern := range c.Files.Exclude {
		if dir, ok := strings.CutSuffix(pattern, "/**"); ok {
			for _, part := range strings.Split(path, "/") {
				if part == dir {
					return true
				}
			}
			continue
		}
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, path); matched {
			return true
		}
	}
	return false
}
