// Package config loads md2tex's tool settings: built-in defaults, overridden by an
// optional .md2tex.yaml at the project root, overridden by MD2TEX_* environment
// variables. Command-line flags and registry defaults are layered on top by callers.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fulmenhq/md2tex/pkg/guard"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override (MD2TEX_PANDOC, ...).
const EnvPrefix = "MD2TEX"

// FileName is the settings file looked up in the project root (extension chosen by viper).
const FileName = ".md2tex"

// Settings holds tool-level configuration
type Settings struct {
	// Pandoc is the converter command
	Pandoc string `mapstructure:"pandoc"`
	// Python runs the post-processor when neither flag nor registry names one
	Python string `mapstructure:"python"`
	// GuardDir is the protected zone, relative to the project root unless absolute
	GuardDir string `mapstructure:"guard_dir"`
	// PostProcessScript is the optional post-processor, relative to the project root unless absolute
	PostProcessScript string `mapstructure:"postprocess_script"`
	// WatchDebounce is how long watch mode waits for events to settle, e.g. "300ms"
	WatchDebounce string `mapstructure:"watch_debounce"`
}

var defaultSettings = Settings{
	Pandoc:            "pandoc",
	Python:            "python3",
	GuardDir:          guard.SourcesDir,
	PostProcessScript: filepath.Join("docs", "tex", "scripts", "clean-unicode.py"),
	WatchDebounce:     "300ms",
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return defaultSettings
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("pandoc", defaultSettings.Pandoc)
	v.SetDefault("python", defaultSettings.Python)
	v.SetDefault("guard_dir", defaultSettings.GuardDir)
	v.SetDefault("postprocess_script", defaultSettings.PostProcessScript)
	v.SetDefault("watch_debounce", defaultSettings.WatchDebounce)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only covers keys viper already knows about.
	_ = v.BindEnv("root")
	return v
}

// EnvRoot returns the project root forced through MD2TEX_ROOT, or "".
func EnvRoot() string {
	return strings.TrimSpace(newViper().GetString("root"))
}

// Load reads settings for the project rooted at projectRoot. A missing settings
// file is not an error; an unreadable or invalid one is.
func Load(projectRoot string) (*Settings, error) {
	v := newViper()
	if projectRoot != "" {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(projectRoot)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading settings: %w", err)
			}
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling settings: %v", err)
	}
	return &settings, nil
}

// ResolveIn returns p made absolute against projectRoot. Empty stays empty.
func ResolveIn(projectRoot, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(projectRoot, p)
}

// GuardPath returns the absolute protected zone for projectRoot.
func (s *Settings) GuardPath(projectRoot string) string {
	return ResolveIn(projectRoot, s.GuardDir)
}

// PostProcessPath returns the absolute post-processor path for projectRoot.
func (s *Settings) PostProcessPath(projectRoot string) string {
	return ResolveIn(projectRoot, s.PostProcessScript)
}
