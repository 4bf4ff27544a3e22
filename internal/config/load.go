package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/zjrosen/slidepipe/internal/log"
)

// ProjectConfigPath is checked before the user config directory.
const ProjectConfigPath = ".slidepipe/config.yaml"

// UserConfigDir returns ~/.config/slidepipe, or "" when the home directory
// is unknown.
func UserConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "slidepipe")
}

// SetDefaults registers every default with v so unset keys unmarshal to
// Defaults().
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("render.theme", d.Render.Theme)
	v.SetDefault("render.size", d.Render.Size)
	v.SetDefault("render.width", d.Render.Width)
	v.SetDefault("render.height", d.Render.Height)
	v.SetDefault("render.html", d.Render.HTML)
	v.SetDefault("render.paginate", d.Render.Paginate)
	v.SetDefault("render.math", d.Render.Math)
	v.SetDefault("render.allow_local_files", d.Render.AllowLocalFiles)
	v.SetDefault("render.code_style", d.Render.CodeStyle)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.max_size", d.Cache.MaxSize)
	v.SetDefault("cache.cleanup_interval", d.Cache.CleanupInterval)
	v.SetDefault("engine.init_timeout", d.Engine.InitTimeout)
	v.SetDefault("engine.render_timeout", d.Engine.RenderTimeout)
	v.SetDefault("controller.debounce", d.Controller.Debounce)
	v.SetDefault("controller.auto_initialize", d.Controller.AutoInitialize)
	v.SetDefault("ui.markdown_style", d.UI.MarkdownStyle)
	v.SetDefault("ui.show_status_bar", d.UI.ShowStatusBar)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("flags", d.Flags)
}

// Load reads configuration into a Config.
//
// Lookup order when cfgFile is empty:
//  1. .slidepipe/config.yaml (current directory)
//  2. ~/.config/slidepipe/config.yaml (user config)
//
// When no file exists and writeDefault is set, the commented default file is
// created in the user config directory and read back. The returned path is
// the file that was read, or "" when running on defaults alone.
func Load(v *viper.Viper, cfgFile string, writeDefault bool) (Config, string, error) {
	SetDefaults(v)
	v.SetEnvPrefix("SLIDEPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else if _, err := os.Stat(ProjectConfigPath); err == nil {
		v.SetConfigFile(ProjectConfigPath)
	} else {
		v.AddConfigPath(UserConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound) && writeDefault && UserConfigDir() != "":
			defaultPath := filepath.Join(UserConfigDir(), "config.yaml")
			if writeErr := WriteDefaultConfig(defaultPath); writeErr == nil {
				log.Info(log.CatConfig, "wrote default config", "path", defaultPath)
				v.SetConfigFile(defaultPath)
				_ = v.ReadInConfig()
			}
		case errors.As(err, &notFound):
		default:
			return Config{}, "", fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, "", fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, "", err
	}

	used := v.ConfigFileUsed()
	log.Debug(log.CatConfig, "config loaded", "path", used)
	return cfg, used, nil
}
