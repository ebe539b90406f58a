// Package config loads clawdx settings from clawdx.yaml, .env files and
// CLAWDX_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"clawdx/internal/content"
	"clawdx/internal/engine"
	"clawdx/internal/models"
	"clawdx/internal/textgen"
)

const (
	dirName  = ".clawdx"
	fileName = "clawdx.yaml"
)

type Tier struct {
	Interval    time.Duration `mapstructure:"interval"`
	Probability float64       `mapstructure:"probability"`
}

type TextGen struct {
	Provider string        `mapstructure:"provider"`
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type Config struct {
	DB         string        `mapstructure:"db"`
	LogLevel   string        `mapstructure:"log_level"`
	Schedule   string        `mapstructure:"schedule"`
	RunTimeout time.Duration `mapstructure:"run_timeout"`
	// Seed fixes the random source; zero seeds from the clock.
	Seed uint64 `mapstructure:"seed"`

	Tiers            map[string]Tier    `mapstructure:"tiers"`
	Bands            map[string]float64 `mapstructure:"bands"`
	OwnReplierChance float64            `mapstructure:"own_replier_chance"`
	HashtagChance    float64            `mapstructure:"hashtag_chance"`
	QuestionChance   float64            `mapstructure:"question_chance"`
	RecentWindow     int                `mapstructure:"recent_window"`
	RepliedWindow    int                `mapstructure:"replied_window"`

	TextGen TextGen `mapstructure:"textgen"`

	// File is the config file that was read, "" when running on defaults.
	File string `mapstructure:"-"`
}

// Path returns the config file to use: the nearest .clawdx/clawdx.yaml walking
// up from the working directory, else the one in the home directory. The
// home path is returned even when it does not exist.
func Path() (string, error) {
	wd, err := os.Getwd()
	if err == nil {
		for dir := wd; ; {
			candidate := filepath.Join(dir, dirName, fileName)
			if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
				return candidate, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, dirName, fileName), nil
}

// LoadEnvFiles reads .env.local and .env from the working directory when
// present. Variables already set in the environment win.
func LoadEnvFiles() error {
	for _, name := range []string{".env.local", ".env"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db", "./clawdx.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("schedule", "*/5 * * * *")
	v.SetDefault("run_timeout", "4m")
	v.SetDefault("seed", 0)

	for level, tier := range engine.DefaultTiers() {
		v.SetDefault("tiers."+string(level)+".interval", tier.Interval.String())
		v.SetDefault("tiers."+string(level)+".probability", tier.Probability)
	}
	for _, b := range engine.DefaultBands() {
		v.SetDefault("bands."+string(b.Kind), b.Weight)
	}

	opts := engine.DefaultOptions()
	v.SetDefault("own_replier_chance", opts.OwnReplierChance)
	v.SetDefault("recent_window", opts.RecentWindow)
	v.SetDefault("replied_window", opts.RepliedWindow)
	copts := content.DefaultOptions()
	v.SetDefault("hashtag_chance", copts.HashtagChance)
	v.SetDefault("question_chance", copts.QuestionChance)

	v.SetDefault("textgen.provider", "none")
	v.SetDefault("textgen.model", "")
	v.SetDefault("textgen.api_key", "")
	v.SetDefault("textgen.base_url", "")
	v.SetDefault("textgen.timeout", "30s")
}

// Load reads path, or the file Path finds when path is empty. A missing file
// means defaults plus environment overrides.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return nil, err
		}
		path = p
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("CLAWDX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	file := path
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case !explicit && (errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)):
			file = ""
		default:
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	c.File = file
	if c.TextGen.APIKey == "" {
		switch c.TextGen.Provider {
		case "openai":
			c.TextGen.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic":
			c.TextGen.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DB) == "" {
		return errors.New("config: db path is empty")
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("config: run_timeout must be positive, got %s", c.RunTimeout)
	}
	for level, t := range c.Tiers {
		if models.ParseActivityLevel(level) != models.ActivityLevel(level) {
			return fmt.Errorf("config: unknown tier %q", level)
		}
		if t.Interval < 0 {
			return fmt.Errorf("config: tier %s has a negative interval", level)
		}
		if t.Probability < 0 || t.Probability > 1 {
			return fmt.Errorf("config: tier %s probability %v outside [0,1]", level, t.Probability)
		}
	}
	for name, p := range map[string]float64{
		"own_replier_chance": c.OwnReplierChance,
		"hashtag_chance":     c.HashtagChance,
		"question_chance":    c.QuestionChance,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("config: %s %v outside [0,1]", name, p)
		}
	}
	_, err := c.bands()
	return err
}

// bands lays the configured weights out in lottery order.
func (c *Config) bands() ([]engine.Band, error) {
	known := map[string]bool{}
	out := make([]engine.Band, 0, len(c.Bands))
	for _, b := range engine.DefaultBands() {
		known[string(b.Kind)] = true
		w, ok := c.Bands[string(b.Kind)]
		if !ok {
			w = b.Weight
		}
		out = append(out, engine.Band{Kind: b.Kind, Weight: w})
	}
	for name := range c.Bands {
		if !known[name] {
			return nil, fmt.Errorf("config: unknown band %q", name)
		}
	}
	if _, err := engine.NewPolicy(out); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return out, nil
}

func (c *Config) EngineOptions() (engine.Options, error) {
	opts := engine.DefaultOptions()
	bands, err := c.bands()
	if err != nil {
		return opts, err
	}
	opts.Bands = bands
	opts.Tiers = map[models.ActivityLevel]engine.Tier{}
	for level, t := range c.Tiers {
		opts.Tiers[models.ActivityLevel(level)] = engine.Tier{Interval: t.Interval, Probability: t.Probability}
	}
	opts.OwnReplierChance = c.OwnReplierChance
	if c.RecentWindow > 0 {
		opts.RecentWindow = c.RecentWindow
	}
	if c.RepliedWindow > 0 {
		opts.RepliedWindow = c.RepliedWindow
	}
	return opts, nil
}

func (c *Config) ContentOptions() content.Options {
	return content.Options{HashtagChance: c.HashtagChance, QuestionChance: c.QuestionChance}
}

func (c *Config) TextGenConfig() textgen.Config {
	return textgen.Config{
		Provider: c.TextGen.Provider,
		Model:    c.TextGen.Model,
		APIKey:   c.TextGen.APIKey,
		BaseURL:  c.TextGen.BaseURL,
		Timeout:  c.TextGen.Timeout,
	}
}
