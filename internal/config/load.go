package config

import (
	"context"
	stderrors "errors"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/mrz1836/evo/internal/constants"
	"github.com/mrz1836/evo/internal/errors"
)

// Overrides carries CLI flag values. Zero values leave the loaded config untouched.
type Overrides struct {
	MaxIterations        int
	ConvergenceThreshold float64
	DefaultAgent         string
	ServerAddr           string
	StoreDir             string
}

func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults mirrors DefaultConfig. Keys must match the mapstructure tags;
// AutomaticEnv only sees keys viper already knows about.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("agents.default_agent", d.Agents.DefaultAgent)
	v.SetDefault("agents.timeout", d.Agents.Timeout.String())
	v.SetDefault("agents.max_retries", d.Agents.MaxRetries)
	for name, a := range map[string]AgentConfig{
		"claude":  d.Agents.Claude,
		"gpt":     d.Agents.GPT,
		"gemini":  d.Agents.Gemini,
		"mistral": d.Agents.Mistral,
		"llama":   d.Agents.Llama,
	} {
		v.SetDefault("agents."+name+".enabled", a.Enabled)
		v.SetDefault("agents."+name+".command", a.Command)
		v.SetDefault("agents."+name+".model", a.Model)
	}

	v.SetDefault("ollama.host", d.Ollama.Host)

	v.SetDefault("engine.max_iterations", d.Engine.MaxIterations)
	v.SetDefault("engine.convergence_threshold", d.Engine.ConvergenceThreshold)
	v.SetDefault("engine.language", d.Engine.Language)
	v.SetDefault("engine.prompt_token_budget", d.Engine.PromptTokenBudget)
	v.SetDefault("engine.structured_reflections", d.Engine.StructuredReflections)

	v.SetDefault("residue.cache_size", d.Residue.CacheSize)
	v.SetDefault("residue.relevance_limit", d.Residue.RelevanceLimit)

	v.SetDefault("evaluators.timeout", d.Evaluators.Timeout.String())
	v.SetDefault("evaluators.speedup_cap", d.Evaluators.SpeedupCap)

	v.SetDefault("blueprints", map[string]string{})

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.debug", d.Server.Debug)

	v.SetDefault("store.enabled", d.Store.Enabled)
	v.SetDefault("store.dir", d.Store.Dir)

	v.SetDefault("pr.remote", d.PR.Remote)
	v.SetDefault("pr.base_branch", d.PR.BaseBranch)
	v.SetDefault("pr.timeout", d.PR.Timeout.String())
}

func isConfigNotFoundError(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return stderrors.As(err, &notFound) || os.IsNotExist(err)
}

// Load reads configuration with this precedence, highest first:
//  1. EVO_* environment variables
//  2. project config (.evo/config.yaml)
//  3. global config (~/.evo/config.yaml)
//  4. built-in defaults
//
// Missing config files are not an error.
func Load(ctx context.Context) (*Config, error) {
	globalPath, err := GlobalConfigPath()
	if err != nil {
		// No home directory: run on project config and defaults only.
		globalPath = ""
	}
	return LoadFromPaths(ctx, ProjectConfigPath(), globalPath)
}

// LoadFromPaths loads configuration from specific files. Either path may be
// empty to skip that layer.
func LoadFromPaths(ctx context.Context, projectConfigPath, globalConfigPath string) (*Config, error) {
	v := newViperInstance()

	if globalConfigPath != "" && fileExists(globalConfigPath) {
		v.SetConfigFile(globalConfigPath)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
			return nil, errors.Wrapf(err, "failed to read global config: %s", globalConfigPath)
		}
	}

	if projectConfigPath != "" && fileExists(projectConfigPath) {
		v.SetConfigFile(projectConfigPath)
		if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
			return nil, errors.Wrapf(err, "failed to read project config: %s", projectConfigPath)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	zerolog.Ctx(ctx).Debug().
		Str("component", "config").
		Int("engine.max_iterations", cfg.Engine.MaxIterations).
		Float64("engine.convergence_threshold", cfg.Engine.ConvergenceThreshold).
		Str("agents.default_agent", cfg.Agents.DefaultAgent).
		Int("blueprints", len(cfg.Blueprints)).
		Msg("configuration loaded")

	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// LoadWithOverrides loads configuration and applies CLI flag overrides on top.
func LoadWithOverrides(ctx context.Context, overrides Overrides) (*Config, error) {
	cfg, err := Load(ctx)
	if err != nil {
		return nil, err
	}
	ApplyOverrides(cfg, overrides)
	if err := Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration after overrides")
	}
	return cfg, nil
}

// ApplyOverrides copies every non-zero override into cfg.
func ApplyOverrides(cfg *Config, o Overrides) {
	if o.MaxIterations > 0 {
		cfg.Engine.MaxIterations = o.MaxIterations
	}
	if o.ConvergenceThreshold > 0 {
		cfg.Engine.ConvergenceThreshold = o.ConvergenceThreshold
	}
	if o.DefaultAgent != "" {
		cfg.Agents.DefaultAgent = o.DefaultAgent
	}
	if o.ServerAddr != "" {
		cfg.Server.Addr = o.ServerAddr
	}
	if o.StoreDir != "" {
		cfg.Store.Dir = o.StoreDir
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	)
}
