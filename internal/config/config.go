// Package config loads the autopilot configuration from defaults, an
// optional YAML file and AUTOPILOT_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/polzovatel/reader-autopilot/internal/agent"
	"github.com/polzovatel/reader-autopilot/internal/screens"
	"github.com/polzovatel/reader-autopilot/internal/tools"
)

const EnvPrefix = "AUTOPILOT"

type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Engine  EngineConfig  `mapstructure:"engine" yaml:"engine"`
	Poll    PollConfig    `mapstructure:"poll" yaml:"poll"`
	Reading ReadingConfig `mapstructure:"reading" yaml:"reading"`
	Screens ScreensConfig `mapstructure:"screens" yaml:"screens"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type EngineConfig struct {
	MaxAttempts    int             `mapstructure:"max_attempts" yaml:"max_attempts"`
	RetryDelays    []time.Duration `mapstructure:"retry_delays" yaml:"retry_delays"`
	InitialDelays  []time.Duration `mapstructure:"initial_delays" yaml:"initial_delays"`
	AllowedSources []string        `mapstructure:"allowed_sources" yaml:"allowed_sources"`
}

// PollConfig times the ad reward wait.
type PollConfig struct {
	MaxChecks     int           `mapstructure:"max_checks" yaml:"max_checks"`
	Interval      time.Duration `mapstructure:"interval" yaml:"interval"`
	RewardMarkers int           `mapstructure:"reward_markers" yaml:"reward_markers"`
}

// ReadingConfig times the page-turn loop.
type ReadingConfig struct {
	SwipeDelays   []time.Duration `mapstructure:"swipe_delays" yaml:"swipe_delays"`
	RetryInterval time.Duration   `mapstructure:"retry_interval" yaml:"retry_interval"`
	MaxFailures   int             `mapstructure:"max_failures" yaml:"max_failures"`
	SwipeFromX    float64         `mapstructure:"swipe_from_x" yaml:"swipe_from_x"`
	SwipeFromY    float64         `mapstructure:"swipe_from_y" yaml:"swipe_from_y"`
	SwipeToX      float64         `mapstructure:"swipe_to_x" yaml:"swipe_to_x"`
	SwipeToY      float64         `mapstructure:"swipe_to_y" yaml:"swipe_to_y"`
	SwipeDuration time.Duration   `mapstructure:"swipe_duration" yaml:"swipe_duration"`
}

// ScreensConfig holds the resource ids and texts screens are recognised by.
type ScreensConfig struct {
	AddToHomeTitleID    string   `mapstructure:"add_to_home_title_id" yaml:"add_to_home_title_id"`
	AddToHomeCancelID   string   `mapstructure:"add_to_home_cancel_id" yaml:"add_to_home_cancel_id"`
	ProductFeatureID    string   `mapstructure:"product_feature_id" yaml:"product_feature_id"`
	ProductCloseID      string   `mapstructure:"product_close_id" yaml:"product_close_id"`
	AfterAdCloseID      string   `mapstructure:"after_ad_close_id" yaml:"after_ad_close_id"`
	RetentionRewardDesc string   `mapstructure:"retention_reward_desc" yaml:"retention_reward_desc"`
	RetentionExitDesc   string   `mapstructure:"retention_exit_desc" yaml:"retention_exit_desc"`
	AdMarkerText        string   `mapstructure:"ad_marker_text" yaml:"ad_marker_text"`
	AdRewardText        string   `mapstructure:"ad_reward_text" yaml:"ad_reward_text"`
	AdCloseKind         string   `mapstructure:"ad_close_kind" yaml:"ad_close_kind"`
	EnterAdID           string   `mapstructure:"enter_ad_id" yaml:"enter_ad_id"`
	HomeCategoryID      string   `mapstructure:"home_category_id" yaml:"home_category_id"`
	HomeSearchID        string   `mapstructure:"home_search_id" yaml:"home_search_id"`
	SearchInputID       string   `mapstructure:"search_input_id" yaml:"search_input_id"`
	EditTextKind        string   `mapstructure:"edit_text_kind" yaml:"edit_text_kind"`
	SearchButtonID      string   `mapstructure:"search_button_id" yaml:"search_button_id"`
	ResultTitleID       string   `mapstructure:"result_title_id" yaml:"result_title_id"`
	ResultListID        string   `mapstructure:"result_list_id" yaml:"result_list_id"`
	MaxResultScroll     int      `mapstructure:"max_result_scroll" yaml:"max_result_scroll"`
	StartReadingText    string   `mapstructure:"start_reading_text" yaml:"start_reading_text"`
	ReadingPageIDs      []string `mapstructure:"reading_page_ids" yaml:"reading_page_ids"`
}

type BrowserConfig struct {
	URL      string        `mapstructure:"url" yaml:"url"`
	Headless bool          `mapstructure:"headless" yaml:"headless"`
	Width    int           `mapstructure:"width" yaml:"width"`
	Height   int           `mapstructure:"height" yaml:"height"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Source   string        `mapstructure:"source" yaml:"source"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// SetDefaults registers every key so environment variables can override
// any of them.
func SetDefaults(v *viper.Viper) {
	sc := screens.Default()

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	// -- Engine --
	v.SetDefault("engine.max_attempts", 5)
	v.SetDefault("engine.retry_delays", []time.Duration{time.Second})
	v.SetDefault("engine.initial_delays", []time.Duration{300 * time.Millisecond, 500 * time.Millisecond, 800 * time.Millisecond})
	v.SetDefault("engine.allowed_sources", []string{"com.dragon.read", "com.sec.android.app.launcher"})

	// -- Poll --
	v.SetDefault("poll.max_checks", sc.AdMaxChecks)
	v.SetDefault("poll.interval", sc.AdInterval)
	v.SetDefault("poll.reward_markers", sc.AdRewardMarkers)

	// -- Reading --
	v.SetDefault("reading.swipe_delays", sc.PageTurnDelays)
	v.SetDefault("reading.retry_interval", sc.PageTurnRetry)
	v.SetDefault("reading.max_failures", sc.PageTurnMaxFailure)
	v.SetDefault("reading.swipe_from_x", sc.PageTurn.FromX)
	v.SetDefault("reading.swipe_from_y", sc.PageTurn.FromY)
	v.SetDefault("reading.swipe_to_x", sc.PageTurn.ToX)
	v.SetDefault("reading.swipe_to_y", sc.PageTurn.ToY)
	v.SetDefault("reading.swipe_duration", sc.PageTurn.Duration)

	// -- Screens --
	v.SetDefault("screens.add_to_home_title_id", sc.AddToHomeTitleID)
	v.SetDefault("screens.add_to_home_cancel_id", sc.AddToHomeCancelID)
	v.SetDefault("screens.product_feature_id", sc.ProductFeatureID)
	v.SetDefault("screens.product_close_id", sc.ProductCloseID)
	v.SetDefault("screens.after_ad_close_id", sc.AfterAdCloseID)
	v.SetDefault("screens.retention_reward_desc", sc.RetentionRewardDesc)
	v.SetDefault("screens.retention_exit_desc", sc.RetentionExitDesc)
	v.SetDefault("screens.ad_marker_text", sc.AdMarkerText)
	v.SetDefault("screens.ad_reward_text", sc.AdRewardText)
	v.SetDefault("screens.ad_close_kind", sc.AdCloseKind)
	v.SetDefault("screens.enter_ad_id", sc.EnterAdID)
	v.SetDefault("screens.home_category_id", sc.HomeCategoryID)
	v.SetDefault("screens.home_search_id", sc.HomeSearchID)
	v.SetDefault("screens.search_input_id", sc.SearchInputID)
	v.SetDefault("screens.edit_text_kind", sc.EditTextKind)
	v.SetDefault("screens.search_button_id", sc.SearchButtonID)
	v.SetDefault("screens.result_title_id", sc.ResultTitleID)
	v.SetDefault("screens.result_list_id", sc.ResultListID)
	v.SetDefault("screens.max_result_scroll", sc.MaxResultScroll)
	v.SetDefault("screens.start_reading_text", sc.StartReadingText)
	v.SetDefault("screens.reading_page_ids", sc.ReadingPageIDs)

	// -- Browser --
	v.SetDefault("browser.url", "")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.width", 412)
	v.SetDefault("browser.height", 915)
	v.SetDefault("browser.timeout", 5*time.Second)
	v.SetDefault("browser.source", "com.dragon.read")

	// -- Metrics --
	v.SetDefault("metrics.addr", "")
}

// NewDefaultConfig returns the defaults without reading files or the
// environment.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Load reads path (optional) and the environment on top of the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return NewConfigFromViper(v)
}

// NewConfigFromViper binds the environment, decodes and validates.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values. Every bound must be
// finite and positive.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.Logger.Level); err != nil {
		return fmt.Errorf("logger.level: %w", err)
	}
	switch c.Logger.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be console or json, got %q", c.Logger.Format)
	}
	if err := c.AgentConfig().Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := c.ScreensConfig().Validate(); err != nil {
		return fmt.Errorf("screens: %w", err)
	}
	if c.Reading.SwipeDuration <= 0 {
		return fmt.Errorf("reading.swipe_duration must be positive")
	}
	if c.Browser.Width <= 0 || c.Browser.Height <= 0 {
		return fmt.Errorf("browser.width and browser.height must be positive")
	}
	if c.Browser.Timeout <= 0 {
		return fmt.Errorf("browser.timeout must be positive")
	}
	return nil
}

// AgentConfig is the dispatcher view of the engine section.
func (c *Config) AgentConfig() agent.Config {
	return agent.Config{
		MaxAttempts:    c.Engine.MaxAttempts,
		RetryDelays:    c.Engine.RetryDelays,
		InitialDelays:  c.Engine.InitialDelays,
		AllowedSources: c.Engine.AllowedSources,
	}
}

// ScreensConfig merges the screens, poll and reading sections.
func (c *Config) ScreensConfig() screens.Config {
	s := c.Screens
	return screens.Config{
		AddToHomeTitleID:    s.AddToHomeTitleID,
		AddToHomeCancelID:   s.AddToHomeCancelID,
		ProductFeatureID:    s.ProductFeatureID,
		ProductCloseID:      s.ProductCloseID,
		AfterAdCloseID:      s.AfterAdCloseID,
		RetentionRewardDesc: s.RetentionRewardDesc,
		RetentionExitDesc:   s.RetentionExitDesc,
		AdMarkerText:        s.AdMarkerText,
		AdRewardText:        s.AdRewardText,
		AdRewardMarkers:     c.Poll.RewardMarkers,
		AdCloseKind:         s.AdCloseKind,
		AdMaxChecks:         c.Poll.MaxChecks,
		AdInterval:          c.Poll.Interval,
		EnterAdID:           s.EnterAdID,
		HomeCategoryID:      s.HomeCategoryID,
		HomeSearchID:        s.HomeSearchID,
		SearchInputID:       s.SearchInputID,
		EditTextKind:        s.EditTextKind,
		SearchButtonID:      s.SearchButtonID,
		ResultTitleID:       s.ResultTitleID,
		ResultListID:        s.ResultListID,
		MaxResultScroll:     s.MaxResultScroll,
		StartReadingText:    s.StartReadingText,
		ReadingPageIDs:      s.ReadingPageIDs,
		PageTurnDelays:      c.Reading.SwipeDelays,
		PageTurnRetry:       c.Reading.RetryInterval,
		PageTurnMaxFailure:  c.Reading.MaxFailures,
		PageTurn: tools.Gesture{
			Name:     "page_turn",
			FromX:    c.Reading.SwipeFromX,
			FromY:    c.Reading.SwipeFromY,
			ToX:      c.Reading.SwipeToX,
			ToY:      c.Reading.SwipeToY,
			Duration: c.Reading.SwipeDuration,
		},
	}
}
