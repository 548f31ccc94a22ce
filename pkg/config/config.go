package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

type Config struct {
	Environment string   `yaml:"environment" default:"development"`
	Symbols     []string `yaml:"symbols" validate:"min=1"`

	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Addr    string `yaml:"addr" default:":9090"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	Store struct {
		Type string `yaml:"type" default:"memory" validate:"oneof=memory clickhouse"`
	} `yaml:"store"`

	FastState struct {
		Type string `yaml:"type" default:"memory" validate:"oneof=memory redis"`
	} `yaml:"faststate"`

	Redis struct {
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"riskgate"`
	} `yaml:"redis"`

	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"500ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async" default:"true"`
		} `yaml:"producer"`
	} `yaml:"kafka"`

	ClickHouse struct {
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"riskgate"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		AsyncInsert  bool          `yaml:"async_insert" default:"true"`
		WaitForAsync bool          `yaml:"wait_for_async_insert"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	} `yaml:"clickhouse"`

	Scheduler struct {
		RegimeRefresh    TaskConfig `yaml:"regime_refresh"`
		SentimentRefresh TaskConfig `yaml:"sentiment_refresh"`
		DecisionEvaluate TaskConfig `yaml:"decision_evaluate"`
		BudgetPoll       TaskConfig `yaml:"budget_poll"`
	} `yaml:"scheduler"`

	Regime struct {
		LookbackCandles int     `yaml:"lookback_candles" default:"120" validate:"gt=0"`
		ZScoreWindow    int     `yaml:"zscore_window" default:"60" validate:"gt=0"`
		ZUp             float64 `yaml:"z_up" default:"1.0"`
		ZDown           float64 `yaml:"z_down" default:"-1.0"`
		RVLow           float64 `yaml:"rv_low" default:"0.0005"`
		RVHigh          float64 `yaml:"rv_high" default:"0.02"`
		ATRPctRange     float64 `yaml:"atr_pct_range" default:"0.002"`
	} `yaml:"regime"`

	Sentiment struct {
		WindowMinutes   int     `yaml:"window_minutes" default:"60" validate:"gt=0"`
		HalfLifeMinutes float64 `yaml:"half_life_minutes" default:"20" validate:"gt=0"`
		MaxSamples      int     `yaml:"max_samples" default:"2000" validate:"gt=0"`
		PollRPS         float64 `yaml:"poll_rps" default:"1"`
		PollBurst       int     `yaml:"poll_burst" default:"2"`
		Providers       []struct {
			Name    string        `yaml:"name" validate:"required"`
			Type    string        `yaml:"type" validate:"oneof=static http websocket"`
			URL     string        `yaml:"url"`
			Weight  float64       `yaml:"weight" default:"1.0"`
			Score   float64       `yaml:"score"` // static provider only
			Timeout time.Duration `yaml:"timeout" default:"5s"`
		} `yaml:"providers" validate:"dive"`
	} `yaml:"sentiment"`

	Decision struct {
		Strategy        string        `yaml:"strategy" default:"composite" validate:"oneof=composite sentiment"`
		MinConfidence   float64       `yaml:"min_confidence" default:"60"`
		EntryLongScore  float64       `yaml:"entry_long_score" default:"70"`
		EntryShortScore float64       `yaml:"entry_short_score" default:"30"`
		WeightRegime    float64       `yaml:"weight_regime" default:"0.40"`
		WeightMomentum  float64       `yaml:"weight_momentum" default:"0.35"`
		WeightSentiment float64       `yaml:"weight_sentiment" default:"0.25"`
		EmitThreshold   float64       `yaml:"emit_threshold" default:"0.35"`
		Quantity        int           `yaml:"quantity" default:"50" validate:"gt=0"`
		LotSize         int           `yaml:"lot_size" default:"50" validate:"gt=0"`
		DedupeWindow    time.Duration `yaml:"dedupe_window" default:"60s" validate:"gt=0"`
	} `yaml:"decision"`

	Risk struct {
		DailyLossCapAmount float64 `yaml:"daily_loss_cap_amount" validate:"gte=0"`
		LotsCap            int     `yaml:"lots_cap" validate:"gte=0"`
		OrdersPerMinuteCap int     `yaml:"orders_per_minute_cap" validate:"gte=0"`
	} `yaml:"risk"`
}

// TaskConfig configures one scheduled refresh loop.
type TaskConfig struct {
	Enabled  bool          `yaml:"enabled" default:"true"`
	Interval time.Duration `yaml:"interval" default:"30s"`
	Timeout  time.Duration `yaml:"timeout" default:"10s"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Fill unset fields, then check bounds
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.FastState.Type = "redis"
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.Store.Type = "clickhouse"
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Store.Type == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required for clickhouse store")
	}
	if c.Decision.EntryShortScore >= c.Decision.EntryLongScore {
		return fmt.Errorf("decision.entry_short_score must be below entry_long_score")
	}
	for _, p := range c.Sentiment.Providers {
		if (p.Type == "http" || p.Type == "websocket") && p.URL == "" {
			return fmt.Errorf("sentiment provider %s: url is required for type %s", p.Name, p.Type)
		}
	}
	return nil
}
