package common

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Vision   VisionConfig   `mapstructure:"vision"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	OCR      OCRConfig      `mapstructure:"ocr"`
	Policy   PolicyConfig   `mapstructure:"policy"`
	Report   ReportConfig   `mapstructure:"report"`
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json|text
}

// VisionConfig configures the OpenAI-compatible vision endpoint.
type VisionConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	Temperature       float32       `mapstructure:"temperature"`
	Timeout           time.Duration `mapstructure:"timeout"`
	DPI               float64       `mapstructure:"dpi"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

type PipelineConfig struct {
	Concurrency   int  `mapstructure:"concurrency"`
	SchedulesOnly bool `mapstructure:"schedules_only"`
	Geometric     bool `mapstructure:"geometric"`
	Schedule      bool `mapstructure:"schedule"`
}

// OCRConfig enables tesseract recognition of pages without a text layer.
type OCRConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Tesseract     string        `mapstructure:"tesseract"`
	Lang          string        `mapstructure:"lang"`
	TessdataDir   string        `mapstructure:"tessdata_dir"`
	PSM           int           `mapstructure:"psm"`
	OEM           int           `mapstructure:"oem"`
	DPI           float64       `mapstructure:"dpi"`
	MinConfidence float64       `mapstructure:"min_confidence"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// PolicyConfig carries the heuristic constants used when a value was not
// extracted and has to be estimated.
type PolicyConfig struct {
	Radius           float64  `mapstructure:"radius"`
	MinCandidateCFM  int      `mapstructure:"min_candidate_cfm"`
	MaxCandidateCFM  int      `mapstructure:"max_candidate_cfm"`
	MinCFMFraction   float64  `mapstructure:"min_cfm_fraction"`
	InletBreakpoints []int    `mapstructure:"inlet_breakpoints"`
	InletSizes       []string `mapstructure:"inlet_sizes"`
	HeaterVoltage    int      `mapstructure:"heater_voltage"`
	BlankHeaters     int      `mapstructure:"blank_heaters"`
}

type ReportConfig struct {
	JobNumber    string `mapstructure:"job_number"`
	ProjectName  string `mapstructure:"project_name"`
	OutputDir    string `mapstructure:"output_dir"`
	TemplatePath string `mapstructure:"template_path"`
}

type ServerConfig struct {
	HTTPAddr       string        `mapstructure:"http_addr"`
	GRPCAddr       string        `mapstructure:"grpc_addr"`
	UploadDir      string        `mapstructure:"upload_dir"`
	Workers        int           `mapstructure:"workers"`
	QueueSize      int           `mapstructure:"queue_size"`
	JobTimeout     time.Duration `mapstructure:"job_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// InboxDir, when set, is watched for PDFs that are submitted as jobs.
	InboxDir       string        `mapstructure:"inbox_dir"`
	InboxDebounce  time.Duration `mapstructure:"inbox_debounce"`
}

// StoreConfig selects the job store: memory, sqlite or postgres.
type StoreConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("vision.enabled", true)
	v.SetDefault("vision.api_key", "")
	v.SetDefault("vision.base_url", "https://generativelanguage.googleapis.com/v1beta/openai")
	v.SetDefault("vision.model", "gemini-2.0-flash")
	v.SetDefault("vision.temperature", 0.0)
	v.SetDefault("vision.timeout", 90*time.Second)
	v.SetDefault("vision.dpi", 120.0)
	v.SetDefault("vision.max_retries", 3)
	v.SetDefault("vision.requests_per_minute", 30)

	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("pipeline.schedules_only", false)
	v.SetDefault("pipeline.geometric", true)
	v.SetDefault("pipeline.schedule", true)

	v.SetDefault("ocr.enabled", false)
	v.SetDefault("ocr.tesseract", "tesseract")
	v.SetDefault("ocr.lang", "eng")
	v.SetDefault("ocr.tessdata_dir", "")
	v.SetDefault("ocr.psm", 11)
	v.SetDefault("ocr.oem", 0)
	v.SetDefault("ocr.dpi", 300.0)
	v.SetDefault("ocr.min_confidence", 30.0)
	v.SetDefault("ocr.timeout", 2*time.Minute)

	v.SetDefault("policy.radius", 300.0)
	v.SetDefault("policy.min_candidate_cfm", 50)
	v.SetDefault("policy.max_candidate_cfm", 5000)
	v.SetDefault("policy.min_cfm_fraction", 0.20)
	v.SetDefault("policy.inlet_breakpoints", []int{200, 400, 700})
	v.SetDefault("policy.inlet_sizes", []string{`6"`, `8"`, `10"`, `12"`})
	v.SetDefault("policy.heater_voltage", 277)
	v.SetDefault("policy.blank_heaters", 10)

	v.SetDefault("report.job_number", "1168")
	v.SetDefault("report.project_name", "HVAC Project")
	v.SetDefault("report.output_dir", "output")
	v.SetDefault("report.template_path", "")

	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.grpc_addr", ":9090")
	v.SetDefault("server.upload_dir", "uploads")
	v.SetDefault("server.workers", 2)
	v.SetDefault("server.queue_size", 64)
	v.SetDefault("server.job_timeout", 15*time.Minute)
	v.SetDefault("server.request_timeout", 60*time.Second)
	v.SetDefault("server.inbox_dir", "")
	v.SetDefault("server.inbox_debounce", 2*time.Second)

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("store.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("store.max_conn_idle_time", 5*time.Minute)
	v.SetDefault("store.dial_timeout", 3*time.Second)
}

// LoadConfig reads .env, the optional YAML config file and the environment.
// Environment keys are the dotted config keys upper-cased with "_" (VISION_MODEL).
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("vision.api_key", "VISION_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("store.dsn", "STORE_DSN", "DB_URL")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("hvac")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.hvac")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, ConfigurationError("read config file", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, ConfigurationError("decode config", err)
	}
	return &cfg, nil
}

// Validate checks the loaded configuration. A missing vision credential is
// only an error when vision extraction is enabled.
func (c *Config) Validate() error {
	if c.Vision.Enabled && strings.TrimSpace(c.Vision.APIKey) == "" {
		return ConfigurationError("vision api key is required (GEMINI_API_KEY or OPENAI_API_KEY)", nil)
	}
	if err := c.Policy.Validate(); err != nil {
		return err
	}
	if c.Pipeline.Concurrency < 1 {
		return ConfigurationError("pipeline.concurrency must be at least 1", nil)
	}
	err := NewValidator().
		Field("store.driver", c.Store.Driver, OneOf("memory", "sqlite", "postgres")).
		Field("log.format", c.Log.Format, OneOf("json", "text")).
		Error()
	if err == nil && c.OCR.Enabled {
		err = NewValidator().
			Field("ocr.tesseract", c.OCR.Tesseract, Required).
			Field("ocr.dpi", c.OCR.DPI, Positive).
			Field("ocr.min_confidence", c.OCR.MinConfidence, NonNegative).
			Error()
	}
	if err != nil {
		return ConfigurationError("invalid config", err)
	}
	return nil
}

func (p PolicyConfig) Validate() error {
	v := NewValidator().
		Field("policy.radius", p.Radius, Positive).
		Field("policy.min_cfm_fraction", p.MinCFMFraction, Fraction).
		Field("policy.heater_voltage", p.HeaterVoltage, Positive).
		Field("policy.blank_heaters", p.BlankHeaters, NonNegative).
		Field("policy.inlet_breakpoints", p.InletBreakpoints, Ascending)
	if p.MinCandidateCFM > p.MaxCandidateCFM {
		v.Field("policy.min_candidate_cfm", p.MinCandidateCFM, func(name string, value interface{}) *ValidationError {
			return &ValidationError{Field: name, Value: value, Message: "must not exceed policy.max_candidate_cfm"}
		})
	}
	if len(p.InletSizes) != len(p.InletBreakpoints)+1 {
		v.Field("policy.inlet_sizes", p.InletSizes, func(name string, value interface{}) *ValidationError {
			return &ValidationError{Field: name, Value: value, Message: fmt.Sprintf("needs %d entries", len(p.InletBreakpoints)+1)}
		})
	}
	if v.HasErrors() {
		return ConfigurationError(v.ErrorMessage(), ErrValidation)
	}
	return nil
}
