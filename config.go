package lawdoc

import "time"

// Default configuration values.
const (
	DefaultTimeout           = 30 * time.Second
	DefaultRequestDelay      = 2 * time.Second
	DefaultRetryDelay        = 5 * time.Second
	DefaultRateLimitDelay    = 30 * time.Second
	DefaultMaxAttempts       = 3
	DefaultWorkerConcurrency = 4
	DefaultMaxEmptyPages     = 2
	DefaultPageSize          = 20
	DefaultOutputDir         = "crawled_data"
	DefaultLedgerFile        = "ledger.db"
	DefaultSearchEndpoint    = "https://search.mnr.gov.cn/was5/web/search"
)

// DefaultUserAgents is the identification header pool rotated per request.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Formats toggles individual output formats.
type Formats struct {
	JSON     bool `json:"json"`
	Markdown bool `json:"markdown"`
	DOCX     bool `json:"docx"`
	Files    bool `json:"files"`
}

// Enabled reports whether the named format is switched on.
func (f Formats) Enabled(format string) bool {
	switch format {
	case FormatJSON:
		return f.JSON
	case FormatMarkdown:
		return f.Markdown
	case FormatDOCX:
		return f.DOCX
	case FormatFiles:
		return f.Files
	}
	return false
}

// Config is the full pipeline configuration.
type Config struct {
	Sources []SourceConfig `json:"sources"`

	OutputDir  string `json:"output_dir"`
	LedgerPath string `json:"ledger_path"`

	Timeout           time.Duration `json:"timeout"`
	RequestDelay      time.Duration `json:"request_delay"`
	RetryDelay        time.Duration `json:"retry_delay"`
	RateLimitDelay    time.Duration `json:"rate_limit_delay"`
	MaxAttempts       int           `json:"max_attempts"`
	WorkerConcurrency int           `json:"worker_concurrency"`
	MaxEmptyPages     int           `json:"max_empty_pages"`

	Proxy         string   `json:"proxy"`
	UserAgents    []string `json:"user_agents"`
	RespectRobots bool     `json:"respect_robots"`

	Formats Formats `json:"formats"`

	// DespliceWords are repaired when split by DespliceFillers.
	DespliceWords   []string `json:"desplice_words"`
	DespliceFillers []string `json:"desplice_fillers"`
}

// DefaultConfig returns the configuration for the two Ministry of Natural
// Resources portals with the default request policy.
func DefaultConfig() *Config {
	return &Config{
		Sources: []SourceConfig{
			{
				Name:           "flfg",
				Adapter:        "flfg",
				BaseURL:        "https://f.mnr.gov.cn/",
				SearchEndpoint: DefaultSearchEndpoint,
				ChannelID:      "174757",
				Enabled:        true,
				PageSize:       DefaultPageSize,
			},
			{
				Name:           "gi",
				Adapter:        "gi",
				BaseURL:        "https://gi.mnr.gov.cn/",
				SearchEndpoint: DefaultSearchEndpoint,
				ChannelID:      "216640",
				Enabled:        true,
				PageSize:       DefaultPageSize,
			},
		},
		OutputDir:         DefaultOutputDir,
		Timeout:           DefaultTimeout,
		RequestDelay:      DefaultRequestDelay,
		RetryDelay:        DefaultRetryDelay,
		RateLimitDelay:    DefaultRateLimitDelay,
		MaxAttempts:       DefaultMaxAttempts,
		WorkerConcurrency: DefaultWorkerConcurrency,
		MaxEmptyPages:     DefaultMaxEmptyPages,
		UserAgents:        append([]string(nil), DefaultUserAgents...),
		Formats:           Formats{JSON: true, Markdown: true, DOCX: true, Files: true},
	}
}

// EnabledSources returns the enabled sources in configuration order.
func (c *Config) EnabledSources() []SourceConfig {
	var out []SourceConfig
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// Validate returns ECONFIG if the configuration cannot drive a run.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return Errorf(ECONFIG, "output_dir required")
	}
	if c.Timeout <= 0 {
		return Errorf(ECONFIG, "timeout must be positive")
	}
	if c.RequestDelay < 0 || c.RetryDelay < 0 || c.RateLimitDelay < 0 {
		return Errorf(ECONFIG, "delays must not be negative")
	}
	if c.MaxAttempts < 1 {
		return Errorf(ECONFIG, "max_attempts must be at least 1")
	}
	if c.WorkerConcurrency < 1 {
		return Errorf(ECONFIG, "worker_concurrency must be at least 1")
	}
	if c.MaxEmptyPages < 1 {
		return Errorf(ECONFIG, "max_empty_pages must be at least 1")
	}
	if len(c.UserAgents) == 0 {
		return Errorf(ECONFIG, "at least one user agent required")
	}

	seen := make(map[string]bool)
	var enabled int
	for i := range c.Sources {
		src := &c.Sources[i]
		if err := src.Validate(); err != nil {
			return err
		}
		if seen[src.Name] {
			return Errorf(ECONFIG, "duplicate source name %q", src.Name)
		}
		seen[src.Name] = true
		if src.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return Errorf(ECONFIG, "no enabled sources")
	}
	return nil
}
