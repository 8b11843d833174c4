// Package yaml loads pipeline configuration from YAML files.
package yaml

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fwojciec/lawdoc"
	"gopkg.in/yaml.v3"
)

// Duration accepts either a Go duration string ("2s", "1m30s") or a bare
// number of seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if secs, err := strconv.ParseFloat(node.Value, 64); err == nil {
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	v, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q", node.Line, node.Value)
	}
	*d = Duration(v)
	return nil
}

// sourceFile is a source entry. Pointer fields distinguish absent keys
// from zero values.
type sourceFile struct {
	Name              string `yaml:"name"`
	Adapter           string `yaml:"adapter"`
	BaseURL           string `yaml:"base_url"`
	SearchEndpoint    string `yaml:"search_endpoint"`
	DetailURLTemplate string `yaml:"detail_url_template"`
	ChannelID         string `yaml:"channel_id"`
	SearchWord        string `yaml:"search_word"`
	StartDate         string `yaml:"start_date"`
	EndDate           string `yaml:"end_date"`
	Enabled           *bool  `yaml:"enabled"`
	PageSize          int    `yaml:"page_size"`
	MaxPages          int    `yaml:"max_pages"`
	Render            bool   `yaml:"render"`
}

type formatsFile struct {
	JSON     *bool `yaml:"json"`
	Markdown *bool `yaml:"markdown"`
	DOCX     *bool `yaml:"docx"`
	Files    *bool `yaml:"files"`
}

type despliceFile struct {
	Words   []string `yaml:"words"`
	Fillers []string `yaml:"fillers"`
}

// configFile mirrors the YAML layout.
type configFile struct {
	Sources []sourceFile `yaml:"sources"`

	OutputDir  *string `yaml:"output_dir"`
	LedgerPath *string `yaml:"ledger_path"`

	Timeout           *Duration `yaml:"timeout"`
	RequestDelay      *Duration `yaml:"request_delay"`
	RetryDelay        *Duration `yaml:"retry_delay"`
	RateLimitDelay    *Duration `yaml:"rate_limit_delay"`
	MaxAttempts       *int      `yaml:"max_attempts"`
	WorkerConcurrency *int      `yaml:"worker_concurrency"`
	MaxEmptyPages     *int      `yaml:"max_empty_pages"`

	Proxy         *string  `yaml:"proxy"`
	UserAgents    []string `yaml:"user_agents"`
	RespectRobots *bool    `yaml:"respect_robots"`

	Formats  formatsFile   `yaml:"formats"`
	Desplice *despliceFile `yaml:"desplice"`
}

// LoadConfig reads the file at path and merges it over the defaults.
// Keys missing from the file keep their default values; a sources list
// replaces the default sources entirely. Returns ECONFIG if the file
// cannot be parsed or the result is invalid.
func LoadConfig(path string) (*lawdoc.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, lawdoc.Errorf(lawdoc.ECONFIG, "failed to read config file: %v", err)
	}
	return ParseConfig(data)
}

// ParseConfig merges YAML data over the defaults and validates the result.
func ParseConfig(data []byte) (*lawdoc.Config, error) {
	var f configFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, lawdoc.Errorf(lawdoc.ECONFIG, "failed to parse config file: %v", err)
	}

	cfg := lawdoc.DefaultConfig()
	f.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (f *configFile) apply(cfg *lawdoc.Config) {
	if f.Sources != nil {
		cfg.Sources = make([]lawdoc.SourceConfig, 0, len(f.Sources))
		for _, s := range f.Sources {
			cfg.Sources = append(cfg.Sources, s.config())
		}
	}

	setString(&cfg.OutputDir, f.OutputDir)
	setString(&cfg.LedgerPath, f.LedgerPath)
	setString(&cfg.Proxy, f.Proxy)

	setDuration(&cfg.Timeout, f.Timeout)
	setDuration(&cfg.RequestDelay, f.RequestDelay)
	setDuration(&cfg.RetryDelay, f.RetryDelay)
	setDuration(&cfg.RateLimitDelay, f.RateLimitDelay)

	setInt(&cfg.MaxAttempts, f.MaxAttempts)
	setInt(&cfg.WorkerConcurrency, f.WorkerConcurrency)
	setInt(&cfg.MaxEmptyPages, f.MaxEmptyPages)

	if len(f.UserAgents) > 0 {
		cfg.UserAgents = f.UserAgents
	}
	setBool(&cfg.RespectRobots, f.RespectRobots)

	setBool(&cfg.Formats.JSON, f.Formats.JSON)
	setBool(&cfg.Formats.Markdown, f.Formats.Markdown)
	setBool(&cfg.Formats.DOCX, f.Formats.DOCX)
	setBool(&cfg.Formats.Files, f.Formats.Files)

	if f.Desplice != nil {
		cfg.DespliceWords = f.Desplice.Words
		cfg.DespliceFillers = f.Desplice.Fillers
	}
}

// config fills per-source defaults: the adapter kind defaults to the
// source name, sources are enabled unless switched off.
func (s sourceFile) config() lawdoc.SourceConfig {
	src := lawdoc.SourceConfig{
		Name:              s.Name,
		Adapter:           s.Adapter,
		BaseURL:           s.BaseURL,
		SearchEndpoint:    s.SearchEndpoint,
		DetailURLTemplate: s.DetailURLTemplate,
		ChannelID:         s.ChannelID,
		SearchWord:        s.SearchWord,
		StartDate:         s.StartDate,
		EndDate:           s.EndDate,
		Enabled:           true,
		PageSize:          s.PageSize,
		MaxPages:          s.MaxPages,
		Render:            s.Render,
	}
	if src.Adapter == "" {
		src.Adapter = src.Name
	}
	if src.SearchEndpoint == "" {
		src.SearchEndpoint = lawdoc.DefaultSearchEndpoint
	}
	if src.PageSize == 0 {
		src.PageSize = lawdoc.DefaultPageSize
	}
	setBool(&src.Enabled, s.Enabled)
	return src
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *Duration) {
	if v != nil {
		*dst = time.Duration(*v)
	}
}
