package capture

import (
	"fmt"

	"github.com/vincentbai/clicktrace-agent/internal/dom"
	"github.com/vincentbai/clicktrace-agent/internal/elpath"
	"github.com/vincentbai/clicktrace-agent/internal/identity"
)

const (
	// CapturedClass marks an element already reported under capture-once.
	CapturedClass = "analytics-captured"

	DefaultIDField = "id"
	DefaultExclude = ".analytics-exclude"
	ClientField    = "client"
)

// Config is one tracking session's settings. A later Initialize replaces it
// wholesale.
type Config struct {
	Attributes  []string `yaml:"attributes"`
	AssignTo    []string `yaml:"assign_to"`
	CaptureOnce bool     `yaml:"capture_once"`
	Client      string   `yaml:"client"`
	ID          string   `yaml:"id"`
	Exclude     *string  `yaml:"exclude"` // nil: DefaultExclude; "": exclusion off
	URL         string   `yaml:"url"`
	Delimiter   string   `yaml:"delimiter"`
}

// DefaultConfig tracks links and submit buttons and reports nowhere until a
// URL is set.
func DefaultConfig() Config {
	return Config{
		AssignTo:  []string{"a", "input[type='submit']"},
		ID:        DefaultIDField,
		Exclude:   ExcludeSelector(DefaultExclude),
		Delimiter: elpath.DefaultDelimiter,
	}
}

// WithDefaults returns c with every empty field taken from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if len(c.AssignTo) == 0 {
		c.AssignTo = def.AssignTo
	}
	if c.ID == "" {
		c.ID = def.ID
	}
	if c.Exclude == nil {
		c.Exclude = def.Exclude
	}
	if c.Delimiter == "" {
		c.Delimiter = def.Delimiter
	}
	return c
}

// ExcludeSelector returns sel for Config.Exclude. An empty sel turns
// exclusion off.
func ExcludeSelector(sel string) *string { return &sel }

// Exclusion is the exclusion selector in effect, "" when off.
func (c Config) Exclusion() string {
	if c.Exclude == nil {
		return DefaultExclude
	}
	return *c.Exclude
}

// settings is a Config with its selectors compiled.
type settings struct {
	cfg     Config
	assign  dom.Selector
	exclude dom.Selector
	paths   *elpath.Builder
}

func compile(cfg Config, ids *identity.Assigner) (*settings, error) {
	assign, err := dom.Compile(cfg.AssignTo...)
	if err != nil {
		return nil, fmt.Errorf("capture: assign_to: %w", err)
	}
	exclude, err := dom.Compile(cfg.Exclusion())
	if err != nil {
		return nil, fmt.Errorf("capture: exclude: %w", err)
	}
	return &settings{
		cfg:     cfg,
		assign:  assign,
		exclude: exclude,
		paths:   elpath.New(ids, exclude, elpath.WithDelimiter(cfg.Delimiter)),
	}, nil
}
