package capture

import (
	"net/url"
	"strings"

	"github.com/vincentbai/clicktrace-agent/internal/dom"
)

const analyticsPrefix = "analytics"

// Payload is the field set reported for one click.
type Payload map[string]string

// Encode renders the payload as application/x-www-form-urlencoded.
func (p Payload) Encode() string {
	v := make(url.Values, len(p))
	for k, val := range p {
		v.Set(k, val)
	}
	return v.Encode()
}

// BuildPayload assembles the fields for a click on el. Later sources win on
// key collisions: path, client, data-analytics-* attributes, then the
// attributes listed in cfg.Attributes (read live, empty when absent).
func BuildPayload(el *dom.Element, path string, cfg Config) Payload {
	idField := cfg.ID
	if idField == "" {
		idField = DefaultIDField
	}

	p := Payload{idField: path}
	if cfg.Client != "" {
		p[ClientField] = cfg.Client
	}
	for key, val := range el.Dataset() {
		if !strings.HasPrefix(key, analyticsPrefix) {
			continue
		}
		name := strings.ToLower(strings.ReplaceAll(key, analyticsPrefix, ""))
		if name == "" {
			continue
		}
		p[name] = val
	}
	for _, attr := range cfg.Attributes {
		val, _ := el.Attr(attr)
		p[attr] = val
	}
	return p
}
