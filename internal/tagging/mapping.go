package tagging

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrConfig marks a tag mapping or upstream tag contract that cannot be
// resolved to a usable tag ID. It is not retryable.
var ErrConfig = errors.New("tag configuration error")

// Spec identifies a tag either by upstream ID or by human name.
type Spec struct {
	ID   int64
	Name string
}

// Numeric reports whether s already carries the upstream tag ID.
func (s Spec) Numeric() bool {
	return s.ID > 0
}

func (s Spec) String() string {
	if s.Numeric() {
		return strconv.FormatInt(s.ID, 10)
	}
	return s.Name
}

// ParseSpec interprets a configured mapping value. Digits only means a tag
// ID; anything else is a tag name.
func ParseSpec(raw string) (Spec, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Spec{}, fmt.Errorf("%w: empty tag value", ErrConfig)
	}
	if isDigits(value) {
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil || id <= 0 {
			return Spec{}, fmt.Errorf("%w: invalid tag id %q", ErrConfig, value)
		}
		return Spec{ID: id}, nil
	}
	return Spec{Name: value}, nil
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return value != ""
}

// Mapping maps product SKUs to tag specs. It is loaded once per process.
type Mapping map[string]Spec

// ParseMapping decodes a JSON object of SKU -> tag id (number or digit
// string) or tag name.
func ParseMapping(raw string) (Mapping, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Mapping{}, nil
	}

	decoder := json.NewDecoder(bytes.NewReader([]byte(raw)))
	decoder.UseNumber()
	var values map[string]any
	if err := decoder.Decode(&values); err != nil {
		return nil, fmt.Errorf("%w: SKU tag map must be a JSON object: %v", ErrConfig, err)
	}

	out := make(Mapping, len(values))
	for sku, value := range values {
		key := strings.TrimSpace(sku)
		if key == "" {
			return nil, fmt.Errorf("%w: empty SKU in tag map", ErrConfig)
		}
		switch typed := value.(type) {
		case json.Number:
			id, err := typed.Int64()
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("%w: SKU %q maps to invalid tag id %s", ErrConfig, key, typed.String())
			}
			out[key] = Spec{ID: id}
		case string:
			spec, err := ParseSpec(typed)
			if err != nil {
				return nil, fmt.Errorf("SKU %q: %w", key, err)
			}
			out[key] = spec
		default:
			return nil, fmt.Errorf("%w: SKU %q maps to unsupported value %v", ErrConfig, key, value)
		}
	}
	return out, nil
}

// Lookup returns the tag configured for sku.
func (m Mapping) Lookup(sku string) (Spec, bool) {
	spec, ok := m[strings.TrimSpace(sku)]
	return spec, ok
}

// SKUs returns the configured SKUs in sorted order.
func (m Mapping) SKUs() []string {
	out := make([]string, 0, len(m))
	for sku := range m {
		out = append(out, sku)
	}
	sort.Strings(out)
	return out
}
