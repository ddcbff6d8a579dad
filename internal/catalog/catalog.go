// Package catalog holds the structured-extractor catalog: which upstream
// spider handles which URL shape, and what parameters it takes. The catalog
// is static data loaded once before the dispatcher starts.
package catalog

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

// Field describes one parameter of a structured extractor.
type Field struct {
	Type     string `yaml:"type" json:"type"`
	Required bool   `yaml:"required" json:"required"`
	Default  any    `yaml:"default,omitempty" json:"default,omitempty"`
}

// Entry is one structured extractor. Hosts are matched as suffixes of the
// URL hostname; PathContains and QueryKeys must all be satisfied for the
// entry to match.
type Entry struct {
	ToolKey      string           `yaml:"tool_key" json:"tool_key"`
	Group        string           `yaml:"group" json:"group"`
	SpiderID     string           `yaml:"spider_id" json:"spider_id"`
	SpiderName   string           `yaml:"spider_name" json:"spider_name"`
	Hosts        []string         `yaml:"hosts,omitempty" json:"hosts,omitempty"`
	PathContains []string         `yaml:"path_contains,omitempty" json:"path_contains,omitempty"`
	QueryKeys    []string         `yaml:"query_keys,omitempty" json:"query_keys,omitempty"`
	InputKey     string           `yaml:"input_key" json:"input_key"`
	Fields       map[string]Field `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// Catalog is an ordered, read-only table of entries. Built once at startup.
type Catalog struct {
	entries []Entry
	byKey   map[string]int
}

// Load reads a catalog from a YAML file. An empty path loads the embedded
// default catalog.
func Load(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog file: %w", err)
		}
		data = b
	}
	var doc struct {
		Tools []Entry `yaml:"tools"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(doc.Tools)
}

// New builds a catalog from entries, preserving declaration order.
func New(entries []Entry) (*Catalog, error) {
	byKey := make(map[string]int, len(entries))
	for i, e := range entries {
		if e.ToolKey == "" {
			return nil, fmt.Errorf("catalog entry %d: missing tool_key", i)
		}
		if _, dup := byKey[e.ToolKey]; dup {
			return nil, fmt.Errorf("catalog: duplicate tool_key %q", e.ToolKey)
		}
		byKey[e.ToolKey] = i
	}
	return &Catalog{entries: entries, byKey: byKey}, nil
}

// Get returns the entry for toolKey.
func (c *Catalog) Get(toolKey string) (Entry, bool) {
	i, ok := c.byKey[toolKey]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.entries) }

// Groups returns the distinct entry groups, sorted.
func (c *Catalog) Groups() []string {
	seen := map[string]bool{}
	var groups []string
	for _, e := range c.entries {
		if e.Group != "" && !seen[e.Group] {
			seen[e.Group] = true
			groups = append(groups, e.Group)
		}
	}
	sort.Strings(groups)
	return groups
}

// List returns entries filtered by group and keyword (substring of tool_key
// or spider_id), paged by limit/offset, plus the total filtered count.
func (c *Catalog) List(group, keyword string, limit, offset int) ([]Entry, int) {
	group = strings.ToLower(strings.TrimSpace(group))
	keyword = strings.ToLower(strings.TrimSpace(keyword))

	var filtered []Entry
	for _, e := range c.entries {
		if group != "" && strings.ToLower(e.Group) != group {
			continue
		}
		if keyword != "" &&
			!strings.Contains(strings.ToLower(e.ToolKey), keyword) &&
			!strings.Contains(strings.ToLower(e.SpiderID), keyword) {
			continue
		}
		filtered = append(filtered, e)
	}

	total := len(filtered)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return nil, total
	}
	if limit <= 0 {
		limit = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return filtered[offset:end], total
}

// Match finds the structured extractor for a URL, if any. When several
// entries match, the most specific one wins: highest count of matched host
// labels plus satisfied path/query rules. Ties go to declaration order.
func (c *Catalog) Match(rawURL string) (Entry, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Entry{}, false
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	path := u.Path
	query := u.Query()

	best := -1
	bestScore := 0
	for i, e := range c.entries {
		score, ok := matchScore(e, host, path, query)
		if ok && score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return Entry{}, false
	}
	return c.entries[best], true
}

func matchScore(e Entry, host, path string, query url.Values) (int, bool) {
	matchedHost := ""
	for _, h := range e.Hosts {
		h = strings.ToLower(h)
		if host == h || strings.HasSuffix(host, "."+h) {
			if len(h) > len(matchedHost) {
				matchedHost = h
			}
		}
	}
	if len(e.Hosts) > 0 && matchedHost == "" {
		return 0, false
	}

	score := strings.Count(matchedHost, ".") + 1
	for _, frag := range e.PathContains {
		if !strings.Contains(path, frag) {
			return 0, false
		}
		score += strings.Count(strings.Trim(frag, "/"), "/") + 1
	}
	for _, k := range e.QueryKeys {
		if !query.Has(k) {
			return 0, false
		}
		score++
	}
	return score, true
}
