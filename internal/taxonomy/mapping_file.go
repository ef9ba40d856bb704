package taxonomy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadMappingFile reads a YAML document of "source: target" pairs.
func LoadMappingFile(path string) (Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping file: %w", err)
	}
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse mapping file %s: %w", path, err)
	}
	mapping := make(Mapping, len(raw))
	for from, to := range raw {
		from = strings.TrimSpace(from)
		to = strings.TrimSpace(to)
		if from == "" || to == "" {
			return nil, fmt.Errorf("mapping file %s: empty class in %q -> %q", path, from, to)
		}
		mapping[from] = to
	}
	return mapping, nil
}

// ParsePairs reads "from=to" pairs as given on a command line.
func ParsePairs(pairs []string) (Mapping, error) {
	mapping := make(Mapping, len(pairs))
	for _, pair := range pairs {
		from, to, ok := strings.Cut(pair, "=")
		from = strings.TrimSpace(from)
		to = strings.TrimSpace(to)
		if !ok || from == "" || to == "" {
			return nil, fmt.Errorf("invalid mapping %q (want from=to)", pair)
		}
		mapping[from] = to
	}
	return mapping, nil
}
