package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lotas/autogroup/internal/rules"
)

type jsonExport struct {
	ExportedAt time.Time    `json:"exported_at"`
	Active     int          `json:"active"`
	Rules      []rules.Rule `json:"rules"`
}

// JSON formats a rule list as an indented JSON document. Patterns are
// always written as lists.
func JSON(rs []rules.Rule, now time.Time) (string, error) {
	out := jsonExport{
		ExportedAt: now,
		Active:     rules.CountEnabled(rs),
		Rules:      make([]rules.Rule, 0, len(rs)),
	}
	for _, r := range rs {
		out.Rules = append(out.Rules, r.Clone())
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

// ParseJSON reads a rule list from either a JSON export document or a bare
// JSON array of rules. Legacy single-string patterns are accepted.
func ParseJSON(data []byte) ([]rules.Rule, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("parse rules: empty input")
	}

	if data[0] == '[' {
		var rs []rules.Rule
		if err := json.Unmarshal(data, &rs); err != nil {
			return nil, fmt.Errorf("parse rules: %w", err)
		}
		return rs, nil
	}

	var doc jsonExport
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if doc.Rules == nil {
		return nil, fmt.Errorf("parse rules: document has no \"rules\" list")
	}
	return doc.Rules, nil
}
