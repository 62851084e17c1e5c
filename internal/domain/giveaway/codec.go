package giveaway

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalEntries encodes giveaways as an ordered list of [id, record] pairs,
// the layout shared by the file and redis stores.
func MarshalEntries(gs []Giveaway) ([]byte, error) {
	pairs := make([][2]any, 0, len(gs))
	for i := range gs {
		pairs = append(pairs, [2]any{gs[i].ID, gs[i]})
	}
	return json.MarshalIndent(pairs, "", "  ")
}

// UnmarshalEntries decodes the [id, record] pair list. Blank input is an
// empty list. The pair key wins over a missing record id.
func UnmarshalEntries(data []byte) ([]Giveaway, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var pairs [][]json.RawMessage
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("decode giveaway entries: %w", err)
	}

	out := make([]Giveaway, 0, len(pairs))
	seen := make(map[string]bool, len(pairs))
	for i, pair := range pairs {
		if len(pair) != 2 {
			return nil, fmt.Errorf("entry %d: want [id, record], got %d elements", i, len(pair))
		}
		var id string
		if err := json.Unmarshal(pair[0], &id); err != nil {
			return nil, fmt.Errorf("entry %d id: %w", i, err)
		}
		var g Giveaway
		if err := json.Unmarshal(pair[1], &g); err != nil {
			return nil, fmt.Errorf("entry %d record: %w", i, err)
		}
		if g.ID == "" {
			g.ID = id
		}
		if seen[g.ID] {
			return nil, fmt.Errorf("entry %d: duplicate id %q", i, g.ID)
		}
		seen[g.ID] = true
		if g.Participants == nil {
			g.Participants = []string{}
		}
		out = append(out, g)
	}
	return out, nil
}

type counterRecord struct {
	Counter int64 `json:"counter"`
}

func MarshalCounter(n int64) ([]byte, error) {
	return json.MarshalIndent(counterRecord{Counter: n}, "", "  ")
}

// UnmarshalCounter decodes {"counter": n}; blank input is 0.
func UnmarshalCounter(data []byte) (int64, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return 0, nil
	}
	var rec counterRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return 0, fmt.Errorf("decode counter: %w", err)
	}
	if rec.Counter < 0 {
		return 0, fmt.Errorf("decode counter: negative value %d", rec.Counter)
	}
	return rec.Counter, nil
}

func MarshalSettings(s Settings) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// UnmarshalSettings decodes {"globalImage": url|null}; blank input is the zero Settings.
func UnmarshalSettings(data []byte) (Settings, error) {
	var s Settings
	if len(bytes.TrimSpace(data)) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}
