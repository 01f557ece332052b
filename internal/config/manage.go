package config

import (
	"fmt"
	"sort"
)

// KeyInfo describes a single configuration key for display purposes.
type KeyInfo struct {
	Key    string
	Env    string
	Value  string
	Secret bool
}

// ShowAll returns every known configuration key with its effective value,
// sorted by key. Secret values are masked.
func ShowAll(cfg Config) []KeyInfo {
	out := make([]KeyInfo, 0, len(specs))
	for _, s := range specs {
		ki := KeyInfo{Key: s.key, Env: s.env, Secret: s.secret}
		v := s.extract(cfg)
		if s.secret {
			ki.Value = mask(fmt.Sprintf("%v", v))
		} else {
			ki.Value = fmt.Sprintf("%v", v)
		}
		out = append(out, ki)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func mask(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 8 {
		return "********"
	}
	return v[:4] + "…" + v[len(v)-4:]
}
