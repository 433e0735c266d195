package ai

import (
	"encoding/json"
	"strings"
)

// unwrapFence strips a surrounding Markdown code fence, with or without a language tag.
func unwrapFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

// parseStringArray decodes a JSON array of strings from model output. When the
// output has chatter around the array, the outermost brackets are tried.
func parseStringArray(out string) ([]string, error) {
	out = unwrapFence(out)
	var items []string
	err := json.Unmarshal([]byte(out), &items)
	if err == nil {
		return items, nil
	}
	start, end := strings.IndexByte(out, '['), strings.LastIndexByte(out, ']')
	if start < 0 || end <= start || strings.HasPrefix(out, "{") {
		return nil, err
	}
	if err := json.Unmarshal([]byte(out[start:end+1]), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// parsePaths splits a space separated path list, dropping quoting and list punctuation.
func parsePaths(out string) []string {
	out = unwrapFence(out)
	var paths []string
	for _, f := range strings.FieldsFunc(out, func(r rune) bool {
		return r == ' ' || r == '\n' || r == '\t' || r == ','
	}) {
		f = strings.Trim(f, "\"'`")
		f = strings.TrimPrefix(f, "./")
		if f != "" {
			paths = append(paths, f)
		}
	}
	return paths
}
