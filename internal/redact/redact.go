// Package redact masks credentials in project files before their content is
// sent to a language model.
package redact

import (
	"regexp"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

const mask = "[REDACTED]"

type rule struct {
	kind string
	re   *regexp.Regexp
}

// Order matters: provider-specific keys run before the generic assignment rules.
var rules = []rule{
	{"private_key", regexp.MustCompile(`-----BEGIN\s+(?:RSA\s+|EC\s+|OPENSSH\s+)?PRIVATE KEY-----`)},
	{"anthropic_key", regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`)},
	{"openai_key", regexp.MustCompile(`sk-(?:proj-)?[A-Za-z0-9]{20,}`)},
	{"github_token", regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`)},
	{"aws_access_key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"slack_token", regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`)},
	{"jwt", regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`)},
	{"bearer", regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`)},
	{"api_key", regexp.MustCompile(`(?i)(?:api[_-]?key|api[_-]?secret)\s*[:=]\s*["']?[A-Za-z0-9/+=_-]{20,}["']?`)},
	{"assignment", regexp.MustCompile(`(?i)(?:secret|token|password|passwd)\s*[:=]\s*["'][^"'\n]{8,}["']`)},
}

// DefaultPathPatterns name files whose whole content is withheld.
var DefaultPathPatterns = []string{"**/.env", "**/.env.*", "**/*secret*", "**/*.pem", "**/id_rsa*"}

// Scan redacts text and reports the sorted kinds of credentials that were found.
func Scan(text string) (string, []string) {
	seen := make(map[string]struct{})
	for _, r := range rules {
		if !r.re.MatchString(text) {
			continue
		}
		seen[r.kind] = struct{}{}
		text = r.re.ReplaceAllLiteralString(text, mask)
	}
	kinds := make([]string, 0, len(seen))
	for k := range seen {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return text, kinds
}

// Withheld reports whether a slash separated path matches one of the patterns.
func Withheld(path string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, path); err == nil && ok {
			return true
		}
	}
	return false
}

// Content applies the path policy first and falls back to Scan. It returns the
// redacted text and the kinds of credentials removed.
func Content(path, content string, patterns []string) (string, []string) {
	if Withheld(path, patterns) {
		return mask + " (file withheld by path policy)\n", []string{"path_policy"}
	}
	return Scan(content)
}
