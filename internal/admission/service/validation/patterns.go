package validation

import (
	"fmt"
	"regexp"
)

// pattern is a named threat signature. The name goes to logs and audit
// events, never to the client.
type pattern struct {
	name string
	re   *regexp.Regexp
}

func (p pattern) String() string {
	return p.name
}

var builtinPatterns = []pattern{
	{"script_tag", regexp.MustCompile(`(?i)<\s*script\b`)},
	{"javascript_uri", regexp.MustCompile(`(?i)javascript\s*:`)},
	{"event_handler", regexp.MustCompile(`(?i)<[^>]*\bon\w+\s*=`)},

	{"sql_stacked_statement", regexp.MustCompile(`(?i);\s*(drop|delete|insert|update|alter|create|truncate|exec)\b`)},
	{"sql_ddl", regexp.MustCompile(`(?i)\b(drop|truncate|alter)\s+(table|database|schema)\b`)},
	{"sql_union_select", regexp.MustCompile(`(?i)\bunion\b\s+(all\s+)?select\b`)},
	{"sql_tautology", regexp.MustCompile(`(?i)'\s*or\s+'?\d+'?\s*=\s*'?\d+`)},
	{"sql_insert", regexp.MustCompile(`(?i)\binsert\s+into\b`)},
	{"sql_update", regexp.MustCompile(`(?i)\bupdate\s+\S+\s+set\b`)},
	{"sql_delete", regexp.MustCompile(`(?i)\bdelete\s+from\s+\w+\s+where\b`)},

	{"shell_chain", regexp.MustCompile(`(?i);\s*(rm|cat|wget|curl|bash|sh|nc)\s`)},
	{"shell_pipe", regexp.MustCompile(`(?i)\|\s*(sh|bash)\b`)},
	{"shell_substitution", regexp.MustCompile(`\$\([^)]*\)`)},
	{"eval_call", regexp.MustCompile(`(?i)\b(eval|exec|system)\s*\(`)},

	{"path_traversal", regexp.MustCompile(`\.\./|\.\.\\`)},
	{"encoded_traversal", regexp.MustCompile(`(?i)%2e%2e(%2f|%5c|/|\\)|\.\.%2f|\.\.%5c`)},

	{"scheme_uri", regexp.MustCompile(`(?i)\b(file|gopher|dict|ldap|php|jar|expect)://`)},
}

// compilePatterns returns the built-in set followed by extra, each compiled
// case-insensitively.
func compilePatterns(extra []string) ([]pattern, error) {
	patterns := make([]pattern, 0, len(builtinPatterns)+len(extra))
	patterns = append(patterns, builtinPatterns...)
	for i, expr := range extra {
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return nil, fmt.Errorf("extra pattern %d: %w", i, err)
		}
		patterns = append(patterns, pattern{name: fmt.Sprintf("custom_%d", i), re: re})
	}
	return patterns, nil
}

// match returns the first pattern found in s.
func match(patterns []pattern, s string) (pattern, bool) {
	if s == "" {
		return pattern{}, false
	}
	for _, p := range patterns {
		if p.re.MatchString(s) {
			return p, true
		}
	}
	return pattern{}, false
}
