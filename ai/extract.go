package ai

import (
	"regexp"
	"strings"
)

var (
	createTableAsRE = regexp.MustCompile(`(?is)\bCREATE\s+TABLE\b.*?\bAS\b.*?;`)
	withRE          = regexp.MustCompile(`(?is)\bWITH\b\s+.*?;`)
	selectRE        = regexp.MustCompile(`(?is)\bSELECT\b\s.*?;`)
	sqlFenceRE      = regexp.MustCompile("(?is)```sql\\s*\\n?(.*?)```")
	anyFenceRE      = regexp.MustCompile("(?is)```[a-z]*\\s*\\n?(.*?)```")
	listPrefixRE    = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s*`)
	intermediateRE  = regexp.MustCompile(`(?i)intermediate_sql`)
)

// ExtractSQL pulls the SQL statement out of a model response. Responses
// without recognizable SQL are returned trimmed, unchanged otherwise.
func ExtractSQL(response string) string {
	// Fenced blocks first; they may contain statements without a trailing semicolon.
	if m := sqlFenceRE.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}
	for _, re := range []*regexp.Regexp{createTableAsRE, withRE, selectRE} {
		if m := re.FindString(response); m != "" {
			return strings.TrimSpace(m)
		}
	}
	if m := anyFenceRE.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(response)
}

// IsIntermediateSQL reports whether the model marked its answer as a query
// run only to learn column values.
func IsIntermediateSQL(response string) bool {
	return intermediateRE.MatchString(response)
}

// StripCodeFence removes a single surrounding markdown code fence.
func StripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if m := anyFenceRE.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}

// ParseFollowups splits a model response into questions, dropping list
// numbering and bullets, and keeps at most limit of them.
func ParseFollowups(response string, limit int) []string {
	var questions []string
	for _, line := range strings.Split(StripCodeFence(response), "\n") {
		line = strings.TrimSpace(listPrefixRE.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		if limit > 0 && len(questions) >= limit {
			break
		}
		questions = append(questions, line)
	}
	return questions
}
