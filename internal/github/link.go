package github

import (
	"regexp"
	"strconv"
)

// linkedIssueRe matches GitHub's closing keywords in a PR body.
var linkedIssueRe = regexp.MustCompile(`(?i)\b(?:fixes|closes|resolves)\s+#(\d+)`)

// LinkedIssue extracts the issue number a PR body links to via a closing
// keyword ("fixes #12", "Closes #3", ...). Returns false when no link is
// present; the auto-merger then merges without closing anything.
func LinkedIssue(body string) (int, bool) {
	m := linkedIssueRe.FindStringSubmatch(body)
	if len(m) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
