package conversation

import (
	"regexp"
	"strings"
)

// MaxExtractedTasks caps how many tasks one reply can create.
const MaxExtractedTasks = 5

const maxTaskLength = 200

var numberedStep = regexp.MustCompile(`^\s*(?:\*\*)?\d{1,2}[.)](?:\*\*)?\s+(.+)$`)

// ExtractSteps returns the numbered list items in text, in order, up to max items.
// Markdown emphasis is stripped and long items are truncated.
func ExtractSteps(text string, max int) []string {
	var steps []string
	for _, line := range strings.Split(text, "\n") {
		if len(steps) >= max {
			break
		}
		m := numberedStep.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		step := strings.TrimSpace(strings.ReplaceAll(m[1], "**", ""))
		step = strings.TrimRight(step, ":")
		if step == "" {
			continue
		}
		if r := []rune(step); len(r) > maxTaskLength {
			step = string(r[:maxTaskLength])
		}
		steps = append(steps, step)
	}
	return steps
}
