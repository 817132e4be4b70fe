package router

import "strings"

// HandoffToTriage is the directive target that returns control to the triage
// agent regardless of its name.
const HandoffToTriage = "triage"

// ParseHandoffDirective scans a specialist's completion for a handoff
// directive of the form
//
//	HANDOFF: <agent name>
//
// on its own line. It returns the target, the completion with the directive
// line removed, and whether a directive was found. Only the first directive
// counts.
func ParseHandoffDirective(content string) (target, remainder string, ok bool) {
	lines := strings.Split(content, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if !ok {
			if rest, found := strings.CutPrefix(strings.TrimSpace(line), "HANDOFF:"); found {
				target = strings.TrimSpace(rest)
				if target != "" {
					ok = true
					continue
				}
			}
		}
		kept = append(kept, line)
	}
	if !ok {
		return "", content, false
	}
	return target, strings.TrimSpace(strings.Join(kept, "\n")), true
}
