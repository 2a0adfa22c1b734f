package docs

import (
	"fmt"
	"time"
)

// Template is a date-stamped document skeleton. The frontmatter date
// and the heading are filled in at creation time.
type Template struct {
	Tag     string
	Heading func(t time.Time) string
	Body    string
}

// Render produces the full markdown for the template at time t.
func (tpl Template) Render(t time.Time) string {
	return fmt.Sprintf("---\ndate: %s\nstatus: draft\ntags: [%s]\n---\n\n# %s\n\n%s",
		t.Format("2006-01-02"), tpl.Tag, tpl.Heading(t), tpl.Body)
}

// Templates holds the built-in document skeletons, keyed by name.
var Templates = map[string]Template{
	"standup": {
		Tag: "standup",
		Heading: func(t time.Time) string {
			return "Standup " + t.Format("Monday, January 2, 2006")
		},
		Body: "## Blockers\n\n- \n\n## Tasks\n\n- \n\n## Notes\n\n- \n",
	},
	"tech-spec": {
		Tag:     "tech-spec",
		Heading: func(time.Time) string { return "Technical Specification" },
		Body:    "## Goal\n\n## Current State\n\n## Open Questions\n\n## Decisions\n\n",
	},
	"retro": {
		Tag:     "retrospective",
		Heading: func(time.Time) string { return "Retrospective" },
		Body:    "## What Went Well\n\n## What Didn't Go Well\n\n## Action Items\n\n## Patterns\n\n",
	},
	"business-context": {
		Tag:     "business",
		Heading: func(time.Time) string { return "Business Context" },
		Body:    "## Overview\n\n## Market Position\n\n## Key Metrics\n\n## Strategic Priorities\n\n",
	},
}
