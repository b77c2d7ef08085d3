package models

import "strings"

const DefaultCategory = "finished_work"

var validCategories = map[string]struct{}{
	"finished_work":  {},
	"work_action":    {},
	"process_detail": {},
	"team_vehicle":   {},
	"empty_space":    {},
}

// folder names on disk are written without underscores
var categoryAliases = map[string]string{
	"finishedwork":   "finished_work",
	"workaction":     "work_action",
	"processdetails": "process_detail",
	"processdetail":  "process_detail",
	"teamvehicle":    "team_vehicle",
	"emptyspace":     "empty_space",
}

// NormalizeCategory maps any input to one of the fixed image categories.
func NormalizeCategory(cat string) string {
	c := strings.ToLower(strings.TrimSpace(cat))
	if alias, ok := categoryAliases[c]; ok {
		c = alias
	}
	if _, ok := validCategories[c]; !ok {
		return DefaultCategory
	}
	return c
}

// CaptionCategory derives the caption table a post draws from.
func CaptionCategory(p *Post) string {
	switch {
	case strings.HasPrefix(p.ID, "fp_"):
		return "foundation"
	case strings.HasPrefix(p.ID, "tr_"):
		return "trust"
	case strings.HasPrefix(p.ID, "sv_"):
		return "service"
	}
	switch p.Type {
	case "foundation", "trust", "service":
		return p.Type
	}
	return "foundation"
}
