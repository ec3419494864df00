package agent

import (
	"strings"
)

// routineFieldAliases maps the shorthand field names the engine tends to
// produce onto the canonical record field names.
var routineFieldAliases = map[string]string{
	"desc":              "description",
	"title":             "name",
	"time":              "schedule",
	"freq":              "frequency",
	"pri":               "priority",
	"tag":               "tags",
	"duration":          "estimated_duration",
	"estimatedduration": "estimated_duration",
	"startdate":         "start_date",
	"start":             "start_date",
	"enddate":           "end_date",
	"end":               "end_date",
}

var taskFieldAliases = map[string]string{
	"desc": "description",
	"pri":  "priority",
	"cat":  "category",
}

// parseFields decodes the pipe-delimited field=value encoding
// ("name=Exercise|priority=high") into an ordered-irrelevant map.
// Segments without an "=" are skipped. Field names are lowercased and
// run through the alias table.
func parseFields(input string, aliases map[string]string) map[string]string {
	fields := make(map[string]string)
	for _, part := range strings.Split(input, "|") {
		eq := strings.Index(part, "=")
		if eq < 0 {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(part[:eq]))
		if canonical, ok := aliases[name]; ok {
			name = canonical
		}
		if name == "" {
			continue
		}
		fields[name] = strings.TrimSpace(part[eq+1:])
	}
	return fields
}

// splitUpdateInput separates the leading record id from the field segments
// of an update input ("<id>|field=value|...").
func splitUpdateInput(input string) (id, rest string) {
	id, rest, found := strings.Cut(input, "|")
	if !found {
		return strings.TrimSpace(input), ""
	}
	return strings.TrimSpace(id), rest
}

// splitTags turns a comma-separated tag value into a clean slice.
func splitTags(value string) []string {
	if strings.TrimSpace(value) == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
