package vision

import (
	"regexp"
	"strings"
)

var (
	trailingCommaObject = regexp.MustCompile(`,\s*}`)
	trailingCommaArray  = regexp.MustCompile(`,\s*]`)
)

// ExtractJSON returns the outermost JSON object embedded in model output,
// tolerating surrounding prose or markdown fences. Returns "" when no object
// is found.
func ExtractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return content[start : end+1]
}

// CleanJSONString repairs common formatting mistakes in model-produced JSON,
// currently trailing commas before closing braces and brackets.
func CleanJSONString(jsonStr string) string {
	jsonStr = trailingCommaObject.ReplaceAllString(jsonStr, "}")
	jsonStr = trailingCommaArray.ReplaceAllString(jsonStr, "]")
	return jsonStr
}

// StripReasoning removes the reasoning from the content indicated by <think>
// and </think> tags. Some models include their chain of thought in the output
// which must not leak into parsed results.
func StripReasoning(content string) string {
	reasoningStart := strings.Index(content, "<think>")
	if reasoningStart != -1 {
		reasoningEnd := strings.Index(content, "</think>")
		if reasoningEnd != -1 {
			content = content[:reasoningStart] + content[reasoningEnd+len("</think>"):]
		}
	}

	return strings.TrimSpace(content)
}
