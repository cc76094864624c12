package main

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

func getTokenCount(content string) int {
	return llms.CountTokens(visionModel, content)
}

// truncateContentByTokens truncates content so that its token count does not
// exceed the configured tokenLimit. A binary search on runes finds the
// longest prefix within the limit. With the limit disabled the content is
// returned unchanged.
func truncateContentByTokens(content string) (string, error) {
	if tokenLimit <= 0 {
		return content, nil
	}
	if getTokenCount(content) <= tokenLimit {
		return content, nil
	}

	runes := []rune(content)
	low := 0
	high := len(runes)
	validCut := 0

	for low <= high {
		mid := (low + high) / 2
		if getTokenCount(string(runes[:mid])) <= tokenLimit {
			validCut = mid
			low = mid + 1
		} else {
			high = mid - 1
		}
	}

	truncated := string(runes[:validCut])
	if getTokenCount(truncated) > tokenLimit {
		return "", fmt.Errorf("truncated content still exceeds the token limit")
	}
	log.Debugf("Truncated prompt content from %d to %d runes", len(runes), validCut)
	return truncated, nil
}
