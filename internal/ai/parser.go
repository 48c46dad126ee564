package ai

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/subhound/subhound/internal/common"
	"github.com/subhound/subhound/internal/model"
)

// parseClassification parses the line-oriented classification response.
// A response missing the SUBSCRIPTION line is malformed; a malformed
// response is never treated as "not a subscription".
func parseClassification(content string) (ClassificationResult, error) {
	var result ClassificationResult
	sawVerdict := false

	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "SUBSCRIPTION:"):
			value := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "SUBSCRIPTION:")))
			switch value {
			case "yes", "true":
				result.IsSubscription = true
			case "no", "false":
				result.IsSubscription = false
			default:
				return ClassificationResult{}, fmt.Errorf("%w: unrecognized verdict %q", common.ErrMalformedResponse, value)
			}
			sawVerdict = true
		case strings.HasPrefix(line, "CONFIDENCE:"):
			result.Confidence = parseScore(strings.TrimSpace(strings.TrimPrefix(line, "CONFIDENCE:")))
		case strings.HasPrefix(line, "CATEGORY:"):
			result.Category = strings.TrimSpace(strings.TrimPrefix(line, "CATEGORY:"))
		case strings.HasPrefix(line, "REASON:"):
			result.Reason = strings.TrimSpace(strings.TrimPrefix(line, "REASON:"))
		}
	}

	if !sawVerdict {
		return ClassificationResult{}, fmt.Errorf("%w: no SUBSCRIPTION line in response", common.ErrMalformedResponse)
	}

	return result, nil
}

// parseDuplicateAnalysis parses OVERLAP/UNIQUE lines.
func parseDuplicateAnalysis(content string) (model.DuplicateAnalysis, error) {
	analysis := model.DuplicateAnalysis{
		UniqueFeatures: make(map[string]string),
	}

	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "OVERLAP:"):
			analysis.Overlap = strings.TrimSpace(strings.TrimPrefix(line, "OVERLAP:"))
		case strings.HasPrefix(line, "UNIQUE "):
			rest := strings.TrimPrefix(line, "UNIQUE ")
			idx := strings.Index(rest, ":")
			if idx <= 0 {
				continue
			}
			merchant := strings.TrimSpace(rest[:idx])
			analysis.UniqueFeatures[merchant] = strings.TrimSpace(rest[idx+1:])
		}
	}

	if analysis.Overlap == "" {
		return model.DuplicateAnalysis{}, fmt.Errorf("%w: no OVERLAP line in response", common.ErrMalformedResponse)
	}

	return analysis, nil
}

// parseScore recovers a 0..1 score from common formatting slips
// (percentages, stray characters) before giving up and returning 0.
func parseScore(raw string) float64 {
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		if strings.HasSuffix(raw, "%") {
			percentStr := strings.TrimSpace(strings.TrimSuffix(raw, "%"))
			if percentVal, parseErr := strconv.ParseFloat(percentStr, 64); parseErr == nil {
				score = percentVal / 100.0
			}
		} else {
			cleaned := strings.Map(func(r rune) rune {
				if (r >= '0' && r <= '9') || r == '.' {
					return r
				}
				return -1
			}, raw)
			score, _ = strconv.ParseFloat(cleaned, 64)
		}
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
