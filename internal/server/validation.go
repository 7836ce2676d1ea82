package server

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/untoldecay/grns/internal/models"
)

var (
	taskIDRe    = regexp.MustCompile(`^[a-z]{2}-[0-9a-z]{4}$`)
	gitRefIDRe  = regexp.MustCompile(`^gf-[0-9a-z]{4}$`)
	prefixRe    = regexp.MustCompile(`^[a-z]{2}$`)
	customKeyRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)
)

const maxLabelLength = 64

func validateID(id string) *apiError {
	if strings.TrimSpace(id) == "" {
		return badRequestCode(ErrCodeMissingRequired, "task id is required")
	}
	if !taskIDRe.MatchString(id) {
		return badRequestCode(ErrCodeInvalidID, "invalid task id %q", id)
	}
	return nil
}

func validateGitRefID(id string) *apiError {
	if strings.TrimSpace(id) == "" {
		return badRequestCode(ErrCodeMissingRequired, "git ref id is required")
	}
	if !gitRefIDRe.MatchString(id) {
		return badRequestCode(ErrCodeInvalidID, "invalid git ref id %q", id)
	}
	return nil
}

// normalizeStatus lowercases and validates a status string. Empty input
// returns empty with no error so callers can apply defaults.
func normalizeStatus(raw string) (string, *apiError) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return "", nil
	}
	status, err := models.ParseTaskStatus(raw)
	if err != nil {
		return "", badRequestCode(ErrCodeInvalidStatus, "invalid status %q", raw)
	}
	return string(status), nil
}

func normalizeType(raw string) (string, *apiError) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return "", nil
	}
	taskType, err := models.ParseTaskType(raw)
	if err != nil {
		return "", badRequestCode(ErrCodeInvalidType, "invalid type %q", raw)
	}
	return string(taskType), nil
}

func validatePriority(p int) *apiError {
	if !models.ValidPriority(p) {
		return badRequestCode(ErrCodeInvalidPriority, "priority must be between %d and %d", models.PriorityMin, models.PriorityMax)
	}
	return nil
}

// normalizeLabel lowercases a label. Any non-space ASCII text is a valid
// label, including ones that begin with - or _.
func normalizeLabel(raw string) (string, *apiError) {
	label := strings.ToLower(strings.TrimSpace(raw))
	if label == "" {
		return "", badRequestCode(ErrCodeInvalidLabel, "label must not be empty")
	}
	if len(label) > maxLabelLength {
		return "", badRequestCode(ErrCodeInvalidLabel, "label %q exceeds %d characters", label, maxLabelLength)
	}
	for _, r := range label {
		if r > unicode.MaxASCII || unicode.IsSpace(r) {
			return "", badRequestCode(ErrCodeInvalidLabel, "label %q must be ascii with no spaces", raw)
		}
	}
	return label, nil
}

// normalizeLabels normalizes and dedupes while preserving first-seen order.
func normalizeLabels(raw []string) ([]string, *apiError) {
	seen := make(map[string]bool, len(raw))
	labels := make([]string, 0, len(raw))
	for _, r := range raw {
		label, ae := normalizeLabel(r)
		if ae != nil {
			return nil, ae
		}
		if seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}
	return labels, nil
}

func normalizePrefix(raw string) (string, *apiError) {
	prefix := strings.ToLower(strings.TrimSpace(raw))
	if !prefixRe.MatchString(prefix) {
		return "", badRequest("project prefix must be two lowercase letters, got %q", raw)
	}
	return prefix, nil
}

func validateCustomFields(custom map[string]string) *apiError {
	for key := range custom {
		if !customKeyRe.MatchString(key) {
			return badRequest("invalid custom field key %q", key)
		}
	}
	return nil
}

// parseFlexibleTime accepts RFC 3339 timestamps, bare dates, and relative
// durations such as "30d" or "12h" counted back from now.
func parseFlexibleTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), nil
	}
	if strings.HasSuffix(raw, "d") {
		if days, err := strconv.Atoi(strings.TrimSuffix(raw, "d")); err == nil && days >= 0 {
			return time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour), nil
		}
	}
	if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
		return time.Now().UTC().Add(-d), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time value %q", raw)
}

// splitCSV splits a comma separated query value, dropping empty entries.
func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func queryInt(values url.Values, key string) (*int, *apiError) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, badRequestCode(ErrCodeInvalidQuery, "query parameter %q must be an integer", key)
	}
	return &n, nil
}

func queryBool(values url.Values, key string) bool {
	raw := strings.ToLower(strings.TrimSpace(values.Get(key)))
	return raw == "1" || raw == "true" || raw == "yes"
}

func queryTime(values url.Values, key string) (*time.Time, *apiError) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil, nil
	}
	t, err := parseFlexibleTime(raw)
	if err != nil {
		return nil, badRequestCode(ErrCodeInvalidTimeFilter, "invalid time filter %q: %v", key, err)
	}
	return &t, nil
}
