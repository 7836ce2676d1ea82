package server

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// Builtin git ref relations. Anything else must use an x- extension prefix.
var builtinGitRelations = map[string]bool{
	"design_doc":    true,
	"implements":    true,
	"fix_commit":    true,
	"closed_by":     true,
	"introduced_by": true,
	"related":       true,
}

var (
	gitRelationRe = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)
	commitHashRe  = regexp.MustCompile(`^[0-9a-f]{40}$`)
)

// canonicalGitRepoSlug reduces a repo reference to the canonical
// host/owner/name slug. It accepts https-style URLs, scp-style remotes
// (git@host:owner/name.git), and already canonical slugs.
func canonicalGitRepoSlug(raw string) (string, *apiError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", badRequestCode(ErrCodeMissingRequired, "repo is required")
	}
	if strings.ContainsAny(raw, " \t\r\n") {
		return "", badRequest("repo %q must not contain whitespace", raw)
	}

	var slug string
	switch {
	case strings.Contains(raw, "://"):
		rest := raw[strings.Index(raw, "://")+3:]
		if at := strings.LastIndex(rest, "@"); at >= 0 {
			rest = rest[at+1:]
		}
		slug = rest
	case strings.Contains(raw, "@") && strings.Contains(raw, ":"):
		rest := raw[strings.Index(raw, "@")+1:]
		slug = strings.Replace(rest, ":", "/", 1)
	default:
		slug = raw
	}

	// Trim slashes before stripping .git so a trailing slash cannot shield
	// the suffix; canonicalizing a canonical slug is a no-op.
	slug = strings.Trim(strings.ToLower(slug), "/")
	slug = strings.TrimSuffix(slug, ".git")

	parts := strings.Split(slug, "/")
	if len(parts) != 3 {
		return "", badRequest("repo %q must canonicalize to host/owner/name", raw)
	}
	for _, part := range parts {
		if part == "" {
			return "", badRequest("repo %q must canonicalize to host/owner/name", raw)
		}
	}
	return slug, nil
}

// normalizeGitRelation validates a relation name, lowercasing first.
func normalizeGitRelation(raw string) (string, *apiError) {
	relation := strings.ToLower(strings.TrimSpace(raw))
	if relation == "" {
		return "", badRequestCode(ErrCodeMissingRequired, "relation is required")
	}
	if builtinGitRelations[relation] {
		return relation, nil
	}
	if strings.HasPrefix(relation, "x-") && gitRelationRe.MatchString(relation) {
		return relation, nil
	}
	return "", badRequest("invalid relation %q: use a builtin relation or an x- extension", raw)
}

// normalizeGitObjectValue validates an object value against its type.
// Commits must be full lowercase hex hashes, paths must be clean
// repo-relative slash paths, branches and tags must be whitespace free.
func normalizeGitObjectValue(objectType, raw string) (string, *apiError) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", badRequestCode(ErrCodeMissingRequired, "object_value is required")
	}

	switch objectType {
	case "commit", "blob", "tree":
		value = strings.ToLower(value)
		if !commitHashRe.MatchString(value) {
			return "", badRequest("%s %q must be a 40 character hex hash", objectType, raw)
		}
		return value, nil
	case "path":
		cleaned := filepath.ToSlash(filepath.Clean(value))
		if strings.HasPrefix(cleaned, "/") || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
			return "", badRequest("path %q must be repo relative", raw)
		}
		return path.Clean(cleaned), nil
	case "branch", "tag":
		if strings.ContainsAny(value, " \t\r\n") {
			return "", badRequest("%s %q must not contain whitespace", objectType, raw)
		}
		return value, nil
	default:
		return "", badRequest("invalid object_type %q", objectType)
	}
}

// normalizeCommitHash validates an optional commit hash, returning empty for
// empty input.
func normalizeCommitHash(raw string) (string, *apiError) {
	hash := strings.ToLower(strings.TrimSpace(raw))
	if hash == "" {
		return "", nil
	}
	if !commitHashRe.MatchString(hash) {
		return "", badRequest("commit %q must be a 40 character hex hash", raw)
	}
	return hash, nil
}
