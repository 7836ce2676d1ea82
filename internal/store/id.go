package store

import (
	"crypto/rand"
	"fmt"
)

const (
	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idSuffixLength = 4
	idMaxAttempts  = 20

	gitRepoIDPrefix    = "rp"
	taskGitRefIDPrefix = "gf"
)

// GenerateID returns a new canonical id of the form <prefix>-<4 base36
// chars>, retrying a bounded number of times against the provided exists
// probe.
func GenerateID(prefix string, exists func(string) (bool, error)) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("id prefix is required")
	}

	for i := 0; i < idMaxAttempts; i++ {
		suffix, err := randomBase36(idSuffixLength)
		if err != nil {
			return "", err
		}
		id := prefix + "-" + suffix
		if exists == nil {
			return id, nil
		}
		taken, err := exists(id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}

	return "", fmt.Errorf("unable to generate unique id with prefix %q", prefix)
}

// GenerateGitRepoID returns a new repo catalog id (rp- prefix).
func GenerateGitRepoID(exists func(string) (bool, error)) (string, error) {
	return GenerateID(gitRepoIDPrefix, exists)
}

// GenerateTaskGitRefID returns a new task git ref id (gf- prefix).
func GenerateTaskGitRefID(exists func(string) (bool, error)) (string, error) {
	return GenerateID(taskGitRefIDPrefix, exists)
}

func randomBase36(length int) (string, error) {
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i, b := range raw {
		out[i] = base36Alphabet[int(b)%len(base36Alphabet)]
	}
	return string(out), nil
}
