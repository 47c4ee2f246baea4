package githubapi

import (
	"fmt"
	"regexp"
	"strings"
)

// Identity is the (owner, name) pair uniquely naming a repository on the
// host. Both parts are opaque, case-sensitive strings; the host's own
// case-folding rules apply, so no normalization happens here.
type Identity struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// identityPattern matches the owner/name shape accepted by GitHub.
var identityPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// ValidationError describes a reference that failed the owner/name shape
// check. Batch drivers log and skip these instead of aborting.
type ValidationError struct {
	Ref    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid repository reference %q: %s", e.Ref, e.Reason)
}

// ParseIdentity parses an "owner/name" reference or a github.com URL into an
// Identity.
func ParseIdentity(ref string) (Identity, error) {
	cleaned := strings.TrimSpace(ref)
	for _, prefix := range []string{
		"https://www.github.com/",
		"http://www.github.com/",
		"https://github.com/",
		"http://github.com/",
	} {
		cleaned = strings.TrimPrefix(cleaned, prefix)
	}
	cleaned = strings.TrimSuffix(cleaned, ".git")
	cleaned = strings.TrimRight(cleaned, "/")

	if !identityPattern.MatchString(cleaned) {
		return Identity{}, &ValidationError{Ref: ref, Reason: "expected owner/name"}
	}
	owner, name, _ := strings.Cut(cleaned, "/")
	return Identity{Owner: owner, Name: name}, nil
}

// String returns the canonical owner/name form.
func (id Identity) String() string {
	return id.Owner + "/" + id.Name
}
