package services

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/zapstore/releastr/internal/domain/entities"
)

// supportedHosts lists repository hosts with a gateway implementation
var supportedHosts = map[string]bool{
	"github.com": true,
}

// ParseRepositoryRef parses a repository web URL such as https://github.com/owner/name
func ParseRepositoryRef(raw string) (entities.RepoRef, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return entities.RepoRef{}, &InputError{Err: fmt.Errorf("invalid repository URL %q", raw)}
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if !supportedHosts[host] {
		return entities.RepoRef{}, inputErrorf(ErrUnsupportedHost, "%s", host)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return entities.RepoRef{}, &InputError{Err: fmt.Errorf("repository URL %q must name owner and repository", raw)}
	}

	return entities.RepoRef{
		Host:  host,
		Owner: parts[0],
		Name:  strings.TrimSuffix(parts[1], ".git"),
	}, nil
}
