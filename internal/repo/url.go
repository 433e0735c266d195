package repo

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrInvalidURL = errors.New("invalid github repository url")

// ParseURL splits a GitHub repository link into owner, name and an optional
// branch taken from a /tree/<branch> suffix.
func ParseURL(raw string) (owner, name, branch string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	host := strings.ToLower(u.Hostname())
	if host != "github.com" && host != "www.github.com" {
		return "", "", "", fmt.Errorf("%w: not a github url: %s", ErrInvalidURL, raw)
	}

	var parts []string
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return "", "", "", fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}
	owner = parts[0]
	name = strings.TrimSuffix(parts[1], ".git")
	if name == "" {
		return "", "", "", fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}
	if len(parts) > 3 && parts[2] == "tree" {
		branch = strings.Join(parts[3:], "/")
	}
	return owner, name, branch, nil
}
