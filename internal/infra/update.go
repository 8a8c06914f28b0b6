package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Masterminds/semver/v3"
)

const (
	githubOwner   = "adscrub"
	githubRepo    = "adscrub"
	githubAPIPath = "/repos/%s/%s/releases/latest"
	githubAPIBase = "https://api.github.com"
	githubTimeout = 30 * time.Second
)

// ReleasesPageURL is where users fetch new builds; surfaced by the update
// command when a newer release exists.
const ReleasesPageURL = "https://github.com/adscrub/adscrub/releases"

// GitHubRelease represents a GitHub release response.
type GitHubRelease struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// UpdateCheck is the outcome of one update check.
type UpdateCheck struct {
	Current   string
	Latest    string
	Available bool
}

// UpdateChecker queries the GitHub releases API for the latest tag. It only
// reports; it never downloads or replaces the binary.
type UpdateChecker struct {
	client  *http.Client
	baseURL string
	owner   string
	repo    string
}

// NewUpdateChecker creates a checker against the public GitHub API.
func NewUpdateChecker() *UpdateChecker {
	return &UpdateChecker{
		client:  &http.Client{Timeout: githubTimeout},
		baseURL: githubAPIBase,
		owner:   githubOwner,
		repo:    githubRepo,
	}
}

// NewUpdateCheckerWithBaseURL creates a checker against a custom API base
// (for testing).
func NewUpdateCheckerWithBaseURL(baseURL string) *UpdateChecker {
	return &UpdateChecker{
		client:  &http.Client{Timeout: githubTimeout},
		baseURL: baseURL,
		owner:   githubOwner,
		repo:    githubRepo,
	}
}

// LatestRelease fetches the latest release info from GitHub.
func (c *UpdateChecker) LatestRelease(ctx context.Context) (*GitHubRelease, error) {
	url := c.baseURL + fmt.Sprintf(githubAPIPath, c.owner, c.repo)

	ctx, cancel := context.WithTimeout(ctx, githubTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "adscrub")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release GitHubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to parse release: %w", err)
	}

	return &release, nil
}

// Check compares the running version with the latest released tag.
func (c *UpdateChecker) Check(ctx context.Context, currentVersion string) (*UpdateCheck, error) {
	release, err := c.LatestRelease(ctx)
	if err != nil {
		return nil, err
	}

	available, err := IsNewer(release.TagName, currentVersion)
	if err != nil {
		return nil, err
	}

	return &UpdateCheck{
		Current:   currentVersion,
		Latest:    release.TagName,
		Available: available,
	}, nil
}

// IsNewer reports whether candidate is a strictly newer semver than current.
// Leading "v" prefixes are accepted on either side.
func IsNewer(candidate, current string) (bool, error) {
	cand, err := semver.NewVersion(candidate)
	if err != nil {
		return false, fmt.Errorf("bad release tag %q: %w", candidate, err)
	}
	cur, err := semver.NewVersion(current)
	if err != nil {
		return false, fmt.Errorf("bad current version %q: %w", current, err)
	}
	return cand.GreaterThan(cur), nil
}
