// Package github implements vcs.Provider against the GitHub REST API
// using go-resty for transport.
package github

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/autorevd/autorev/internal/vcs"
)

func init() {
	vcs.Register("github", NewProvider)
}

// Provider implements vcs.Provider for GitHub.
type Provider struct {
	client  *resty.Client
	baseURL string
	token   string
}

// NewProvider creates a GitHub provider. The token must be pre-obtained;
// token lifecycle is out of scope.
func NewProvider(token, baseURL string) (vcs.Provider, error) {
	if token == "" {
		return nil, fmt.Errorf("github: token is required")
	}
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetAuthToken(token).
		SetHeader("Accept", "application/vnd.github+json").
		SetHeader("User-Agent", "autorev")

	return &Provider{client: client, baseURL: baseURL, token: token}, nil
}

func (p *Provider) Info() vcs.ProviderInfo {
	return vcs.ProviderInfo{Name: "github", BaseURL: p.baseURL}
}

func (p *Provider) Validate() error {
	if p.token == "" {
		return fmt.Errorf("github: token is required")
	}
	return nil
}

// pullResponse is the subset of the GitHub pull-request payload we use.
type pullResponse struct {
	Number int64  `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
	User   struct {
		Login string `json:"login"`
	} `json:"user"`
	Head struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	} `json:"head"`
	Base struct {
		Ref string `json:"ref"`
	} `json:"base"`
	HTMLURL string `json:"html_url"`
}

func toChangeSet(pr *pullResponse) *vcs.ChangeSet {
	return &vcs.ChangeSet{
		Number:     pr.Number,
		Title:      pr.Title,
		Author:     pr.User.Login,
		BaseBranch: pr.Base.Ref,
		HeadBranch: pr.Head.Ref,
		HeadSHA:    pr.Head.SHA,
		State:      pr.State,
		WebURL:     pr.HTMLURL,
	}
}

func (p *Provider) FetchChangeSet(ctx context.Context, repo string, number int64) (*vcs.ChangeSet, error) {
	var pr pullResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetResult(&pr).
		Get(fmt.Sprintf("/repos/%s/pulls/%d", repo, number))
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("github: failed to fetch PR #%d: %w", number, err)
	}
	return toChangeSet(&pr), nil
}

func (p *Provider) FindChangeSetsByBranch(ctx context.Context, repo, headBranch string) ([]*vcs.ChangeSet, error) {
	owner := repo
	if i := strings.Index(repo, "/"); i > 0 {
		owner = repo[:i]
	}

	var prs []pullResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"state":    "open",
			"head":     owner + ":" + headBranch,
			"per_page": "100",
		}).
		SetResult(&prs).
		Get(fmt.Sprintf("/repos/%s/pulls", repo))
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("github: failed to list PRs for branch %q: %w", headBranch, err)
	}

	var out []*vcs.ChangeSet
	for i := range prs {
		if prs[i].Head.Ref == headBranch {
			out = append(out, toChangeSet(&prs[i]))
		}
	}
	return out, nil
}

func (p *Provider) FetchRawDiff(ctx context.Context, repo string, number int64) (string, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/vnd.github.v3.diff").
		Get(fmt.Sprintf("/repos/%s/pulls/%d", repo, number))
	if err := checkResponse(resp, err); err != nil {
		return "", fmt.Errorf("github: failed to fetch PR diff: %w", err)
	}
	return string(resp.Body()), nil
}

func (p *Provider) ListChangedPaths(ctx context.Context, repo string, number int64) ([]string, error) {
	type prFile struct {
		Filename string `json:"filename"`
	}

	var paths []string
	page := 1
	for {
		var files []prFile
		resp, err := p.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"per_page": "100",
				"page":     fmt.Sprintf("%d", page),
			}).
			SetResult(&files).
			Get(fmt.Sprintf("/repos/%s/pulls/%d/files", repo, number))
		if err := checkResponse(resp, err); err != nil {
			return nil, fmt.Errorf("github: failed to list PR files: %w", err)
		}

		for _, f := range files {
			paths = append(paths, f.Filename)
		}

		if !hasNextPage(resp.Header().Get("Link")) {
			break
		}
		page++
	}

	return paths, nil
}

func (p *Provider) FetchFileContent(ctx context.Context, repo, ref, path string) (string, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/vnd.github.raw+json").
		SetQueryParam("ref", ref).
		Get(fmt.Sprintf("/repos/%s/contents/%s", repo, path))
	if err := checkResponse(resp, err); err != nil {
		return "", fmt.Errorf("github: failed to fetch %s@%s: %w", path, ref, err)
	}
	return string(resp.Body()), nil
}

func (p *Provider) PostLineComment(ctx context.Context, repo string, number int64, headSHA string, comment vcs.LineComment) error {
	if headSHA == "" {
		return fmt.Errorf("github: missing head SHA for line comment")
	}
	if comment.Line <= 0 {
		return fmt.Errorf("github: invalid line number for line comment")
	}

	payload := map[string]interface{}{
		"body":      comment.Body,
		"commit_id": headSHA,
		"path":      comment.Path,
		"line":      comment.Line,
		"side":      "RIGHT",
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(fmt.Sprintf("/repos/%s/pulls/%d/comments", repo, number))
	if err := checkResponse(resp, err); err != nil {
		return fmt.Errorf("github: failed to post line comment: %w", err)
	}
	return nil
}

func (p *Provider) PostSummaryComment(ctx context.Context, repo string, number int64, body string) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"body": body}).
		Post(fmt.Sprintf("/repos/%s/issues/%d/comments", repo, number))
	if err := checkResponse(resp, err); err != nil {
		return fmt.Errorf("github: failed to post summary comment: %w", err)
	}
	return nil
}

// FormatSuggestionBlock returns a GitHub-native suggestion code block.
func (p *Provider) FormatSuggestionBlock(suggestion string) string {
	return "```suggestion\n" + suggestion + "\n```"
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode(), strings.TrimSpace(string(resp.Body())))
	}
	return nil
}

func hasNextPage(linkHeader string) bool {
	if linkHeader == "" {
		return false
	}
	for _, part := range strings.Split(linkHeader, ",") {
		if strings.Contains(part, `rel="next"`) {
			return true
		}
	}
	return false
}
