package syncjobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ErrUserNotFound is returned for an unknown GitHub login.
var ErrUserNotFound = errors.New("github user not found")

// PerPage is the contributor page size.
const PerPage = 100

// GitHub is a minimal client for the public REST API.
type GitHub struct {
	client  *http.Client
	baseURL string
}

// NewGitHub creates a client for the API at baseURL.
func NewGitHub(client *http.Client, baseURL string) *GitHub {
	if client == nil {
		client = http.DefaultClient
	}
	return &GitHub{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (g *GitHub) get(ctx context.Context, path string, query url.Values, out any) (int, error) {
	u := g.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s: %w", path, err)
	}
	return resp.StatusCode, nil
}

// Contributors returns the logins on one page of a repository's
// contributor list. An empty result marks the end.
func (g *GitHub) Contributors(ctx context.Context, repo string, page int) ([]string, error) {
	var body []struct {
		Login string `json:"login"`
	}
	query := url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(PerPage)},
	}
	if _, err := g.get(ctx, "/repos/"+repo+"/contributors", query, &body); err != nil {
		return nil, err
	}
	logins := make([]string, 0, len(body))
	for _, c := range body {
		if c.Login != "" {
			logins = append(logins, c.Login)
		}
	}
	return logins, nil
}

// UserBio returns the profile bio of login.
func (g *GitHub) UserBio(ctx context.Context, login string) (string, error) {
	var body struct {
		Bio *string `json:"bio"`
	}
	status, err := g.get(ctx, "/users/"+url.PathEscape(login), nil, &body)
	if status == http.StatusNotFound {
		return "", fmt.Errorf("%s: %w", login, ErrUserNotFound)
	}
	if err != nil {
		return "", err
	}
	if body.Bio == nil {
		return "", nil
	}
	return *body.Bio, nil
}
