package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	sheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)
	driveIDPattern = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)
)

// Candidates resolves a source URL into the ordered list of URLs Fetch tries without a caller token.
func (c *Client) Candidates(source string) ([]string, error) {
	return c.candidates(source, false)
}

func (c *Client) candidates(source string, hasToken bool) ([]string, error) {
	u, err := url.Parse(strings.TrimSpace(source))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%q: %w", source, ErrInvalidSource)
	}

	switch {
	case u.Scheme == "s3":
		return c.s3Candidates(u.Host, strings.TrimPrefix(u.Path, "/"))
	case u.Scheme != "http" && u.Scheme != "https":
		return nil, fmt.Errorf("unsupported scheme %q: %w", u.Scheme, ErrInvalidSource)
	case u.Host == "docs.google.com" && sheetIDPattern.MatchString(u.Path):
		return sheetCandidates(sheetIDPattern.FindStringSubmatch(u.Path)[1], sheetGID(u)), nil
	case strings.HasSuffix(u.Host, "drive.google.com"):
		id := u.Query().Get("id")
		if m := driveIDPattern.FindStringSubmatch(u.Path); m != nil {
			id = m[1]
		}
		if id == "" {
			return nil, fmt.Errorf("no file id in drive url: %w", ErrInvalidSource)
		}
		return c.driveCandidates(id, hasToken || c.googleAPIKey != ""), nil
	}
	return []string{u.String()}, nil
}

func sheetGID(u *url.URL) string {
	if gid := u.Query().Get("gid"); gid != "" {
		return gid
	}
	// Sheet links usually carry the tab in the fragment: #gid=123.
	if strings.HasPrefix(u.Fragment, "gid=") {
		return strings.TrimPrefix(u.Fragment, "gid=")
	}
	return ""
}

func sheetCandidates(id, gid string) []string {
	base := "https://docs.google.com/spreadsheets/d/" + url.PathEscape(id)
	export := base + "/export?format=csv"
	gviz := base + "/gviz/tq?tqx=out:csv"
	if gid != "" {
		export += "&gid=" + url.QueryEscape(gid)
		gviz += "&gid=" + url.QueryEscape(gid)
	}
	return []string{export, gviz}
}

// driveCandidates never puts credentials in a URL; the Drive API candidate is authorized by driveAuth.
func (c *Client) driveCandidates(id string, withAPI bool) []string {
	q := url.QueryEscape(id)
	candidates := []string{
		"https://drive.google.com/uc?export=download&id=" + q,
		"https://drive.usercontent.google.com/download?id=" + q + "&export=download&confirm=t",
	}
	if withAPI {
		candidates = append(candidates, c.driveBaseURL+"/drive/v3/files/"+url.PathEscape(id)+"?alt=media")
	}
	return candidates
}

// driveAuth authorizes a Drive API request with the caller's token, or the server key when there is none.
func (c *Client) driveAuth(header http.Header, accessToken string) {
	switch {
	case accessToken != "":
		header.Set("Authorization", "Bearer "+accessToken)
	case c.googleAPIKey != "":
		header.Set("X-Goog-Api-Key", c.googleAPIKey)
	}
}

func (c *Client) s3Candidates(bucket, key string) ([]string, error) {
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("s3 url needs a bucket and a key: %w", ErrInvalidSource)
	}
	escaped := escapeKey(key)
	if c.s3Endpoint != "" {
		return []string{c.s3Endpoint + "/" + bucket + "/" + escaped}, nil
	}
	return []string{
		"https://" + bucket + ".s3.amazonaws.com/" + escaped,
		"https://s3.amazonaws.com/" + bucket + "/" + escaped,
	}, nil
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// Fetch downloads source, trying each candidate URL in order until one returns a non-HTML 2xx body.
// A Drive access token attached with WithAccessToken is used for the Drive API candidate.
func (c *Client) Fetch(ctx context.Context, source string) (*Object, error) {
	candidates, err := c.candidates(source, accessTokenFrom(ctx) != "")
	if err != nil {
		return nil, err
	}
	return c.fetchFirst(ctx, candidates)
}

func (c *Client) fetchFirst(ctx context.Context, candidates []string) (*Object, error) {
	var errs []error
	for _, candidate := range candidates {
		obj, err := c.fetchOne(ctx, candidate)
		if err == nil {
			return obj, nil
		}
		if errors.Is(err, ErrTooLarge) || ctx.Err() != nil {
			return nil, err
		}
		log.Debug().Err(err).Str("url", candidate).Msg("Storage candidate failed")
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("all %d candidates failed: %w", len(candidates), errors.Join(errs...))
}

func (c *Client) fetchOne(ctx context.Context, target string) (*Object, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if strings.HasPrefix(target, c.driveBaseURL+"/drive/") {
		c.driveAuth(req.Header, accessTokenFrom(ctx))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: HTTP %d", target, resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/html") {
		return nil, fmt.Errorf("GET %s: got an HTML page instead of a file", target)
	}
	if resp.ContentLength > c.maxBytes {
		return nil, fmt.Errorf("%s is %d bytes: %w", target, resp.ContentLength, ErrTooLarge)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", target, err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("%s is larger than %d bytes: %w", target, c.maxBytes, ErrTooLarge)
	}
	return &Object{URL: target, ContentType: contentType, Body: body}, nil
}
