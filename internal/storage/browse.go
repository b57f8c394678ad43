package storage

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
)

// maxListPages caps how many result pages a single listing follows.
const maxListPages = 10

const driveFolderMimeType = "application/vnd.google-apps.folder"

// S3Query selects a bucket prefix to list.
type S3Query struct {
	Bucket string `json:"bucket" validate:"required"`
	Region string `json:"region"`
	Prefix string `json:"prefix"`
}

type listBucketResult struct {
	XMLName               xml.Name `xml:"ListBucketResult"`
	IsTruncated           bool     `xml:"IsTruncated"`
	NextContinuationToken string   `xml:"NextContinuationToken"`
	Contents              []struct {
		Key          string    `xml:"Key"`
		Size         int64     `xml:"Size"`
		LastModified time.Time `xml:"LastModified"`
	} `xml:"Contents"`
	CommonPrefixes []struct {
		Prefix string `xml:"Prefix"`
	} `xml:"CommonPrefixes"`
}

func (c *Client) s3ListURL(q S3Query) string {
	if c.s3Endpoint != "" {
		return c.s3Endpoint + "/" + url.PathEscape(q.Bucket)
	}
	region := q.Region
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", q.Bucket, region)
}

// BrowseS3 lists the folders and objects directly under a prefix of a public bucket.
func (c *Client) BrowseS3(ctx context.Context, q S3Query) ([]Entry, error) {
	if q.Bucket == "" || strings.ContainsAny(q.Bucket, "/?#") {
		return nil, fmt.Errorf("bucket %q: %w", q.Bucket, ErrInvalidSource)
	}

	entries := []Entry{}
	token := ""
	for page := 0; page < maxListPages; page++ {
		params := url.Values{}
		params.Set("list-type", "2")
		params.Set("delimiter", "/")
		params.Set("prefix", q.Prefix)
		if token != "" {
			params.Set("continuation-token", token)
		}

		var result listBucketResult
		if err := c.getDecode(ctx, c.s3ListURL(q)+"?"+params.Encode(), nil, func(r io.Reader) error {
			return xml.NewDecoder(r).Decode(&result)
		}); err != nil {
			return nil, fmt.Errorf("s3 list %s: %w", q.Bucket, err)
		}

		for _, p := range result.CommonPrefixes {
			entries = append(entries, Entry{
				Name:     path.Base(strings.TrimSuffix(p.Prefix, "/")),
				Path:     p.Prefix,
				IsFolder: true,
			})
		}
		for _, obj := range result.Contents {
			if obj.Key == q.Prefix {
				continue
			}
			modified := obj.LastModified.UTC()
			entries = append(entries, Entry{
				Name:         path.Base(obj.Key),
				Path:         obj.Key,
				Size:         obj.Size,
				LastModified: &modified,
			})
		}
		if !result.IsTruncated || result.NextContinuationToken == "" {
			break
		}
		token = result.NextContinuationToken
	}
	return entries, nil
}

// DriveQuery selects a Drive folder to list. AccessToken is optional when an API key is configured.
type DriveQuery struct {
	FolderID    string `json:"folderId" validate:"required"`
	AccessToken string `json:"-"`
}

type driveFileList struct {
	NextPageToken string `json:"nextPageToken"`
	Files         []struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		MimeType     string    `json:"mimeType"`
		Size         string    `json:"size"`
		ModifiedTime time.Time `json:"modifiedTime"`
	} `json:"files"`
}

// BrowseDrive lists the files of a Google Drive folder.
func (c *Client) BrowseDrive(ctx context.Context, q DriveQuery) ([]Entry, error) {
	if q.FolderID == "" || strings.ContainsAny(q.FolderID, "'\\") {
		return nil, fmt.Errorf("folder %q: %w", q.FolderID, ErrInvalidSource)
	}
	if q.AccessToken == "" && c.googleAPIKey == "" {
		return nil, fmt.Errorf("drive browsing needs an API key or access token: %w", ErrInvalidSource)
	}

	header := http.Header{}
	c.driveAuth(header, q.AccessToken)

	entries := []Entry{}
	token := ""
	for page := 0; page < maxListPages; page++ {
		params := url.Values{}
		params.Set("q", fmt.Sprintf("'%s' in parents and trashed = false", q.FolderID))
		params.Set("fields", "nextPageToken, files(id, name, mimeType, size, modifiedTime)")
		params.Set("pageSize", "100")
		params.Set("orderBy", "folder,name")
		if token != "" {
			params.Set("pageToken", token)
		}

		var list driveFileList
		if err := c.getDecode(ctx, c.driveBaseURL+"/drive/v3/files?"+params.Encode(), header, func(r io.Reader) error {
			return json.NewDecoder(r).Decode(&list)
		}); err != nil {
			return nil, fmt.Errorf("drive list %s: %w", q.FolderID, err)
		}

		for _, f := range list.Files {
			size, _ := strconv.ParseInt(f.Size, 10, 64)
			e := Entry{
				ID:       f.ID,
				Name:     f.Name,
				Path:     "https://drive.google.com/file/d/" + f.ID + "/view",
				Size:     size,
				MimeType: f.MimeType,
				IsFolder: f.MimeType == driveFolderMimeType,
			}
			if !f.ModifiedTime.IsZero() {
				modified := f.ModifiedTime.UTC()
				e.LastModified = &modified
			}
			if e.IsFolder {
				e.Path = f.ID
			}
			entries = append(entries, e)
		}
		if list.NextPageToken == "" {
			break
		}
		token = list.NextPageToken
	}
	return entries, nil
}

func (c *Client) getDecode(ctx context.Context, target string, header http.Header, decode func(io.Reader) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return decode(io.LimitReader(resp.Body, c.maxBytes))
}
