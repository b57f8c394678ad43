package translate

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

func httpClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: defaultTimeout}
}

// Google calls the Cloud Translation v2 REST API.
type Google struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

// NewGoogle returns a Google provider, or nil without an API key.
func NewGoogle(apiKey string) *Google {
	if apiKey == "" {
		return nil
	}
	return &Google{APIKey: apiKey, BaseURL: "https://translation.googleapis.com"}
}

func (g *Google) Name() string { return "google" }

func (g *Google) Translate(ctx context.Context, req Request) (string, error) {
	body := map[string]string{"q": req.Text, "target": req.Target, "format": "text"}
	if req.Source != "" {
		body["source"] = req.Source
	}
	var out struct {
		Data struct {
			Translations []struct {
				TranslatedText string `json:"translatedText"`
			} `json:"translations"`
		} `json:"data"`
	}
	endpoint := g.BaseURL + "/language/translate/v2?key=" + url.QueryEscape(g.APIKey)
	if err := doJSON(ctx, httpClient(g.Client), http.MethodPost, endpoint, body, &out); err != nil {
		return "", err
	}
	if len(out.Data.Translations) == 0 {
		return "", errors.New("no translations returned")
	}
	return html.UnescapeString(out.Data.Translations[0].TranslatedText), nil
}

// Libre calls a LibreTranslate instance.
type Libre struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewLibre returns a LibreTranslate provider, or nil without a base URL.
func NewLibre(baseURL, apiKey string) *Libre {
	if baseURL == "" {
		return nil
	}
	return &Libre{BaseURL: strings.TrimRight(baseURL, "/"), APIKey: apiKey}
}

func (l *Libre) Name() string { return "libretranslate" }

func (l *Libre) Translate(ctx context.Context, req Request) (string, error) {
	source := req.Source
	if source == "" {
		source = "auto"
	}
	body := map[string]string{"q": req.Text, "source": source, "target": req.Target, "format": "text"}
	if l.APIKey != "" {
		body["api_key"] = l.APIKey
	}
	var out struct {
		TranslatedText string `json:"translatedText"`
		Error          string `json:"error"`
	}
	if err := doJSON(ctx, httpClient(l.Client), http.MethodPost, l.BaseURL+"/translate", body, &out); err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", errors.New(out.Error)
	}
	return out.TranslatedText, nil
}

// MyMemory calls the free MyMemory endpoint.
type MyMemory struct {
	BaseURL string
	Client  *http.Client
}

// NewMyMemory returns a MyMemory provider, or nil when disabled.
func NewMyMemory(enabled bool) *MyMemory {
	if !enabled {
		return nil
	}
	return &MyMemory{BaseURL: "https://api.mymemory.translated.net"}
}

func (m *MyMemory) Name() string { return "mymemory" }

func (m *MyMemory) Translate(ctx context.Context, req Request) (string, error) {
	source := req.Source
	if source == "" {
		source = "autodetect"
	}
	params := url.Values{}
	params.Set("q", req.Text)
	params.Set("langpair", source+"|"+req.Target)

	var out struct {
		ResponseData struct {
			TranslatedText string `json:"translatedText"`
		} `json:"responseData"`
		// MyMemory reports the status as a number or a string depending on the error.
		ResponseStatus  interface{} `json:"responseStatus"`
		ResponseDetails string      `json:"responseDetails"`
	}
	if err := doJSON(ctx, httpClient(m.Client), http.MethodGet, m.BaseURL+"/get?"+params.Encode(), nil, &out); err != nil {
		return "", err
	}
	if status := fmt.Sprint(out.ResponseStatus); status != "200" {
		return "", fmt.Errorf("status %s: %s", status, out.ResponseDetails)
	}
	return out.ResponseData.TranslatedText, nil
}
