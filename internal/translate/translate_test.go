package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name  string
	text  string
	err   error
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Translate(ctx context.Context, req Request) (string, error) {
	s.calls++
	return s.text, s.err
}

func TestChainFirstSuccessWins(t *testing.T) {
	first := &stubProvider{name: "a", err: errors.New("quota exceeded")}
	second := &stubProvider{name: "b", text: "hola"}
	third := &stubProvider{name: "c", text: "never"}

	res, err := NewChain(first, second, third).Translate(context.Background(), Request{Text: "hello", Target: "es"})
	require.NoError(t, err)
	assert.Equal(t, Result{Text: "hola", Provider: "b"}, res)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, third.calls)
}

func TestChainSkipsEmptyTranslations(t *testing.T) {
	res, err := NewChain(&stubProvider{name: "a", text: "  "}, &stubProvider{name: "b", text: "ok"}).
		Translate(context.Background(), Request{Text: "x", Target: "de"})
	require.NoError(t, err)
	assert.Equal(t, "b", res.Provider)
}

func TestChainAllFail(t *testing.T) {
	errA := errors.New("a down")
	errB := errors.New("b down")
	_, err := NewChain(&stubProvider{name: "a", err: errA}, &stubProvider{name: "b", err: errB}).
		Translate(context.Background(), Request{Text: "x", Target: "fr"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestChainValidation(t *testing.T) {
	chain := NewChain(&stubProvider{name: "a", text: "ok"})
	_, err := chain.Translate(context.Background(), Request{Text: " ", Target: "fr"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = chain.Translate(context.Background(), Request{Text: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewChain().Translate(context.Background(), Request{Text: "x", Target: "fr"})
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestNewSelectsConfiguredProviders(t *testing.T) {
	chain, err := New(context.Background(), Options{LibreTranslateURL: "http://libre", MyMemoryEnabled: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"libretranslate", "mymemory"}, chain.Providers())

	chain, err = New(context.Background(), Options{})
	require.NoError(t, err)
	assert.Empty(t, chain.Providers())
}

func TestGoogleProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/language/translate/v2", r.URL.Path)
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ja", body["target"])
		w.Write([]byte(`{"data":{"translations":[{"translatedText":"Tom &amp; Jerry"}]}}`))
	}))
	defer srv.Close()

	g := &Google{APIKey: "k", BaseURL: srv.URL}
	text, err := g.Translate(context.Background(), Request{Text: "Tom & Jerry", Target: "ja"})
	require.NoError(t, err)
	assert.Equal(t, "Tom & Jerry", text)
}

func TestLibreProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/translate", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "auto", body["source"])
		assert.Equal(t, "secret", body["api_key"])
		w.Write([]byte(`{"translatedText":"bonjour"}`))
	}))
	defer srv.Close()

	text, err := NewLibre(srv.URL+"/", "secret").Translate(context.Background(), Request{Text: "hello", Target: "fr"})
	require.NoError(t, err)
	assert.Equal(t, "bonjour", text)
}

func TestLibreProviderHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"Slowdown"}`))
	}))
	defer srv.Close()

	_, err := NewLibre(srv.URL, "").Translate(context.Background(), Request{Text: "hello", Target: "fr"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 429")
}

func TestMyMemoryProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("langpair") {
		case "en|it":
			w.Write([]byte(`{"responseData":{"translatedText":"ciao"},"responseStatus":200}`))
		default:
			w.Write([]byte(`{"responseData":{"translatedText":""},"responseStatus":"403","responseDetails":"INVALID LANGUAGE PAIR"}`))
		}
	}))
	defer srv.Close()

	m := &MyMemory{BaseURL: srv.URL}
	text, err := m.Translate(context.Background(), Request{Text: "hello", Source: "en", Target: "it"})
	require.NoError(t, err)
	assert.Equal(t, "ciao", text)

	_, err = m.Translate(context.Background(), Request{Text: "hello", Target: "xx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID LANGUAGE PAIR")
}
