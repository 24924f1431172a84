package collector

import (
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// HttpClient is the shared outbound HTTP surface for fetchers that need raw
// bodies (benchmark JSON APIs, leaderboard pages).
type HttpClient struct{}

func (c HttpClient) Get(uri string) (resp *http.Response, err error) {
	return c.GetWithin(uri, int(RequestTimeout/time.Second))
}

func (HttpClient) GetWithin(uri string, seconds int) (resp *http.Response, err error) {
	client := &http.Client{Timeout: time.Duration(seconds) * time.Second}
	return client.Get(uri)
}

// FetchText does a GET and returns the body as text.
func (c HttpClient) FetchText(uri string) (string, error) {
	resp, err := c.Get(uri)
	if err != nil {
		return "", errors.Wrapf(err, "get %s", uri)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("get %s: status %d", uri, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrapf(err, "read %s", uri)
	}
	return string(body), nil
}
