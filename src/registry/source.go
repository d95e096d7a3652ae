package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/juju/errors"

	"github.com/stake-plus/solana-dao-radar/src/webclient"
)

const (
	DefaultURL       = "https://raw.githubusercontent.com/solana-labs/governance-ui/main/public/realms/mainnet-beta.json"
	DefaultImageBase = "https://app.realms.today"

	fetchTimeout = 15 * time.Second
	maxBody      = 16 << 20
)

// Source produces the full registry list.
type Source interface {
	Fetch(ctx context.Context) ([]Entry, error)
}

// HTTPSource downloads the registry JSON.
type HTTPSource struct {
	url       string
	imageBase string
	client    *http.Client
}

func NewHTTPSource(url, imageBase string, client *http.Client) *HTTPSource {
	if url == "" {
		url = DefaultURL
	}
	if imageBase == "" {
		imageBase = DefaultImageBase
	}
	if client == nil {
		client = webclient.NewDefault(fetchTimeout)
	}
	return &HTTPSource{url: url, imageBase: imageBase, client: client}
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	_, body, err := webclient.DoWithRetry(ctx, 2, time.Second, func() (int, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Accept", "application/json")
		resp, err := s.client.Do(req)
		if err != nil {
			return 0, nil, err
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		if err != nil {
			return resp.StatusCode, nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, b, fmt.Errorf("registry returned status %d", resp.StatusCode)
		}
		return resp.StatusCode, b, nil
	})
	if err != nil {
		return nil, errors.Annotate(err, "fetch registry")
	}
	return ParseEntries(body, s.imageBase)
}
