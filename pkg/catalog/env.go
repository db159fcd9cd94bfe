package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/gsconfig-go/gsconfig/internal/devseed"
	"github.com/gsconfig-go/gsconfig/pkg/catalog/mock"
)

const (
	envMode       = "GSCONFIG_RUNTIME_MODE"
	envServiceURL = "GEOSERVER_REST_URL"
	envUser       = "GEOSERVER_USER"
	envPassword   = "GEOSERVER_PASSWORD"
	envMockSeed   = "GSCONFIG_MOCK_SEED"

	modeAuto = "auto"
	modeHTTP = "http"
	modeMock = "mock"
)

// NewFromEnv initialises a Catalog from environment variables and returns
// the resolved mode ("http" or "mock"). In auto mode (the default) a set
// GEOSERVER_REST_URL selects HTTP, otherwise an in-memory mock is used.
func NewFromEnv(opts ...Option) (cat *Catalog, mode string, err error) {
	mode = strings.ToLower(strings.TrimSpace(os.Getenv(envMode)))
	serviceURL := strings.TrimSpace(os.Getenv(envServiceURL))

	switch mode {
	case "", modeAuto:
		if serviceURL != "" {
			return newHTTPCatalog(serviceURL, opts)
		}
		return newMockCatalog(opts)
	case modeHTTP:
		if serviceURL == "" {
			return nil, "", fmt.Errorf("catalog: HTTP mode requires %s", envServiceURL)
		}
		return newHTTPCatalog(serviceURL, opts)
	case modeMock:
		return newMockCatalog(opts)
	default:
		return nil, "", fmt.Errorf("catalog: unsupported %s value %q", envMode, mode)
	}
}

func newHTTPCatalog(serviceURL string, opts []Option) (*Catalog, string, error) {
	if user := os.Getenv(envUser); user != "" {
		opts = append([]Option{WithBasicAuth(user, os.Getenv(envPassword))}, opts...)
	}
	cat, err := New(serviceURL, opts...)
	if err != nil {
		return nil, "", fmt.Errorf("catalog: init HTTP client: %w", err)
	}
	return cat, modeHTTP, nil
}

func newMockCatalog(opts []Option) (*Catalog, string, error) {
	m := mock.New()
	if path := strings.TrimSpace(os.Getenv(envMockSeed)); path != "" {
		seed, err := devseed.Load(path)
		if err != nil {
			return nil, "", fmt.Errorf("catalog: load mock seed: %w", err)
		}
		if err := m.Seed(seed); err != nil {
			return nil, "", fmt.Errorf("catalog: apply mock seed: %w", err)
		}
	}
	cat, err := NewWithBackend(m.ServiceURL(), m, opts...)
	if err != nil {
		return nil, "", err
	}
	return cat, modeMock, nil
}
