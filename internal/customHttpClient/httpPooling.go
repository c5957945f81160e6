package customHttpClient

import (
	"net/http"

	"github.com/WaterTechWarriors/PDMS2/internal/config"
)

//TODO: make the openai/genai clients reuse this transport to avoid latency

var customTransport = &http.Transport{
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

var pooledClient = &http.Client{Transport: customTransport}

// GetPooledClient returns the shared outbound client. Partition calls upload
// whole PDFs, so connection reuse matters more than per-call tuning.
func GetPooledClient() *http.Client {
	return pooledClient
}
