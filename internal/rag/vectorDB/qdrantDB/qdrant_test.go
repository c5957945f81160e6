package qdrantDB

import (
	"testing"

	"github.com/WaterTechWarriors/PDMS2/internal/config"
)

func TestResolveEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Qdrant
		wantHost string
		wantPort int
	}{
		{
			name:     "configured host and port win",
			cfg:      config.Qdrant{Host: "qdrant.internal", Port: 7443},
			wantHost: "qdrant.internal",
			wantPort: 7443,
		},
		{
			name:     "empty section falls back to defaults",
			cfg:      config.Qdrant{},
			wantHost: config.QdrantHost,
			wantPort: config.QdrantGrpcPort,
		},
		{
			name:     "host without port keeps the default port",
			cfg:      config.Qdrant{Host: "remote"},
			wantHost: "remote",
			wantPort: config.QdrantGrpcPort,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port := resolveEndpoint(tt.cfg)
			if host != tt.wantHost || port != tt.wantPort {
				t.Errorf("resolveEndpoint = (%q, %d); want (%q, %d)", host, port, tt.wantHost, tt.wantPort)
			}
		})
	}
}
