package common

import (
	"github.com/voxline/voiceqa-backend/internal/config"
	pkgHTTP "github.com/voxline/voiceqa-backend/pkg/http"
)

// NewBaseConnector builds an HTTP connector from the shared client config:
// timeouts from the env, request logging, and bearer auth when a token is set.
func NewBaseConnector(cfg config.HTTPClientConfig) *pkgHTTP.Connector {
	return NewBaseConnectorWithOpts(cfg)
}

// NewBaseConnectorWithOpts is NewBaseConnector plus provider-specific options,
// e.g. an API-key auth transport for services that do not use bearer tokens.
func NewBaseConnectorWithOpts(cfg config.HTTPClientConfig, extra ...pkgHTTP.HttpOpts) *pkgHTTP.Connector {
	opts := []pkgHTTP.HttpOpts{
		pkgHTTP.WithRequestTimeout(cfg.RequestTimeout),
		pkgHTTP.WithConnClientTimeout(cfg.ConnTimeout),
		pkgHTTP.WithClientKeepAlive(cfg.KeepAlive),
		pkgHTTP.WithIdleConnTimeout(cfg.IdleConnTimeout),
		pkgHTTP.WithResponseHeaderTimeout(cfg.ResponseHeaderTimeout),
		pkgHTTP.WithRequestLogging(),
		pkgHTTP.WithAuthToken(cfg.Token),
	}
	opts = append(opts, extra...)

	return pkgHTTP.NewConnector(&pkgHTTP.ConnectorConfig{BaseURL: cfg.Url}, opts...)
}
