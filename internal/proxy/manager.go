package proxy

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var ErrNoProxiesAvailable = errors.New("no proxy URLs available")
var ErrAllProxiesExhausted = errors.New("all available proxies have been exhausted")

// Manager rotates outbound proxies for the speech backend.
type Manager struct {
	proxies []*url.URL
	current int
	mu      sync.Mutex
	logger  *zap.Logger
}

func NewManager(proxyStrings []string, logger *zap.Logger) (*Manager, error) {
	var proxies []*url.URL
	for _, p := range proxyStrings {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		proxyURL, err := url.Parse(p)
		if err != nil || proxyURL.Host == "" {
			logger.Warn("Skipping unparsable proxy URL", zap.String("proxy", p), zap.Error(err))
			continue
		}
		proxies = append(proxies, proxyURL)
	}

	if len(proxies) == 0 {
		return nil, ErrNoProxiesAvailable
	}

	return &Manager{proxies: proxies, logger: logger}, nil
}

func (pm *Manager) Current() *url.URL {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.proxies[pm.current]
}

// ProxyFunc plugs the manager into an http.Transport.
func (pm *Manager) ProxyFunc(*http.Request) (*url.URL, error) {
	return pm.Current(), nil
}

func (pm *Manager) Rotate() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.logger.Warn("Proxy failed, rotating", zap.String("proxy", pm.proxies[pm.current].Redacted()))
	pm.current++

	if pm.current >= len(pm.proxies) {
		pm.current = 0
		return ErrAllProxiesExhausted
	}

	pm.logger.Info("Switched proxy", zap.String("proxy", pm.proxies[pm.current].Redacted()))
	return nil
}

func (pm *Manager) Len() int {
	return len(pm.proxies)
}

// Transport returns an http.Transport that routes through the active proxy.
func (pm *Manager) Transport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = pm.ProxyFunc
	return t
}
