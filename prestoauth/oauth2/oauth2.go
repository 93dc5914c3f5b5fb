// Package oauth2 adds bearer token authentication to presto clients, either
// with a fixed token or with tokens fetched through the OAuth2 client
// credentials flow.
package oauth2

import (
	"context"
	"database/sql/driver"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	presto "github.com/ethanyzhang/prestotype"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Config selects the token. A fixed Token wins over client credentials.
type Config struct {
	Token        string   `koanf:"token"`
	ClientID     string   `koanf:"client_id"`
	ClientSecret string   `koanf:"client_secret"`
	TokenURL     string   `koanf:"token_url"`
	Scopes       []string `koanf:"scopes"`
}

// Enabled reports whether cfg asks for bearer authentication at all.
func (cfg Config) Enabled() bool {
	return cfg.Token != "" || cfg.ClientID != ""
}

func (cfg Config) validate() error {
	var missing []string
	if cfg.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if cfg.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if cfg.TokenURL == "" {
		missing = append(missing, "token_url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("oauth2: client credentials need %s", strings.Join(missing, ", "))
	}
	return nil
}

// TokenSource returns a source for cfg. Fetched tokens are cached until they
// expire; ctx is used for the token requests.
func (cfg Config) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if cfg.Token != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"}), nil
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	return cc.TokenSource(ctx), nil
}

// Bearer sets the Authorization header from ts on every request. A request
// whose token cannot be fetched goes out without one and the coordinator
// answers 401.
func Bearer(ts oauth2.TokenSource) presto.RequestOption {
	return func(req *http.Request) {
		token, err := ts.Token()
		if err != nil {
			log.Warn().Err(err).Str("url", req.URL.Redacted()).Msg("failed to fetch OAuth2 token")
			return
		}
		token.SetAuthHeader(req)
	}
}

// NewRequestOption is TokenSource followed by Bearer.
func NewRequestOption(ctx context.Context, cfg Config) (presto.RequestOption, error) {
	ts, err := cfg.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	return Bearer(ts), nil
}

// DSN params read by FromDSN.
const (
	paramToken        = "access_token"
	paramClientID     = "oauth2_client_id"
	paramClientSecret = "oauth2_client_secret"
	paramTokenURL     = "oauth2_token_url"
	paramScopes       = "oauth2_scopes"
)

// FromDSN takes the OAuth2 params out of dsn, so they are not sent as session
// properties, and returns them with the remaining DSN.
func FromDSN(dsn string) (Config, string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return Config{}, "", fmt.Errorf("oauth2: invalid DSN: %w", err)
	}
	q := u.Query()
	cfg := Config{
		Token:        q.Get(paramToken),
		ClientID:     q.Get(paramClientID),
		ClientSecret: q.Get(paramClientSecret),
		TokenURL:     q.Get(paramTokenURL),
	}
	for _, scope := range strings.Split(q.Get(paramScopes), ",") {
		if scope = strings.TrimSpace(scope); scope != "" {
			cfg.Scopes = append(cfg.Scopes, scope)
		}
	}
	for _, name := range []string{paramToken, paramClientID, paramClientSecret, paramTokenURL, paramScopes} {
		q.Del(name)
	}
	u.RawQuery = q.Encode()
	return cfg, u.String(), nil
}

// NewConnector is presto.NewConnector for a DSN that may carry OAuth2 params:
//
//	presto://coordinator:8443/hive?ssl=true&access_token=eyJ...
//	presto://coordinator:8443/hive?ssl=true&oauth2_client_id=etl&oauth2_client_secret=...&oauth2_token_url=https://idp/token
func NewConnector(dsn string, opts ...presto.ConnectorOption) (driver.Connector, error) {
	cfg, rest, err := FromDSN(dsn)
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled() {
		return presto.NewConnector(rest, opts...)
	}
	opt, err := NewRequestOption(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return presto.NewConnector(rest, append([]presto.ConnectorOption{presto.WithRequestOptions(opt)}, opts...)...)
}
