// Package kerberos adds SPNEGO (Kerberos) authentication to presto clients.
package kerberos

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	presto "github.com/ethanyzhang/prestotype"
	"github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/jcmturner/gokrb5/v8/spnego"
	"github.com/rs/zerolog/log"
)

// Config holds the Kerberos identity. Exactly one of Keytab and Password is
// used to log in.
type Config struct {
	// Principal is "user" or "user@REALM". A realm given here wins over Realm.
	Principal string `koanf:"principal"`
	Realm     string `koanf:"realm"`
	Keytab    string `koanf:"keytab"`
	Password  string `koanf:"password"`
	// Krb5Conf is the path of krb5.conf.
	Krb5Conf string `koanf:"krb5_conf"`
	// SPN defaults to HTTP/<coordinator host>.
	SPN string `koanf:"spn"`
}

// Enabled reports whether cfg names a principal.
func (cfg Config) Enabled() bool {
	return cfg.Principal != ""
}

func (cfg Config) validate() error {
	var errs []error
	if cfg.Principal == "" {
		errs = append(errs, errors.New("principal is required"))
	}
	if _, realm := cfg.split(); realm == "" {
		errs = append(errs, errors.New("realm is required"))
	}
	if cfg.Krb5Conf == "" {
		errs = append(errs, errors.New("krb5_conf is required"))
	}
	switch {
	case cfg.Keytab == "" && cfg.Password == "":
		errs = append(errs, errors.New("one of keytab and password is required"))
	case cfg.Keytab != "" && cfg.Password != "":
		errs = append(errs, errors.New("keytab and password are exclusive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("kerberos: %w", err)
	}
	return nil
}

// split returns the user and realm of the principal.
func (cfg Config) split() (string, string) {
	if user, realm, ok := strings.Cut(cfg.Principal, "@"); ok {
		return user, realm
	}
	return cfg.Principal, cfg.Realm
}

// newClient builds the gokrb5 client without contacting the KDC.
func (cfg Config) newClient() (*client.Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	krb5, err := config.Load(cfg.Krb5Conf)
	if err != nil {
		return nil, fmt.Errorf("kerberos: loading %s: %w", cfg.Krb5Conf, err)
	}
	user, realm := cfg.split()
	if cfg.Password != "" {
		return client.NewWithPassword(user, realm, cfg.Password, krb5, client.DisablePAFXFAST(true)), nil
	}
	kt, err := keytab.Load(cfg.Keytab)
	if err != nil {
		return nil, fmt.Errorf("kerberos: loading keytab %s: %w", cfg.Keytab, err)
	}
	return client.NewWithKeytab(user, realm, kt, krb5, client.DisablePAFXFAST(true)), nil
}

// Authenticator is a logged-in Kerberos client.
type Authenticator struct {
	cl  *client.Client
	spn string
}

var _ io.Closer = (*Authenticator)(nil)

// Login authenticates against the KDC.
func Login(cfg Config) (*Authenticator, error) {
	cl, err := cfg.newClient()
	if err != nil {
		return nil, err
	}
	if err := cl.Login(); err != nil {
		return nil, fmt.Errorf("kerberos: login as %s: %w", cfg.Principal, err)
	}
	return &Authenticator{cl: cl, spn: cfg.SPN}, nil
}

// RequestOption sets the Negotiate header on every request. Tickets are
// renewed by the client as needed.
func (a *Authenticator) RequestOption() presto.RequestOption {
	return func(req *http.Request) {
		spn := a.spn
		if spn == "" {
			spn = "HTTP/" + req.URL.Hostname()
		}
		if err := spnego.SetSPNEGOHeader(a.cl, req, spn); err != nil {
			log.Warn().Err(err).Str("spn", spn).Msg("failed to set SPNEGO header")
		}
	}
}

// Close destroys the client's tickets.
func (a *Authenticator) Close() error {
	a.cl.Destroy()
	return nil
}

// DSN params read by FromDSN.
var dsnParams = map[string]func(*Config, string){
	"kerberos_principal":   func(c *Config, v string) { c.Principal = v },
	"kerberos_realm":       func(c *Config, v string) { c.Realm = v },
	"kerberos_keytab":      func(c *Config, v string) { c.Keytab = v },
	"kerberos_password":    func(c *Config, v string) { c.Password = v },
	"kerberos_config":      func(c *Config, v string) { c.Krb5Conf = v },
	"kerberos_service_spn": func(c *Config, v string) { c.SPN = v },
}

// FromDSN takes the kerberos_* params out of dsn and returns them with the
// remaining DSN.
func FromDSN(dsn string) (Config, string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return Config{}, "", fmt.Errorf("kerberos: invalid DSN: %w", err)
	}
	var cfg Config
	q := u.Query()
	for name, set := range dsnParams {
		if q.Has(name) {
			set(&cfg, q.Get(name))
			q.Del(name)
		}
	}
	u.RawQuery = q.Encode()
	return cfg, u.String(), nil
}

// NewConnector logs in with the kerberos_* params of dsn and returns a
// connector whose sessions authenticate with SPNEGO. Close the returned
// closer once the connector is no longer used.
//
//	presto://coordinator:8443/hive?ssl=true&kerberos_principal=etl@CORP.EXAMPLE&kerberos_keytab=/etc/etl.keytab&kerberos_config=/etc/krb5.conf
func NewConnector(dsn string, opts ...presto.ConnectorOption) (driver.Connector, io.Closer, error) {
	cfg, rest, err := FromDSN(dsn)
	if err != nil {
		return nil, nil, err
	}
	auth, err := Login(cfg)
	if err != nil {
		return nil, nil, err
	}
	connector, err := presto.NewConnector(rest, append([]presto.ConnectorOption{presto.WithRequestOptions(auth.RequestOption())}, opts...)...)
	if err != nil {
		_ = auth.Close()
		return nil, nil, err
	}
	return connector, auth, nil
}
