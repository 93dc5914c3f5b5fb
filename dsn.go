package presto

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// dsnConfig is a parsed data source name:
//
//	presto://[user[:password]@]host[:port][/catalog[/schema]][?param=value&...]
//	trino://...
//
// Recognised params are timezone, client_tags, client_info, source and ssl.
// Everything else is sent as a session property.
type dsnConfig struct {
	host       string
	port       string
	user       string
	password   string
	catalog    string
	schema     string
	isTrino    bool
	ssl        bool
	timezone   string
	clientTags []string
	clientInfo string
	source     string
	properties map[string]string
}

const defaultPort = "8080"

func parseDSN(dsn string) (*dsnConfig, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("presto: invalid DSN: %w", err)
	}

	cfg := &dsnConfig{port: defaultPort, properties: make(map[string]string)}
	switch u.Scheme {
	case "presto":
	case "trino":
		cfg.isTrino = true
	default:
		return nil, fmt.Errorf("presto: unsupported DSN scheme %q, want presto or trino", u.Scheme)
	}

	if cfg.host = u.Hostname(); cfg.host == "" {
		return nil, fmt.Errorf("presto: DSN has no host")
	}
	if p := u.Port(); p != "" {
		cfg.port = p
	}
	if u.User != nil {
		cfg.user = u.User.Username()
		cfg.password, _ = u.User.Password()
	}
	if path := strings.Trim(u.Path, "/"); path != "" {
		cfg.catalog, cfg.schema, _ = strings.Cut(path, "/")
	}

	for key, values := range u.Query() {
		value := values[0]
		switch key {
		case "timezone":
			cfg.timezone = value
		case "client_tags":
			cfg.clientTags = strings.Split(value, ",")
		case "client_info":
			cfg.clientInfo = value
		case "source":
			cfg.source = value
		case "ssl":
			if cfg.ssl, err = strconv.ParseBool(value); err != nil {
				return nil, fmt.Errorf("presto: DSN param ssl=%q is not a boolean", value)
			}
		default:
			cfg.properties[key] = value
		}
	}
	return cfg, nil
}

func (cfg *dsnConfig) serverURL() string {
	scheme := "http"
	if cfg.ssl {
		scheme = "https"
	}
	return scheme + "://" + net.JoinHostPort(cfg.host, cfg.port)
}

// --- Placeholder interpolation ---

// sqlLiteral renders a driver value as a SQL literal.
func sqlLiteral(v driver.Value) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return "DOUBLE '" + strconv.FormatFloat(val, 'g', -1, 64) + "'", nil
	case bool:
		return strings.ToUpper(strconv.FormatBool(val)), nil
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'", nil
	case []byte:
		return "X'" + hex.EncodeToString(val) + "'", nil
	case time.Time:
		return "TIMESTAMP '" + val.Format("2006-01-02 15:04:05.000") + "'", nil
	default:
		return "", fmt.Errorf("presto: unsupported argument type %T", v)
	}
}

// interpolateParams substitutes each ? outside a quoted literal or quoted
// identifier with the next argument.
func interpolateParams(query string, args []driver.Value) (string, error) {
	if len(args) == 0 {
		return query, nil
	}

	var (
		b        strings.Builder
		next     int
		inString bool
		inIdent  bool
	)
	b.Grow(len(query) + 8*len(args))
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'' && !inIdent:
			// '' inside a literal is an escaped quote and toggles twice.
			inString = !inString
		case c == '"' && !inString:
			// Same for "" inside an identifier.
			inIdent = !inIdent
		case c == '?' && !inString && !inIdent:
			if next == len(args) {
				return "", fmt.Errorf("presto: statement has more placeholders than the %d arguments given", len(args))
			}
			lit, err := sqlLiteral(args[next])
			if err != nil {
				return "", err
			}
			b.WriteString(lit)
			next++
			continue
		}
		b.WriteByte(c)
	}
	if next != len(args) {
		return "", fmt.Errorf("presto: %d arguments given for %d placeholders", len(args), next)
	}
	return b.String(), nil
}
