package presto

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Protocol headers. The X-Presto- prefix is rewritten to X-Trino- when the
// client talks to Trino; see CanonicalHeader.
const (
	UserHeader               = "X-Presto-User"
	SourceHeader             = "X-Presto-Source"
	CatalogHeader            = "X-Presto-Catalog"
	SchemaHeader             = "X-Presto-Schema"
	SessionHeader            = "X-Presto-Session"
	TimeZoneHeader           = "X-Presto-Time-Zone"
	ClientInfoHeader         = "X-Presto-Client-Info"
	ClientTagHeader          = "X-Presto-Client-Tags"
	TransactionHeader        = "X-Presto-Transaction-Id"
	StartedTransactionHeader = "X-Presto-Started-Transaction-Id"
	ClearTransactionHeader   = "X-Presto-Clear-Transaction-Id"

	DefaultUser         = "prestotype"
	ContentEncodingGzip = "gzip"
	MaxRetryAttempts    = 10
	MaxRetryDelay       = 30 * time.Second
)

// RequestOption mutates an outgoing request just before it is sent. Auth
// providers are plugged in this way.
type RequestOption func(*http.Request)

// Session is the per-connection state sent with every statement: identity,
// catalog and schema, session properties and the open transaction. It is safe
// for concurrent use.
type Session struct {
	client *Client

	mu             sync.RWMutex
	user           *url.Userinfo
	source         string
	catalog        string
	schema         string
	timezone       string
	clientInfo     string
	clientTags     []string
	transactionID  string
	properties     map[string]string
	requestOptions []RequestOption
}

// Client owns the HTTP transport and the coordinator address. Its embedded
// Session is the default one; NewSession clones it.
type Client struct {
	Session
	httpClient *http.Client
	serverURL  *url.URL
	isTrino    bool
	retryDelay time.Duration
}

// --- Construction ---

// NewClient returns a client for the coordinator at serverURL.
func NewClient(serverURL string) (*Client, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("presto: invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("presto: server URL %q must use http or https", serverURL)
	}
	c := &Client{
		httpClient: &http.Client{},
		serverURL:  u,
		retryDelay: time.Second,
	}
	c.Session = Session{
		client:     c,
		user:       url.User(DefaultUser),
		properties: make(map[string]string),
	}
	return c, nil
}

// IsTrino switches the header prefix to X-Trino-.
func (c *Client) IsTrino(isTrino bool) *Client {
	c.isTrino = isTrino
	return c
}

// HTTPClient replaces the transport, e.g. to set TLS options or a timeout.
func (c *Client) HTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// NewSession returns an independent copy of the client's default session.
func (c *Client) NewSession() *Session {
	return c.Session.Clone()
}

// CanonicalHeader maps an X-Presto- header name to the dialect the client is
// configured for.
func (c *Client) CanonicalHeader(name string) string {
	if c.isTrino {
		return strings.Replace(name, "X-Presto-", "X-Trino-", 1)
	}
	return name
}

// Clone copies the session. The copy shares the client but nothing else.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Session{
		client:         s.client,
		user:           s.user,
		source:         s.source,
		catalog:        s.catalog,
		schema:         s.schema,
		timezone:       s.timezone,
		clientInfo:     s.clientInfo,
		clientTags:     slices.Clone(s.clientTags),
		transactionID:  s.transactionID,
		properties:     maps.Clone(s.properties),
		requestOptions: slices.Clone(s.requestOptions),
	}
}

// --- Session settings ---

func (s *Session) set(fn func()) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
	return s
}

func (s *Session) User(user string) *Session {
	return s.set(func() { s.user = url.User(user) })
}

func (s *Session) UserPassword(user, password string) *Session {
	return s.set(func() { s.user = url.UserPassword(user, password) })
}

func (s *Session) Source(source string) *Session {
	return s.set(func() { s.source = source })
}

func (s *Session) Catalog(catalog string) *Session {
	return s.set(func() { s.catalog = catalog })
}

func (s *Session) Schema(schema string) *Session {
	return s.set(func() { s.schema = schema })
}

func (s *Session) TimeZone(tz string) *Session {
	return s.set(func() { s.timezone = tz })
}

func (s *Session) ClientInfo(info string) *Session {
	return s.set(func() { s.clientInfo = info })
}

func (s *Session) ClientTags(tags ...string) *Session {
	return s.set(func() { s.clientTags = slices.Clone(tags) })
}

// Property sets a session property. An empty value removes it.
func (s *Session) Property(name, value string) *Session {
	return s.set(func() {
		if value == "" {
			delete(s.properties, name)
			return
		}
		s.properties[name] = value
	})
}

// RequestOptions appends options applied to every request of this session,
// after the session headers.
func (s *Session) RequestOptions(opts ...RequestOption) *Session {
	return s.set(func() { s.requestOptions = append(s.requestOptions, opts...) })
}

// TransactionID returns the id of the open transaction, if any.
func (s *Session) TransactionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transactionID
}

// --- Requests ---

// NewRequest builds a request against the coordinator. A string body is sent
// as text (SQL statements); any other non-nil body is sent as JSON.
func (s *Session) NewRequest(method, path string, body any, opts ...RequestOption) (*http.Request, error) {
	u, err := s.client.serverURL.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("presto: invalid request path %q: %w", path, err)
	}

	var (
		reader      io.Reader
		contentType string
	)
	switch b := body.(type) {
	case nil:
	case string:
		reader, contentType = strings.NewReader(b), "text/plain"
	default:
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(b); err != nil {
			return nil, fmt.Errorf("presto: encoding request body: %w", err)
		}
		reader, contentType = buf, "application/json"
	}

	req, err := http.NewRequest(method, u.String(), reader)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept-Encoding", ContentEncodingGzip)

	s.mu.RLock()
	s.writeHeaders(req.Header)
	sessionOpts := slices.Clone(s.requestOptions)
	s.mu.RUnlock()

	for _, opt := range sessionOpts {
		opt(req)
	}
	for _, opt := range opts {
		opt(req)
	}
	return req, nil
}

// writeHeaders must be called with s.mu held.
func (s *Session) writeHeaders(h http.Header) {
	set := func(name, value string) {
		if value != "" {
			h.Set(s.client.CanonicalHeader(name), value)
		}
	}
	if s.user != nil {
		set(UserHeader, s.user.Username())
		if password, ok := s.user.Password(); ok {
			h.Set("Authorization", "Basic "+basicAuth(s.user.Username(), password))
		}
	}
	set(SourceHeader, s.source)
	set(CatalogHeader, s.catalog)
	set(SchemaHeader, s.schema)
	set(TimeZoneHeader, s.timezone)
	set(ClientInfoHeader, s.clientInfo)
	set(ClientTagHeader, strings.Join(s.clientTags, ","))
	set(TransactionHeader, s.transactionID)
	set(SessionHeader, encodeProperties(s.properties))
}

func basicAuth(user, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + password))
}

// encodeProperties renders properties as name=value pairs in name order.
func encodeProperties(props map[string]string) string {
	names := slices.Sorted(maps.Keys(props))
	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = name + "=" + url.QueryEscape(props[name])
	}
	return strings.Join(pairs, ",")
}

// Do sends req and decodes a 2xx reply into v. Network errors and 503
// replies are retried with exponential backoff up to MaxRetryAttempts; other
// statuses come back as *ErrorResponse. Transaction headers in the reply
// update the session.
func (s *Session) Do(ctx context.Context, req *http.Request, v any) (*http.Response, error) {
	req = req.WithContext(ctx)
	if err := bufferBody(req); err != nil {
		return nil, err
	}

	delay := s.client.retryDelay
	for attempt := 1; attempt <= MaxRetryAttempts; attempt++ {
		resp, err := s.client.httpClient.Do(req)
		switch {
		case err != nil:
			if !isRetryable(err) {
				return nil, err
			}
			log.Debug().Err(err).Int("attempt", attempt).Str("url", req.URL.String()).Msg("retrying after connection error")

		case resp.StatusCode == http.StatusServiceUnavailable:
			if err := resp.Body.Close(); err != nil {
				log.Debug().Err(err).Msg("failed to close response body")
			}
			log.Debug().Int("attempt", attempt).Str("url", req.URL.String()).Msg("retrying after 503")

		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			s.syncTransaction(resp.Header)
			return resp, decodeBody(resp, v)

		default:
			s.syncTransaction(resp.Header)
			return resp, NewErrorResponse(resp)
		}

		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay = min(delay*2, MaxRetryDelay)
		if req.GetBody != nil {
			req.Body, _ = req.GetBody()
		}
	}
	return nil, fmt.Errorf("presto: %s %s: giving up after %d attempts", req.Method, req.URL.Path, MaxRetryAttempts)
}

// bufferBody makes the body replayable across retries.
func bufferBody(req *http.Request) error {
	if req.Body == nil || req.GetBody != nil {
		return nil
	}
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return fmt.Errorf("presto: reading request body: %w", err)
	}
	_ = req.Body.Close()
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	req.Body, _ = req.GetBody()
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// isRetryable reports transient network failures. Cancellation never is.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func (s *Session) syncTransaction(h http.Header) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id := h.Get(s.client.CanonicalHeader(StartedTransactionHeader)); id != "" {
		s.transactionID = id
	} else if h.Get(s.client.CanonicalHeader(ClearTransactionHeader)) == "true" {
		s.transactionID = ""
	}
}

func decodeBody(resp *http.Response, v any) (err error) {
	defer func() {
		if cerr := resp.Body.Close(); err == nil {
			err = cerr
		}
	}()
	if v == nil {
		return nil
	}

	var r io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == ContentEncodingGzip {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("presto: opening gzip body: %w", err)
		}
		defer func() {
			if err := gz.Close(); err != nil {
				log.Debug().Err(err).Msg("failed to close gzip reader")
			}
		}()
		r = gz
	}

	if w, ok := v.(io.Writer); ok {
		_, err = io.Copy(w, r)
		return err
	}
	if err := json.NewDecoder(r).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("presto: decoding response: %w", err)
	}
	return nil
}
