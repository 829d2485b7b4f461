package render

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cpa-server/internal/store"
)

// UserAgent identifies outbound postbacks
const UserAgent = "cpa-server-postback/1.0"

// Mask replaces credentials in stored requests
const Mask = "***"

// Request is a fully rendered postback, ready to be sent any number of times
type Request struct {
	Method  string
	URL     string
	Body    []byte
	Headers map[string]string
}

// HTTPRequest builds a fresh *http.Request for one attempt
func (r Request) HTTPRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for name, value := range r.Headers {
		req.Header.Set(name, value)
	}
	return req, nil
}

// Redacted returns a copy of r with the profile's auth query value and auth
// header value replaced by Mask
func (r Request) Redacted(profile store.PostbackProfile) Request {
	out := Request{Method: r.Method, URL: r.URL, Body: r.Body}

	if key := deref(profile.AuthQueryKey); key != "" {
		if u, err := url.Parse(r.URL); err == nil {
			query := u.Query()
			if query.Has(key) {
				query.Set(key, Mask)
				u.RawQuery = query.Encode()
				out.URL = u.String()
			}
		} else {
			out.URL = Redact(profile, r.URL)
		}
	}

	out.Headers = make(map[string]string, len(r.Headers))
	for name, value := range r.Headers {
		out.Headers[name] = value
	}
	if name := deref(profile.AuthHeaderName); name != "" {
		if _, ok := out.Headers[name]; ok {
			out.Headers[name] = Mask
		}
	}
	return out
}

// Redact masks every occurrence of the profile's auth values in s, raw or
// query escaped. Transport errors quote the request URL.
func Redact(profile store.PostbackProfile, s string) string {
	var pairs []string
	for _, secret := range []string{deref(profile.AuthQueryValue), deref(profile.AuthHeaderValue)} {
		if secret == "" {
			continue
		}
		pairs = append(pairs, secret, Mask)
		if escaped := url.QueryEscape(secret); escaped != secret {
			pairs = append(pairs, escaped, Mask)
		}
	}
	if len(pairs) == 0 {
		return s
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// Sign returns the hex HMAC-SHA256 of payload keyed by secret
func Sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Build renders the profile's template for a conversion
func Build(profile store.PostbackProfile, statuses StatusTable, conversion store.Conversion, now time.Time) (Request, error) {
	endpoint, err := url.Parse(profile.EndpointURL)
	if err != nil {
		return Request{}, fmt.Errorf("invalid endpoint url: %w", err)
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return Request{}, fmt.Errorf("invalid endpoint url scheme %q", endpoint.Scheme)
	}

	ctx := NewContext(conversion, statuses, now)

	params := make(map[string]string, len(profile.ParamsTemplate)+2)
	for key, tpl := range profile.ParamsTemplate {
		params[key] = Render(tpl, ctx)
	}

	idParam := string(profile.IDParam)
	if idParam == "" {
		idParam = string(store.IDParamClickID)
	}
	if _, ok := params[idParam]; !ok {
		params[idParam] = conversion.ClickID
	}

	if profile.HMACEnabled && profile.HMACSecret != nil {
		payload := ""
		if profile.HMACPayloadTpl != nil {
			payload = Render(*profile.HMACPayloadTpl, ctx)
		}
		paramName := store.DefaultHMACParamName
		if profile.HMACParamName != nil && *profile.HMACParamName != "" {
			paramName = *profile.HMACParamName
		}
		params[paramName] = Sign(*profile.HMACSecret, payload)
	}

	headers := map[string]string{"User-Agent": UserAgent}
	if name, value := deref(profile.AuthHeaderName), deref(profile.AuthHeaderValue); name != "" {
		headers[name] = value
	}

	query := endpoint.Query()
	if key := deref(profile.AuthQueryKey); key != "" {
		query.Set(key, deref(profile.AuthQueryValue))
	}

	req := Request{Headers: headers}
	switch profile.Method {
	case store.HTTPMethodPost:
		body, err := json.Marshal(params)
		if err != nil {
			return Request{}, fmt.Errorf("failed to marshal postback body: %w", err)
		}
		req.Method = http.MethodPost
		req.Body = body
		headers["Content-Type"] = "application/json"
	default:
		req.Method = http.MethodGet
		for key, value := range params {
			query.Set(key, value)
		}
	}

	endpoint.RawQuery = query.Encode()
	req.URL = endpoint.String()
	return req, nil
}
