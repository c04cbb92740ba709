// Package validation screens request structure and content before it
// reaches downstream handlers. Checks run in a fixed order and stop at the
// first failure.
package validation

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"shieldgate/internal/admission/config"
	"shieldgate/internal/admission/models"
)

// RequestMeta is the part of a request the validator inspects besides the
// body. ContentLength is -1 when unknown.
type RequestMeta struct {
	Method        string
	EscapedPath   string
	RawQuery      string
	RequestURI    string
	ContentType   string
	ContentLength int64
	Header        http.Header
}

// MetaFromRequest extracts RequestMeta from r.
func MetaFromRequest(r *http.Request) RequestMeta {
	requestURI := r.RequestURI
	if requestURI == "" {
		requestURI = r.URL.RequestURI()
	}
	return RequestMeta{
		Method:        r.Method,
		EscapedPath:   r.URL.EscapedPath(),
		RawQuery:      r.URL.RawQuery,
		RequestURI:    requestURI,
		ContentType:   r.Header.Get("Content-Type"),
		ContentLength: r.ContentLength,
		Header:        r.Header,
	}
}

var allowedMediaTypes = map[string]bool{
	"application/json":                  true,
	"application/x-www-form-urlencoded": true,
	"multipart/form-data":               true,
	"text/plain":                        true,
}

// Validator applies the structural limits and the threat pattern set.
type Validator struct {
	cfg      config.ValidationConfig
	patterns []pattern
}

// New compiles the pattern set. It fails only when an extra pattern does
// not compile.
func New(cfg config.ValidationConfig) (*Validator, error) {
	patterns, err := compilePatterns(cfg.ExtraPatterns)
	if err != nil {
		return nil, err
	}
	return &Validator{cfg: cfg, patterns: patterns}, nil
}

// MaxBodyBytes is the largest body the validator accepts.
func (v *Validator) MaxBodyBytes() int64 {
	return v.cfg.MaxBodyBytes
}

// Validate runs SIZE, HEADERS, URL, CONTENT_TYPE and BODY in that order.
// body may be nil when the method carries none.
func (v *Validator) Validate(_ context.Context, meta RequestMeta, body []byte) models.ValidationResult {
	if res := v.checkSize(meta, body); !res.OK {
		return res
	}
	if res := v.checkHeaders(meta.Header); !res.OK {
		return res
	}
	if res := v.checkURL(meta); !res.OK {
		return res
	}
	mediaType, res := v.checkContentType(meta.ContentType)
	if !res.OK {
		return res
	}
	if HasBody(meta.Method) {
		return v.checkBody(mediaType, body)
	}
	return models.Valid()
}

// CheckDeclaredSize applies the SIZE step before the body is read.
func (v *Validator) CheckDeclaredSize(meta RequestMeta) models.ValidationResult {
	return v.checkSize(meta, nil)
}

func (v *Validator) checkSize(meta RequestMeta, body []byte) models.ValidationResult {
	if meta.ContentLength > v.cfg.MaxBodyBytes {
		return models.Invalid(models.ReasonSize, fmt.Sprintf("declared length %d exceeds limit", meta.ContentLength))
	}
	if int64(len(body)) > v.cfg.MaxBodyBytes {
		return models.Invalid(models.ReasonSize, "body exceeds limit")
	}
	return models.Valid()
}

func (v *Validator) checkHeaders(header http.Header) models.ValidationResult {
	total := 0
	for name, values := range header {
		for _, value := range values {
			total += len(name) + len(value)
		}
	}
	if total > v.cfg.MaxHeaderBytes {
		return models.Invalid(models.ReasonHeaders, fmt.Sprintf("headers total %d bytes", total))
	}

	for name, values := range header {
		if isInformationalHeader(name) {
			continue
		}
		for _, value := range values {
			if p, found := match(v.patterns, value); found {
				return models.Suspicious(models.ReasonHeaders, fmt.Sprintf("%s in header %s", p, name))
			}
		}
	}
	return models.Valid()
}

func (v *Validator) checkURL(meta RequestMeta) models.ValidationResult {
	if len(meta.RequestURI) > v.cfg.MaxURLLength {
		return models.Invalid(models.ReasonURL, fmt.Sprintf("request uri %d bytes", len(meta.RequestURI)))
	}

	raw := meta.EscapedPath
	if meta.RawQuery != "" {
		raw += "?" + meta.RawQuery
	}
	// An escaped percent sign means the client encoded twice.
	if strings.Contains(strings.ToLower(raw), "%25") {
		return models.Suspicious(models.ReasonURL, "double encoding")
	}
	if p, found := match(v.patterns, raw); found {
		return models.Suspicious(models.ReasonURL, p.String())
	}

	path, err := url.PathUnescape(meta.EscapedPath)
	if err != nil {
		return models.Invalid(models.ReasonURL, "malformed path encoding")
	}
	query, err := url.QueryUnescape(meta.RawQuery)
	if err != nil {
		return models.Invalid(models.ReasonURL, "malformed query encoding")
	}
	if p, found := match(v.patterns, path+"?"+query); found {
		return models.Suspicious(models.ReasonURL, p.String())
	}
	return models.Valid()
}

func (v *Validator) checkContentType(contentType string) (string, models.ValidationResult) {
	if strings.TrimSpace(contentType) == "" {
		return "", models.Valid()
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", models.Invalid(models.ReasonContentType, "malformed content type")
	}
	if !allowedMediaTypes[mediaType] {
		return "", models.Invalid(models.ReasonContentType, "unsupported "+mediaType)
	}
	return mediaType, models.Valid()
}

func (v *Validator) checkBody(mediaType string, body []byte) models.ValidationResult {
	if len(body) == 0 {
		return models.Valid()
	}

	var text string
	switch mediaType {
	case "multipart/form-data", "":
		text = strings.ToValidUTF8(string(body), "�")
	default:
		if !utf8.Valid(body) {
			return models.Invalid(models.ReasonBody, "invalid utf-8")
		}
		text = string(body)
	}

	if p, found := match(v.patterns, text); found {
		return models.Suspicious(models.ReasonBody, p.String())
	}

	if mediaType == "application/x-www-form-urlencoded" {
		decoded, err := url.QueryUnescape(text)
		if err != nil {
			return models.Invalid(models.ReasonBody, "malformed form encoding")
		}
		if p, found := match(v.patterns, decoded); found {
			return models.Suspicious(models.ReasonBody, p.String())
		}
	}
	return models.Valid()
}

// HasBody reports whether the validator inspects the body for method.
func HasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func isInformationalHeader(name string) bool {
	name = strings.ToLower(name)
	switch name {
	case "user-agent", "referer", "origin", "host", "x-real-ip",
		"cache-control", "connection", "content-length", "content-type",
		"if-none-match", "if-modified-since", "dnt", "upgrade-insecure-requests",
		"pragma", "te":
		return true
	}
	return strings.HasPrefix(name, "accept") ||
		strings.HasPrefix(name, "x-forwarded-") ||
		strings.HasPrefix(name, "sec-")
}
