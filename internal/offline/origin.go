package offline

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
)

//go:embed web/*
var webFS embed.FS

// RoundTripFunc adapts a function to http.RoundTripper.
type RoundTripFunc func(*http.Request) (*http.Response, error)

func (fn RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return fn(req) }

// EmbeddedOrigin serves the bundled web shell.
func EmbeddedOrigin() http.RoundTripper {
	sub, err := fs.Sub(webFS, "web")
	if err != nil {
		panic(err)
	}
	return FSOrigin(sub)
}

// FSOrigin serves files from fsys. "/" maps to index.html; missing files
// answer 404.
func FSOrigin(fsys fs.FS) http.RoundTripper {
	return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
		name := strings.TrimPrefix(path.Clean(req.URL.Path), "/")
		if name == "" || name == "." {
			name = "index.html"
		}

		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return response(req, http.StatusNotFound, "text/plain; charset=utf-8", []byte("not found\n")), nil
		}
		ctype := mime.TypeByExtension(path.Ext(name))
		if ctype == "" {
			ctype = http.DetectContentType(data)
		}
		return response(req, http.StatusOK, ctype, data), nil
	})
}

// UpstreamOrigin forwards requests to base using transport.
func UpstreamOrigin(base string, transport http.RoundTripper) (http.RoundTripper, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing upstream %q: %w", base, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream %q must be an absolute URL", base)
	}
	if transport == nil {
		transport = http.DefaultTransport
	}
	return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
		out := req.Clone(req.Context())
		out.URL.Scheme = u.Scheme
		out.URL.Host = u.Host
		out.URL.Path = path.Join("/", u.Path, req.URL.Path)
		if strings.HasSuffix(req.URL.Path, "/") && !strings.HasSuffix(out.URL.Path, "/") {
			out.URL.Path += "/"
		}
		out.Host = u.Host
		out.RequestURI = ""
		return transport.RoundTrip(out)
	}), nil
}

func response(req *http.Request, status int, ctype string, body []byte) *http.Response {
	return &http.Response{
		StatusCode:    status,
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{ctype}},
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
