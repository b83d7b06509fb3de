// Package intercept feeds net/http traffic to the Network domain. Wrap a
// handler with Middleware and every exchange served while the domain is
// enabled is reported to the gateway.
package intercept

import (
	"bytes"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/c360/ponybridge/domain/network"
)

// DefaultMaxBody bounds how much of a request body is read for reporting.
const DefaultMaxBody = 10 << 20

// Options configures Middleware.
type Options struct {
	// MaxBody bounds the request body copied for reporting. Larger bodies are
	// reported truncated; the handler still sees the full body.
	MaxBody int64
	Logger  *slog.Logger
}

// Middleware reports each request to nw before calling next, and the
// response after next returns.
func Middleware(nw *network.Domain, opts Options) func(http.Handler) http.Handler {
	if opts.MaxBody <= 0 {
		opts.MaxBody = DefaultMaxBody
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "intercept")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !nw.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			info, err := requestInfo(r, opts.MaxBody)
			if err != nil {
				logger.Debug("Failed to capture request body", "url", r.URL.String(), "error", err)
			}
			ex := nw.OnRequestStart(info)

			r, holder := withHolder(r)
			rec := newRecorder(w)
			next.ServeHTTP(rec, r)

			nw.OnResponseComplete(ex, network.ResponseInfo{
				StatusCode: rec.statusCode(),
				Header:     rec.Header().Clone(),
				Body:       rec.body.Bytes(),
				User:       holder.get(),
			})
		})
	}
}

func requestInfo(r *http.Request, maxBody int64) (network.RequestInfo, error) {
	header := r.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	if r.Host != "" {
		header.Set("Host", r.Host)
	}
	if r.ContentLength > 0 && header.Get("Content-Length") == "" {
		header.Set("Content-Length", strconv.FormatInt(r.ContentLength, 10))
	}

	info := network.RequestInfo{
		Method: r.Method,
		URL:    absoluteURL(r),
		Header: header,
	}
	if r.Method == http.MethodGet || r.Body == nil || r.Body == http.NoBody {
		return info, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(body), r.Body), r.Body}
	if err != nil {
		return info, err
	}

	mediaType, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" && params["boundary"] != "" {
		form, files, err := parseMultipart(body, params["boundary"])
		if err == nil && len(files) > 0 {
			info.Form = form
			info.Files = files
			return info, nil
		}
	}
	info.Body = body
	return info, nil
}

// parseMultipart splits a multipart body into its plain fields and the
// names and sizes of its files.
func parseMultipart(body []byte, boundary string) (url.Values, []network.File, error) {
	form := url.Values{}
	var files []network.File

	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return form, files, nil
		}
		if err != nil {
			return nil, nil, err
		}

		if part.FileName() != "" {
			n, err := io.Copy(io.Discard, part)
			part.Close()
			if err != nil {
				return nil, nil, err
			}
			files = append(files, network.File{Field: part.FormName(), Name: part.FileName(), Size: n})
			continue
		}

		value, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, nil, err
		}
		form.Add(part.FormName(), string(value))
	}
}

func absoluteURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	host := r.Host
	if host == "" {
		host = r.URL.Host
	}
	return scheme + "://" + host + r.URL.RequestURI()
}
