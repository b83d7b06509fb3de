package network

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding/charmap"
)

// Headers added to describe rewritten requests and the authenticated user.
const (
	HeaderNote            = "X-Pony-Note"
	HeaderOrigContentType = "X-Pony-Orig-Content-Type"
	HeaderUserID          = "X-Pony-User-ID"
	HeaderUserUsername    = "X-Pony-User-Username"
	HeaderUserEmail       = "X-Pony-User-Email"
)

// File describes an uploaded file that is reported by name and size only.
type File struct {
	Field string
	Name  string
	Size  int64
}

// RequestInfo is what the host knows about a request when it starts.
type RequestInfo struct {
	Method string
	// URL is the absolute request URL.
	URL    string
	Header http.Header
	// Body is the raw request body. It is ignored when Files is non-empty.
	Body []byte
	// Form holds the non-file fields of a multipart body.
	Form  url.Values
	Files []File
}

// User is the authenticated user of a request, when there is one.
type User struct {
	ID       string
	Username string
	Email    string
}

// ResponseInfo is what the host knows about the finished response.
type ResponseInfo struct {
	StatusCode int
	Header     http.Header
	// Body is the body as written to the wire, possibly gzip encoded.
	Body []byte
	User *User
}

// Exchange correlates a started request with its response.
type Exchange struct {
	RequestID      string
	url            string
	requestHeaders map[string]string
}

// Request is the request object of Network.requestWillBeSent.
type Request struct {
	Headers  map[string]string `json:"headers"`
	Method   string            `json:"method"`
	URL      string            `json:"url"`
	PostData *string           `json:"postData,omitempty"`
}

// RequestWillBeSent is the payload of Network.requestWillBeSent.
type RequestWillBeSent struct {
	RequestID   string            `json:"requestId"`
	LoaderID    string            `json:"loaderId"`
	FrameID     string            `json:"frameId"`
	DocumentURL string            `json:"documentURL"`
	Request     Request           `json:"request"`
	Timestamp   float64           `json:"timestamp"`
	Initiator   map[string]string `json:"initiator"`
}

// Response is the response object of Network.responseReceived.
type Response struct {
	ConnectionID     int               `json:"connectionId"`
	ConnectionReused bool              `json:"connectionReused"`
	Headers          map[string]string `json:"headers"`
	RequestHeaders   map[string]string `json:"requestHeaders"`
	MimeType         string            `json:"mimeType"`
	Status           int               `json:"status"`
	StatusText       string            `json:"statusText"`
	URL              string            `json:"url"`
}

// ResponseReceived is the payload of Network.responseReceived.
type ResponseReceived struct {
	RequestID string   `json:"requestId"`
	LoaderID  string   `json:"loaderId"`
	FrameID   string   `json:"frameId"`
	Timestamp float64  `json:"timestamp"`
	Type      string   `json:"type"`
	Response  Response `json:"response"`
}

// DataReceived is the payload of Network.dataReceived.
type DataReceived struct {
	RequestID         string  `json:"requestId"`
	Timestamp         float64 `json:"timestamp"`
	DataLength        int     `json:"dataLength"`
	EncodedDataLength int     `json:"encodedDataLength"`
}

// LoadingFinished is the payload of Network.loadingFinished.
type LoadingFinished struct {
	RequestID string  `json:"requestId"`
	Timestamp float64 `json:"timestamp"`
}

// OnRequestStart reports a request to the gateway and returns the exchange
// to pass to OnResponseComplete. It returns nil while the domain is disabled.
func (d *Domain) OnRequestStart(req RequestInfo) *Exchange {
	if !d.Enabled() {
		return nil
	}

	id := d.allocateID()
	headers := flattenHeader(req.Header)
	request := Request{Headers: headers, Method: req.Method, URL: req.URL}

	if req.Method != http.MethodGet {
		var body string
		if len(req.Files) > 0 {
			body = redactFiles(req.Form, req.Files)
			headers[HeaderOrigContentType] = headers["Content-Type"]
			headers["Content-Type"] = "application/x-www-form-urlencoded"
		} else {
			body = decodeLatin1(req.Body)
		}
		request.PostData = &body
	}

	d.Notify("requestWillBeSent", RequestWillBeSent{
		RequestID:   id,
		DocumentURL: req.URL,
		Request:     request,
		Timestamp:   d.timestamp(),
		Initiator:   map[string]string{"type": "other"},
	})

	return &Exchange{RequestID: id, url: req.URL, requestHeaders: headers}
}

// OnResponseComplete reports the response of ex. It does nothing when ex is
// nil or the domain is disabled.
func (d *Domain) OnResponseComplete(ex *Exchange, resp ResponseInfo) {
	if ex == nil || !d.Enabled() {
		return
	}

	headers := flattenHeader(resp.Header)
	if resp.User != nil {
		headers[HeaderUserID] = resp.User.ID
		headers[HeaderUserUsername] = resp.User.Username
		headers[HeaderUserEmail] = resp.User.Email
	}

	body := resp.Body
	decodedOK := true
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		decoded, err := gunzip(body)
		if err != nil {
			decodedOK = false
			d.logger.Debug("Response body is not valid gzip, not caching it",
				"request_id", ex.RequestID, "error", err)
		} else {
			body = decoded
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if decodedOK && isTextual(contentType) {
		text := strings.ToValidUTF8(string(body), string(utf8.RuneError))
		if _, err := d.bodies.Set(ex.RequestID, text); err != nil {
			d.logger.Debug("Failed to cache response body", "request_id", ex.RequestID, "error", err)
		}
	}

	d.Notify("responseReceived", ResponseReceived{
		RequestID: ex.RequestID,
		Timestamp: d.timestamp(),
		Type:      "Other",
		Response: Response{
			Headers:        headers,
			RequestHeaders: ex.requestHeaders,
			MimeType:       mimeType(contentType),
			Status:         resp.StatusCode,
			URL:            ex.url,
		},
	})
	d.Notify("dataReceived", DataReceived{
		RequestID:         ex.RequestID,
		Timestamp:         d.timestamp(),
		DataLength:        len(body),
		EncodedDataLength: len(resp.Body),
	})
	d.Notify("loadingFinished", LoadingFinished{
		RequestID: ex.RequestID,
		Timestamp: d.timestamp(),
	})
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		out[http.CanonicalHeaderKey(name)] = strings.Join(values, ", ")
	}
	return out
}

func redactFiles(form url.Values, files []File) string {
	data := url.Values{}
	for name, values := range form {
		data[name] = append([]string(nil), values...)
	}
	data.Set(HeaderNote, fmt.Sprintf(
		"Request included %d file(s), which have been removed; the request has been reformatted",
		len(files)))

	sorted := append([]File(nil), files...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Field < sorted[j].Field })
	for _, f := range sorted {
		data.Set(f.Field, fmt.Sprintf("<file %s, %d bytes>", f.Name, f.Size))
	}
	return data.Encode()
}

func decodeLatin1(body []byte) string {
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(text)
}

func gunzip(body []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func isTextual(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "text/") ||
		strings.Contains(ct, "json") ||
		strings.Contains(ct, "utf-8")
}

func mimeType(contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.TrimSpace(mt)
}
