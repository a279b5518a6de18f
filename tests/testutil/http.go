package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Client sends requests straight into an http.Handler
type Client struct {
	t       *testing.T
	handler http.Handler
	token   string
}

// NewClient creates an anonymous client for handler
func NewClient(t *testing.T, handler http.Handler) *Client {
	return &Client{t: t, handler: handler}
}

// As returns a copy of the client that sends token as a bearer credential
func (c *Client) As(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

// Do sends a JSON request. body may be nil; headers are key/value pairs.
func (c *Client) Do(method, path string, body any, headers ...string) *Response {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err, "failed to marshal request body")
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, headers)
}

// Upload sends content as the multipart form file named field
func (c *Client) Upload(path, field, filename string, content []byte) *Response {
	c.t.Helper()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile(field, filename)
	require.NoError(c.t, err)
	_, err = part.Write(content)
	require.NoError(c.t, err)
	require.NoError(c.t, form.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	return c.send(req, nil)
}

func (c *Client) send(req *http.Request, headers []string) *Response {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	return &Response{t: c.t, Recorder: w}
}

// Response is a recorded reply with envelope helpers
type Response struct {
	t        *testing.T
	Recorder *httptest.ResponseRecorder
}

// Code returns the HTTP status
func (r *Response) Code() int {
	return r.Recorder.Code
}

// JSON decodes the body as an object
func (r *Response) JSON() map[string]any {
	r.t.Helper()
	var body map[string]any
	require.NoError(r.t, json.Unmarshal(r.Recorder.Body.Bytes(), &body), r.Recorder.Body.String())
	return body
}

// Object returns the nested object under key
func (r *Response) Object(key string) map[string]any {
	r.t.Helper()
	obj, ok := r.JSON()[key].(map[string]any)
	require.True(r.t, ok, "expected object %q in %s", key, r.Recorder.Body.String())
	return obj
}

// Expect fails the test unless the status matches
func (r *Response) Expect(status int) *Response {
	r.t.Helper()
	require.Equal(r.t, status, r.Recorder.Code, r.Recorder.Body.String())
	return r
}

// AssertError checks the status and the error code of a failure envelope
func (r *Response) AssertError(status int, code string) {
	r.t.Helper()
	assert.Equal(r.t, status, r.Recorder.Code, r.Recorder.Body.String())

	body := r.JSON()
	assert.Equal(r.t, false, body["success"])
	info, ok := body["error"].(map[string]any)
	require.True(r.t, ok, "expected error envelope, got %s", r.Recorder.Body.String())
	assert.Equal(r.t, code, info["code"])
}
