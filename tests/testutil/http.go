package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// HTTPTestCase describes one request against a router and what it should return.
type HTTPTestCase struct {
	Name           string
	Method         string
	Path           string
	Body           interface{}
	Headers        map[string]string
	ExpectedStatus int
	ExpectedCode   string // error code in the envelope; empty means success
	Validate       func(t *testing.T, resp *httptest.ResponseRecorder)
}

// RunHTTPTestCases runs cases against router in subtests.
func RunHTTPTestCases(t *testing.T, router http.Handler, cases []HTTPTestCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			RunHTTPTestCase(t, router, tc)
		})
	}
}

// RunHTTPTestCase sends tc through router and checks status and envelope.
func RunHTTPTestCase(t *testing.T, router http.Handler, tc HTTPTestCase) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if tc.Body != nil {
		body = ToJSONReader(t, tc.Body)
	}
	method := tc.Method
	if method == "" {
		method = http.MethodGet
	}
	req := httptest.NewRequest(method, tc.Path, body)
	if tc.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range tc.Headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if tc.ExpectedStatus != 0 {
		assert.Equal(t, tc.ExpectedStatus, w.Code, "Unexpected status code: %s", w.Body.String())
	}
	if tc.ExpectedCode != "" {
		AssertErrorResponse(t, w, tc.ExpectedCode)
	} else if tc.ExpectedStatus != 0 && tc.ExpectedStatus < 300 {
		AssertSuccessResponse(t, w)
	}
	if tc.Validate != nil {
		tc.Validate(t, w)
	}
	return w
}

// Envelope mirrors the API response envelope for decoding in tests.
type Envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
	Error   *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

// DecodeEnvelope parses the response body into an Envelope with typed data.
func DecodeEnvelope[T any](t *testing.T, w *httptest.ResponseRecorder) Envelope[T] {
	t.Helper()

	var env Envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "Failed to parse JSON response: %s", w.Body.String())
	return env
}

// AssertSuccessResponse asserts the response is a successful API response.
func AssertSuccessResponse(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()

	env := DecodeEnvelope[json.RawMessage](t, w)
	assert.True(t, env.Success, "Expected success to be true: %s", w.Body.String())
	assert.Nil(t, env.Error, "Expected no error")
}

// AssertErrorResponse asserts the response is an error API response with code.
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedCode string) {
	t.Helper()

	env := DecodeEnvelope[json.RawMessage](t, w)
	assert.False(t, env.Success, "Expected success to be false")
	require.NotNil(t, env.Error, "Expected error object in response")
	assert.Equal(t, expectedCode, env.Error.Code, "Unexpected error code")
}

// ToJSONReader converts a value to a JSON io.Reader.
func ToJSONReader(t *testing.T, v interface{}) io.Reader {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err, "Failed to marshal to JSON")
	return bytes.NewReader(data)
}
