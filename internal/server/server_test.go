package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	facecropper "github.com/menta2k/face-cropper"
	"github.com/menta2k/face-cropper/pkg/catalog"
	"github.com/menta2k/face-cropper/pkg/errors"
)

type fakeCropper struct {
	err    error
	source string
	id     int
}

func (f *fakeCropper) Crop(ctx context.Context, source string, id int) (*facecropper.Output, error) {
	f.source, f.id = source, id
	if f.err != nil {
		return nil, f.err
	}
	return &facecropper.Output{ID: id, URL: "https://bucket.example.com/cropped/x.jpg?sig=1"}, nil
}

func (f *fakeCropper) Catalog() *catalog.Catalog {
	return catalog.Default()
}

func newTestServer(c Cropper) *httptest.Server {
	return httptest.NewServer(New(c, Config{}, log.New(io.Discard)).Handler())
}

func postCrop(t *testing.T, srv *httptest.Server, body string) (*http.Response, map[string]string) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/crop", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestCrop(t *testing.T) {
	fake := &fakeCropper{}
	srv := newTestServer(fake)
	defer srv.Close()

	resp, out := postCrop(t, srv, `{"imageUrl":"https://example.com/p.jpg","id":14}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://bucket.example.com/cropped/x.jpg?sig=1", out["imageUrl"])
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "OPTIONS,POST,GET", resp.Header.Get("Access-Control-Allow-Methods"))

	assert.Equal(t, "https://example.com/p.jpg", fake.source)
	assert.Equal(t, 14, fake.id)
}

func TestCropBadRequests(t *testing.T) {
	srv := newTestServer(&fakeCropper{})
	defer srv.Close()

	for _, body := range []string{
		`not json`,
		`{"id":1}`,
		`{"imageUrl":"/etc/passwd","id":1}`,
		`{"imageUrl":"file:///etc/passwd","id":1}`,
	} {
		resp, out := postCrop(t, srv, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.Equal(t, "INVALID_INPUT", out["code"], body)
	}
}

func TestCropErrorMapping(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{errors.New(errors.ErrCodeNotFound, "Photo size not found"), http.StatusNotFound, "Photo size not found"},
		{errors.New(errors.ErrCodeNoFacesDetected, "no faces detected"), http.StatusUnprocessableEntity, "no faces detected"},
		{&errors.AspectRatioMismatchError{Original: 2, Target: 2.5, DiffPercent: 25}, http.StatusUnprocessableEntity, ""},
		{errors.New(errors.ErrCodeImageFetch, "failed to read the image"), http.StatusBadGateway, "failed to read the image"},
		{errors.New(errors.ErrCodeStorage, "upload failed"), http.StatusInternalServerError, "upload failed"},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError, "unexpected EOF"},
	}

	for _, tt := range tests {
		srv := newTestServer(&fakeCropper{err: tt.err})
		resp, out := postCrop(t, srv, `{"imageUrl":"https://example.com/p.jpg","id":1}`)
		srv.Close()

		assert.Equal(t, tt.status, resp.StatusCode, tt.err.Error())
		if tt.message != "" {
			assert.Equal(t, tt.message, out["message"])
		} else {
			assert.NotEmpty(t, out["message"])
		}
	}
}

func TestPreflight(t *testing.T) {
	srv := newTestServer(&fakeCropper{})
	defer srv.Close()

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/crop", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestPresetsAndHealth(t *testing.T) {
	srv := newTestServer(&fakeCropper{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/presets")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Presets []catalog.Entry `json:"presets"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Presets, 17)
	assert.Equal(t, 14, body.Presets[13].ID)
	assert.Equal(t, 851, body.Presets[13].Spec.Width)

	health, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(&fakeCropper{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/crop")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(errors.ErrCodeEmptyFaceSet))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.ErrCodeEncodedTooLarge))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(""))
}
