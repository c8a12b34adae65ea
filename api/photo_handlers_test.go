package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"geophoto/gps/gpstest"
	"geophoto/ingest"
	"geophoto/model"
	"geophoto/query"
	"geophoto/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	saved     [][]byte
	savedMeta []model.PhotoMetadata

	photos map[string]fakePhoto

	textResults []model.PhotoMetadata
	geoResults  []model.PhotoMetadata
	textCalls   int
	geoCalls    int
}

type fakePhoto struct {
	data []byte
	meta model.PhotoMetadata
}

func (s *fakeStore) SavePhoto(data []byte, meta model.PhotoMetadata) (string, error) {
	s.saved = append(s.saved, data)
	s.savedMeta = append(s.savedMeta, meta)
	return "65f000000000000000000001", nil
}

func (s *fakeStore) OpenPhoto(id string) (io.ReadCloser, *model.PhotoMetadata, error) {
	p, ok := s.photos[id]
	if !ok {
		return nil, nil, storage.ErrNotFound
	}
	meta := p.meta
	return io.NopCloser(bytes.NewReader(p.data)), &meta, nil
}

func (s *fakeStore) SearchPhotosByText(q string) ([]model.PhotoMetadata, error) {
	s.textCalls++
	return s.textResults, nil
}

func (s *fakeStore) SearchPhotosByLocation(long float64, lat float64) ([]model.PhotoMetadata, error) {
	s.geoCalls++
	return s.geoResults, nil
}

func newHandlers(store *fakeStore) *PhotoHandlers {
	log := zap.NewNop()
	return &PhotoHandlers{
		Store:    store,
		Pipeline: &ingest.Pipeline{Store: store, Log: log},
		Query:    &query.Service{Store: store, Log: log},
		Log:      log,
	}
}

func multipartBody(t *testing.T, file []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	if file != nil {
		fw, err := mw.CreateFormFile("photo", "upload.jpg")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func geotaggedJPEG() []byte {
	return gpstest.JPEG(gpstest.Tags{
		LatitudeRef:  "N",
		Latitude:     gpstest.DMS(37, 46, 30),
		LongitudeRef: "W",
		Longitude:    gpstest.DMS(122, 25, 9),
	})
}

func TestLiveness(t *testing.T) {
	w := httptest.NewRecorder()
	newHandlers(&fakeStore{}).Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestTextSearch(t *testing.T) {
	store := &fakeStore{textResults: []model.PhotoMetadata{
		{Name: "lighthouse", LonLat: model.NewGeoPoint(-122.4, 37.8)},
	}}

	w := httptest.NewRecorder()
	newHandlers(store).Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?text=lighthouse", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, store.textCalls)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var photos []model.PhotoMetadata
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &photos))
	require.Len(t, photos, 1)
	assert.Equal(t, "lighthouse", photos[0].Name)
}

func TestTextSearchNoMatches(t *testing.T) {
	w := httptest.NewRecorder()
	newHandlers(&fakeStore{}).Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?text=nothing", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}

func TestProximitySearch(t *testing.T) {
	store := &fakeStore{}

	target := "/?coordinates[longitude]=-122.419&coordinates[latitude]=37.775"
	w := httptest.NewRecorder()
	newHandlers(store).Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, store.geoCalls)
}

func TestSearchBadRequests(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"both selectors", "/?text=pier&coordinates[longitude]=1&coordinates[latitude]=2"},
		{"unparseable coordinate", "/?coordinates[longitude]=abc&coordinates[latitude]=2"},
		{"half a point", "/?coordinates[longitude]=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			w := httptest.NewRecorder()
			newHandlers(store).Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, 0, store.textCalls)
			assert.Equal(t, 0, store.geoCalls)
		})
	}
}

func TestUploadSuccess(t *testing.T) {
	store := &fakeStore{}
	data := geotaggedJPEG()
	body, contentType := multipartBody(t, data, map[string]string{
		"name":        "golden gate",
		"description": "from the pier",
	})

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	newHandlers(store).Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/65f000000000000000000001", w.Header().Get("Location"))
	assert.Empty(t, w.Body.String())

	require.Len(t, store.saved, 1)
	assert.True(t, bytes.Equal(data, store.saved[0]))
	assert.Equal(t, "golden gate", store.savedMeta[0].Name)
}

func TestUploadFilenameFallback(t *testing.T) {
	store := &fakeStore{}
	body, contentType := multipartBody(t, geotaggedJPEG(), nil)

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	newHandlers(store).Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.savedMeta, 1)
	assert.Equal(t, "upload.jpg", store.savedMeta[0].Name)
}

func TestUploadRejections(t *testing.T) {
	tests := []struct {
		name       string
		file       []byte
		wantStatus int
		wantReason string
	}{
		{"no file field", nil, http.StatusBadRequest, "No file"},
		{"plain text", []byte("just some words"), http.StatusBadRequest, "File is not JPEG"},
		{"jpeg without gps", gpstest.PlainJPEG(), http.StatusBadRequest, "File has no geolocation tag"},
		{"oversized", bytes.Repeat([]byte{0xFF}, ingest.DefaultMaxSize+1), http.StatusRequestEntityTooLarge, "File too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			body, contentType := multipartBody(t, tt.file, nil)

			req := httptest.NewRequest(http.MethodPost, "/", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			newHandlers(store).Router().ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantReason, strings.TrimSpace(w.Body.String()))
			assert.Empty(t, store.saved, "rejected upload must not reach the store")
		})
	}
}

func TestGetPhoto(t *testing.T) {
	data := geotaggedJPEG()
	store := &fakeStore{photos: map[string]fakePhoto{
		"65f000000000000000000001": {
			data: data,
			meta: model.PhotoMetadata{ContentType: "image/jpeg"},
		},
	}}

	w := httptest.NewRecorder()
	newHandlers(store).Router().ServeHTTP(w,
		httptest.NewRequest(http.MethodGet, "/65f000000000000000000001", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.True(t, bytes.Equal(data, w.Body.Bytes()))
}

func TestGetPhotoUnknownId(t *testing.T) {
	w := httptest.NewRecorder()
	newHandlers(&fakeStore{}).Router().ServeHTTP(w,
		httptest.NewRequest(http.MethodGet, "/not-a-real-id", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid photo id", strings.TrimSpace(w.Body.String()))
}
