package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"geophoto/ingest"
	"geophoto/model"
	"geophoto/query"
	"geophoto/storage"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// formOverhead is the slack on top of the photo size limit for multipart
// boundaries plus the name and description fields.
const formOverhead = 16 << 10

type PhotoHandlers struct {
	Store    storage.PhotoStore
	Pipeline *ingest.Pipeline
	Query    *query.Service
	Log      *zap.Logger
}

func (h *PhotoHandlers) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", h.wrap(h.handleSearch)).Methods(http.MethodGet)
	r.HandleFunc("/", h.wrap(h.handleUploadPhoto)).Methods(http.MethodPost)
	r.HandleFunc("/{id}", h.wrap(h.handleGetPhoto)).Methods(http.MethodGet)
	return r
}

func (h *PhotoHandlers) wrap(next http.HandlerFunc) http.HandlerFunc {
	return RecoveryMiddleware(h.Log, RequestLoggerMiddleware(h.Log, next))
}

// handleSearch serves GET /. With no selector it answers the liveness probe;
// with ?text= it runs a text search; with ?coordinates[longitude]= and
// ?coordinates[latitude]= it runs a proximity search.
func (h *PhotoHandlers) handleSearch(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	text := values.Get("text")
	lonStr := values.Get("coordinates[longitude]")
	latStr := values.Get("coordinates[latitude]")

	if text == "" && lonStr == "" && latStr == "" {
		w.Write([]byte("ok"))
		return
	}

	params := query.Params{Text: text}
	if lonStr != "" || latStr != "" {
		lon, err1 := strconv.ParseFloat(lonStr, 64)
		lat, err2 := strconv.ParseFloat(latStr, 64)
		if err1 != nil || err2 != nil {
			http.Error(w, "Invalid coordinates", http.StatusBadRequest)
			return
		}
		params.Longitude = &lon
		params.Latitude = &lat
	}

	photos, err := h.Query.Search(params)
	if err != nil {
		switch {
		case errors.Is(err, query.ErrAmbiguous), errors.Is(err, query.ErrNoSelector):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.Log.Error("search failed", zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	if photos == nil {
		photos = []model.PhotoMetadata{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(photos); err != nil {
		h.Log.Error("failed to encode search results", zap.Error(err))
	}
}

// handleUploadPhoto serves POST /: a multipart form with the file under
// "photo" plus optional "name" and "description" fields. The body reader is
// capped before buffering so an oversized upload never occupies memory.
func (h *PhotoHandlers) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	maxSize := h.Pipeline.MaxSize
	if maxSize == 0 {
		maxSize = ingest.DefaultMaxSize
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+formOverhead)

	if err := r.ParseMultipartForm(maxSize + formOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, ingest.ErrTooLarge.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, ingest.ErrNoFile.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		http.Error(w, ingest.ErrNoFile.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, ingest.ErrTooLarge.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		h.Log.Error("failed to read uploaded file", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	id, err := h.Pipeline.Ingest(data, name, r.FormValue("description"))
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrTooLarge):
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		case ingest.IsRejection(err):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.Log.Error("failed to store photo", zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Location", "/"+id)
	w.WriteHeader(http.StatusCreated)
}

// handleGetPhoto serves GET /{id}, streaming the blob with its stored content
// type. Malformed and unknown ids both answer 400.
func (h *PhotoHandlers) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	stream, meta, err := h.Store.OpenPhoto(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "Invalid photo id", http.StatusBadRequest)
			return
		}
		h.Log.Error("failed to open photo", zap.String("id", id), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	defer stream.Close()

	if meta.ContentType != "" {
		w.Header().Set("Content-Type", meta.ContentType)
	}
	if _, err := io.Copy(w, stream); err != nil {
		h.Log.Error("failed to stream photo", zap.String("id", id), zap.Error(err))
	}
}
