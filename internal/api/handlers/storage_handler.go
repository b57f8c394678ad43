package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/isdelr/annotation-hub-be/internal/storage"
	"github.com/rs/zerolog/log"
)

// StorageClient lists and downloads files from cloud storage.
type StorageClient interface {
	BrowseS3(ctx context.Context, q storage.S3Query) ([]storage.Entry, error)
	BrowseDrive(ctx context.Context, q storage.DriveQuery) ([]storage.Entry, error)
	Fetch(ctx context.Context, source string) (*storage.Object, error)
}

// StorageHandler exposes cloud storage browsing and the download proxy.
type StorageHandler struct {
	client StorageClient
}

// NewStorageHandler creates a new StorageHandler.
func NewStorageHandler(client StorageClient) *StorageHandler {
	return &StorageHandler{client: client}
}

// Browse lists an S3 prefix (?provider=s3&bucket=&region=&prefix=) or a Drive folder
// (?provider=drive&folderId=). A Drive OAuth token may be passed in X-Drive-Token.
func (h *StorageHandler) Browse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		entries []storage.Entry
		err     error
	)
	switch q.Get("provider") {
	case "s3":
		query := storage.S3Query{Bucket: q.Get("bucket"), Region: q.Get("region"), Prefix: q.Get("prefix")}
		if err := validate.Struct(query); err != nil {
			http.Error(w, validationMessage(err), http.StatusBadRequest)
			return
		}
		entries, err = h.client.BrowseS3(r.Context(), query)
	case "drive":
		query := storage.DriveQuery{FolderID: q.Get("folderId"), AccessToken: r.Header.Get("X-Drive-Token")}
		if err := validate.Struct(query); err != nil {
			http.Error(w, validationMessage(err), http.StatusBadRequest)
			return
		}
		entries, err = h.client.BrowseDrive(r.Context(), query)
	default:
		http.Error(w, "provider must be s3 or drive", http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("provider", q.Get("provider")).Msg("Storage browse failed")
		respondUpstreamError(w, err, "browse storage")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Proxy downloads ?url= through the candidate fallback chain and relays the body.
// A Drive OAuth token may be passed in X-Drive-Token.
func (h *StorageHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("url")
	if source == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}
	ctx := storage.WithAccessToken(r.Context(), r.Header.Get("X-Drive-Token"))
	obj, err := h.client.Fetch(ctx, source)
	if err != nil {
		log.Warn().Err(err).Str("source", source).Msg("Storage proxy failed")
		respondUpstreamError(w, err, "fetch source")
		return
	}

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Body)))
	w.Header().Set("X-Source-URL", obj.URL)
	w.Header().Set("Cache-Control", "no-store")
	w.Write(obj.Body)
}

// respondUpstreamError reports failures of remote services as 502 unless they map to a client error.
func respondUpstreamError(w http.ResponseWriter, err error, action string) {
	if statusFor(err) != http.StatusInternalServerError {
		respondError(w, err, action)
		return
	}
	http.Error(w, "Failed to "+action+": upstream error", http.StatusBadGateway)
}
