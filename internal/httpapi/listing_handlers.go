package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"homegrid.io/internal/audit"
	"homegrid.io/internal/auth"
	"homegrid.io/internal/listing"
	"homegrid.io/internal/stream"
)

const maxUploadBytes = 10 << 20 // per image file

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

func (a *API) handlePropertiesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createProperty(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

func (a *API) createProperty(w http.ResponseWriter, r *http.Request) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	var req listing.NewProperty
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx := auth.ContextWithUser(r.Context(), *user)
	p, err := a.listings.Create(ctx, user, req)
	if err != nil {
		handleListingError(w, r, err)
		return
	}

	_ = audit.LogEvent(ctx, "listing.create", map[string]any{
		"property_id": p.ID,
		"city":        p.City,
	})

	w.Header().Set("Location", "/v1/properties/"+strconv.FormatInt(p.ID, 10))
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) handleMyProperties(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	var status *listing.Status
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		s := listing.Status(raw)
		status = &s
	}
	offset, limit, err := pagination(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	props, err := a.listings.ListMine(r.Context(), user, status, sortParam(r), offset, limit)
	if err != nil {
		handleListingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, props)
}

func (a *API) handlePublishedProperties(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	offset, limit, err := pagination(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	props, err := a.listings.ListPublished(r.Context(), r.URL.Query().Get("city"), sortParam(r), offset, limit)
	if err != nil {
		handleListingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, props)
}

func (a *API) handlePropertyResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/properties/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if strings.HasSuffix(path, "/images") {
		raw := strings.TrimSuffix(strings.TrimSuffix(path, "/images"), "/")
		id, err := parseID(raw)
		if err != nil {
			writeError(w, r, http.StatusNotFound, "property not found")
			return
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.uploadImages(w, r, id)
		return
	}

	if strings.Contains(strings.TrimSuffix(path, "/"), "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	id, err := parseID(strings.TrimSuffix(path, "/"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "property not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getProperty(w, r, id)
	case http.MethodPatch:
		a.updateProperty(w, r, id)
	case http.MethodDelete:
		a.deleteProperty(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

// getProperty tolerates absent or rejected credentials: the read path is
// public and a bad token degrades to an anonymous view.
func (a *API) getProperty(w http.ResponseWriter, r *http.Request, id int64) {
	caller, err := a.identity(r)
	if err != nil {
		caller = nil
	}
	p, err := a.listings.Get(r.Context(), caller, id)
	if err != nil {
		handleListingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) updateProperty(w http.ResponseWriter, r *http.Request, id int64) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	var req listing.PropertyUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx := auth.ContextWithUser(r.Context(), *user)
	p, prev, err := a.listings.Update(ctx, user, id, req)
	if err != nil {
		handleListingError(w, r, err)
		return
	}

	_ = audit.LogEvent(ctx, "listing.update", map[string]any{"property_id": p.ID})

	// Announce on the live feed only when this update moved the listing to
	// published. Re-sending the same status stays quiet.
	if a.stream != nil && prev != listing.StatusPublished && p.Published() {
		a.stream.Publish(stream.ListingEvent{
			ID:        p.ID,
			Title:     p.Title,
			City:      p.City,
			Price:     p.Price,
			Timestamp: time.Now().UTC(),
		})
		_ = audit.LogEvent(ctx, "listing.publish", map[string]any{"property_id": p.ID})
	}

	writeJSON(w, http.StatusOK, p)
}

func (a *API) deleteProperty(w http.ResponseWriter, r *http.Request, id int64) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	ctx := auth.ContextWithUser(r.Context(), *user)
	if err := a.listings.Delete(ctx, user, id); err != nil {
		handleListingError(w, r, err)
		return
	}
	_ = audit.LogEvent(ctx, "listing.delete", map[string]any{"property_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) uploadImages(w http.ResponseWriter, r *http.Request, id int64) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	if a.uploadDir == "" {
		writeError(w, r, http.StatusServiceUnavailable, "uploads disabled")
		return
	}

	// Settle the access question before anything touches the disk: a caller
	// who may not modify the listing must not cause writes under uploadDir.
	if err := a.listings.CanModify(r.Context(), user, id); err != nil {
		handleListingError(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid multipart body")
		return
	}
	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		writeError(w, r, http.StatusBadRequest, "at least one image file is required")
		return
	}
	for _, fh := range files {
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if !allowedImageExts[ext] {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unsupported image type %q", ext))
			return
		}
		if fh.Size > maxUploadBytes {
			writeError(w, r, http.StatusBadRequest, "image exceeds the 10MB limit")
			return
		}
	}

	dir := filepath.Join(a.uploadDir, strconv.FormatInt(id, 10))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	var stored []string
	discard := func() {
		for _, rel := range stored {
			_ = os.Remove(filepath.Join(a.uploadDir, strings.TrimPrefix(rel, "uploads/")))
		}
		// Drops the directory too when this batch was its only content.
		_ = os.Remove(dir)
	}
	for _, fh := range files {
		name := uuid.New().String() + strings.ToLower(filepath.Ext(fh.Filename))
		if err := saveUpload(fh, filepath.Join(dir, name)); err != nil {
			discard()
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		stored = append(stored, "uploads/"+strconv.FormatInt(id, 10)+"/"+name)
	}

	ctx := auth.ContextWithUser(r.Context(), *user)
	p, err := a.listings.AttachImages(ctx, user, id, stored)
	if err != nil {
		// The listing vanished between the access check and the append.
		discard()
		handleListingError(w, r, err)
		return
	}

	_ = audit.LogEvent(ctx, "listing.images.upload", map[string]any{
		"property_id": id,
		"count":       len(stored),
	})
	writeJSON(w, http.StatusOK, p)
}

func saveUpload(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, io.LimitReader(src, maxUploadBytes)); err != nil {
		return err
	}
	return out.Close()
}

func pagination(r *http.Request) (offset, limit int, err error) {
	offset, err = parsePositiveInt(r.URL.Query().Get("offset"), 0, 0, 1<<30)
	if err != nil {
		return 0, 0, errors.New("offset must be a non-negative integer")
	}
	limit, err = parsePositiveInt(r.URL.Query().Get("limit"), 100, 1, 1000)
	if err != nil {
		return 0, 0, errors.New("limit must be between 1 and 1000")
	}
	return offset, limit, nil
}

func sortParam(r *http.Request) listing.Sort {
	switch r.URL.Query().Get("sort") {
	case "price_asc":
		return listing.SortPriceAsc
	case "price_desc":
		return listing.SortPriceDesc
	default:
		return listing.SortNewest
	}
}

func handleListingError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, listing.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, privilegesMsg)
	case errors.Is(err, listing.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "property not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
