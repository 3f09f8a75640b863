package main

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"gitea.kood.tech/petrkubec/linkvibez/internal/media"
	"gitea.kood.tech/petrkubec/linkvibez/internal/store"
)

const multipartOverhead = 1 << 20

// POST /me/photo  (multipart form, field name: "file")
// Stores the photo and returns its public URL. If the user already has a
// profile its image is replaced; during onboarding the client sends the URL
// with the profile form instead.
func uploadPhotoHandler(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, _ := userIDFromContext(r.Context())
		limit := a.cfg.S3.MaxUploadBytes

		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
		if err := r.ParseMultipartForm(limit); err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "file_too_large_or_missing")
			return
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing_file")
			return
		}
		defer f.Close()

		// Sniff MIME from the first bytes
		head := make([]byte, 512)
		n, _ := io.ReadFull(f, head)
		ctype := http.DetectContentType(head[:n])
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			writeError(w, http.StatusInternalServerError, "seek_failed")
			return
		}

		url, err := a.photos.Upload(r.Context(), header.Filename, f, header.Size, ctype)
		switch {
		case errors.Is(err, media.ErrValidation):
			writeError(w, http.StatusBadRequest, "only_images_allowed")
			return
		case errors.Is(err, media.ErrTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "file_too_large")
			return
		case err != nil:
			a.log.Error("upload photo", zap.Int("user_id", me), zap.Error(err))
			writeError(w, http.StatusBadGateway, "upload_failed")
			return
		}

		if err := a.profiles.SetImage(r.Context(), me, url); err != nil && !errors.Is(err, store.ErrNotFound) {
			a.log.Error("save photo url", zap.Int("user_id", me), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "db_update_failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"image_url": url})
	}
}
