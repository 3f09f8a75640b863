package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitea.kood.tech/petrkubec/linkvibez/internal/media"
	"gitea.kood.tech/petrkubec/linkvibez/internal/model"
)

func createTestPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, token, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/me/photo", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestUploadPhoto(t *testing.T) {
	e := newTestEnv(t)
	id, token := e.onboard(t, "photo@example.com", "Pat", "")
	_, fresh := e.signUp(t, "fresh@example.com")

	t.Run("Upload replaces the profile image", func(t *testing.T) {
		w := httptest.NewRecorder()
		e.handler.ServeHTTP(w, uploadRequest(t, token, "file", "me.png", createTestPNG(t)))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		url := decodeBody[map[string]string](t, w)["image_url"]
		assert.Equal(t, "http://localhost:9000/avatars/me.png", url)

		p := decodeBody[model.Profile](t, e.do(t, http.MethodGet, "/me/profile", token, nil))
		assert.Equal(t, url, p.ImageURL)
	})

	t.Run("Upload during onboarding", func(t *testing.T) {
		w := httptest.NewRecorder()
		e.handler.ServeHTTP(w, uploadRequest(t, fresh, "file", "new.png", createTestPNG(t)))
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, decodeBody[map[string]string](t, w)["image_url"])
	})

	t.Run("Not an image", func(t *testing.T) {
		w := httptest.NewRecorder()
		e.handler.ServeHTTP(w, uploadRequest(t, token, "file", "notes.txt", []byte("plain text, not a picture")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Wrong field name", func(t *testing.T) {
		w := httptest.NewRecorder()
		e.handler.ServeHTTP(w, uploadRequest(t, token, "avatar", "me.png", createTestPNG(t)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "missing_file", errorCode(t, w))
	})

	t.Run("Too large", func(t *testing.T) {
		big := append(createTestPNG(t), make([]byte, 2*int(e.app.cfg.S3.MaxUploadBytes)+multipartOverhead)...)
		w := httptest.NewRecorder()
		e.handler.ServeHTTP(w, uploadRequest(t, token, "file", "big.png", big))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("Storage errors", func(t *testing.T) {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{fmt.Errorf("%w: content type", media.ErrValidation), http.StatusBadRequest, "only_images_allowed"},
			{media.ErrTooLarge, http.StatusRequestEntityTooLarge, "file_too_large"},
			{errors.New("put object to s3: connection refused"), http.StatusBadGateway, "upload_failed"},
		}
		for _, tc := range cases {
			e.photos.mu.Lock()
			e.photos.err = tc.err
			e.photos.mu.Unlock()

			w := httptest.NewRecorder()
			e.handler.ServeHTTP(w, uploadRequest(t, token, "file", "me.png", createTestPNG(t)))
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, errorCode(t, w))
		}
		e.photos.mu.Lock()
		e.photos.err = nil
		e.photos.mu.Unlock()
	})

	assert.NotZero(t, id)
}
