package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/vonity-org/visor-api/api"
	"github.com/vonity-org/visor-api/api/handlers"
	"github.com/vonity-org/visor-api/databases/mocks"
	"github.com/vonity-org/visor-api/images"
	"github.com/vonity-org/visor-api/models"
	"github.com/vonity-org/visor-api/reports"
)

type nopUploader struct{}

func (nopUploader) Upload(_ context.Context, _ io.Reader, publicID string) (string, error) {
	return "https://cdn.example.com/visor/" + publicID, nil
}

func (nopUploader) Destroy(context.Context, string) error { return nil }

func imageOver(rdb *mocks.ReportDatabase, idb *mocks.ImageDatabase) handlers.Image {
	logger := zap.NewNop().Sugar()
	return handlers.Image{
		Reports: reports.NewLifecycle(rdb, nil, nil, logger),
		Manager: images.NewManager(idb, nopUploader{}, logger),
		Logger:  logger,
	}
}

func multipartImage(t *testing.T, description string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "sighting.png")
	assert.NoError(t, err)
	_, err = fw.Write([]byte("not-a-real-png"))
	assert.NoError(t, err)
	if description != "" {
		assert.NoError(t, mw.WriteField("description", description))
	}
	assert.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestImage_UploadImageHandler(t *testing.T) {
	oid := primitive.NewObjectID()
	rdb := &mocks.ReportDatabase{}
	rdb.On("FindOne", mock.Anything, mock.Anything).
		Return(&models.Report{ID: oid, Organization: "test-org"}, nil)
	idb := &mocks.ImageDatabase{}
	idb.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)
	h := imageOver(rdb, idb)

	body, contentType := multipartImage(t, "wreck from the north")
	req := httptest.NewRequest("POST", "/visor/image?id="+oid.Hex(), body)
	req.Header.Set("Content-Type", contentType)
	req = req.WithContext(api.WithOrganization(req.Context(), "test-org"))

	rr := httptest.NewRecorder()
	h.UploadImageHandler(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	resp := decodeResponse(t, rr)
	assert.Equal(t, models.CodeSuccess, resp.Code)

	data := resp.Data.(map[string]interface{})
	assert.NotEmpty(t, data["image"])
}

func TestImage_UploadImageHandlerUnknownReport(t *testing.T) {
	rdb := &mocks.ReportDatabase{}
	rdb.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)
	h := imageOver(rdb, &mocks.ImageDatabase{})

	body, contentType := multipartImage(t, "desc")
	req := httptest.NewRequest("POST", "/visor/image?id="+primitive.NewObjectID().Hex(), body)
	req.Header.Set("Content-Type", contentType)
	req = req.WithContext(api.WithOrganization(req.Context(), "test-org"))

	rr := httptest.NewRecorder()
	h.UploadImageHandler(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, models.CodeNotFound, decodeResponse(t, rr).Code)
}

func TestImage_UploadImageHandlerRequiresDescription(t *testing.T) {
	h := imageOver(&mocks.ReportDatabase{}, &mocks.ImageDatabase{})

	body, contentType := multipartImage(t, "")
	req := httptest.NewRequest("POST", "/visor/image?id="+primitive.NewObjectID().Hex(), body)
	req.Header.Set("Content-Type", contentType)
	req = req.WithContext(api.WithOrganization(req.Context(), "test-org"))

	rr := httptest.NewRecorder()
	h.UploadImageHandler(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, models.CodeIncompleteBody, decodeResponse(t, rr).Code)
}

func TestImage_UploadImageHandlerRequiresID(t *testing.T) {
	h := imageOver(&mocks.ReportDatabase{}, &mocks.ImageDatabase{})

	rr := httptest.NewRecorder()
	h.UploadImageHandler(rr, orgRequest(t, "POST", "/visor/image", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestImage_GetImagesHandler(t *testing.T) {
	oid := primitive.NewObjectID()
	idb := &mocks.ImageDatabase{}
	stored := []models.Image{{ID: primitive.NewObjectID(), Key: "k1", ReportID: oid.Hex(), Organization: "test-org"}}
	idb.On("Find", mock.Anything, mock.Anything).Return(stored, nil)
	h := imageOver(&mocks.ReportDatabase{}, idb)

	rr := httptest.NewRecorder()
	h.GetImagesHandler(rr, orgRequest(t, "GET", "/visor/images?id="+oid.Hex(), nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	resp := decodeResponse(t, rr)
	assert.Equal(t, models.CodeSuccess, resp.Code)

	data := resp.Data.(map[string]interface{})
	assert.Len(t, data["images"], 1)
}

func TestImage_GetImagesHandlerEmpty(t *testing.T) {
	idb := &mocks.ImageDatabase{}
	idb.On("Find", mock.Anything, mock.Anything).Return(nil, nil)
	h := imageOver(&mocks.ReportDatabase{}, idb)

	rr := httptest.NewRecorder()
	h.GetImagesHandler(rr, orgRequest(t, "GET", "/visor/images?id="+primitive.NewObjectID().Hex(), nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	resp := decodeResponse(t, rr)

	data := resp.Data.(map[string]interface{})
	assert.Empty(t, data["images"])
}

func TestImage_DeleteImageHandler(t *testing.T) {
	idb := &mocks.ImageDatabase{}
	idb.On("FindOne", mock.Anything, mock.Anything).Return(&models.Image{Key: "k1"}, nil)
	idb.On("DeleteOne", mock.Anything, mock.Anything).Return(int64(1), nil)
	h := imageOver(&mocks.ReportDatabase{}, idb)

	rr := httptest.NewRecorder()
	h.DeleteImageHandler(rr, orgRequest(t, "DELETE", "/visor/image?name=k1", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, models.CodeSuccess, decodeResponse(t, rr).Code)
}

func TestImage_DeleteImageHandlerNotFound(t *testing.T) {
	idb := &mocks.ImageDatabase{}
	idb.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)
	h := imageOver(&mocks.ReportDatabase{}, idb)

	rr := httptest.NewRecorder()
	h.DeleteImageHandler(rr, orgRequest(t, "DELETE", "/visor/image?name=missing", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, models.CodeNotFound, decodeResponse(t, rr).Code)
}

func TestImage_UpdateImageHandler(t *testing.T) {
	idb := &mocks.ImageDatabase{}
	idb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
	h := imageOver(&mocks.ReportDatabase{}, idb)

	body, _ := json.Marshal(map[string]string{"description": "updated"})
	rr := httptest.NewRecorder()
	h.UpdateImageHandler(rr, orgRequest(t, "PUT", "/visor/image?name=k1", body))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, models.CodeSuccess, decodeResponse(t, rr).Code)
}

func TestImage_UpdateImageHandlerRequiresDescription(t *testing.T) {
	h := imageOver(&mocks.ReportDatabase{}, &mocks.ImageDatabase{})

	body, _ := json.Marshal(map[string]string{})
	rr := httptest.NewRecorder()
	h.UpdateImageHandler(rr, orgRequest(t, "PUT", "/visor/image?name=k1", body))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, models.CodeIncompleteBody, decodeResponse(t, rr).Code)
}
