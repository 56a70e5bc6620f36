package config

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vonity-org/visor-api/models"
)

func TestNew(t *testing.T) {
	os.Setenv("DB_URI", "mongodb://127.0.0.1:27017")
	os.Setenv("DB_NAME", "test")
	os.Unsetenv("SIMILARITY_MIN_OVERLAP")
	conf := New()

	assert.NotEmpty(t, conf)
	assert.Equal(t, "mongodb://127.0.0.1:27017", conf.URL)
	assert.Equal(t, "test", conf.DatabaseName)
	assert.Equal(t, 1, conf.SimilarityMinOverlap)
}

func TestNewSimilarityMinOverlap(t *testing.T) {
	os.Setenv("SIMILARITY_MIN_OVERLAP", "3")
	defer os.Unsetenv("SIMILARITY_MIN_OVERLAP")
	conf := New()

	assert.Equal(t, 3, conf.SimilarityMinOverlap)

	os.Setenv("SIMILARITY_MIN_OVERLAP", "0")
	conf = New()
	assert.Equal(t, 1, conf.SimilarityMinOverlap)

	os.Setenv("SIMILARITY_MIN_OVERLAP", "not-a-number")
	conf = New()
	assert.Equal(t, 1, conf.SimilarityMinOverlap)
}

func TestErrorStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	ErrorStatus("error it borked", models.CodeInternalError, http.StatusInternalServerError, rr, errors.New("bad request"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp models.Response
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "error it borked", resp.Message)
	assert.Equal(t, models.CodeInternalError, resp.Code)
	assert.Nil(t, resp.Data)
}
