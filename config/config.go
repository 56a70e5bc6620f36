package config

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/vonity-org/visor-api/logging"
	"github.com/vonity-org/visor-api/models"
)

// Config holds the project config values
type Config struct {
	URL                  string
	DatabaseName         string
	BaseURL              string
	Port                 string
	AdminAPIKeyHash      string
	CloudinaryURL        string
	SendgridAPIKey       string
	SendgridFromEmail    string
	SimilarityMinOverlap int
}

// New sets up all config related services
func New() *Config {

	//setup zap logger and replace default logger
	_ = zap.ReplaceGlobals(logging.New().Desugar())

	minOverlap, err := strconv.Atoi(os.Getenv("SIMILARITY_MIN_OVERLAP"))
	if err != nil || minOverlap < 1 {
		minOverlap = 1
	}

	return &Config{
		URL:                  os.Getenv("DB_URI"),
		DatabaseName:         os.Getenv("DB_NAME"),
		BaseURL:              os.Getenv("BASE_URL"),
		Port:                 os.Getenv("PORT"),
		AdminAPIKeyHash:      os.Getenv("ADMIN_API_KEY_HASH"),
		CloudinaryURL:        os.Getenv("CLOUDINARY_URL"),
		SendgridAPIKey:       os.Getenv("SENDGRID_API_KEY"),
		SendgridFromEmail:    os.Getenv("SENDGRID_FROM_EMAIL"),
		SimilarityMinOverlap: minOverlap,
	}

}

// ErrorStatus logs the failure and writes the VISOR response envelope for a
// given message, envelope code, status code and err
func ErrorStatus(message, code string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With(err).Error(message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	body, _ := json.Marshal(models.Response{Message: message, Code: code})
	_, _ = w.Write(body)
}
