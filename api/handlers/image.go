package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/vonity-org/visor-api/api"
	"github.com/vonity-org/visor-api/config"
	"github.com/vonity-org/visor-api/images"
	"github.com/vonity-org/visor-api/models"
	"github.com/vonity-org/visor-api/reports"
)

// maxImageUpload bounds the parsed multipart body.
const maxImageUpload = 10 << 20

// Image exported for testing purposes
type Image struct {
	Reports *reports.Lifecycle
	Manager *images.Manager
	Logger  *zap.SugaredLogger
}

// UploadImageHandler attaches a single image to a report. VISOR only
// supports single image upload.
func (h Image) UploadImageHandler(w http.ResponseWriter, r *http.Request) {
	org, ok := api.OrganizationFromContext(r.Context())
	if !ok {
		config.ErrorStatus("no organization in request context", models.CodeUnauthorized, http.StatusUnauthorized, w, nil)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		config.ErrorStatus("Please check, that your request has a \"id\" parameter to select the report.", models.CodeIncompleteBody, http.StatusBadRequest, w, nil)
		return
	}
	if err := r.ParseMultipartForm(maxImageUpload); err != nil {
		config.ErrorStatus("Please provide a body, with a image in it. VISOR only supports single Image upload.", models.CodeIncompleteBody, http.StatusBadRequest, w, err)
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		config.ErrorStatus("Please provide a body, with a image in it. VISOR only supports single Image upload.", models.CodeIncompleteBody, http.StatusBadRequest, w, err)
		return
	}
	defer file.Close()
	description := r.FormValue("description")
	if description == "" {
		config.ErrorStatus("Please provide a description for the image.", models.CodeIncompleteBody, http.StatusBadRequest, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	// the report must exist within the caller's organization
	if _, err := h.Reports.Get(ctx, org, id); err != nil {
		writeCoreError(w, "Could not find the Report specified, please try another id.", err)
		return
	}

	image, err := h.Manager.Attach(ctx, org, id, file, description)
	if err != nil {
		writeCoreError(w, "Failed to upload this image to the given report ID. Please check your information and try again.", err)
		return
	}
	respond(w, http.StatusOK, models.Response{
		Message: "Successfully uploaded a image to the report.",
		Code:    models.CodeSuccess,
		Data:    map[string]interface{}{"image": image},
	})
}

// GetImagesHandler lists the image metadata attached to a report
func (h Image) GetImagesHandler(w http.ResponseWriter, r *http.Request) {
	org, ok := api.OrganizationFromContext(r.Context())
	if !ok {
		config.ErrorStatus("no organization in request context", models.CodeUnauthorized, http.StatusUnauthorized, w, nil)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		config.ErrorStatus("Please check, that your request has a \"id\" parameter to select the report.", models.CodeIncompleteBody, http.StatusBadRequest, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	imgs, err := h.Manager.ListFor(ctx, org, id)
	if err != nil {
		writeCoreError(w, "Failed to fetch images for this report.", err)
		return
	}
	respond(w, http.StatusOK, models.Response{
		Message: "Successfully fetched the images for the report.",
		Code:    models.CodeSuccess,
		Data:    map[string]interface{}{"images": imgs},
	})
}

// DeleteImageHandler removes an image by its storage key
func (h Image) DeleteImageHandler(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		config.ErrorStatus("Please check, that your request has a \"name\" parameter to select the image.", models.CodeIncompleteBody, http.StatusBadRequest, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := h.Manager.Remove(ctx, name); err != nil {
		writeCoreError(w, "Could not find Image or there was an error while deleting the Image.", err)
		return
	}
	respond(w, http.StatusOK, models.Response{
		Message: "Successfully deleted Image.",
		Code:    models.CodeSuccess,
	})
}

type updateImageRequest struct {
	Description string `json:"description"`
}

// UpdateImageHandler changes an image description by its storage key
func (h Image) UpdateImageHandler(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	var req updateImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || name == "" || req.Description == "" {
		config.ErrorStatus("Please check, that your request has a \"name\" parameter and a \"description\" body option.", models.CodeIncompleteBody, http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := h.Manager.UpdateDescription(ctx, name, req.Description); err != nil {
		writeCoreError(w, "Could not find Image or there was an error while updating the Image description.", err)
		return
	}
	respond(w, http.StatusOK, models.Response{
		Message: "Successfully updated Image description.",
		Code:    models.CodeSuccess,
	})
}
