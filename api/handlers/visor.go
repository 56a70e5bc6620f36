package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/vonity-org/visor-api/api"
	"github.com/vonity-org/visor-api/config"
	"github.com/vonity-org/visor-api/models"
	"github.com/vonity-org/visor-api/reports"
)

// Visor exported for testing purposes
type Visor struct {
	Reports    *reports.Lifecycle
	Filter     *reports.Filter
	Similarity *reports.Similarity
	Logger     *zap.SugaredLogger
}

// CreateVISORHandler creates a report. Any client-supplied approved flag is
// stripped by the input type; similar reports on the same celestial body
// are returned as a warning alongside the new id.
func (v Visor) CreateVISORHandler(w http.ResponseWriter, r *http.Request) {
	org, ok := api.OrganizationFromContext(r.Context())
	if !ok {
		config.ErrorStatus("no organization in request context", models.CodeUnauthorized, http.StatusUnauthorized, w, nil)
		return
	}

	var input models.ReportInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		config.ErrorStatus("Please provide a valid VISOR Report as a body.", models.CodeIncompleteBody, http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	id, similar, err := v.Reports.Create(ctx, org, input)
	if err != nil {
		writeCoreError(w, "Could not create the VISOR Report, please check your Information and try again.", err)
		return
	}

	if len(similar) > 0 {
		respond(w, http.StatusOK, models.Response{
			Message: "Successfully created the VISOR Report, but there are reports with similar OM Markers on the same Moon / Planet.",
			Code:    models.CodeWarning,
			Data: map[string]interface{}{
				"id":             id,
				"similarReports": similar,
			},
		})
		return
	}
	respond(w, http.StatusOK, models.Response{
		Message: "Successfully created the VISOR Report.",
		Code:    models.CodeSuccess,
		Data:    map[string]interface{}{"id": id},
	})
}

// ListVISORHandler lists reports matching the query criteria; with an id
// parameter it fetches a single report instead.
func (v Visor) ListVISORHandler(w http.ResponseWriter, r *http.Request) {
	org, ok := api.OrganizationFromContext(r.Context())
	if !ok {
		config.ErrorStatus("no organization in request context", models.CodeUnauthorized, http.StatusUnauthorized, w, nil)
		return
	}

	if id := r.URL.Query().Get("id"); id != "" {
		v.getVISOR(w, r, org, id)
		return
	}

	criteria, err := parseSearchFilter(r)
	if err != nil {
		config.ErrorStatus("Please provide valid filter settings.", models.CodeIncompleteBody, http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	matched, count, err := v.Filter.Query(ctx, org, criteria)
	if err != nil {
		writeCoreError(w, "Could not filter the reports, please try again.", err)
		return
	}
	if count == 0 {
		respond(w, http.StatusNotFound, models.Response{
			Message: "No reports found with your settings, please try again with different settings.",
			Code:    models.CodeNotFound,
		})
		return
	}
	respond(w, http.StatusOK, models.Response{
		Message: "Successfully filtered the reports.",
		Code:    models.CodeSuccess,
		Data: map[string]interface{}{
			"count":   count,
			"reports": matched,
		},
	})
}

func (v Visor) getVISOR(w http.ResponseWriter, r *http.Request, org, id string) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	report, err := v.Reports.Get(ctx, org, id)
	if err != nil {
		writeCoreError(w, "Could not find the Report specified, please try another id.", err)
		return
	}
	respond(w, http.StatusOK, models.Response{
		Message: "Successfully fetched the VISOR Report.",
		Code:    models.CodeSuccess,
		Data:    report,
	})
}

// UpdateVISORHandler updates a draft report; approved reports are immutable
func (v Visor) UpdateVISORHandler(w http.ResponseWriter, r *http.Request) {
	org, ok := api.OrganizationFromContext(r.Context())
	if !ok {
		config.ErrorStatus("no organization in request context", models.CodeUnauthorized, http.StatusUnauthorized, w, nil)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		config.ErrorStatus("Please provide a valid VISOR Report as a body. And a valid id as a parameter.", models.CodeIncompleteBody, http.StatusBadRequest, w, nil)
		return
	}
	var input models.ReportInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		config.ErrorStatus("Please provide a valid VISOR Report as a body. And a valid id as a parameter.", models.CodeIncompleteBody, http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := v.Reports.Update(ctx, org, id, input); err != nil {
		writeCoreError(w, "Could not update the VISOR Report, approved Reports cannot be changed.", err)
		return
	}
	respond(w, http.StatusOK, models.Response{
		Message: "Successfully updated the VISOR Report.",
		Code:    models.CodeSuccess,
		Data:    map[string]interface{}{"id": id},
	})
}

type approveRequest struct {
	ID             string `json:"id"`
	ApproverHandle string `json:"approverHandle"`
	ApproveReason  string `json:"approveReason"`
}

// ApproveVISORHandler performs the one-way approval transition
func (v Visor) ApproveVISORHandler(w http.ResponseWriter, r *http.Request) {
	org, ok := api.OrganizationFromContext(r.Context())
	if !ok {
		config.ErrorStatus("no organization in request context", models.CodeUnauthorized, http.StatusUnauthorized, w, nil)
		return
	}

	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" || req.ApproveReason == "" {
		config.ErrorStatus("Please provide a body, with \"id\" and \"approveReason\".", models.CodeIncompleteBody, http.StatusBadRequest, w, err)
		return
	}
	handle := req.ApproverHandle
	if handle == "" {
		handle = org
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	already, err := v.Reports.Approve(ctx, org, req.ID, handle, req.ApproveReason)
	if err != nil {
		writeCoreError(w, "Could not approve the VISOR Report, please check your Information and try again.", err)
		return
	}
	message := "Successfully approved the VISOR Report."
	if already {
		message = "The VISOR Report was already approved, nothing changed."
	}
	respond(w, http.StatusOK, models.Response{
		Message: message,
		Code:    models.CodeSuccess,
	})
}

type deleteRequest struct {
	ID             string `json:"id"`
	DeletionReason string `json:"deletionReason"`
}

// DeleteVISORHandler removes a report in any state and cascades its images
func (v Visor) DeleteVISORHandler(w http.ResponseWriter, r *http.Request) {
	org, ok := api.OrganizationFromContext(r.Context())
	if !ok {
		config.ErrorStatus("no organization in request context", models.CodeUnauthorized, http.StatusUnauthorized, w, nil)
		return
	}

	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" || req.DeletionReason == "" {
		config.ErrorStatus("Please provide a body, with \"id\" and \"deletionReason\".", models.CodeIncompleteBody, http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := v.Reports.Delete(ctx, org, req.ID, org, req.DeletionReason); err != nil {
		writeCoreError(w, "Could not delete the VISOR Report, please check your Information and try again.", err)
		return
	}
	respond(w, http.StatusOK, models.Response{
		Message: "Successfully deleted the VISOR Report.",
		Code:    models.CodeSuccess,
	})
}

type similarityRequest struct {
	OMs               models.OMMarkers `json:"oms"`
	System            string           `json:"system"`
	StellarObject     string           `json:"stellarObject"`
	PlanetLevelObject string           `json:"planetLevelObject"`
}

// SimilarityHandler checks a marker tuple against existing reports on the
// same celestial body
func (v Visor) SimilarityHandler(w http.ResponseWriter, r *http.Request) {
	org, ok := api.OrganizationFromContext(r.Context())
	if !ok {
		config.ErrorStatus("no organization in request context", models.CodeUnauthorized, http.StatusUnauthorized, w, nil)
		return
	}

	var req similarityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.OMs) != models.OMMarkerCount || req.System == "" || req.StellarObject == "" {
		config.ErrorStatus("Please check, that your request has all oms, system and stellarObject (planetLevelObject: optional) in the body.", models.CodeIncompleteBody, http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	nav := models.Navigation{System: req.System, StellarObject: req.StellarObject, PlanetLevelObject: req.PlanetLevelObject}
	found, similar, err := v.Similarity.FindSimilar(ctx, org, req.OMs, nav)
	if err != nil {
		writeCoreError(w, "The VISOR API could not find any reports on the specified Moon / Planet or there was some sort of Error.", err)
		return
	}
	if !found {
		respond(w, http.StatusNotFound, models.Response{
			Message: "No reports found with similar OMs.",
			Code:    models.CodeNotFound,
		})
		return
	}
	respond(w, http.StatusOK, models.Response{
		Message: "There are reports with similar OM Markers on the same Moon / Planet.",
		Code:    models.CodeWarning,
		Data:    map[string]interface{}{"similarReports": similar},
	})
}

// parseSearchFilter builds the typed filter from query parameters; invalid
// JSON in location/meta or a malformed number is a client error before any
// filtering begins.
func parseSearchFilter(r *http.Request) (models.SearchFilter, error) {
	q := r.URL.Query()
	criteria := models.SearchFilter{
		Name:      q.Get("name"),
		Published: q.Get("published"),
		Approved:  q.Get("approved"),
		Keyword:   q.Get("keyword"),
	}
	if loc := q.Get("location"); loc != "" {
		if err := json.Unmarshal([]byte(loc), &criteria.Location); err != nil {
			return criteria, err
		}
	}
	if meta := q.Get("meta"); meta != "" {
		if err := json.Unmarshal([]byte(meta), &criteria.Meta); err != nil {
			return criteria, err
		}
	}
	var err error
	if criteria.Length, err = intParam(q.Get("length")); err != nil {
		return criteria, err
	}
	if criteria.From, err = intParam(q.Get("from")); err != nil {
		return criteria, err
	}
	if criteria.To, err = intParam(q.Get("to")); err != nil {
		return criteria, err
	}
	return criteria, nil
}

func intParam(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
