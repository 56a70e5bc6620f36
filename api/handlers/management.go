package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/vonity-org/visor-api/api"
	"github.com/vonity-org/visor-api/config"
	"github.com/vonity-org/visor-api/databases"
	"github.com/vonity-org/visor-api/models"
)

// Management handles the admin-gated organization endpoints plus the public
// activation flow.
type Management struct {
	ODB       databases.OrganizationDatabase
	Logger    *zap.SugaredLogger
	APIKey    string
	FromEmail string
}

type createOrgRequest struct {
	Name         string `json:"name"`
	ContactEmail string `json:"contactEmail"`
}

// CreateOrgHandler registers a new, inactive organization and returns its
// activation code. The access token is minted at activation, not here.
func (m Management) CreateOrgHandler(w http.ResponseWriter, r *http.Request) {
	var req createOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.ContactEmail) == "" {
		config.ErrorStatus("Please provide a body, with \"name\" and \"contactEmail\".", models.CodeIncompleteBody, http.StatusBadRequest, w, err)
		return
	}
	name := strings.TrimSpace(req.Name)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := m.ODB.FindOne(ctx, bson.M{"name": name}); err == nil {
		config.ErrorStatus("An organization with this name already exists.", models.CodeIncompleteBody, http.StatusBadRequest, w, nil)
		return
	}

	org := models.Organization{
		ID:             primitive.NewObjectID(),
		Name:           name,
		ContactEmail:   strings.TrimSpace(req.ContactEmail),
		ActivationCode: uuid.NewString(),
		Activated:      false,
		CreatedAt:      primitive.NewDateTimeFromTime(time.Now()),
	}
	if _, err := m.ODB.InsertOne(ctx, org); err != nil {
		config.ErrorStatus("Could not create the organization, please try again.", models.CodeInternalError, http.StatusInternalServerError, w, err)
		return
	}

	m.Logger.Infow("organization created",
		"organization", org.Name,
	)
	respond(w, http.StatusOK, models.Response{
		Message: "Successfully created the organization. Share the activation code with the organization.",
		Code:    models.CodeSuccess,
		Data: map[string]interface{}{
			"id":             org.ID.Hex(),
			"activationCode": org.ActivationCode,
		},
	})
}

// ListOrgsHandler lists every organization; token hashes and activation
// codes never leave the server (their fields are json-omitted).
func (m Management) ListOrgsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	orgs, err := m.ODB.Find(ctx, bson.M{})
	if err != nil {
		config.ErrorStatus("Could not list the organizations.", models.CodeInternalError, http.StatusInternalServerError, w, err)
		return
	}
	if len(orgs) == 0 {
		orgs = []models.Organization{}
	}
	respond(w, http.StatusOK, models.Response{
		Message: "Successfully listed the organizations.",
		Code:    models.CodeSuccess,
		Data:    map[string]interface{}{"organizations": orgs},
	})
}

// DeleteOrgHandler removes an organization by id
func (m Management) DeleteOrgHandler(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["org_id"]
	oid, err := primitive.ObjectIDFromHex(orgID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", models.CodeIncompleteBody, http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	deleted, err := m.ODB.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		config.ErrorStatus("Could not delete the organization.", models.CodeInternalError, http.StatusInternalServerError, w, err)
		return
	}
	if deleted == 0 {
		config.ErrorStatus("Could not find the organization specified.", models.CodeNotFound, http.StatusNotFound, w, nil)
		return
	}
	m.Logger.Warnw("organization deleted",
		"organization", orgID,
	)
	respond(w, http.StatusOK, models.Response{
		Message: "Successfully deleted the organization.",
		Code:    models.CodeSuccess,
	})
}

// RegenerateTokenHandler mints a fresh access token for an activated
// organization, invalidating the previous one.
func (m Management) RegenerateTokenHandler(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["org_id"]
	oid, err := primitive.ObjectIDFromHex(orgID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", models.CodeIncompleteBody, http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	token := uuid.NewString()
	matched, err := m.ODB.UpdateOne(ctx,
		bson.M{"_id": oid, "activated": true},
		bson.M{"$set": bson.M{"tokenHash": api.HashToken(token)}},
	)
	if err != nil {
		config.ErrorStatus("Could not regenerate the token.", models.CodeInternalError, http.StatusInternalServerError, w, err)
		return
	}
	if matched == 0 {
		config.ErrorStatus("Could not find an activated organization with this id.", models.CodeNotFound, http.StatusNotFound, w, nil)
		return
	}
	m.Logger.Warnw("organization token regenerated",
		"organization", orgID,
	)
	respond(w, http.StatusOK, models.Response{
		Message: "Successfully regenerated the access token. The previous token is now invalid.",
		Code:    models.CodeSuccess,
		Data:    map[string]interface{}{"token": token},
	})
}

type activateOrgRequest struct {
	Name           string `json:"name"`
	ActivationCode string `json:"activationCode"`
}

// ActivateOrgHandler is the public activation endpoint: a matching name and
// activation code activates the organization and mints its access token.
// The token is returned once and mailed to the contact address.
func (m Management) ActivateOrgHandler(w http.ResponseWriter, r *http.Request) {
	var req activateOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.ActivationCode == "" {
		config.ErrorStatus("Please provide a body, with \"name\" and \"activationCode\".", models.CodeIncompleteBody, http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	org, err := m.ODB.FindOne(ctx, bson.M{"name": req.Name, "activationCode": req.ActivationCode, "activated": false})
	if err != nil {
		config.ErrorStatus("Could not activate: unknown organization or wrong activation code.", models.CodeNotFound, http.StatusNotFound, w, err)
		return
	}

	token := uuid.NewString()
	matched, err := m.ODB.UpdateOne(ctx,
		bson.M{"_id": org.ID, "activated": false},
		bson.M{"$set": bson.M{
			"activated": true,
			"tokenHash": api.HashToken(token),
		}, "$unset": bson.M{"activationCode": ""}},
	)
	if err != nil || matched == 0 {
		config.ErrorStatus("Could not activate the organization, please try again.", models.CodeInternalError, http.StatusInternalServerError, w, err)
		return
	}

	if err := m.sendActivationEmail(org.ContactEmail, org.Name, token); err != nil {
		m.Logger.Errorw("failed to send activation email",
			"organization", org.Name,
			"error", err,
		)
	}

	m.Logger.Warnw("organization activated",
		"organization", org.Name,
	)
	respond(w, http.StatusOK, models.Response{
		Message: "Successfully activated the organization. Store the access token safely, it will not be shown again.",
		Code:    models.CodeSuccess,
		Data:    map[string]interface{}{"token": token},
	})
}

func (m Management) sendActivationEmail(to, orgName, token string) error {
	if m.APIKey == "" {
		// mail delivery not configured, the token was still returned in the response
		return nil
	}
	from := mail.NewEmail("VISOR API", m.FromEmail)
	subject := "Your VISOR organization is active"
	plain := fmt.Sprintf("The organization %s has been activated.\n\nAccess token: %s\n\nKeep this token secret.", orgName, token)
	html := fmt.Sprintf("<p>The organization <strong>%s</strong> has been activated.</p><p>Access token: <code>%s</code></p><p>Keep this token secret.</p>", orgName, token)
	message := mail.NewSingleEmail(from, subject, mail.NewEmail(orgName, to), plain, html)
	client := sendgrid.NewSendClient(m.APIKey)
	resp, err := client.Send(message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}
