package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vonity-org/visor-api/api"
	"github.com/vonity-org/visor-api/api/scheduler"
	"github.com/vonity-org/visor-api/config"
	"github.com/vonity-org/visor-api/databases"
	"github.com/vonity-org/visor-api/images"
	"github.com/vonity-org/visor-api/models"
	"github.com/vonity-org/visor-api/reports"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	Logger    *zap.SugaredLogger
	Uploader  images.Uploader
	Scheduler *scheduler.Scheduler
	dbHelper  databases.DatabaseHelper
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	orgDB := databases.NewOrganizationDatabase(a.dbHelper)
	reportDB := databases.NewReportDatabase(a.dbHelper)
	imageDB := databases.NewImageDatabase(a.dbHelper)

	similarity := reports.NewSimilarity(reportDB, a.Config.SimilarityMinOverlap, a.Logger)
	imageManager := images.NewManager(imageDB, a.Uploader, a.Logger)
	lifecycle := reports.NewLifecycle(reportDB, imageManager, similarity, a.Logger)
	filter := reports.NewFilter(reportDB, a.Logger)

	v := Visor{Reports: lifecycle, Filter: filter, Similarity: similarity, Logger: a.Logger}
	img := Image{Reports: lifecycle, Manager: imageManager, Logger: a.Logger}
	mgmt := Management{
		ODB:       orgDB,
		Logger:    a.Logger,
		APIKey:    a.Config.SendgridAPIKey,
		FromEmail: a.Config.SendgridFromEmail,
	}

	orgAuth := api.NewOrgAuth(orgDB, a.Logger)
	adminAuth := api.AdminAuth{KeyHash: a.Config.AdminAPIKeyHash, Logger: a.Logger}

	r := mux.NewRouter()

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	r.Handle("/activate-org", http.HandlerFunc(mgmt.ActivateOrgHandler)).Methods("POST")

	apiCreate := r.PathPrefix("/api").Subrouter()
	apiCreate.Handle("/orgs", adminAuth.Middleware(http.HandlerFunc(mgmt.CreateOrgHandler))).Methods("POST")
	apiCreate.Handle("/orgs", adminAuth.Middleware(http.HandlerFunc(mgmt.ListOrgsHandler))).Methods("GET")
	apiCreate.Handle("/orgs/{org_id}", adminAuth.Middleware(http.HandlerFunc(mgmt.DeleteOrgHandler))).Methods("DELETE")
	apiCreate.Handle("/orgs/{org_id}/token", adminAuth.Middleware(http.HandlerFunc(mgmt.RegenerateTokenHandler))).Methods("POST")

	r.Handle("/visor", orgAuth.Middleware(http.HandlerFunc(v.CreateVISORHandler))).Methods("POST")
	r.Handle("/visor", orgAuth.Middleware(http.HandlerFunc(v.ListVISORHandler))).Methods("GET")
	r.Handle("/visor", orgAuth.Middleware(http.HandlerFunc(v.UpdateVISORHandler))).Methods("PUT")
	r.Handle("/visor/approve", orgAuth.Middleware(http.HandlerFunc(v.ApproveVISORHandler))).Methods("POST")
	r.Handle("/visor/delete", orgAuth.Middleware(http.HandlerFunc(v.DeleteVISORHandler))).Methods("POST")
	r.Handle("/visor/similarity", orgAuth.Middleware(http.HandlerFunc(v.SimilarityHandler))).Methods("POST")

	r.Handle("/visor/image", orgAuth.Middleware(http.HandlerFunc(img.UploadImageHandler))).Methods("POST")
	r.Handle("/visor/image", orgAuth.Middleware(http.HandlerFunc(img.DeleteImageHandler))).Methods("DELETE")
	r.Handle("/visor/image", orgAuth.Middleware(http.HandlerFunc(img.UpdateImageHandler))).Methods("PUT")
	r.Handle("/visor/images", orgAuth.Middleware(http.HandlerFunc(img.GetImagesHandler))).Methods("GET")

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {
	a.Logger = zap.S()

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		a.Logger.With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		a.Logger.With(err).Error("failed to connect to database")
		return err
	}
	a.Logger.Info("visor-api has connected to the database")

	a.Uploader, err = images.NewCloudinaryUploader(a.Config.CloudinaryURL)
	if err != nil {
		a.Logger.With(err).Error("failed to initialize cloudinary")
		return err
	}

	a.Scheduler = scheduler.New(
		databases.NewImageDatabase(a.dbHelper),
		databases.NewReportDatabase(a.dbHelper),
		a.Uploader,
		a.Logger,
	)
	a.Scheduler.Start()

	// initialize api router
	a.initializeRoutes()
	return nil

}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}

// respond writes the envelope with the given status
func respond(w http.ResponseWriter, status int, resp models.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeCoreError maps a core error kind onto the envelope code and status,
// keeping the endpoint-specific message.
func writeCoreError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, reports.ErrValidation):
		config.ErrorStatus(message, models.CodeIncompleteBody, http.StatusBadRequest, w, err)
	case errors.Is(err, reports.ErrNotFound):
		config.ErrorStatus(message, models.CodeNotFound, http.StatusNotFound, w, err)
	case errors.Is(err, reports.ErrImmutableState):
		config.ErrorStatus(message, models.CodeImmutable, http.StatusConflict, w, err)
	case errors.Is(err, reports.ErrConflict):
		config.ErrorStatus(message, models.CodeConflict, http.StatusConflict, w, err)
	default:
		config.ErrorStatus(message, models.CodeInternalError, http.StatusInternalServerError, w, err)
	}
}
