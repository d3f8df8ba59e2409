package controllers

import (
	"archivist/internal/models"
	"archivist/internal/providers"
	"archivist/internal/recorder"
	"archivist/internal/services"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

type ApiController struct {
	logger  providers.Logger
	service services.TrackerServiceInterface
}

func NewApiController(logger providers.Logger, service services.TrackerServiceInterface) *ApiController {
	return &ApiController{
		logger:  logger,
		service: service,
	}
}

// versionResponse carries text content inline. Binary content is only
// served by the content endpoint.
type versionResponse struct {
	ID            string    `json:"id"`
	ServiceID     string    `json:"service_id"`
	DocumentType  string    `json:"document_type"`
	MimeType      string    `json:"mime_type"`
	FetchDate     time.Time `json:"fetch_date"`
	IsFirstRecord bool      `json:"is_first_record"`
	IsRefilter    bool      `json:"is_refilter"`
	SnapshotID    string    `json:"snapshot_id,omitempty"`
	ContentURL    string    `json:"content_url"`
	Content       *string   `json:"content,omitempty"`
}

func toResponse(record models.Record, withContent bool) versionResponse {
	resp := versionResponse{
		ID:            record.ID,
		ServiceID:     record.ServiceID,
		DocumentType:  record.DocumentType,
		MimeType:      record.MimeType,
		FetchDate:     record.FetchDate,
		IsFirstRecord: record.First(),
		IsRefilter:    record.IsRefilter,
		SnapshotID:    record.SnapshotID,
		ContentURL:    "/versions/" + record.ID + "/content",
	}
	if withContent && record.HasContent() && !recorder.IsBinary(record.MimeType) {
		text := record.Text()
		resp.Content = &text
	}
	return resp
}

func (ac *ApiController) writeJSON(w http.ResponseWriter, status int, v any) {
	gson, err := json.Marshal(v)
	if err != nil {
		ac.logger.Errorf(providers.TypeGet, "Could not encode response: %s", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

func (ac *ApiController) internalError(w http.ResponseWriter, r *http.Request, err error) {
	ac.logger.Errorf(providers.GetLogTypeByRequestType(r.Method), "%s %s: %s", r.Method, r.URL.Path, err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// GetVersions lists versions without content, optionally restricted to a
// service and a document type.
func (ac *ApiController) GetVersions(w http.ResponseWriter, r *http.Request) {
	records, err := ac.service.Versions(r.Context())
	if err != nil {
		ac.internalError(w, r, err)
		return
	}

	service := r.URL.Query().Get("service")
	docType := r.URL.Query().Get("type")

	resp := make([]versionResponse, 0, len(records))
	for _, record := range records {
		if (service != "" && record.ServiceID != service) || (docType != "" && record.DocumentType != docType) {
			continue
		}
		resp = append(resp, toResponse(record, false))
	}
	ac.writeJSON(w, http.StatusOK, resp)
}

func (ac *ApiController) GetVersion(w http.ResponseWriter, r *http.Request) {
	result, err := ac.service.Version(r.Context(), r.PathValue("id"))
	if err != nil {
		ac.internalError(w, r, err)
		return
	}
	if !result.Ok() {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	ac.writeJSON(w, http.StatusOK, toResponse(*result.Record, true))
}

// GetVersionContent serves the stored bytes as they were fetched.
func (ac *ApiController) GetVersionContent(w http.ResponseWriter, r *http.Request) {
	result, err := ac.service.Version(r.Context(), r.PathValue("id"))
	if err != nil {
		ac.internalError(w, r, err)
		return
	}
	if !result.Ok() {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", result.Record.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Record.Content)))
	w.Header().Set("Last-Modified", result.Record.FetchDate.Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Record.Content)
}

func (ac *ApiController) GetLatest(w http.ResponseWriter, r *http.Request) {
	service := r.URL.Query().Get("service")
	docType := r.URL.Query().Get("type")
	if service == "" || docType == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	result, err := ac.service.Latest(r.Context(), service, docType)
	if err != nil {
		ac.internalError(w, r, err)
		return
	}
	if !result.Ok() {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	ac.writeJSON(w, http.StatusOK, toResponse(*result.Record, true))
}

func (ac *ApiController) GetCount(w http.ResponseWriter, r *http.Request) {
	count, err := ac.service.Count(r.Context())
	if err != nil {
		ac.internalError(w, r, err)
		return
	}
	ac.writeJSON(w, http.StatusOK, map[string]int{"count": count})
}
