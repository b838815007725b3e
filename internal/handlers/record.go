package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/cicap/personnel/internal/services"
	"github.com/cicap/personnel/internal/storage"
	"github.com/cicap/personnel/internal/store"
	"github.com/cicap/personnel/types"
	"github.com/go-chi/chi/v5"
)

const (
	maxMultipartMemory  = 32 << 20
	maxAttachmentBytes  = 20 << 20
	formFieldName       = "name"
	formFieldNationalID = "national_id"
	formFieldPosition   = "position"
	formFieldDepartment = "department"
	formFieldPhone      = "phone"
	formFieldEmail      = "email"
	formFieldHireDate   = "hire_date"
	formFieldNotes      = "notes"
	formFieldAttachment = "attachment"
	queryFieldSearch    = "q"
	queryFieldName      = "name"
)

var allowedAttachmentExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".pdf":  true,
}

// RecordHandler provides HTTP handlers for personnel records.
type RecordHandler struct {
	recordService *services.RecordService
	documents     *storage.Storage
	log           *slog.Logger
}

// NewRecordHandler constructs a handler with the provided services.
func NewRecordHandler(recordService *services.RecordService, documents *storage.Storage, log *slog.Logger) *RecordHandler {
	return &RecordHandler{
		recordService: recordService,
		documents:     documents,
		log:           log,
	}
}

// RecordRouter registers record routes on the given router. Every route
// requires a logged-in session.
func RecordRouter(
	r chi.Router,
	recordService *services.RecordService,
	documents *storage.Storage,
	authMiddleware func(http.Handler) http.Handler,
	log *slog.Logger,
) {
	handler := NewRecordHandler(recordService, documents, log)

	r.Use(authMiddleware)
	r.Get("/", handler.ListRecords)
	r.Post("/", handler.CreateRecord)
	r.Put("/", handler.UpdateRecords)
	r.Delete("/", handler.DeleteRecords)
	r.Get("/names", handler.ListNames)
	r.Get("/stats", handler.GetStats)
	r.Route("/{recordID}", func(r chi.Router) {
		r.Get("/", handler.GetRecord)
		r.Get("/attachment", handler.GetAttachment)
	})
}

// ListDepartments returns the selectable departments.
func ListDepartments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, DepartmentsResponse{Items: types.Departments})
}

func (h *RecordHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get(queryFieldSearch)

	items, err := h.recordService.List(r.Context(), query)
	if err != nil {
		h.log.ErrorContext(r.Context(), "list records failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list records")
		return
	}

	writeJSON(w, http.StatusOK, RecordListResponse{Items: items, Total: len(items)})
}

func (h *RecordHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := parseRecordID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, err := h.recordService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch record")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (h *RecordHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	username, err := usernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	req, err := parseRecordForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.recordService.Create(r.Context(), req.Input, username, req.Attachment)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.ErrorContext(r.Context(), "create record failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create record")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *RecordHandler) UpdateRecords(w http.ResponseWriter, r *http.Request) {
	username, err := usernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	match, err := requiredQuery(r, queryFieldName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req UpdateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	affected, err := h.recordService.Update(r.Context(), username, match, req.Name, req.Position)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.ErrorContext(r.Context(), "update records failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update records")
		return
	}

	writeJSON(w, http.StatusOK, MutationResponse{Affected: affected})
}

func (h *RecordHandler) DeleteRecords(w http.ResponseWriter, r *http.Request) {
	username, err := usernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	match, err := requiredQuery(r, queryFieldName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	removed, err := h.recordService.Delete(r.Context(), username, match)
	if err != nil {
		h.log.ErrorContext(r.Context(), "delete records failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete records")
		return
	}

	writeJSON(w, http.StatusOK, MutationResponse{Affected: removed})
}

func (h *RecordHandler) ListNames(w http.ResponseWriter, r *http.Request) {
	names, err := h.recordService.Names(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list names")
		return
	}
	writeJSON(w, http.StatusOK, NamesResponse{Items: names})
}

func (h *RecordHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.recordService.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *RecordHandler) GetAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := parseRecordID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, err := h.recordService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch record")
		return
	}
	if record.AttachmentPath == "" {
		writeError(w, http.StatusNotFound, "record has no attachment")
		return
	}

	rc, key, err := h.documents.Open(r.Context(), record.AttachmentPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidLocation) {
			writeError(w, http.StatusNotFound, "attachment not found")
			return
		}
		h.log.ErrorContext(r.Context(), "open attachment failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to open attachment")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", storage.ContentType(key))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", key))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

// RecordCreateRequest represents the parsed multipart form payload.
type RecordCreateRequest struct {
	Input      services.RecordInput
	Attachment *services.Attachment
}

type UpdateRecordRequest struct {
	Name     string `json:"name"`
	Position string `json:"position"`
}

type RecordListResponse struct {
	Items []types.PersonnelRecord `json:"items"`
	Total int                     `json:"total"`
}

type MutationResponse struct {
	Affected int `json:"affected"`
}

type NamesResponse struct {
	Items []string `json:"items"`
}

type DepartmentsResponse struct {
	Items []string `json:"items"`
}

func parseRecordID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "recordID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid record id")
	}
	return id, nil
}

func requiredQuery(r *http.Request, key string) (string, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return "", fmt.Errorf("%s query parameter is required", key)
	}
	return value, nil
}

// parseRecordForm keeps text fields exactly as sent; records are later
// matched by exact name.
func parseRecordForm(r *http.Request) (RecordCreateRequest, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return RecordCreateRequest{}, errors.New("invalid multipart form")
	}

	department := r.FormValue(formFieldDepartment)
	if !types.IsDepartment(department) {
		return RecordCreateRequest{}, errors.New("invalid department")
	}

	hireDate, err := types.ParseDate(r.FormValue(formFieldHireDate))
	if err != nil {
		return RecordCreateRequest{}, errors.New("invalid hire date")
	}

	attachment, err := parseAttachment(r.MultipartForm)
	if err != nil {
		return RecordCreateRequest{}, err
	}

	return RecordCreateRequest{
		Input: services.RecordInput{
			Name:       r.FormValue(formFieldName),
			NationalID: r.FormValue(formFieldNationalID),
			Position:   r.FormValue(formFieldPosition),
			Department: department,
			Phone:      r.FormValue(formFieldPhone),
			Email:      r.FormValue(formFieldEmail),
			HireDate:   hireDate,
			Notes:      r.FormValue(formFieldNotes),
		},
		Attachment: attachment,
	}, nil
}

// parseAttachment returns nil when no file was sent.
func parseAttachment(form *multipart.Form) (*services.Attachment, error) {
	if form == nil {
		return nil, errors.New("missing form data")
	}

	files := form.File[formFieldAttachment]
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > 1 {
		return nil, errors.New("only one attachment is allowed")
	}

	fileHeader := files[0]
	ext := strings.ToLower(path.Ext(fileHeader.Filename))
	if !allowedAttachmentExts[ext] {
		return nil, errors.New("attachment must be jpg, jpeg, png or pdf")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}

	data, err := readFileLimited(file, maxAttachmentBytes)
	_ = file.Close()
	if err != nil {
		return nil, err
	}

	return &services.Attachment{
		Filename: fileHeader.Filename,
		Data:     data,
	}, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
