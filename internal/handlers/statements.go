package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/avelacruz/fintrack-api/internal/config"
	"github.com/avelacruz/fintrack-api/internal/models"
	"github.com/avelacruz/fintrack-api/internal/services"
	"github.com/avelacruz/fintrack-api/internal/utils"
)

type StatementHandler struct {
	service     services.StatementService
	maxFileSize int64
	logger      *utils.Logger
}

func NewStatementHandler(service services.StatementService, cfg *config.Config, logger *utils.Logger) *StatementHandler {
	return &StatementHandler{
		service:     service,
		maxFileSize: cfg.MaxFileSize,
		logger:      logger,
	}
}

// readPDFUpload pulls the "file" part out of a multipart request and enforces
// the PDF-only and size rules.
func (h *StatementHandler) readPDFUpload(w http.ResponseWriter, r *http.Request) (*services.UploadInput, error) {
	if r.ContentLength > h.maxFileSize {
		return nil, utils.NewBadRequestError("File size exceeds the upload limit")
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize)

	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			return nil, utils.NewBadRequestError("File size exceeds the upload limit")
		}
		return nil, utils.NewBadRequestError("Invalid form data")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, utils.NewBadRequestError("No file provided")
	}
	defer file.Close()

	if strings.ToLower(filepath.Ext(header.Filename)) != ".pdf" {
		return nil, utils.NewBadRequestError("Only PDF files are supported")
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		return nil, utils.NewInternalError("Failed to read file")
	}
	if int64(len(data)) > h.maxFileSize {
		return nil, utils.NewBadRequestError("File size exceeds the upload limit")
	}
	if len(data) == 0 {
		return nil, utils.NewBadRequestError("Uploaded file is empty")
	}

	return &services.UploadInput{Filename: header.Filename, Data: data}, nil
}

func (h *StatementHandler) UploadStatement(w http.ResponseWriter, r *http.Request) {
	input, err := h.readPDFUpload(w, r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.logger.Info("Statement upload", "filename", input.Filename, "bytes", len(input.Data))

	result, err := h.service.ProcessStatement(r.Context(), *input)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}

func (h *StatementHandler) UploadBankStatement(w http.ResponseWriter, r *http.Request) {
	input, err := h.readPDFUpload(w, r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	allowUpdate := r.FormValue("allow_update") == "true"

	h.logger.Info("Bank statement upload",
		"filename", input.Filename, "allow_update", allowUpdate)

	result, err := h.service.ProcessBankStatement(r.Context(), *input, allowUpdate)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}

func (h *StatementHandler) QuickSave(w http.ResponseWriter, r *http.Request) {
	statementID, err := statementIDFromPath(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	var req models.QuickSaveRequest
	if r.Body != nil {
		// Body is optional; absent means no duplicate confirmation.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := h.service.QuickSave(r.Context(), statementID, req.ConfirmDuplicates)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}

func (h *StatementHandler) SaveReviewed(w http.ResponseWriter, r *http.Request) {
	statementID, err := statementIDFromPath(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	var req models.StatementReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, utils.NewBadRequestError("Invalid request body"))
		return
	}

	result, err := h.service.SaveReviewed(r.Context(), statementID, &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}

func (h *StatementHandler) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	statementID, err := statementIDFromPath(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		respondError(w, h.logger, utils.NewBadRequestError("Invalid form data"))
		return
	}
	action := r.FormValue("action")
	if action == "" {
		respondError(w, h.logger, utils.NewBadRequestError("action is required"))
		return
	}

	result, err := h.service.ResolveConflict(r.Context(), statementID, action)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}

func (h *StatementHandler) ServePagePDF(w http.ResponseWriter, r *http.Request) {
	statementID, err := statementIDFromPath(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	path, err := h.service.StatementPDFPath(r.Context(), statementID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	http.ServeFile(w, r, path)
}

func statementIDFromPath(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, utils.NewBadRequestError("Invalid statement ID")
	}
	return id, nil
}
