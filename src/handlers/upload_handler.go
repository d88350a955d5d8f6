package handlers

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/username/tradeledger/backend/src/apperrors"
	"github.com/username/tradeledger/backend/src/logger"
	"github.com/username/tradeledger/backend/src/parsers"
	"github.com/username/tradeledger/backend/src/security/validation"
	"github.com/username/tradeledger/backend/src/services"
	"github.com/username/tradeledger/backend/src/utils"
)

const maxNoteFilesPerUpload = 20

type UploadHandler struct {
	noteService    services.NoteService
	maxUploadBytes int64
	enabledBrokers []string
}

func NewUploadHandler(service services.NoteService, maxUploadBytes int64, enabledBrokers []string) *UploadHandler {
	return &UploadHandler{
		noteService:    service,
		maxUploadBytes: maxUploadBytes,
		enabledBrokers: enabledBrokers,
	}
}

// fileUploadResult is the outcome for one file of a multi-file upload.
type fileUploadResult struct {
	Filename string                     `json:"filename"`
	Status   int                        `json:"status"`
	Error    string                     `json:"error,omitempty"`
	Result   *services.NoteUploadResult `json:"result,omitempty"`
}

type multiUploadResponse struct {
	Files     []fileUploadResult `json:"files"`
	Processed int                `json:"processed"`
	Failed    int                `json:"failed"`
}

// HandleUploadNote accepts a multipart form with a "broker" field and one or more "file" PDFs.
// mode=atomic (form value or query) persists each note all-or-nothing. A single file answers
// with its NoteUploadResult or error status; several files answer 200 with one entry per file.
func (h *UploadHandler) HandleUploadNote(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	maxMB := h.maxUploadBytes / (1024 * 1024)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes*maxNoteFilesPerUpload+1024*1024)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		log.Warn("Failed to parse multipart form or request too large", "error", err, "limit", h.maxUploadBytes)
		utils.SendJSONError(w, fmt.Sprintf("failed to read upload or file too large (max %d MB)", maxMB), http.StatusBadRequest)
		return
	}

	broker := strings.TrimSpace(r.FormValue("broker"))
	if broker == "" {
		log.Warn("Upload request missing 'broker' field")
		utils.SendJSONError(w, "broker is required", http.StatusBadRequest)
		return
	}
	// Unknown or disabled brokers are rejected before any document is looked at.
	if _, _, err := parsers.Resolve(broker, h.enabledBrokers); err != nil {
		sendServiceError(w, r, err)
		return
	}

	files := r.MultipartForm.File["file"]
	switch {
	case len(files) == 0:
		log.Warn("Upload request has no 'file' part")
		utils.SendJSONError(w, "failed to retrieve file from request, ensure the 'file' field is used", http.StatusBadRequest)
		return
	case len(files) > maxNoteFilesPerUpload:
		utils.SendJSONError(w, fmt.Sprintf("too many files, max %d per upload", maxNoteFilesPerUpload), http.StatusBadRequest)
		return
	}
	log.Info("Received note upload", "broker", broker, "files", len(files))

	atomic := r.FormValue("mode") == "atomic"

	if len(files) == 1 {
		result, err := h.processFile(r.Context(), files[0], broker, atomic)
		if err != nil {
			sendServiceError(w, r, err)
			return
		}
		utils.SendJSON(w, result, http.StatusOK)
		return
	}

	resp := multiUploadResponse{Files: make([]fileUploadResult, 0, len(files))}
	for _, fh := range files {
		entry := fileUploadResult{Filename: fh.Filename, Status: http.StatusOK}
		result, err := h.processFile(r.Context(), fh, broker, atomic)
		if err != nil {
			entry.Status = errorStatus(err)
			entry.Error = clientMessage(err, entry.Status)
			resp.Failed++
		} else {
			entry.Result = result
			resp.Processed++
		}
		resp.Files = append(resp.Files, entry)
	}
	log.Info("Multi-file upload finished", "processed", resp.Processed, "failed", resp.Failed)
	utils.SendJSON(w, resp, http.StatusOK)
}

// processFile validates one uploaded part and runs it through the note pipeline.
func (h *UploadHandler) processFile(ctx context.Context, fh *multipart.FileHeader, broker string, atomic bool) (*services.NoteUploadResult, error) {
	log := logger.FromContext(ctx).With("filename", fh.Filename)

	if fh.Size > h.maxUploadBytes {
		log.Warn("Uploaded file too large", "fileSize", fh.Size, "limit", h.maxUploadBytes)
		return nil, fmt.Errorf("%w: file too large, max %d MB", apperrors.ErrValidationFailed, h.maxUploadBytes/(1024*1024))
	}

	clientContentType := fh.Header.Get("Content-Type")
	if err := validation.ValidateClientContentType(clientContentType); err != nil {
		log.Warn("Invalid client-declared file type", "contentType", clientContentType, "error", err)
		return nil, err
	}

	file, err := fh.Open()
	if err != nil {
		log.Error("Failed to open uploaded file", "error", err)
		return nil, fmt.Errorf("opening uploaded file: %w", err)
	}
	defer file.Close()

	detected, err := validation.ValidateFileContentByMagicBytes(file)
	if err != nil {
		log.Warn("File content validation failed", "error", err)
		return nil, err
	}
	log.Debug("File content validated by magic bytes", "detectedType", detected)

	result, err := h.noteService.UploadNote(ctx, file, broker, atomic)
	if err != nil {
		log.Warn("Note upload failed", "broker", broker, "atomic", atomic, "error", err)
		return nil, err
	}
	log.Info("Note processed", "broker", result.Broker, "registered", result.Registered, "failed", result.Failed)
	return result, nil
}
