package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"revi-backend/internal/models"
	"revi-backend/internal/services"
)

// multipart framing on top of the file itself
const uploadOverheadBytes = 1 << 20

type GenerateHandler struct {
	extractor *services.FileExtractService
	generator *services.CardGenerator
	logger    *slog.Logger
}

func NewGenerateHandler(extractor *services.FileExtractService, generator *services.CardGenerator, logger *slog.Logger) *GenerateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerateHandler{extractor: extractor, generator: generator, logger: logger}
}

type uploadMetadata struct {
	Filename   string `json:"filename"`
	TotalCards int    `json:"totalCards"`
}

// UploadFile extracts text from a PDF or DOCX upload and turns it into
// unsaved flashcards.
func (h *GenerateHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxUploadBytes+uploadOverheadBytes)
	if err := r.ParseMultipartForm(services.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large. Maximum size is 10MB")
			return
		}
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()
	if header.Size > services.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "File too large. Maximum size is 10MB")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, services.MaxUploadBytes+1))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if len(data) > services.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "File too large. Maximum size is 10MB")
		return
	}

	mediaType, err := services.DetectMediaType(header.Filename, header.Header.Get("Content-Type"), data[:min(len(data), 512)])
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	text, err := h.extractor.ExtractText(data, mediaType)
	if err != nil || !longEnough(text) {
		if err != nil {
			h.logger.Warn("text extraction failed",
				slog.String("filename", header.Filename),
				slog.String("media_type", mediaType),
				slog.String("error", err.Error()),
			)
		}
		writeError(w, http.StatusBadRequest, "Could not extract sufficient text from file")
		return
	}

	cards := h.generator.Generate(r.Context(), text, parseCardCount(r.FormValue("numCards")))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"flashcards": cards,
		"metadata":   uploadMetadata{Filename: header.Filename, TotalCards: len(cards)},
	})
}

func (h *GenerateHandler) FromText(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateCardsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !longEnough(req.Text) {
		writeError(w, http.StatusBadRequest, "Text is too short")
		return
	}

	cards := h.generator.Generate(r.Context(), strings.TrimSpace(req.Text), req.NumCards)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "flashcards": cards})
}

func longEnough(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) >= services.MinSourceChars
}

// parseCardCount leaves defaulting and capping to the generator.
func parseCardCount(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}
