package handlers

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/hairloss-doctor/internal/analysis"
	"github.com/wolfman30/hairloss-doctor/internal/flow"
	"github.com/wolfman30/hairloss-doctor/pkg/logging"
)

const (
	defaultMaxUpload = 10 << 20
	maxJSONBody      = 64 << 10
)

// AnalysisHandler serves the photo and questionnaire analysis flows.
type AnalysisHandler struct {
	driver    *flow.Driver
	maxUpload int64
	logger    *logging.Logger
}

// NewAnalysisHandler creates the handler. maxUpload <= 0 uses 10 MiB.
func NewAnalysisHandler(driver *flow.Driver, maxUpload int64, logger *logging.Logger) *AnalysisHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	return &AnalysisHandler{driver: driver, maxUpload: maxUpload, logger: logger}
}

// Questions handles GET /api/questions.
func (h *AnalysisHandler) Questions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"questions": analysis.Questions()})
}

// Catalog handles GET /api/analysis/catalog.
func (h *AnalysisHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"results": analysis.Catalog()})
}

type photoRequest struct {
	DataURL string `json:"data_url"`
}

// SubmitPhoto handles POST /api/analysis/photo. The body is either a multipart
// form with a "photo" file or JSON carrying a data URL. Responds 202 with the
// flow in the analyzing state.
func (h *AnalysisHandler) SubmitPhoto(w http.ResponseWriter, r *http.Request) {
	dataURL, err := h.readPhoto(w, r)
	if err != nil {
		h.logger.Warn("photo rejected", "error", err)
		jsonWarning(w, photoWarning(err), http.StatusUnprocessableEntity)
		return
	}

	f, err := h.driver.AnalyzePhoto(r.Context(), dataURL)
	if err != nil {
		h.logger.Error("photo analysis failed to start", "error", err)
		jsonError(w, "failed to start analysis", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, f)
}

func (h *AnalysisHandler) readPhoto(w http.ResponseWriter, r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req photoRequest
		if err := decodeJSON(w, r, h.maxUpload*2, &req); err != nil {
			return "", analysis.ErrNotImage
		}
		req.DataURL = strings.TrimSpace(req.DataURL)
		if err := analysis.ValidateDataURL(req.DataURL); err != nil {
			return "", err
		}
		return req.DataURL, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+(1<<20))
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return "", analysis.ErrPhotoTooLarge
		}
		return "", analysis.ErrEmptyPhoto
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		return "", analysis.ErrEmptyPhoto
	}
	defer file.Close()
	return analysis.ReadPhoto(file, header.Header.Get("Content-Type"), h.maxUpload)
}

func photoWarning(err error) string {
	switch {
	case errors.Is(err, analysis.ErrPhotoTooLarge):
		return "That photo is too large. Please choose an image under the upload limit."
	case errors.Is(err, analysis.ErrEmptyPhoto):
		return "We couldn't read that photo. Please choose an image file and try again."
	default:
		return "That file doesn't look like an image. Please upload a JPG, PNG or similar photo."
	}
}

// GetPhoto handles GET /api/analysis/photo/{flowID}.
func (h *AnalysisHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	f, err := h.driver.Photo(chi.URLParam(r, "flowID"))
	if err != nil {
		h.flowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// DeletePhoto handles DELETE /api/analysis/photo/{flowID}.
func (h *AnalysisHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	if err := h.driver.ClosePhoto(chi.URLParam(r, "flowID")); err != nil {
		h.flowError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// questionnaireView adds the pending question to a flow.
type questionnaireView struct {
	flow.QuestionnaireFlow
	Question       *analysis.Question `json:"question,omitempty"`
	TotalQuestions int                `json:"total_questions"`
}

func viewQuestionnaire(f flow.QuestionnaireFlow) questionnaireView {
	v := questionnaireView{QuestionnaireFlow: f, TotalQuestions: len(analysis.Questions())}
	if q, ok := f.Current(); ok {
		v.Question = &q
	}
	return v
}

// StartQuestionnaire handles POST /api/analysis/questionnaire.
func (h *AnalysisHandler) StartQuestionnaire(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, viewQuestionnaire(h.driver.StartQuestionnaire()))
}

type answerRequest struct {
	Answer string `json:"answer"`
}

// AnswerQuestion handles POST /api/analysis/questionnaire/{flowID}/answers.
func (h *AnalysisHandler) AnswerQuestion(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	f, err := h.driver.Answer(r.Context(), chi.URLParam(r, "flowID"), req.Answer)
	if err != nil {
		h.flowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewQuestionnaire(f))
}

// GetQuestionnaire handles GET /api/analysis/questionnaire/{flowID}.
func (h *AnalysisHandler) GetQuestionnaire(w http.ResponseWriter, r *http.Request) {
	f, err := h.driver.Questionnaire(chi.URLParam(r, "flowID"))
	if err != nil {
		h.flowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewQuestionnaire(f))
}

// DeleteQuestionnaire handles DELETE /api/analysis/questionnaire/{flowID}.
func (h *AnalysisHandler) DeleteQuestionnaire(w http.ResponseWriter, r *http.Request) {
	if err := h.driver.CloseQuestionnaire(chi.URLParam(r, "flowID")); err != nil {
		h.flowError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AnalysisHandler) flowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, flow.ErrFlowNotFound):
		jsonError(w, "analysis not found", http.StatusNotFound)
	case errors.Is(err, flow.ErrUnknownOption):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, flow.ErrQuestionnaireDone), errors.Is(err, flow.ErrAlreadyAnalyzing):
		jsonError(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("analysis flow error", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}
