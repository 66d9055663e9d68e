package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/hairloss-doctor/internal/analysis"
	"github.com/wolfman30/hairloss-doctor/internal/flow"
	"github.com/wolfman30/hairloss-doctor/internal/schedule"
	"github.com/wolfman30/hairloss-doctor/pkg/logging"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0x42}, 64)...)

func newAnalysisRouter(t *testing.T, maxUpload int64) (http.Handler, *schedule.Manual) {
	t.Helper()
	logger := logging.New("error")
	clock := schedule.NewManual(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))
	driver := flow.NewDriver(analysis.NewAnalyzer(nil, logger), clock, 3*time.Second, logger, flow.WithClock(clock.Now))
	h := NewAnalysisHandler(driver, maxUpload, logger)

	r := chi.NewRouter()
	r.Get("/api/questions", h.Questions)
	r.Get("/api/analysis/catalog", h.Catalog)
	r.Post("/api/analysis/photo", h.SubmitPhoto)
	r.Get("/api/analysis/photo/{flowID}", h.GetPhoto)
	r.Delete("/api/analysis/photo/{flowID}", h.DeletePhoto)
	r.Post("/api/analysis/questionnaire", h.StartQuestionnaire)
	r.Get("/api/analysis/questionnaire/{flowID}", h.GetQuestionnaire)
	r.Post("/api/analysis/questionnaire/{flowID}/answers", h.AnswerQuestion)
	r.Delete("/api/analysis/questionnaire/{flowID}", h.DeleteQuestionnaire)
	return r, clock
}

func multipartPhoto(t *testing.T, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("photo", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analysis/photo", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestQuestionsAndCatalog(t *testing.T) {
	h, _ := newAnalysisRouter(t, 0)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/questions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var qs struct {
		Questions []analysis.Question `json:"questions"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&qs))
	assert.Equal(t, analysis.Questions(), qs.Questions)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/analysis/catalog", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var cat struct {
		Results []analysis.Result `json:"results"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cat))
	assert.Len(t, cat.Results, analysis.CatalogSize())
}

func TestSubmitPhoto_MultipartCompletesAfterDelay(t *testing.T) {
	h, clock := newAnalysisRouter(t, 0)

	rec := serve(h, multipartPhoto(t, "scalp.png", pngBytes))
	require.Equal(t, http.StatusAccepted, rec.Code)
	var f flow.PhotoFlow
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&f))
	assert.Equal(t, flow.StateAnalyzing, f.State)
	assert.Nil(t, f.Result)

	clock.Advance(3 * time.Second)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/analysis/photo/"+f.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var done flow.PhotoFlow
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&done))
	assert.Equal(t, flow.StateComplete, done.State)
	require.NotNil(t, done.Result)

	want := analysis.ResultAt(analysis.BucketByHash(analysis.DataURL("image/png", pngBytes), analysis.CatalogSize()))
	assert.Equal(t, want, *done.Result)
}

func TestSubmitPhoto_JSONDataURL(t *testing.T) {
	h, clock := newAnalysisRouter(t, 0)
	dataURL := analysis.DataURL("image/jpeg", []byte("fake-jpeg"))

	body, _ := json.Marshal(map[string]string{"data_url": dataURL})
	req := httptest.NewRequest(http.MethodPost, "/api/analysis/photo", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(h, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var f flow.PhotoFlow
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&f))
	clock.Advance(3 * time.Second)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/analysis/photo/"+f.ID, nil))
	var done flow.PhotoFlow
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&done))
	require.NotNil(t, done.Result)
	assert.Equal(t, analysis.ResultAt(analysis.BucketByHash(dataURL, 3)), *done.Result)
}

func TestSubmitPhoto_NotAnImageWarns(t *testing.T) {
	h, clock := newAnalysisRouter(t, 0)

	rec := serve(h, multipartPhoto(t, "notes.txt", []byte("just some plain text")))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.NotEmpty(t, body["warning"])
	assert.Equal(t, 0, clock.Pending(), "nothing should be scheduled")
}

func TestSubmitPhoto_TooLarge(t *testing.T) {
	h, _ := newAnalysisRouter(t, 16)

	rec := serve(h, multipartPhoto(t, "big.png", pngBytes))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "too large")
}

func TestSubmitPhoto_MissingField(t *testing.T) {
	h, _ := newAnalysisRouter(t, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/analysis/photo", strings.NewReader("nothing"))
	req.Header.Set("Content-Type", "text/plain")
	rec := serve(h, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDeletePhoto_CancelsAnalysis(t *testing.T) {
	h, clock := newAnalysisRouter(t, 0)

	rec := serve(h, multipartPhoto(t, "scalp.png", pngBytes))
	var f flow.PhotoFlow
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&f))

	rec = serve(h, httptest.NewRequest(http.MethodDelete, "/api/analysis/photo/"+f.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	clock.Advance(time.Minute)
	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/analysis/photo/"+f.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type questionnaireBody struct {
	ID             string             `json:"id"`
	State          flow.State         `json:"state"`
	Index          int                `json:"question_index"`
	Answers        map[string]string  `json:"answers"`
	Result         *analysis.Result   `json:"result"`
	Question       *analysis.Question `json:"question"`
	TotalQuestions int                `json:"total_questions"`
}

func decodeQuestionnaire(t *testing.T, rec *httptest.ResponseRecorder) questionnaireBody {
	t.Helper()
	var body questionnaireBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func answer(h http.Handler, id, option string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(map[string]string{"answer": option})
	req := httptest.NewRequest(http.MethodPost, "/api/analysis/questionnaire/"+id+"/answers", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return serve(h, req)
}

func TestQuestionnaire_FullRun(t *testing.T) {
	h, _ := newAnalysisRouter(t, 0)

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/analysis/questionnaire", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	started := decodeQuestionnaire(t, rec)
	require.NotNil(t, started.Question)
	assert.Equal(t, "age", started.Question.ID)
	assert.Equal(t, len(analysis.Questions()), started.TotalQuestions)

	answers := map[string]string{}
	var last questionnaireBody
	for _, q := range analysis.Questions() {
		option := q.Options[len(q.Options)-1]
		answers[q.ID] = option
		rec = answer(h, started.ID, option)
		require.Equal(t, http.StatusOK, rec.Code)
		last = decodeQuestionnaire(t, rec)
	}

	assert.Equal(t, flow.StateComplete, last.State)
	assert.Nil(t, last.Question)
	require.NotNil(t, last.Result)
	assert.Equal(t, analysis.ResultAt(analysis.BucketByLength(answers, analysis.CatalogSize())), *last.Result)

	rec = answer(h, started.ID, analysis.Questions()[0].Options[0])
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestQuestionnaire_UnknownOption(t *testing.T) {
	h, _ := newAnalysisRouter(t, 0)

	started := decodeQuestionnaire(t, serve(h, httptest.NewRequest(http.MethodPost, "/api/analysis/questionnaire", nil)))
	rec := answer(h, started.ID, "definitely not an option")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/analysis/questionnaire/"+started.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decodeQuestionnaire(t, rec).Index)
}

func TestQuestionnaire_NotFoundAndDelete(t *testing.T) {
	h, _ := newAnalysisRouter(t, 0)

	assert.Equal(t, http.StatusNotFound, answer(h, "missing", "x").Code)

	started := decodeQuestionnaire(t, serve(h, httptest.NewRequest(http.MethodPost, "/api/analysis/questionnaire", nil)))
	rec := serve(h, httptest.NewRequest(http.MethodDelete, "/api/analysis/questionnaire/"+started.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/analysis/questionnaire/"+started.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnswerQuestion_BadJSON(t *testing.T) {
	h, _ := newAnalysisRouter(t, 0)
	req := httptest.NewRequest(http.MethodPost, "/api/analysis/questionnaire/x/answers", strings.NewReader("{"))
	assert.Equal(t, http.StatusBadRequest, serve(h, req).Code)
}
