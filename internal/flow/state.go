// Package flow models the photo and questionnaire analysis flows as immutable
// state values, plus a Driver that owns them between HTTP requests.
package flow

import (
	"errors"
	"time"

	"github.com/wolfman30/hairloss-doctor/internal/analysis"
)

// State is the view state of an analysis flow.
type State string

const (
	StateIdle      State = "idle"
	StateAnalyzing State = "analyzing"
	StateComplete  State = "complete"
)

var (
	ErrFlowNotFound      = errors.New("flow: not found")
	ErrNoPhoto           = errors.New("flow: no photo selected")
	ErrAlreadyAnalyzing  = errors.New("flow: analysis already in progress")
	ErrUnknownOption     = errors.New("flow: answer is not an option for the current question")
	ErrQuestionnaireDone = errors.New("flow: questionnaire already complete")
)

// PhotoFlow is idle -> analyzing -> complete, and back to idle on a new photo
// or reset. The photo is dropped once analysis completes.
type PhotoFlow struct {
	ID        string           `json:"id"`
	State     State            `json:"state"`
	DataURL   string           `json:"-"`
	Result    *analysis.Result `json:"result,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// NewPhotoFlow returns an idle flow.
func NewPhotoFlow(id string, now time.Time) PhotoFlow {
	return PhotoFlow{ID: id, State: StateIdle, UpdatedAt: now}
}

// SelectPhoto attaches a photo and clears any previous result.
func (p PhotoFlow) SelectPhoto(dataURL string, now time.Time) PhotoFlow {
	p.DataURL = dataURL
	p.State = StateIdle
	p.Result = nil
	p.UpdatedAt = now
	return p
}

// Submit starts analysis. It needs a selected photo.
func (p PhotoFlow) Submit(now time.Time) (PhotoFlow, error) {
	if p.State == StateAnalyzing {
		return p, ErrAlreadyAnalyzing
	}
	if p.DataURL == "" {
		return p, ErrNoPhoto
	}
	p.State = StateAnalyzing
	p.Result = nil
	p.UpdatedAt = now
	return p, nil
}

// Complete records the result. Flows that are not analyzing are returned as-is.
func (p PhotoFlow) Complete(result analysis.Result, now time.Time) PhotoFlow {
	if p.State != StateAnalyzing {
		return p
	}
	p.State = StateComplete
	p.Result = &result
	p.DataURL = ""
	p.UpdatedAt = now
	return p
}

// Reset returns the flow to idle with nothing selected.
func (p PhotoFlow) Reset(now time.Time) PhotoFlow {
	return NewPhotoFlow(p.ID, now)
}

// QuestionnaireFlow steps through analysis.Questions. Answering the last
// question goes straight to complete without an analyzing step; the photo flow
// always passes through analyzing. Both behaviours are kept as the page had them.
type QuestionnaireFlow struct {
	ID        string            `json:"id"`
	State     State             `json:"state"`
	Index     int               `json:"question_index"`
	Answers   map[string]string `json:"answers"`
	Result    *analysis.Result  `json:"result,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewQuestionnaireFlow returns a flow positioned on the first question.
func NewQuestionnaireFlow(id string, now time.Time) QuestionnaireFlow {
	return QuestionnaireFlow{ID: id, State: StateIdle, Answers: map[string]string{}, UpdatedAt: now}
}

// Current returns the question awaiting an answer.
func (q QuestionnaireFlow) Current() (analysis.Question, bool) {
	if q.State == StateComplete {
		return analysis.Question{}, false
	}
	qs := analysis.Questions()
	if q.Index < 0 || q.Index >= len(qs) {
		return analysis.Question{}, false
	}
	return qs[q.Index], true
}

// Answer records option for the current question. On the last question the
// analyze func selects the result and the flow completes.
func (q QuestionnaireFlow) Answer(option string, analyze func(map[string]string) analysis.Result, now time.Time) (QuestionnaireFlow, error) {
	current, ok := q.Current()
	if !ok {
		return q, ErrQuestionnaireDone
	}
	if !current.HasOption(option) {
		return q, ErrUnknownOption
	}

	answers := make(map[string]string, len(q.Answers)+1)
	for k, v := range q.Answers {
		answers[k] = v
	}
	answers[current.ID] = option
	q.Answers = answers
	q.UpdatedAt = now

	if q.Index < len(analysis.Questions())-1 {
		q.Index++
		return q, nil
	}
	result := analyze(answers)
	q.Result = &result
	q.State = StateComplete
	return q, nil
}

// Reset starts the questionnaire over.
func (q QuestionnaireFlow) Reset(now time.Time) QuestionnaireFlow {
	return NewQuestionnaireFlow(q.ID, now)
}
