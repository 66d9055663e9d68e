package flow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/hairloss-doctor/internal/analysis"
	"github.com/wolfman30/hairloss-doctor/internal/schedule"
	"github.com/wolfman30/hairloss-doctor/pkg/logging"
)

const defaultRetention = 30 * time.Minute

// Driver owns flows by id. Photo analysis completes after a simulated delay on
// the scheduler; closing a flow first turns its pending completion into a no-op.
type Driver struct {
	analyzer  *analysis.Analyzer
	scheduler schedule.Scheduler
	delay     time.Duration
	retention time.Duration
	logger    *logging.Logger
	now       func() time.Time

	mu             sync.Mutex
	photos         map[string]*photoEntry
	questionnaires map[string]QuestionnaireFlow
}

type photoEntry struct {
	flow  PhotoFlow
	timer schedule.Timer
	gen   int // bumped on every submit so stale callbacks can be told apart
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithClock overrides the time source.
func WithClock(now func() time.Time) DriverOption {
	return func(d *Driver) {
		if now != nil {
			d.now = now
		}
	}
}

// WithRetention sets how long idle flows are kept before eviction.
func WithRetention(ttl time.Duration) DriverOption {
	return func(d *Driver) {
		if ttl > 0 {
			d.retention = ttl
		}
	}
}

// NewDriver creates a driver. delay is the simulated photo analysis time.
func NewDriver(analyzer *analysis.Analyzer, scheduler schedule.Scheduler, delay time.Duration, logger *logging.Logger, opts ...DriverOption) *Driver {
	if logger == nil {
		logger = logging.Default()
	}
	if scheduler == nil {
		scheduler = schedule.Real{}
	}
	if analyzer == nil {
		analyzer = analysis.NewAnalyzer(nil, logger)
	}
	d := &Driver{
		analyzer:       analyzer,
		scheduler:      scheduler,
		delay:          delay,
		retention:      defaultRetention,
		logger:         logger,
		now:            time.Now,
		photos:         make(map[string]*photoEntry),
		questionnaires: make(map[string]QuestionnaireFlow),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CreatePhoto registers an idle photo flow.
func (d *Driver) CreatePhoto() PhotoFlow {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.evictLocked()

	f := NewPhotoFlow(uuid.NewString(), d.now().UTC())
	d.photos[f.ID] = &photoEntry{flow: f}
	return f
}

// SelectPhoto attaches a photo to an existing flow, cancelling any analysis
// in progress.
func (d *Driver) SelectPhoto(id, dataURL string) (PhotoFlow, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.photos[id]
	if !ok {
		return PhotoFlow{}, ErrFlowNotFound
	}
	if entry.timer != nil {
		entry.timer.Stop()
		entry.timer = nil
	}
	entry.flow = entry.flow.SelectPhoto(dataURL, d.now().UTC())
	return entry.flow, nil
}

// SubmitPhoto moves the flow to analyzing and schedules its completion.
func (d *Driver) SubmitPhoto(ctx context.Context, id string) (PhotoFlow, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.photos[id]
	if !ok {
		return PhotoFlow{}, ErrFlowNotFound
	}
	next, err := entry.flow.Submit(d.now().UTC())
	if err != nil {
		return entry.flow, err
	}
	entry.flow = next
	entry.gen++

	bg := context.WithoutCancel(ctx)
	gen := entry.gen
	entry.timer = d.scheduler.AfterFunc(d.delay, func() {
		d.completePhoto(bg, id, entry, gen)
	})
	d.logger.Debug("photo analysis scheduled", "flow_id", id, "delay", d.delay)
	return entry.flow, nil
}

// AnalyzePhoto creates, fills and submits a photo flow in one step.
func (d *Driver) AnalyzePhoto(ctx context.Context, dataURL string) (PhotoFlow, error) {
	f := d.CreatePhoto()
	if _, err := d.SelectPhoto(f.ID, dataURL); err != nil {
		return PhotoFlow{}, err
	}
	return d.SubmitPhoto(ctx, f.ID)
}

func (d *Driver) completePhoto(ctx context.Context, id string, scheduled *photoEntry, gen int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.photos[id]
	if !ok || entry != scheduled || entry.gen != gen || entry.flow.State != StateAnalyzing {
		d.logger.Debug("photo analysis dropped", "flow_id", id)
		return
	}
	result := d.analyzer.AnalyzePhoto(ctx, entry.flow.DataURL)
	entry.flow = entry.flow.Complete(result, d.now().UTC())
	entry.timer = nil
}

// Photo returns the current state of a photo flow.
func (d *Driver) Photo(id string) (PhotoFlow, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	entry, ok := d.photos[id]
	if !ok {
		return PhotoFlow{}, ErrFlowNotFound
	}
	return entry.flow, nil
}

// ClosePhoto tears a flow down. A pending completion will not run.
func (d *Driver) ClosePhoto(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	entry, ok := d.photos[id]
	if !ok {
		return ErrFlowNotFound
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	delete(d.photos, id)
	return nil
}

// StartQuestionnaire registers a new questionnaire flow.
func (d *Driver) StartQuestionnaire() QuestionnaireFlow {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.evictLocked()

	f := NewQuestionnaireFlow(uuid.NewString(), d.now().UTC())
	d.questionnaires[f.ID] = f
	return f
}

// Answer records an answer for the flow's current question.
func (d *Driver) Answer(ctx context.Context, id, option string) (QuestionnaireFlow, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, ok := d.questionnaires[id]
	if !ok {
		return QuestionnaireFlow{}, ErrFlowNotFound
	}
	next, err := f.Answer(option, func(answers map[string]string) analysis.Result {
		return d.analyzer.AnalyzeQuestionnaire(ctx, answers)
	}, d.now().UTC())
	if err != nil {
		return f, err
	}
	d.questionnaires[id] = next
	return next, nil
}

// Questionnaire returns the current state of a questionnaire flow.
func (d *Driver) Questionnaire(id string) (QuestionnaireFlow, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.questionnaires[id]
	if !ok {
		return QuestionnaireFlow{}, ErrFlowNotFound
	}
	return f, nil
}

// CloseQuestionnaire discards a questionnaire flow.
func (d *Driver) CloseQuestionnaire(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.questionnaires[id]; !ok {
		return ErrFlowNotFound
	}
	delete(d.questionnaires, id)
	return nil
}

// evictLocked drops flows untouched for longer than the retention window.
// Flows still analyzing are kept. Caller holds d.mu.
func (d *Driver) evictLocked() {
	cutoff := d.now().UTC().Add(-d.retention)
	for id, entry := range d.photos {
		if entry.flow.State != StateAnalyzing && entry.flow.UpdatedAt.Before(cutoff) {
			delete(d.photos, id)
		}
	}
	for id, f := range d.questionnaires {
		if f.UpdatedAt.Before(cutoff) {
			delete(d.questionnaires, id)
		}
	}
}
