package analysis

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/hairloss-doctor/pkg/logging"
)

var analysisTracer = otel.Tracer("hairloss/analysis")

// Source labels where a result came from.
type Source string

const (
	SourcePhoto         Source = "photo"
	SourceQuestionnaire Source = "questionnaire"
)

// Observer receives one call per completed analysis.
type Observer interface {
	ObserveAnalysis(source string, bucket int)
}

// Analyzer selects canned results for photos and questionnaires.
type Analyzer struct {
	logger   *logging.Logger
	observer Observer
}

// NewAnalyzer creates an analyzer. observer may be nil.
func NewAnalyzer(observer Observer, logger *logging.Logger) *Analyzer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Analyzer{logger: logger, observer: observer}
}

// AnalyzePhoto buckets the photo's data URL by content hash.
func (a *Analyzer) AnalyzePhoto(ctx context.Context, dataURL string) Result {
	_, span := analysisTracer.Start(ctx, "analysis.photo")
	defer span.End()

	bucket := BucketByHash(dataURL, CatalogSize())
	span.SetAttributes(
		attribute.Int("analysis.bucket", bucket),
		attribute.Int("analysis.payload_len", len(dataURL)),
	)
	a.record(SourcePhoto, bucket)
	return ResultAt(bucket)
}

// AnalyzeQuestionnaire buckets the answers by their combined length.
func (a *Analyzer) AnalyzeQuestionnaire(ctx context.Context, answers map[string]string) Result {
	_, span := analysisTracer.Start(ctx, "analysis.questionnaire")
	defer span.End()

	bucket := BucketByLength(answers, CatalogSize())
	span.SetAttributes(
		attribute.Int("analysis.bucket", bucket),
		attribute.Int("analysis.answers", len(answers)),
	)
	a.record(SourceQuestionnaire, bucket)
	return ResultAt(bucket)
}

func (a *Analyzer) record(source Source, bucket int) {
	a.logger.Info("analysis complete", "source", source, "bucket", bucket)
	if a.observer != nil {
		a.observer.ObserveAnalysis(string(source), bucket)
	}
}
