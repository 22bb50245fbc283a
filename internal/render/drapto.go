package render

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	draptolib "github.com/five82/drapto"
)

// DraptoEncoder encodes the rendered resume to AV1 with the drapto library.
type DraptoEncoder struct{}

// Encode writes <outputDir>/<stem>.mkv and returns its path.
func (DraptoEncoder) Encode(ctx context.Context, inputPath, outputDir string, progress func(int)) (string, error) {
	if inputPath == "" {
		return "", errors.New("input path required")
	}
	if strings.TrimSpace(outputDir) == "" {
		return "", errors.New("output directory required")
	}

	encoder, err := draptolib.New(draptolib.WithResponsive())
	if err != nil {
		return "", err
	}
	var rep draptolib.Reporter
	if progress != nil {
		rep = newEncodeReporter(progress)
	}
	if _, err := encoder.EncodeWithReporter(ctx, inputPath, outputDir, rep); err != nil {
		return "", err
	}
	return EncodedPath(inputPath, outputDir), nil
}

// EncodedPath is where drapto writes the encode of inputPath.
func EncodedPath(inputPath, outputDir string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	return filepath.Join(strings.TrimSpace(outputDir), stem+".mkv")
}

// encodeReporter forwards drapto encoding progress as integer percentages
// and ignores the summary events.
type encodeReporter struct {
	progress func(int)
	last     int
}

func newEncodeReporter(progress func(int)) *encodeReporter {
	return &encodeReporter{progress: progress, last: -1}
}

func (r *encodeReporter) emit(pct float64) {
	value := max(0, min(int(pct), 100))
	if value == r.last {
		return
	}
	r.last = value
	r.progress(value)
}

func (r *encodeReporter) Hardware(draptolib.HardwareSummary)             {}
func (r *encodeReporter) Initialization(draptolib.InitializationSummary) {}
func (r *encodeReporter) StageProgress(draptolib.StageProgress)          {}
func (r *encodeReporter) CropResult(draptolib.CropSummary)               {}
func (r *encodeReporter) EncodingConfig(draptolib.EncodingConfigSummary) {}
func (r *encodeReporter) EncodingStarted(uint64)                         { r.emit(0) }
func (r *encodeReporter) EncodingProgress(s draptolib.ProgressSnapshot) {
	r.emit(float64(s.Percent))
}
func (r *encodeReporter) ValidationComplete(draptolib.ValidationSummary) {}
func (r *encodeReporter) EncodingComplete(draptolib.EncodingOutcome)     { r.emit(100) }
func (r *encodeReporter) Warning(string)                                 {}
func (r *encodeReporter) Error(draptolib.ReporterError)                  {}
func (r *encodeReporter) OperationComplete(string)                       {}
func (r *encodeReporter) BatchStarted(draptolib.BatchStartInfo)          {}
func (r *encodeReporter) FileProgress(draptolib.FileProgressContext)     {}
func (r *encodeReporter) BatchComplete(draptolib.BatchSummary)           {}

var (
	_ draptolib.Reporter = (*encodeReporter)(nil)
	_ Encoder            = DraptoEncoder{}
)
