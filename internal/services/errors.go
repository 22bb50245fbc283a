package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDetectorUnavailable = errors.New("detector unavailable")
	ErrExternalTool        = errors.New("external tool error")
	ErrValidation          = errors.New("validation error")
	ErrConfiguration       = errors.New("configuration error")
	ErrNotFound            = errors.New("not found")
	ErrTimeout             = errors.New("timeout")
	ErrTransient           = errors.New("transient failure")
)

// markers lists the sentinels in classification priority order.
var markers = []error{
	ErrDetectorUnavailable,
	ErrConfiguration,
	ErrValidation,
	ErrNotFound,
	ErrTimeout,
	ErrExternalTool,
	ErrTransient,
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorDetails is the classified view of an error used by logs and status output.
type ErrorDetails struct {
	Kind    string
	Message string
	Hint    string
}

// Details classifies err against the sentinel markers.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: "unknown", Message: strings.TrimSpace(err.Error())}
	for _, marker := range markers {
		if errors.Is(err, marker) {
			details.Kind = kindName(marker)
			details.Message = strings.TrimSpace(strings.TrimPrefix(details.Message, marker.Error()+":"))
			details.Hint = hintFor(marker)
			break
		}
	}
	return details
}

// IsFatal reports whether err should end the owning stage's pass.
// Transient failures are skipped by the caller instead.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrTransient) || errors.Is(err, ErrDetectorUnavailable)
}

func kindName(marker error) string {
	switch marker {
	case ErrDetectorUnavailable:
		return "detector_unavailable"
	case ErrConfiguration:
		return "configuration"
	case ErrValidation:
		return "validation"
	case ErrNotFound:
		return "not_found"
	case ErrTimeout:
		return "timeout"
	case ErrExternalTool:
		return "external_tool"
	case ErrTransient:
		return "transient"
	default:
		return "unknown"
	}
}

func hintFor(marker error) string {
	switch marker {
	case ErrDetectorUnavailable:
		return "check that ffmpeg and the detector artifacts are installed"
	case ErrConfiguration:
		return "fix the configuration file and restart the stage"
	case ErrValidation:
		return "check the input files"
	case ErrNotFound:
		return "check the configured paths"
	case ErrExternalTool:
		return "inspect the external tool output in the logs"
	default:
		return "check logs for details"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
