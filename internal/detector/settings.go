package detector

import (
	"github.com/astralabs/astra-go/internal/conf"
)

// NewManagerFromSettings builds a manager for the configured detector, with
// the configuration map every built-in detector variant reads from.
func NewManagerFromSettings(settings *conf.Settings) *Manager {
	config := map[string]any{
		"thresholdlength": settings.Detection.ThresholdLength,
		"topk":            settings.Detection.TopK,
		"endpoint":        settings.Detection.Endpoint,
		"labels":          settings.Detection.Labels,
	}
	return NewManager(Default(), settings.Detection.Detector, config)
}
