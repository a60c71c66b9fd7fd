package export

import (
	"fmt"

	"github.com/starford/kenaz-export/internal/apperr"
	"github.com/starford/kenaz-export/internal/capability"
	"github.com/starford/kenaz-export/internal/format"
	"github.com/starford/kenaz-export/internal/models"
)

// FormatAvailable reports, as an error wrapping apperr.ErrCapabilityMissing,
// which external tool f needs that caps does not have.
func FormatAvailable(f format.Format, caps capability.Map) error {
	if f.NeedsConverter && !caps.Has(capability.DocumentConverter) {
		return fmt.Errorf("%s needs %s: %w", f.Name, capability.DocumentConverter, apperr.ErrCapabilityMissing)
	}
	if f.NeedsTypesetter && !caps.Has(capability.TypesettingEngine) {
		return fmt.Errorf("%s needs %s: %w", f.Name, capability.TypesettingEngine, apperr.ErrCapabilityMissing)
	}
	return nil
}

// CanExport reports whether f can be produced for the active document.
// activePath is empty when no document is active.
func CanExport(f format.Format, activePath string, caps capability.Map) bool {
	if FormatAvailable(f, caps) != nil {
		return false
	}
	if activePath == "" {
		return false
	}
	return models.IsSupportedInput(activePath)
}
