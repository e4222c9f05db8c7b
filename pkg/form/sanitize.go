package form

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	captionPolicyOnce sync.Once
	captionPolicy     *bluemonday.Policy
)

// sanitizeCaption strips markup from server-supplied captions before they
// reach a presentation layer. Captions are data from the form definition and
// may contain arbitrary HTML.
func sanitizeCaption(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	captionPolicyOnce.Do(func() {
		captionPolicy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(captionPolicy.Sanitize(trimmed))
}
