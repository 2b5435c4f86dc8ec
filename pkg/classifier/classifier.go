// Package classifier labels text samples with a language code.
//
// Detection is best effort. Short or code-mixed samples may be labelled
// wrongly; callers store whatever label comes back.
package classifier

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// Undetermined is the label used when no language could be detected.
const Undetermined = "und"

// Classifier wraps whatlanggo. It holds no mutable state and is safe for
// concurrent use.
type Classifier struct {
	minConfidence float64
}

// New creates a Classifier. Detections below minConfidence are reported as
// Undetermined; zero accepts every detection.
func New(minConfidence float64) *Classifier {
	return &Classifier{minConfidence: minConfidence}
}

// Classify returns an ISO 639-1 code for sample, falling back to the
// ISO 639-3 code for languages without a two letter code.
func (c *Classifier) Classify(sample string) string {
	if strings.TrimSpace(sample) == "" {
		return Undetermined
	}
	info := whatlanggo.Detect(sample)
	if info.Confidence < c.minConfidence {
		return Undetermined
	}
	if code := info.Lang.Iso6391(); code != "" {
		return code
	}
	if code := info.Lang.Iso6393(); code != "" {
		return code
	}
	return Undetermined
}
