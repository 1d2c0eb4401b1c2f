package extraction

import (
	"context"
	"regexp"
)

// keyArtifacts matches quote characters and whitespace that sneak into keys
// pasted into deployment configuration.
var keyArtifacts = regexp.MustCompile(`["'` + "`" + `\s]`)

// SanitizeKey strips quotes, whitespace and line breaks from a raw
// credential string before use.
func SanitizeKey(raw string) string {
	return keyArtifacts.ReplaceAllString(raw, "")
}

// Picker selects the delivery strategy for an extraction call.
type Picker interface {
	Pick(personalKey string) Extractor
}

// StrategyPicker picks Direct when a personal credential is configured,
// otherwise Proxied when an extract endpoint is configured, otherwise Direct
// with the server's own credential. Selection is a pure predicate on the
// configured values; the choice happens once per call.
type StrategyPicker struct {
	ExtractURL string
	ServerKey  string
	Model      string
}

func (p StrategyPicker) Pick(personalKey string) Extractor {
	personalKey = SanitizeKey(personalKey)
	if personalKey != "" {
		if d, err := NewDirect(personalKey, p.Model); err == nil {
			return d
		}
	}
	if p.ExtractURL != "" {
		return NewProxied(p.ExtractURL, "")
	}
	serverKey := SanitizeKey(p.ServerKey)
	if d, err := NewDirect(serverKey, p.Model); err == nil {
		return d
	}
	return failingExtractor{}
}

// failingExtractor is picked when no credential is available at all, so the
// missing-credential error surfaces through the normal Analyze path.
type failingExtractor struct{}

func (failingExtractor) Analyze(context.Context, []byte, string) (*Fields, error) {
	return nil, &Error{Message: MsgMissingCredential}
}

var _ Extractor = failingExtractor{}
