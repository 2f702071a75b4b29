package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxReferenceIDLength bounds a client-supplied reference id.
const maxReferenceIDLength = 64

// NewReferenceID returns a human-facing id such as PV-HCP-1A2B3C4D.
func NewReferenceID(origin Origin) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("PV-%s-%s", origin.tag(), strings.ToUpper(hex[:8]))
}

// Submit stores a public intake submission as a new report. payload must be a
// JSON object; its optional referenceId field is kept when present.
func (s *Service) Submit(ctx context.Context, origin Origin, payload json.RawMessage) (*Report, error) {
	if !origin.Valid() {
		return nil, ErrInvalidOrigin
	}
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: body must be a JSON object", ErrInvalidSubmission)
	}

	var head struct {
		ReferenceID string `json:"referenceId"`
	}
	if err := json.Unmarshal(trimmed, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}
	ref := strings.TrimSpace(head.ReferenceID)
	if len(ref) > maxReferenceIDLength {
		return nil, fmt.Errorf("%w: referenceId longer than %d characters", ErrInvalidSubmission, maxReferenceIDLength)
	}
	if ref == "" {
		ref = NewReferenceID(origin)
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	r := &Report{
		ID:            uuid.NewString(),
		Origin:        origin,
		ReferenceID:   ref,
		Status:        StatusNew,
		Severity:      SeverityInfo,
		Details:       append(json.RawMessage(nil), trimmed...),
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("origin", string(origin)).
		Str("report_id", r.ID).
		Str("reference_id", ref).
		Msg("report submitted")
	return r, nil
}
