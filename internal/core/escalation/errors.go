package escalation

import "errors"

// Error kinds surfaced by the lifecycle. Compare with errors.Is.
var (
	ErrNotFound          = errors.New("escalation not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrAlreadyAssigned   = errors.New("escalation already assigned")
	ErrNotOwner          = errors.New("actor does not own escalation")
	ErrEmptyResolution   = errors.New("resolution note is required")
	ErrRecordClosed      = errors.New("escalation is closed")

	ErrActorRequired = errors.New("actor is required")
	ErrEmptyNote     = errors.New("note text is required")
	ErrInvalidLevel  = errors.New("invalid escalation level")
	ErrInvalidStatus = errors.New("invalid escalation status")
)
