// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID    = "request_id"
	FieldConnectionID = "connection_id"
	FieldAlertID      = "alert_id"
	FieldEventID      = "event_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldReason    = "reason"

	// Stream fields
	FieldEpoch      = "epoch"
	FieldRetryCount = "retry_count"
	FieldDelay      = "delay"
	FieldStatus     = "status"
	FieldFrameType  = "frame_type"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / URL fields
	FieldPath = "path"
	FieldURL  = "url"
)
