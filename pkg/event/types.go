package event

// Task type names used on the asynq queue.
const TypeDispatch = "run:dispatch"

// Event types recognized by the dispatcher. Anything else is ignored.
const TypePush = "push"

// Trigger provenance recorded on a run.
const (
	TriggerWebhook = "webhook"
	TriggerManual  = "manual"
)

// Push identifies one source revision to verify.
type Push struct {
	Type     string `json:"type"`
	Revision string `json:"revision"`
	Ref      string `json:"ref"`
}

// DispatchPayload is the queued request to execute one run.
type DispatchPayload struct {
	RunUUID     string `json:"run_uuid"`
	TriggerType string `json:"trigger_type"` // webhook/manual
	Event       Push   `json:"event"`
}
