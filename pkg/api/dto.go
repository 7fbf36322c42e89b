package api

type RunBrief struct {
	RunUUID     string `json:"run_uuid"`
	Revision    string `json:"revision"`
	Ref         string `json:"ref"`
	TriggerType string `json:"trigger_type"`
	Verdict     string `json:"verdict"` // pending/accepted/rejected/superseded
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time,omitempty"`
}

type JobReport struct {
	JobName     string `json:"job_name"`
	Outcome     string `json:"outcome"` // pending/running/passed/failed/errored
	FailureKind string `json:"failure_kind,omitempty"`
	Stdout      string `json:"stdout,omitempty"`
	Stderr      string `json:"stderr,omitempty"`
	StartTime   string `json:"start_time,omitempty"`
	EndTime     string `json:"end_time,omitempty"`
}

type RunDetail struct {
	RunBrief
	Jobs []JobReport `json:"jobs"`
}
