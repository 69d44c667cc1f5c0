package model

import "time"

// Run is a planned instance of a workflow document, recorded so that the
// later run, status and remove commands can find its submit directory.
type Run struct {
	ID             string    `json:"id"`
	WorkflowName   string    `json:"workflow_name"`
	DocumentPath   string    `json:"document_path"`
	SubmitDir      string    `json:"submit_dir"`
	RootWfUUID     string    `json:"root_wf_uuid,omitempty"`
	WfUUID         string    `json:"wf_uuid,omitempty"`
	User           string    `json:"user,omitempty"`
	PlannerVersion string    `json:"planner_version,omitempty"`
	State          RunState  `json:"state"`
	PercentDone    float64   `json:"percent_done"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
