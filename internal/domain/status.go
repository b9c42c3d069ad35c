package domain

import "time"

// InstallStatus is the derived installation state of one entry
type InstallStatus int

const (
	StatusReady   InstallStatus = iota // Not installed, no job
	StatusRunning                      // A daemon job touches the entry
	StatusFinish                       // Installed locally
)

// String returns the status name
func (s InstallStatus) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusFinish:
		return "finish"
	default:
		return "ready"
	}
}

// JobType distinguishes daemon job kinds
type JobType string

const (
	JobInstall JobType = "install"
	JobRemove  JobType = "remove"
)

// JobStatus is the lifecycle state of a daemon job
type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobFailed  JobStatus = "failed"
)

// Job is a background package operation tracked by the store daemon
type Job struct {
	ID        string    `json:"id"`
	Type      JobType   `json:"type"`
	Names     []string  `json:"names"`
	Status    JobStatus `json:"status"`
	Progress  float64   `json:"progress"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Active reports whether the job still counts as in progress
func (j Job) Active() bool {
	return j.Status == JobQueued || j.Status == JobRunning
}

// Touches reports whether the job operates on the named entry
func (j Job) Touches(name string) bool {
	for _, n := range j.Names {
		if n == name {
			return true
		}
	}
	return false
}
