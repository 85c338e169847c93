package entity

// Platform identifies a supported social media source.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
)

// Valid reports whether the platform is one of the supported values.
func (p Platform) Valid() bool {
	return p == PlatformInstagram || p == PlatformTikTok
}

// JobSpec describes one scrape job to be submitted to the actor platform.
// It is built once per request and never mutated.
type JobSpec struct {
	Platform     Platform
	TargetTag    string // leading '#' already stripped
	ResultLimit  int
	Concurrency  int
	RequestLimit int
}

// JobHandle identifies a running scrape job. ResultSetID may be empty at
// launch time and resolved later from the job status payload.
type JobHandle struct {
	JobID       string
	ResultSetID string
}

// JobStatus is the state of a scrape job as reported by the actor platform.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusAborted   JobStatus = "ABORTED"
	JobStatusTimedOut  JobStatus = "TIMED_OUT"
)

// ParseJobStatus maps an upstream status string onto the known status set.
// The platform reports success as either SUCCEEDED or FINISHED; anything
// non-terminal collapses to RUNNING.
func ParseJobStatus(raw string) JobStatus {
	switch raw {
	case "SUCCEEDED", "FINISHED":
		return JobStatusSucceeded
	case "FAILED":
		return JobStatusFailed
	case "ABORTED":
		return JobStatusAborted
	case "TIMED_OUT", "TIMED-OUT":
		return JobStatusTimedOut
	default:
		return JobStatusRunning
	}
}

// Terminal reports whether no further status transition can occur.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusAborted, JobStatusTimedOut:
		return true
	}
	return false
}
