package model

// TaskState tracks an organization task through the pipeline.
type TaskState string

const (
	StatePending     TaskState = "pending"
	StateResolving   TaskState = "resolving"
	StateDiscovering TaskState = "discovering"
	StateExtracting  TaskState = "extracting"
	StateAdmitting   TaskState = "admitting"
	StateWriting     TaskState = "writing"
	StateDone        TaskState = "done"
)

// Outcome is the terminal result of an organization task.
type Outcome string

const (
	OutcomeSkipped          Outcome = "skipped" // already present in the store at startup
	OutcomeNoSite           Outcome = "no_site"
	OutcomeNoContacts       Outcome = "no_contacts_found"
	OutcomeWritten          Outcome = "written"
	OutcomeDuplicateSkipped Outcome = "duplicate_skipped"
	OutcomeWriteFailed      Outcome = "write_failed"
)

// Organization is one unit of pipeline input.
type Organization struct {
	Name    string
	SeedURL string // optional known site, set by deepen mode; skips search
}

// OrganizationTask carries per-organization pipeline state from intake to a
// terminal outcome.
type OrganizationTask struct {
	Org      Organization
	SiteRoot string
	State    TaskState
	Outcome  Outcome
	Record   *ContactRecord
}
