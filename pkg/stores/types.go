package stores

import "time"

// storeVersion is the on-disk document version for both registries.
const storeVersion = 1

// TaskStatus represents the status of a task running on a compute instance.
type TaskStatus string

const (
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Repository describes the source-control resource of a project.
type Repository struct {
	URL   string `json:"url"`
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// Hosting describes the hosting/deploy resource of a project.
type Hosting struct {
	URL       string `json:"url"`
	ProjectID string `json:"projectId"`
}

// Backend describes the backend-as-a-service resource of a project.
type Backend struct {
	ProjectRef     string `json:"projectRef"`
	Region         string `json:"region"`
	DeployKey      string `json:"deployKey"`
	DeploymentName string `json:"deploymentName"`
}

// Project is a durable record of a provisioned application environment.
// Provider identifiers are immutable once created; conflict resolution at
// creation time produces a different stored name, never a rename.
type Project struct {
	Name       string     `json:"name"`
	CreatedAt  time.Time  `json:"createdAt"`
	Repository Repository `json:"repository"`
	Hosting    Hosting    `json:"hosting"`
	Backend    Backend    `json:"backend"`
}

// ComputeInstance is an ephemeral remote execution environment bound to
// exactly one project and, optionally, one feature.
type ComputeInstance struct {
	Name             string     `json:"name"`
	RemoteHost       string     `json:"remoteHost"`
	Project          string     `json:"project"`
	Feature          string     `json:"feature,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	RepositoryBranch string     `json:"repositoryBranch,omitempty"`
	BackendBranches  []string   `json:"backendBranches,omitempty"`
	TaskStatus       TaskStatus `json:"taskStatus,omitempty"`
	IterationCount   int        `json:"iterationCount,omitempty"`
	CumulativeCost   float64    `json:"cumulativeCost,omitempty"`
	OriginalPrompt   string     `json:"originalPrompt,omitempty"`
	ResultURL        string     `json:"resultUrl,omitempty"`
}

// projectDocument is the on-disk shape of the project registry.
type projectDocument struct {
	Version int       `json:"version"`
	Entries []Project `json:"entries"`
}

// instanceDocument is the on-disk shape of the compute instance registry.
type instanceDocument struct {
	Version int               `json:"version"`
	Entries []ComputeInstance `json:"entries"`
}
