package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/launchforge/launchforge/pkg/providers/repohost"
	"github.com/launchforge/launchforge/pkg/stores"
)

// remoteTaskFile is where the task driver on an instance reports progress.
const remoteTaskFile = "/root/launchforge-task.json"

// statusConcurrency caps the probe fan-out across instances.
const statusConcurrency = 8

// InstanceStatus is one instance's row in the fleet status view.
type InstanceStatus struct {
	Instance    stores.ComputeInstance `json:"instance"`
	Reachable   bool                   `json:"reachable"`
	PullRequest *repohost.PullRequest  `json:"pullRequest,omitempty"`

	// Err is the probe error, if the instance could not be checked.
	Err error `json:"-"`
}

// taskReport is the progress file written by the task driver on the instance.
type taskReport struct {
	Status         string  `json:"status"`
	IterationCount int     `json:"iterationCount"`
	CumulativeCost float64 `json:"cumulativeCost"`
	ResultURL      string  `json:"resultUrl"`
}

// Status probes every recorded instance (optionally filtered by project)
// concurrently: SSH reachability, pull request state, and task progress. The
// probes are independent read-only checks; results are joined before any
// record is written back, because the store is single-writer.
func (l *Lifecycle) Status(ctx context.Context, project string) ([]InstanceStatus, error) {
	var instances []stores.ComputeInstance
	var err error
	if project != "" {
		instances, err = l.instances.ListByProject(project)
	} else {
		instances, err = l.instances.List()
	}
	if err != nil {
		return nil, err
	}

	results := make([]InstanceStatus, len(instances))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statusConcurrency)

	for i := range instances {
		i := i
		g.Go(func() error {
			results[i] = l.probeInstance(gctx, instances[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Persist task-progress updates sequentially after the join.
	for _, status := range results {
		if status.Reachable {
			if err := l.instances.Save(status.Instance); err != nil {
				return results, err
			}
		}
	}
	return results, nil
}

// probeInstance gathers one instance's status. Probe failures mark the
// instance unreachable instead of failing the whole view.
func (l *Lifecycle) probeInstance(ctx context.Context, inst stores.ComputeInstance) InstanceStatus {
	status := InstanceStatus{Instance: inst}

	if err := l.shell.Probe(ctx, inst.RemoteHost); err != nil {
		status.Err = err
		log.Debug().Err(err).Str("instance", inst.Name).Msg("instance unreachable")
	} else {
		status.Reachable = true
		l.refreshTaskFields(ctx, &status)
	}

	if inst.RepositoryBranch != "" {
		if project, ok, err := l.projects.Get(inst.Project); err == nil && ok {
			repo := &repohost.Repo{Owner: project.Repository.Owner, Name: project.Repository.Repo}
			pr, err := l.repos.PullRequestForBranch(ctx, repo, inst.RepositoryBranch)
			if err != nil {
				log.Debug().Err(err).Str("instance", inst.Name).Msg("pull request lookup failed")
			} else {
				status.PullRequest = pr
			}
		}
	}
	return status
}

// refreshTaskFields reads the progress file on the instance and folds it into
// the record carried by the status row.
func (l *Lifecycle) refreshTaskFields(ctx context.Context, status *InstanceStatus) {
	transport, err := l.shell.Open(ctx, status.Instance.RemoteHost)
	if err != nil {
		log.Debug().Err(err).Str("instance", status.Instance.Name).Msg("task progress check skipped")
		return
	}
	defer transport.Disconnect()

	res, err := transport.Execute(ctx, fmt.Sprintf("cat %s 2>/dev/null || true", remoteTaskFile))
	if err != nil || res.Stdout == "" {
		return
	}

	var report taskReport
	if err := json.Unmarshal([]byte(res.Stdout), &report); err != nil {
		log.Debug().Err(err).Str("instance", status.Instance.Name).Msg("malformed task progress file")
		return
	}

	switch report.Status {
	case string(stores.TaskStatusRunning), string(stores.TaskStatusCompleted), string(stores.TaskStatusFailed):
		status.Instance.TaskStatus = stores.TaskStatus(report.Status)
	}
	if report.IterationCount > 0 {
		status.Instance.IterationCount = report.IterationCount
	}
	if report.CumulativeCost > 0 {
		status.Instance.CumulativeCost = report.CumulativeCost
	}
	if report.ResultURL != "" {
		status.Instance.ResultURL = report.ResultURL
	}
}
