package stores

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func setupProjectStore(t *testing.T) *ProjectStore {
	t.Helper()
	return NewProjectStore(filepath.Join(t.TempDir(), "projects.json"))
}

func setupInstanceStore(t *testing.T) *InstanceStore {
	t.Helper()
	return NewInstanceStore(filepath.Join(t.TempDir(), "instances.json"))
}

func sampleProject(name string) Project {
	return Project{
		Name:      name,
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Repository: Repository{
			URL:   "https://github.com/acme/" + name,
			Owner: "acme",
			Repo:  name,
		},
		Hosting: Hosting{
			URL:       "https://" + name + ".example.app",
			ProjectID: "prj_123",
		},
		Backend: Backend{
			ProjectRef:     "ref_456",
			Region:         "fra1",
			DeployKey:      "sbp_secret",
			DeploymentName: name + "-db",
		},
	}
}

func TestProjectStoreMissingFileIsEmpty(t *testing.T) {
	store := setupProjectStore(t)

	projects, err := store.List()
	if err != nil {
		t.Fatalf("listing empty store: %v", err)
	}
	if len(projects) != 0 {
		t.Errorf("expected empty store, got %d entries", len(projects))
	}
}

func TestProjectStoreRoundTrip(t *testing.T) {
	store := setupProjectStore(t)

	want := sampleProject("demo")
	if err := store.Save(want); err != nil {
		t.Fatalf("saving project: %v", err)
	}

	got, found, err := store.Get("demo")
	if err != nil {
		t.Fatalf("reading project: %v", err)
	}
	if !found {
		t.Fatal("project not found after save")
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round-trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestProjectStoreSaveReplaces(t *testing.T) {
	store := setupProjectStore(t)

	p := sampleProject("demo")
	if err := store.Save(p); err != nil {
		t.Fatalf("saving project: %v", err)
	}
	p.Hosting.URL = "https://demo-v2.example.app"
	if err := store.Save(p); err != nil {
		t.Fatalf("re-saving project: %v", err)
	}

	projects, err := store.List()
	if err != nil {
		t.Fatalf("listing projects: %v", err)
	}
	if len(projects) != 1 {
		t.Fatalf("expected 1 entry after replace, got %d", len(projects))
	}
	if projects[0].Hosting.URL != "https://demo-v2.example.app" {
		t.Errorf("replace did not take effect: %q", projects[0].Hosting.URL)
	}
}

func TestProjectStoreDeleteAbsentIsNoop(t *testing.T) {
	store := setupProjectStore(t)

	if err := store.Save(sampleProject("demo")); err != nil {
		t.Fatalf("saving project: %v", err)
	}
	if err := store.Delete("no-such-project"); err != nil {
		t.Fatalf("deleting absent name should be a no-op, got: %v", err)
	}

	projects, err := store.List()
	if err != nil {
		t.Fatalf("listing projects: %v", err)
	}
	if len(projects) != 1 {
		t.Errorf("delete of absent name changed the store: %d entries", len(projects))
	}
}

func TestProjectStoreCorruptFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "projects.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}

	store := NewProjectStore(path)
	if _, err := store.List(); err == nil {
		t.Fatal("expected error for corrupt store, got nil")
	}
}

func TestInstanceStoreLookups(t *testing.T) {
	store := setupInstanceStore(t)

	instances := []ComputeInstance{
		{Name: "vm-a1", RemoteHost: "10.0.0.1", Project: "demo", Feature: "login"},
		{Name: "vm-b2", RemoteHost: "10.0.0.2", Project: "demo", Feature: "billing"},
		{Name: "vm-c3", RemoteHost: "10.0.0.3", Project: "other", Feature: "login"},
	}
	for _, inst := range instances {
		if err := store.Save(inst); err != nil {
			t.Fatalf("saving instance %s: %v", inst.Name, err)
		}
	}

	inst, found, err := store.FindByFeature("demo", "billing")
	if err != nil {
		t.Fatalf("lookup by feature: %v", err)
	}
	if !found || inst.Name != "vm-b2" {
		t.Errorf("lookup by feature returned %+v, found=%v", inst, found)
	}

	byProject, err := store.ListByProject("demo")
	if err != nil {
		t.Fatalf("listing by project: %v", err)
	}
	if len(byProject) != 2 {
		t.Errorf("expected 2 instances for project demo, got %d", len(byProject))
	}
}

func TestInstanceStoreTaskFieldsMutateInPlace(t *testing.T) {
	store := setupInstanceStore(t)

	inst := ComputeInstance{
		Name:       "vm-a1",
		RemoteHost: "10.0.0.1",
		Project:    "demo",
		Feature:    "login",
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
	if err := store.Save(inst); err != nil {
		t.Fatalf("saving instance: %v", err)
	}

	inst.TaskStatus = TaskStatusRunning
	inst.IterationCount = 3
	inst.CumulativeCost = 0.42
	if err := store.Save(inst); err != nil {
		t.Fatalf("updating instance: %v", err)
	}

	got, found, err := store.Get("vm-a1")
	if err != nil || !found {
		t.Fatalf("reading instance back: found=%v err=%v", found, err)
	}
	if got.TaskStatus != TaskStatusRunning || got.IterationCount != 3 {
		t.Errorf("task fields not persisted: %+v", got)
	}
}
