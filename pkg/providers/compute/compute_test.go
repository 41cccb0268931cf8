package compute

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/digitalocean/godo"
)

func testAdapter(t *testing.T, handler http.Handler) *Adapter {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := godo.New(http.DefaultClient, godo.SetBaseURL(server.URL+"/"))
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}
	return NewWithClient(client, Settings{
		Region:            "fra1",
		Size:              "s-2vcpu-4gb",
		Image:             "ubuntu-24-04-x64",
		SSHKeyFingerprint: "aa:bb",
	})
}

func TestCreate(t *testing.T) {
	// godo.DropletCreateRequest marshals the image as a bare slug, which its
	// own Image field cannot decode back, so capture into a plain struct.
	var gotRequest struct {
		Name    string        `json:"name"`
		Region  string        `json:"region"`
		Size    string        `json:"size"`
		Image   string        `json:"image"`
		SSHKeys []interface{} `json:"ssh_keys"`
		Tags    []string      `json:"tags"`
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/droplets", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprint(w, `{"droplet":{"id":111,"name":"forge-demo-login","status":"new"}}`)
	})

	a := testAdapter(t, mux)
	inst, err := a.Create(context.Background(), "forge-demo-login")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inst.ID != 111 || inst.Name != "forge-demo-login" {
		t.Errorf("unexpected instance: %+v", inst)
	}
	if inst.Addr != "" {
		t.Errorf("new droplet must have no address yet, got %q", inst.Addr)
	}
	if gotRequest.Region != "fra1" || gotRequest.Size != "s-2vcpu-4gb" || gotRequest.Image != "ubuntu-24-04-x64" {
		t.Errorf("settings not applied to request: %+v", gotRequest)
	}
	if len(gotRequest.SSHKeys) != 1 {
		t.Errorf("ssh key fingerprint not injected: %+v", gotRequest.SSHKeys)
	}
}

func TestGetActiveInstanceHasAddress(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v2/droplets/111", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"droplet":{
			"id":111,"name":"forge-demo-login","status":"active",
			"networks":{"v4":[{"ip_address":"203.0.113.7","type":"public"}]}
		}}`)
	})

	a := testAdapter(t, mux)
	inst, err := a.Get(context.Background(), 111)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inst.Addr != "203.0.113.7" {
		t.Errorf("got address %q, want 203.0.113.7", inst.Addr)
	}
}

func TestDeleteAbsentIsNotAnError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /v2/droplets/111", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"id":"not_found","message":"The resource you requested could not be found."}`)
	})

	a := testAdapter(t, mux)
	if err := a.Delete(context.Background(), 111); err != nil {
		t.Fatalf("deleting an absent droplet should be tolerated, got: %v", err)
	}
}

func TestListFiltersByTag(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v2/droplets", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("tag_name"); got != instanceTag {
			t.Errorf("list must filter by tag, got %q", got)
		}
		fmt.Fprint(w, `{"droplets":[
			{"id":111,"name":"forge-demo-login","networks":{"v4":[{"ip_address":"203.0.113.7","type":"public"}]}},
			{"id":222,"name":"forge-demo-billing","networks":{"v4":[]}}
		]}`)
	})

	a := testAdapter(t, mux)
	instances, err := a.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(instances) != 2 {
		t.Fatalf("expected 2 instances, got %d", len(instances))
	}
	if instances[0].Addr != "203.0.113.7" {
		t.Errorf("unexpected address: %q", instances[0].Addr)
	}
}

func TestExposePortsCreatesFirewall(t *testing.T) {
	var gotRequest godo.FirewallRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/firewalls", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprint(w, `{"firewall":{"id":"fw-1","name":"launchforge-111"}}`)
	})

	a := testAdapter(t, mux)
	if err := a.ExposePorts(context.Background(), 111, []int{3000, 8080}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotRequest.InboundRules) != 2 {
		t.Errorf("expected 2 inbound rules, got %d", len(gotRequest.InboundRules))
	}
	if len(gotRequest.DropletIDs) != 1 || gotRequest.DropletIDs[0] != 111 {
		t.Errorf("firewall not bound to droplet: %+v", gotRequest.DropletIDs)
	}
}

func TestExposePortsNoPortsIsNoop(t *testing.T) {
	a := testAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	if err := a.ExposePorts(context.Background(), 111, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
