// Package compute adapts the DigitalOcean API into the typed remote compute
// operations the orchestrator needs: droplet create/delete/list and firewall
// configuration for port exposure.
package compute

import (
	"context"
	"fmt"
	"net/http"

	"github.com/digitalocean/godo"
	"golang.org/x/oauth2"
)

// instanceTag marks every droplet created by the orchestrator.
const instanceTag = "launchforge"

// Instance describes a provisioned compute instance.
type Instance struct {
	ID   int
	Name string

	// Addr is the public IPv4 address, empty until the droplet is active.
	Addr string
}

// Settings configure new instances.
type Settings struct {
	Region            string
	Size              string
	Image             string
	SSHKeyFingerprint string
}

// Adapter wraps the DigitalOcean management API.
type Adapter struct {
	client   *godo.Client
	settings Settings
}

// New creates a compute adapter from an API token.
func New(token string, settings Settings) *Adapter {
	httpClient := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	))
	return &Adapter{client: godo.NewClient(httpClient), settings: settings}
}

// NewWithClient creates a compute adapter around an existing client, used by
// tests with a stub HTTP transport.
func NewWithClient(client *godo.Client, settings Settings) *Adapter {
	return &Adapter{client: client, settings: settings}
}

// Create provisions a new instance. The returned instance has no address
// yet; callers poll Get until the droplet is active.
func (a *Adapter) Create(ctx context.Context, name string) (*Instance, error) {
	request := &godo.DropletCreateRequest{
		Name:   name,
		Region: a.settings.Region,
		Size:   a.settings.Size,
		Image:  godo.DropletCreateImage{Slug: a.settings.Image},
		Tags:   []string{instanceTag},
	}
	if a.settings.SSHKeyFingerprint != "" {
		request.SSHKeys = []godo.DropletCreateSSHKey{{Fingerprint: a.settings.SSHKeyFingerprint}}
	}

	droplet, _, err := a.client.Droplets.Create(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("droplet create failed: %w", err)
	}
	return &Instance{ID: droplet.ID, Name: droplet.Name}, nil
}

// Get returns the current state of an instance, including its public address
// once the droplet is active.
func (a *Adapter) Get(ctx context.Context, id int) (*Instance, error) {
	droplet, _, err := a.client.Droplets.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("droplet lookup failed: %w", err)
	}

	inst := &Instance{ID: droplet.ID, Name: droplet.Name}
	if droplet.Status == "active" {
		addr, err := droplet.PublicIPv4()
		if err != nil {
			return nil, fmt.Errorf("droplet has no public address: %w", err)
		}
		inst.Addr = addr
	}
	return inst, nil
}

// Delete destroys an instance. Deleting an already-absent instance is not an
// error, so destroy paths tolerate resources that vanished out-of-band.
func (a *Adapter) Delete(ctx context.Context, id int) error {
	resp, err := a.client.Droplets.Delete(ctx, id)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("droplet delete failed: %w", err)
	}
	return nil
}

// DeleteByName destroys the instance with the given name, used when only the
// record survives.
func (a *Adapter) DeleteByName(ctx context.Context, name string) error {
	instances, err := a.List(ctx)
	if err != nil {
		return err
	}
	for _, inst := range instances {
		if inst.Name == name {
			return a.Delete(ctx, inst.ID)
		}
	}
	return nil
}

// List returns every instance created by the orchestrator.
func (a *Adapter) List(ctx context.Context) ([]Instance, error) {
	var out []Instance
	opts := &godo.ListOptions{PerPage: 200}

	for {
		droplets, resp, err := a.client.Droplets.ListByTag(ctx, instanceTag, opts)
		if err != nil {
			return nil, fmt.Errorf("droplet list failed: %w", err)
		}
		for _, d := range droplets {
			inst := Instance{ID: d.ID, Name: d.Name}
			if addr, err := d.PublicIPv4(); err == nil {
				inst.Addr = addr
			}
			out = append(out, inst)
		}
		if resp.Links == nil || resp.Links.IsLastPage() {
			break
		}
		page, err := resp.Links.CurrentPage()
		if err != nil {
			return nil, fmt.Errorf("droplet list pagination failed: %w", err)
		}
		opts.Page = page + 1
	}
	return out, nil
}

// ExposePorts opens the given TCP ports on the instance by attaching a
// dedicated firewall.
func (a *Adapter) ExposePorts(ctx context.Context, id int, ports []int) error {
	if len(ports) == 0 {
		return nil
	}

	rules := make([]godo.InboundRule, 0, len(ports))
	for _, port := range ports {
		rules = append(rules, godo.InboundRule{
			Protocol:  "tcp",
			PortRange: fmt.Sprintf("%d", port),
			Sources:   &godo.Sources{Addresses: []string{"0.0.0.0/0", "::/0"}},
		})
	}

	request := &godo.FirewallRequest{
		Name:         fmt.Sprintf("launchforge-%d", id),
		DropletIDs:   []int{id},
		InboundRules: rules,
		OutboundRules: []godo.OutboundRule{
			{Protocol: "tcp", PortRange: "all", Destinations: &godo.Destinations{Addresses: []string{"0.0.0.0/0", "::/0"}}},
			{Protocol: "udp", PortRange: "all", Destinations: &godo.Destinations{Addresses: []string{"0.0.0.0/0", "::/0"}}},
		},
	}

	if _, _, err := a.client.Firewalls.Create(ctx, request); err != nil {
		return fmt.Errorf("firewall create failed: %w", err)
	}
	return nil
}
