package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/meridian-ops/drverify/pkg/types"
)

// File is the on-disk topology registry format:
//
//	clusters:
//	  - id: core
//	    role: upstream
//	    nodes:
//	      - address: core-1.example.com:15672
//	        datacenter: dc1
//	  - id: dr-east
//	    role: downstream
//	    peer_class: cross-region
//	    nodes: [...]
type File struct {
	Clusters []ClusterSpec `yaml:"clusters" validate:"required,min=2,dive"`
}

// ClusterSpec describes one cluster entry in the topology file
type ClusterSpec struct {
	ID        string     `yaml:"id" validate:"required"`
	Role      string     `yaml:"role" validate:"required,oneof=upstream downstream"`
	PeerClass string     `yaml:"peer_class" validate:"omitempty,oneof=regional cross-region"`
	Nodes     []NodeSpec `yaml:"nodes" validate:"required,min=1,dive"`
}

// NodeSpec describes one member node
type NodeSpec struct {
	Address    string `yaml:"address" validate:"required,hostname_port"`
	Datacenter string `yaml:"datacenter"`
}

var validate = validator.New()

// LoadTopology reads and validates the topology registry. Any problem is a
// ConfigError: a run without a coherent topology cannot verify anything.
func LoadTopology(path string) (*types.Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.ConfigError{Reason: fmt.Sprintf("read topology file %s", path), Err: err}
	}
	return ParseTopology(data)
}

// ParseTopology parses and validates raw topology YAML
func ParseTopology(data []byte) (*types.Topology, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &types.ConfigError{Reason: "parse topology file", Err: err}
	}
	if err := validate.Struct(&f); err != nil {
		return nil, &types.ConfigError{Reason: "invalid topology file", Err: err}
	}

	topo := &types.Topology{}
	upstreams := 0
	seen := make(map[string]bool)
	for _, cs := range f.Clusters {
		if seen[cs.ID] {
			return nil, &types.ConfigError{Reason: fmt.Sprintf("duplicate cluster id %q", cs.ID)}
		}
		seen[cs.ID] = true

		role := types.ClusterRole(cs.Role)
		if role == types.RoleUpstream {
			upstreams++
		}
		peer := types.PeerClass(cs.PeerClass)
		if peer == "" {
			peer = types.PeerRegional
		}

		cluster := types.ClusterTopology{
			ClusterID: cs.ID,
			Role:      role,
			PeerClass: peer,
		}
		for _, ns := range cs.Nodes {
			cluster.Nodes = append(cluster.Nodes, types.Node{
				Address:    ns.Address,
				ClusterID:  cs.ID,
				Datacenter: ns.Datacenter,
			})
		}
		topo.Clusters = append(topo.Clusters, cluster)
	}

	if upstreams != 1 {
		return nil, &types.ConfigError{Reason: fmt.Sprintf("topology must declare exactly one upstream cluster, found %d", upstreams)}
	}
	if len(topo.Downstreams()) == 0 {
		return nil, &types.ConfigError{Reason: "topology must declare at least one downstream cluster"}
	}
	return topo, nil
}
