package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestValidateDefaultConfig(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration should be valid: %v", err)
	}
}

func TestValidateDetectsInvalidConfigurations(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "missing server id",
			mutate: func(cfg *Config) {
				cfg.Server.ID = ""
			},
			wantErr: "server.id must be set",
		},
		{
			name: "non positive world dimensions",
			mutate: func(cfg *Config) {
				cfg.World.Width = 0
			},
			wantErr: "world dimensions must be positive",
		},
		{
			name: "missing chunks per axis",
			mutate: func(cfg *Config) {
				cfg.World.ChunksPerAxis = 0
			},
			wantErr: "world.chunksPerAxis must be positive",
		},
		{
			name: "sea level above world",
			mutate: func(cfg *Config) {
				cfg.World.SeaLevel = cfg.World.Height
			},
			wantErr: "world.seaLevel must lie within the world height",
		},
		{
			name: "missing network listen address",
			mutate: func(cfg *Config) {
				cfg.Network.ListenUDP = ""
			},
			wantErr: "network.listenUdp must be set",
		},
		{
			name: "non positive visited budget",
			mutate: func(cfg *Config) {
				cfg.Pathfinding.MaxVisitedNodes = 0
			},
			wantErr: "pathfinding.maxVisitedNodes must be positive",
		},
		{
			name: "negative reach range",
			mutate: func(cfg *Config) {
				cfg.Pathfinding.ReachRange = -1
			},
			wantErr: "pathfinding.reachRange cannot be negative",
		},
		{
			name: "zero workers",
			mutate: func(cfg *Config) {
				cfg.Pathfinding.Workers = 0
			},
			wantErr: "pathfinding.workers must be positive",
		},
		{
			name: "unknown mobility",
			mutate: func(cfg *Config) {
				cfg.Agents = map[string]AgentConfig{"ghost": {Mobility: "phase", Width: 1, Height: 1}}
			},
			wantErr: `agents.ghost: unknown mobility "phase"`,
		},
		{
			name: "unknown fluid walker",
			mutate: func(cfg *Config) {
				cfg.Agents = map[string]AgentConfig{"skater": {Mobility: MobilityWalk, Width: 1, Height: 1, FluidWalker: "honey"}}
			},
			wantErr: `agents.skater: unknown fluidWalker "honey"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected an error, got nil")
			}
			if err.Error() != tt.wantErr {
				t.Fatalf("unexpected error: got %q want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load default config: %v", err)
	}
	if want := Default(); !reflect.DeepEqual(cfg, want) {
		t.Fatalf("default configuration mismatch:\nwant: %#v\n got: %#v", want, cfg)
	}
}

func TestLoadReadsFileAndValidates(t *testing.T) {
	cfg := Default()
	cfg.Server.Description = "custom description"
	cfg.Network.ListenUDP = ":9999"
	cfg.Pathfinding.QueueTimeout = Duration(75 * time.Millisecond)

	jsonData, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal json: %v", err)
	}
	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal yaml: %v", err)
	}

	for name, data := range map[string][]byte{"config.json": jsonData, "config.yaml": yamlData} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := os.WriteFile(path, data, 0o600); err != nil {
				t.Fatalf("write config: %v", err)
			}

			got, err := Load(path)
			if err != nil {
				t.Fatalf("load config: %v", err)
			}
			if !reflect.DeepEqual(got, cfg) {
				t.Fatalf("loaded configuration mismatch:\nwant: %#v\n got: %#v", cfg, got)
			}
		})
	}
}

func TestLoadYAMLDurationForms(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	data := []byte("pathfinding:\n  queueTimeout: 1500ms\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got := cfg.Pathfinding.QueueTimeout.Duration(); got != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s queue timeout, got %v", got)
	}
	if cfg.Pathfinding.MaxVisitedNodes != Default().Pathfinding.MaxVisitedNodes {
		t.Fatalf("unset fields should keep their defaults")
	}
}

func TestLoadInvalidConfiguration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.World.Width = 0

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err = Load(path)
	if err == nil {
		t.Fatalf("expected load to fail")
	}
	if !strings.Contains(err.Error(), "validate config: world dimensions must be positive") {
		t.Fatalf("unexpected error: %v", err)
	}
}
