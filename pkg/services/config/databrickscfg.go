package config

import (
	"context"
	"fmt"

	"github.com/databricks/databricks-sdk-go/config"
	"gopkg.in/ini.v1"
)

// Registry reads Databricks connection profiles from a .databrickscfg file.
type Registry interface {
	GetProfiles(ctx context.Context) ([]string, error)
	GetConfig(ctx context.Context, profile string) (*Profile, error)
}

// Profile is one .databrickscfg section. The SQL warehouse is addressed either by
// http_path or by warehouse_id, which is resolved through the workspace API.
type Profile struct {
	*config.Config
	HTTPPath    string
	WarehouseID string
	Catalog     string
	Schema      string
}

type cfgRegistry struct {
	cfg *ini.File
}

func NewRegistry(path string) (Registry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return &cfgRegistry{cfg: cfg}, nil
}

func (cr *cfgRegistry) GetProfiles(_ context.Context) ([]string, error) {
	var profiles []string
	for _, section := range cr.cfg.Sections() {
		if len(section.Keys()) > 0 {
			profiles = append(profiles, section.Name())
		}
	}
	return profiles, nil
}

func (cr *cfgRegistry) GetConfig(_ context.Context, profile string) (*Profile, error) {
	section, err := cr.cfg.GetSection(profile)
	if err != nil {
		return nil, fmt.Errorf("profile %s not found", profile)
	}

	host := section.Key("host").String()
	if host == "" {
		return nil, fmt.Errorf("profile %s has no host", profile)
	}

	return &Profile{
		Config: &config.Config{
			Host:    host,
			Token:   section.Key("token").String(),
			Profile: profile,
		},
		HTTPPath:    section.Key("http_path").String(),
		WarehouseID: section.Key("warehouse_id").String(),
		Catalog:     section.Key("catalog").String(),
		Schema:      section.Key("schema").String(),
	}, nil
}
