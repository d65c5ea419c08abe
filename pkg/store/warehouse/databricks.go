package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/databricks/databricks-sdk-go"
	_ "github.com/databricks/databricks-sql-go"

	"github.com/de-tools/revenue-atlas/pkg/services/config"
	sqlstore "github.com/de-tools/revenue-atlas/pkg/store/sql"
)

const defaultProfile = "DEFAULT"

// httpPathResolver finds the SQL endpoint path of a profile.
type httpPathResolver func(ctx context.Context, p *config.Profile) (string, error)

// DatabricksFactory reads the profile from a .databrickscfg file and connects to its
// SQL warehouse.
var DatabricksFactory = newDatabricksFactory(resolveHTTPPath)

func newDatabricksFactory(resolve httpPathResolver) Factory {
	return func(ctx context.Context, settings *config.Settings) (*Connection, error) {
		registry, err := config.NewRegistry(settings.Warehouse.Profile)
		if err != nil {
			return nil, err
		}

		name := settings.Warehouse.ProfileName
		if name == "" {
			name = defaultProfile
		}
		profile, err := registry.GetConfig(ctx, name)
		if err != nil {
			return nil, err
		}

		httpPath, err := resolve(ctx, profile)
		if err != nil {
			return nil, err
		}

		db, err := sql.Open("databricks", databricksDSN(profile, httpPath))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Databricks: %w", err)
		}
		return &Connection{DB: db, Dialect: sqlstore.DialectQuestion}, nil
	}
}

// resolveHTTPPath prefers the profile's http_path and falls back to looking up
// warehouse_id through the workspace API.
func resolveHTTPPath(ctx context.Context, p *config.Profile) (string, error) {
	if p.HTTPPath != "" {
		return p.HTTPPath, nil
	}
	if p.WarehouseID == "" {
		return "", fmt.Errorf("profile %s needs http_path or warehouse_id", p.Profile)
	}

	client, err := databricks.NewWorkspaceClient(&databricks.Config{
		Host:  p.Host,
		Token: p.Token,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create workspace client: %w", err)
	}

	warehouse, err := client.Warehouses.GetById(ctx, p.WarehouseID)
	if err != nil {
		return "", fmt.Errorf("failed to get warehouse %s: %w", p.WarehouseID, err)
	}
	if warehouse.OdbcParams == nil || warehouse.OdbcParams.Path == "" {
		return "", fmt.Errorf("warehouse %s exposes no http path", p.WarehouseID)
	}
	return warehouse.OdbcParams.Path, nil
}

func databricksDSN(p *config.Profile, httpPath string) string {
	host := strings.TrimPrefix(strings.TrimPrefix(p.Host, "https://"), "http://")
	host = strings.TrimSuffix(host, "/")
	if !strings.HasPrefix(httpPath, "/") {
		httpPath = "/" + httpPath
	}

	dsn := fmt.Sprintf("token:%s@%s%s", p.Token, host, httpPath)

	params := url.Values{}
	if p.Catalog != "" {
		params.Set("catalog", p.Catalog)
	}
	if p.Schema != "" {
		params.Set("schema", p.Schema)
	}
	if len(params) > 0 {
		dsn += "?" + params.Encode()
	}
	return dsn
}
