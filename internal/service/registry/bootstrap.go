package registry

import (
	"fmt"
	"os"

	"diagramgen/internal/config"
	"diagramgen/internal/domain/models"

	"gopkg.in/yaml.v3"
)

// providersFile is the on-disk format of PROVIDERS_FILE.
// api_key values may reference environment variables as ${NAME}.
type providersFile struct {
	Providers []models.CreateProviderRequest `yaml:"providers"`
}

// Bootstrap seeds the registry at startup: the system provider from the
// DEFAULT_AI_* settings first, then the records listed in PROVIDERS_FILE.
func Bootstrap(r *Registry, cfg *config.Config) error {
	if cfg.HasDefaultProvider() {
		sys := models.ProviderRecord{
			Name:    cfg.DefaultAIName,
			BaseURL: cfg.DefaultAIBaseURL,
			APIKey:  cfg.DefaultAIAPIKey,
			Model:   cfg.DefaultAIModel,
			Enabled: true,
		}
		if err := validateRecord(&sys); err != nil {
			return fmt.Errorf("default provider: %w", err)
		}
		rec := r.addSystem(sys)
		r.logger.Info("system provider registered", "id", rec.ID, "name", rec.Name, "model", rec.Model)
	}

	if cfg.ProvidersFile == "" {
		return nil
	}
	return LoadFile(r, cfg.ProvidersFile)
}

// LoadFile creates one non-system record per entry of a providers YAML file
func LoadFile(r *Registry, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read providers file: %w", err)
	}

	var file providersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse providers file %s: %w", path, err)
	}

	for i := range file.Providers {
		req := file.Providers[i]
		req.APIKey = os.ExpandEnv(req.APIKey)
		if _, err := r.Create(&req); err != nil {
			return fmt.Errorf("providers file entry %d (%s): %w", i, req.Name, err)
		}
	}
	return nil
}
