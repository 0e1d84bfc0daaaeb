package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	prediction "energy-optimizer/internal/prediction/domain"
)

// Load reads a linear model artifact encoded as JSON or YAML.
func Load(path string) (*prediction.LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model %s: %w", path, err)
	}
	model := &prediction.LinearModel{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, model)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, model)
	default:
		return nil, fmt.Errorf("model %s: unsupported artifact format (use .json, .yaml or .yml)", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing model %s: %w", path, err)
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	if model.Name == "" {
		model.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return model, nil
}

// LoadPredictor returns the artifact at path, or prediction.Unavailable when path is empty.
func LoadPredictor(path string) (prediction.Predictor, error) {
	if strings.TrimSpace(path) == "" {
		return prediction.Unavailable{}, nil
	}
	model, err := Load(path)
	if err != nil {
		return prediction.Unavailable{}, err
	}
	return model, nil
}
