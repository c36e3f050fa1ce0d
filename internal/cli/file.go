package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Wireflow/internal/domain"
	"github.com/shaiso/Wireflow/internal/engine"
)

// isYAML определяет формат файла по расширению.
func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadFlow читает flow из файла. Файлы .yaml и .yml разбираются как YAML,
// остальные как JSON.
func LoadFlow(path string) (domain.Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Flow{}, fmt.Errorf("failed to read flow file: %w", err)
	}
	if isYAML(path) {
		return engine.ParseFlowYAML(data)
	}
	return engine.ParseFlow(data)
}

// WriteFlow записывает flow обратно в файл в том же формате.
func WriteFlow(path string, flow domain.Flow) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(flow)
	} else {
		data, err = json.MarshalIndent(flow, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("failed to encode flow: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write flow file: %w", err)
	}
	return nil
}

// loadJSONValue читает произвольное JSON или YAML значение из файла.
func loadJSONValue(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var v any
	if isYAML(path) {
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		// Через JSON, чтобы числа и карты имели те же типы, что и у JSON.
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		data = b
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return v, nil
}
