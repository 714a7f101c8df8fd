package main

import (
	"fmt"
	"mongods/internal/core"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// varFlags collects repeated -var name=value flags.
type varFlags []string

func (v *varFlags) String() string {
	return strings.Join(*v, ",")
}

func (v *varFlags) Set(s string) error {
	if !strings.Contains(s, "=") {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	*v = append(*v, s)
	return nil
}

// loadVariables reads variable values from an optional YAML file (JSON is
// valid YAML) and then applies name=value pairs on top.
func loadVariables(path string, pairs []string) (core.Variables, error) {
	vars := core.Variables{}

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var raw map[string]interface{}
		if err := yaml.Unmarshal(content, &raw); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		for name, value := range raw {
			vars[name] = core.NewVariableValue(value)
		}
	}

	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid variable %q", pair)
		}
		vars[name] = core.VariableValue(strings.Split(value, ","))
	}

	return vars, nil
}
