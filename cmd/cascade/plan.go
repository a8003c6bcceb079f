package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cascadekit/cascade/pkg/models"
)

// planFile is the on-disk format for a run plan.
type planFile struct {
	Items []*models.WorkItem `yaml:"items"`
}

// loadPlan reads work items from a yaml plan file.
func loadPlan(path string) ([]*models.WorkItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}

	var plan planFile
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse plan %s: %w", path, err)
	}
	if len(plan.Items) == 0 {
		return nil, fmt.Errorf("plan %s contains no items", path)
	}
	for _, item := range plan.Items {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("plan %s: %w", path, err)
		}
	}
	return plan.Items, nil
}
