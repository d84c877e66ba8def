package main

import "strings"

// FilterConfig represents the compartment filtering configuration.
// Entries match either the compartment name or its OCID.
type FilterConfig struct {
	IncludeCompartments []string `yaml:"include_compartments"`
	ExcludeCompartments []string `yaml:"exclude_compartments"`
}

// applyCompartmentFilter filters compartments based on include/exclude lists
func applyCompartmentFilter(compartments []Compartment, filter FilterConfig) []Compartment {
	if len(filter.IncludeCompartments) == 0 && len(filter.ExcludeCompartments) == 0 {
		return compartments // No filtering
	}

	filtered := make([]Compartment, 0, len(compartments))
	for _, compartment := range compartments {
		if len(filter.IncludeCompartments) > 0 && !matchesCompartment(compartment, filter.IncludeCompartments) {
			logger.Debug("Compartment %s not in include list, skipping", compartment.Name)
			continue
		}
		if matchesCompartment(compartment, filter.ExcludeCompartments) {
			logger.Debug("Compartment %s is excluded, skipping", compartment.Name)
			continue
		}
		filtered = append(filtered, compartment)
	}
	return filtered
}

// matchesCompartment checks the compartment against a filter list by name or OCID
func matchesCompartment(compartment Compartment, list []string) bool {
	for _, entry := range list {
		if entry == compartment.Name || entry == compartment.ID {
			return true
		}
	}
	return false
}

// ParseCompartmentList parses a comma-separated string of compartment names or OCIDs
func ParseCompartmentList(input string) []string {
	if input == "" {
		return nil
	}

	var result []string
	for _, entry := range strings.Split(input, ",") {
		trimmed := strings.TrimSpace(entry)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
