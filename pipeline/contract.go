// ABOUTME: Registration-time validation of step key contracts against the step order.
// ABOUTME: A required key must come from the seed context or an earlier step's declared output.
package pipeline

import (
	"fmt"
	"strings"
)

// seedKeys are present in every run's context before the first step.
var seedKeys = []string{InputKey}

// validateContracts checks that every declared requirement is satisfied by
// the seed or by a preceding step. A step without a contract may produce any
// key, so requirements after it cannot be disproved and are accepted.
func validateContracts(steps []registeredStep) error {
	available := make(map[string]bool, len(seedKeys))
	for _, k := range seedKeys {
		available[k] = true
	}
	opaque := false

	for i, rs := range steps {
		kc, ok := contractOf(rs.step)
		if !ok {
			opaque = true
			continue
		}
		if !opaque {
			for _, key := range kc.Requires() {
				if !satisfied(available, key) {
					return fmt.Errorf("%w: step %q (position %d) requires %q", ErrUnsatisfiedKey, rs.step.Name(), i, key)
				}
			}
		}
		for _, key := range kc.Produces() {
			available[key] = true
		}
	}
	return nil
}

// satisfied reports whether requirement is available. A requirement written
// as "a|b" is met by either key.
func satisfied(available map[string]bool, requirement string) bool {
	for _, key := range strings.Split(requirement, AnyOfSeparator) {
		if available[key] {
			return true
		}
	}
	return false
}
