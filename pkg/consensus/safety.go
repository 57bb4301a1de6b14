// Copyright 2025 Certen Protocol

package consensus

import "sort"

// sortedValidators returns validators in canonical ascending order, the
// basis for round-robin leader rotation.
func sortedValidators(validators []string) []string {
	out := make([]string, len(validators))
	copy(out, validators)
	sort.Strings(out)
	return out
}

func leaderFor(validators []string, view uint64) string {
	if len(validators) == 0 {
		return ""
	}
	return validators[view%uint64(len(validators))]
}

// safeToVote implements the HotStuff-2 "safe to vote" rule: given the node's
// locked QC (highest Commit-QC observed) and a proposal's justify QC, a
// proposal may only be voted for if it does not contradict what is already
// locked in.
func safeToVote(locked, justify *QC) bool {
	if locked == nil {
		return true
	}
	return justify != nil && justify.View >= locked.View
}
