// Package reply selects user-facing text variants.
package reply

// Pick returns one of variants chosen by seed. It is a pure function so
// tests can pin the seed; production callers pass something cheap and
// varied like time.Now().UnixNano() or the user ID.
func Pick(variants []string, seed int64) string {
	if len(variants) == 0 {
		return ""
	}

	if seed < 0 {
		seed = -seed
	}

	return variants[seed%int64(len(variants))]
}
