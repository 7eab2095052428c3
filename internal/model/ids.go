package model

import "regexp"

var (
	validIDPattern     = regexp.MustCompile(`^[_a-zA-Z]\w*$`)
	invalidRunsPattern = regexp.MustCompile(`\W+`)
)

// IsValidID reports whether an identifier starts with a letter or underscore
// and contains only letters, digits, and underscores.
func IsValidID(id string) bool {
	return validIDPattern.MatchString(id)
}

// SanitizeID rewrites an identifier into the restricted character set: a
// leading digit gains an underscore prefix, and every run of invalid
// characters collapses to a single underscore.
//
//	SanitizeID("3-atp")             == "_3_atp"
//	SanitizeID("an invalid--id #3") == "an_invalid_id_3"
func SanitizeID(id string) string {
	if len(id) > 0 && id[0] >= '0' && id[0] <= '9' {
		id = "_" + id
	}
	return invalidRunsPattern.ReplaceAllString(id, "_")
}
