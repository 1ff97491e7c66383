// Package normalize holds small input normalizers applied before
// validation and storage. Keeping them in one place means stores and
// handlers agree on what "the same email" means.
package normalize

import "strings"

// Email trims whitespace and lowercases. Emails are compared and stored
// in this form; the unique index on users.email depends on it.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims whitespace but preserves case.
func Name(s string) string {
	return strings.TrimSpace(s)
}
