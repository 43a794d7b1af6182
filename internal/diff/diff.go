// Package diff renders word-level HTML diffs between two content snapshots.
package diff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	removedOpen = `<span class="diff-removed" style="background-color: #f8d7da; color: #721c24; text-decoration: line-through;">`
	addedOpen   = `<span class="diff-added" style="background-color: #d4edda; color: #155724; font-weight: bold;">`
	spanClose   = `</span>`
)

// Render tokenizes both texts on whitespace and renders a word-level diff.
// Runs are emitted in document order; within a replace run the removed words
// come before the added words.
func Render(oldText, newText string) string {
	oldWords := strings.Fields(oldText)
	newWords := strings.Fields(newText)

	matcher := difflib.NewMatcher(oldWords, newWords)
	var parts []string
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'e':
			parts = append(parts, strings.Join(oldWords[op.I1:op.I2], " "))
		case 'd':
			for _, w := range oldWords[op.I1:op.I2] {
				parts = append(parts, removedOpen+w+spanClose)
			}
		case 'i':
			for _, w := range newWords[op.J1:op.J2] {
				parts = append(parts, addedOpen+w+spanClose)
			}
		case 'r':
			for _, w := range oldWords[op.I1:op.I2] {
				parts = append(parts, removedOpen+w+spanClose)
			}
			for _, w := range newWords[op.J1:op.J2] {
				parts = append(parts, addedOpen+w+spanClose)
			}
		}
	}
	return `<div class="diff-content">` + strings.Join(parts, " ") + `</div>`
}
