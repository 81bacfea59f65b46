// Package naming derives the web-safe output file names and display titles for photos.
package naming

import (
	"fmt"
	"path"
	"strings"
	"unicode"
)

// Extension is appended to every output file name, whatever the source format.
const Extension = ".jpg"

// fallback is used when nothing survives sanitization.
const fallback = "photo"

// Names holds the identity assigned to a photo: its category, manifest id and sanitized base name.
type Names struct {
	Category string
	Id       int
	Base     string
}

// Assign derives the Names for the photo originally named original (a file name or path) with
// the id claimed from the manifest.
func Assign(category string, id int, original string) *Names {

	n := &Names{
		Category: category,
		Id:       id,
		Base:     Sanitize(Stem(original)),
	}

	return n
}

// Filename returns "{category}_{id:03d}_{base}{suffix}.jpg".
func (n *Names) Filename(suffix string) string {
	return fmt.Sprintf("%s_%03d_%s%s%s", n.Category, n.Id, n.Base, suffix, Extension)
}

// Stem returns the file name of p without its directory or extension.
func Stem(p string) string {

	fname := path.Base(p)
	return strings.TrimSuffix(fname, path.Ext(fname))
}

// Sanitize drops every character other than letters, digits, space, hyphen and underscore,
// trims trailing whitespace, turns spaces in to underscores and lowercases the result.
func Sanitize(stem string) string {

	var b strings.Builder

	for _, r := range stem {

		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}

	safe := strings.TrimRightFunc(b.String(), unicode.IsSpace)
	safe = strings.ReplaceAll(safe, " ", "_")
	safe = strings.ToLower(safe)

	if safe == "" {
		return fallback
	}

	return safe
}

// Title turns a file stem in to display text: underscores and hyphens become spaces and every
// letter that follows a non-letter is uppercased, the rest lowercased.
func Title(stem string) string {

	stem = strings.NewReplacer("_", " ", "-", " ").Replace(stem)

	var b strings.Builder
	prev_letter := false

	for _, r := range stem {

		is_letter := unicode.IsLetter(r)

		switch {
		case is_letter && !prev_letter:
			b.WriteRune(unicode.ToUpper(r))
		case is_letter:
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}

		prev_letter = is_letter
	}

	return b.String()
}
