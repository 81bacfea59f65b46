package manifest

import (
	"fmt"
	"path"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// URITemplateFunc derives a new reference from an existing thumbnail or full reference.
type URITemplateFunc func(string) (string, error)

// BaseURLTemplateFunc returns a URITemplateFunc that replaces everything but the file name of a
// reference with base_url, for example to point a manifest at a release download location.
func BaseURLTemplateFunc(base_url string) URITemplateFunc {

	base_url = strings.TrimRight(base_url, "/")

	fn := func(uri string) (string, error) {

		fname := path.Base(uri)

		if fname == "." || fname == "/" {
			return "", fmt.Errorf("Reference '%s' has no file name", uri)
		}

		return base_url + "/" + fname, nil
	}

	return fn
}

// Rebase rewrites the thumbnail and full references of every record in a serialized manifest
// using fn. All other properties, and their order, are left untouched.
func Rebase(body []byte, fn URITemplateFunc) ([]byte, error) {

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("Invalid manifest document")
	}

	doc := gjson.ParseBytes(body)

	if !doc.IsArray() {
		return nil, fmt.Errorf("Manifest document is not a list")
	}

	for i, r := range doc.Array() {

		for _, k := range []string{"thumbnail", "full"} {

			rsp := r.Get(k)

			if !rsp.Exists() {
				return nil, fmt.Errorf("Record %d is missing '%s' property", i, k)
			}

			uri, err := fn(rsp.String())

			if err != nil {
				return nil, fmt.Errorf("Failed to derive '%s' for record %d, %w", k, i, err)
			}

			k_path := fmt.Sprintf("%d.%s", i, k)

			body, err = sjson.SetBytes(body, k_path, uri)

			if err != nil {
				return nil, fmt.Errorf("Failed to assign %s, %w", k_path, err)
			}
		}
	}

	return body, nil
}
