package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/whosonfirst/go-ioutil"
	"github.com/whosonfirst/go-writer/v3"
)

// Marshal encodes records as an indented JSON array. An empty manifest is "[]", never null.
func Marshal(records []*Record) ([]byte, error) {

	if records == nil {
		records = make([]*Record, 0)
	}

	body, err := json.MarshalIndent(records, "", "  ")

	if err != nil {
		return nil, fmt.Errorf("Failed to marshal manifest, %w", err)
	}

	return body, nil
}

// Write publishes records to path using wr, replacing anything already there.
func Write(ctx context.Context, wr writer.Writer, path string, records []*Record) (int64, error) {

	body, err := Marshal(records)

	if err != nil {
		return 0, err
	}

	br := bytes.NewReader(body)
	fh, err := ioutil.NewReadSeekCloser(br)

	if err != nil {
		return 0, fmt.Errorf("Failed to create ReadSeekCloser for manifest, %w", err)
	}

	n, err := wr.Write(ctx, path, fh)

	if err != nil {
		return 0, fmt.Errorf("Failed to write manifest to %s, %w", path, err)
	}

	return n, nil
}

// Write serializes the sorted records to path and moves the assembler to Serialized.
func (a *Assembler) Write(ctx context.Context, wr writer.Writer, path string) (int64, error) {

	if a.State() != Sorting {
		return 0, fmt.Errorf("%w, records must be sorted before they are written", ErrInvalidState)
	}

	n, err := Write(ctx, wr, path, a.Records())

	if err != nil {
		return 0, err
	}

	err = a.MarkSerialized()

	if err != nil {
		return 0, err
	}

	return n, nil
}
