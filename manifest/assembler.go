package manifest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// State is the stage an Assembler has reached in a run.
type State int

const (
	Idle State = iota
	Scanning
	Sorting
	Serialized
)

func (s State) String() string {

	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Sorting:
		return "sorting"
	case Serialized:
		return "serialized"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrInvalidState is returned when an Assembler method is called out of order.
var ErrInvalidState = errors.New("invalid assembler state")

// AppendFunc builds the record for a claimed id. If it returns an error nothing is appended and
// the id is handed to the next caller.
type AppendFunc func(context.Context, int) (*Record, error)

// Assembler collects records category by category, assigning ids in append order, and then
// sorts them by capture date. It moves through Idle -> Scanning(category)... -> Sorting -> Serialized.
type Assembler struct {
	mu         *sync.Mutex
	state      State
	category   string
	open       bool
	categories []string
	counts     map[string]int
	records    []*Record
}

func NewAssembler() *Assembler {

	a := &Assembler{
		mu:         new(sync.Mutex),
		state:      Idle,
		categories: make([]string, 0),
		counts:     make(map[string]int),
		records:    make([]*Record, 0),
	}

	return a
}

func (a *Assembler) State() State {

	a.mu.Lock()
	defer a.mu.Unlock()

	return a.state
}

// BeginCategory opens the scan for category. The previous category must have been ended.
func (a *Assembler) BeginCategory(category string) error {

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != Idle && a.state != Scanning {
		return fmt.Errorf("%w, cannot begin '%s' while %s", ErrInvalidState, category, a.state)
	}

	if a.open {
		return fmt.Errorf("%w, cannot begin '%s' before '%s' is complete", ErrInvalidState, category, a.category)
	}

	_, seen := a.counts[category]

	if seen {
		return fmt.Errorf("%w, category '%s' has already been scanned", ErrInvalidState, category)
	}

	a.state = Scanning
	a.category = category
	a.open = true
	a.categories = append(a.categories, category)
	a.counts[category] = 0

	return nil
}

// EndCategory closes the currently open category scan.
func (a *Assembler) EndCategory() error {

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.open {
		return fmt.Errorf("%w, no category is being scanned", ErrInvalidState)
	}

	a.open = false
	return nil
}

// Append claims the next id (the current number of records plus one) and calls fn with it.
// Claims are serialized: fn runs with the assembler locked.
func (a *Assembler) Append(ctx context.Context, fn AppendFunc) (*Record, error) {

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.open {
		return nil, fmt.Errorf("%w, cannot append outside of a category scan", ErrInvalidState)
	}

	id := len(a.records) + 1

	r, err := fn(ctx, id)

	if err != nil {
		return nil, err
	}

	if r.Id != id {
		return nil, fmt.Errorf("Record was built with id %d, expected %d", r.Id, id)
	}

	if r.Category != a.category {
		return nil, fmt.Errorf("Record category '%s' does not match open category '%s'", r.Category, a.category)
	}

	a.records = append(a.records, r)
	a.counts[a.category] += 1

	return r, nil
}

// Sort orders the records by date, newest first, keeping the append order of equal dates.
func (a *Assembler) Sort() error {

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.open {
		return fmt.Errorf("%w, category '%s' is still being scanned", ErrInvalidState, a.category)
	}

	if a.state == Sorting || a.state == Serialized {
		return fmt.Errorf("%w, records have already been sorted", ErrInvalidState)
	}

	SortByDate(a.records)
	a.state = Sorting

	return nil
}

// MarkSerialized records that the sorted records have been written.
func (a *Assembler) MarkSerialized() error {

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != Sorting {
		return fmt.Errorf("%w, cannot serialize while %s", ErrInvalidState, a.state)
	}

	a.state = Serialized
	return nil
}

// Records returns a copy of the current record list.
func (a *Assembler) Records() []*Record {

	a.mu.Lock()
	defer a.mu.Unlock()

	records := make([]*Record, len(a.records))
	copy(records, a.records)

	return records
}

// Categories returns the scanned categories, in scan order, with the number of records appended for each.
func (a *Assembler) Categories() []*CategoryCount {

	a.mu.Lock()
	defer a.mu.Unlock()

	counts := make([]*CategoryCount, len(a.categories))

	for i, c := range a.categories {
		counts[i] = &CategoryCount{
			Category: c,
			Count:    a.counts[c],
		}
	}

	return counts
}

// SortByDate stable-sorts records by Date, newest first.
func SortByDate(records []*Record) {

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date > records[j].Date
	})
}
