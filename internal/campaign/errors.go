package campaign

import "errors"

var (
	// ErrNotFound is returned when a referenced record (kind, attribute definition,
	// randomizer, category, generator, thing) does not exist. It indicates broken
	// setup data and is never swallowed by the generator.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName is returned when a thing name is already taken in its campaign.
	ErrDuplicateName = errors.New("thing name already taken in campaign")

	// ErrConfiguration is returned when generation settings cannot produce a valid
	// thing: an empty computed name, an inheritance cycle, or exhausted retries.
	ErrConfiguration = errors.New("configuration error")
)
