package types

import "fmt"

// Validate checks every record of s before a store applies it: no nil
// entries, every record carries an ID and passes its own validation, and the
// credentials are complete.
func (s *Snapshot) Validate() error {
	if s == nil {
		return ErrInvalidData
	}
	for i, c := range s.Clients {
		if c == nil {
			return nilEntry("client", i)
		}
		if err := checkRecord("client", c.ID, c); err != nil {
			return err
		}
	}
	for i, n := range s.Notes {
		if n == nil {
			return nilEntry("note", i)
		}
		if err := checkRecord("note", n.ID, n); err != nil {
			return err
		}
	}
	for i, f := range s.Files {
		if f == nil {
			return nilEntry("file", i)
		}
		if err := checkRecord("file", f.ID, f); err != nil {
			return err
		}
	}
	for i, m := range s.MergedDocuments {
		if m == nil {
			return nilEntry("merged document", i)
		}
		if err := checkRecord("merged document", m.ID, m); err != nil {
			return err
		}
	}
	for i, t := range s.Tags {
		if t == nil {
			return nilEntry("tag", i)
		}
		if err := checkRecord("tag", t.ID, t); err != nil {
			return err
		}
	}
	return s.Credentials.Validate()
}

func nilEntry(kind string, index int) error {
	return fmt.Errorf("%w: nil %s at index %d", ErrInvalidData, kind, index)
}

func checkRecord(kind, id string, r interface{ Validate() error }) error {
	if id == "" {
		return fmt.Errorf("%w: %s without id", ErrInvalidID, kind)
	}
	if err := r.Validate(); err != nil {
		return fmt.Errorf("%s %s: %w", kind, id, err)
	}
	return nil
}
