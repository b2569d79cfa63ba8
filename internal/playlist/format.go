// Package playlist implements the persisted playlist text format and the
// stores that read and write it.
//
// The on-disk format is a concatenation of records, one per saved queue:
//
//	{<name>}{
//	<track-id>
//	<track-id>}
//
// The terminal '}' sits on the last ID's line (or right after the opening
// brace pair for an empty queue). Names never contain braces; Queue.SetName
// strips them on the way in.
package playlist

import (
	"strings"

	boterrors "github.com/vuongmanhnghia/tacobot/internal/errors"
)

// Record is one saved queue: a display name plus the ordered track IDs.
// Full track metadata is never persisted; reconstruction yields preview-only
// tracks until each ID is re-resolved.
type Record struct {
	Name string
	IDs  []string
}

// Marshal renders a single record in the persisted text format.
func (r Record) Marshal() string {
	var sb strings.Builder
	sb.WriteString("{")
	sb.WriteString(r.Name)
	sb.WriteString("}{\n")
	sb.WriteString(strings.Join(r.IDs, "\n"))
	sb.WriteString("}\n")
	return sb.String()
}

// MarshalAll renders records back into file content. MarshalAll(Parse(s))
// reproduces s for any content this package wrote.
func MarshalAll(records []Record) string {
	var sb strings.Builder
	for _, r := range records {
		sb.WriteString(r.Marshal())
	}
	return sb.String()
}

// Parse reads file content into ordered records. Malformed fragments between
// records are skipped; a missing or empty file parses to no records.
func Parse(content string) []Record {
	var records []Record

	for {
		open := strings.Index(content, "{")
		if open < 0 {
			break
		}
		nameEnd := strings.Index(content[open:], "}")
		if nameEnd < 0 {
			break
		}
		name := content[open+1 : open+nameEnd]
		rest := content[open+nameEnd+1:]

		// Name block must be followed immediately by the ID block.
		if !strings.HasPrefix(rest, "{") {
			content = rest
			continue
		}
		end := strings.Index(rest, "}")
		if end < 0 {
			break
		}
		body := rest[1:end]
		content = rest[end+1:]

		var ids []string
		for _, line := range strings.Split(body, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				ids = append(ids, line)
			}
		}
		records = append(records, Record{Name: name, IDs: ids})
	}

	return records
}

// Find returns the first record whose name matches name case-insensitively.
func Find(records []Record, name string) (Record, bool) {
	for _, r := range records {
		if strings.EqualFold(r.Name, name) {
			return r, true
		}
	}
	return Record{}, false
}

// Upsert replaces the record whose name matches rec.Name case-insensitively,
// or appends rec when no such record exists. Exactly one record with that
// name remains afterwards.
func Upsert(records []Record, rec Record) []Record {
	for i, r := range records {
		if strings.EqualFold(r.Name, rec.Name) {
			out := make([]Record, len(records))
			copy(out, records)
			out[i] = rec
			return out
		}
	}
	return append(append([]Record(nil), records...), rec)
}

// Remove deletes the record whose name matches case-insensitively.
func Remove(records []Record, name string) ([]Record, error) {
	for i, r := range records {
		if strings.EqualFold(r.Name, name) {
			return append(append([]Record(nil), records[:i]...), records[i+1:]...), nil
		}
	}
	return records, boterrors.ErrPlaylistNotFound
}
