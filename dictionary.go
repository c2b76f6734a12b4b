package composite

import (
	"github.com/jedib0t/go-pretty/table"
)

// Dictionary indexes related records by their encoded composite key.
// It lives for one eager-load pass.
type Dictionary struct {
	buckets map[string][]Record
	tokens  []string
}

// BuildDictionary groups related by the token of their groupingCols values,
// preserving fetch order inside each bucket. Records with a null key
// component are left out.
func BuildDictionary(related []Record, groupingCols Columns) *Dictionary {
	d := &Dictionary{
		buckets: make(map[string][]Record, len(related)),
		tokens:  make([]string, 0, len(related)),
	}

	for _, record := range related {
		key := KeyOf(record, groupingCols)
		if key.HasNull() {
			// NULL never equals anything in SQL, so it cannot be joined on.
			continue
		}
		token := key.Encode()
		if _, ok := d.buckets[token]; !ok {
			d.tokens = append(d.tokens, token)
		}
		d.buckets[token] = append(d.buckets[token], record)
	}

	return d
}

// Lookup returns the bucket stored under token.
func (d *Dictionary) Lookup(token string) ([]Record, bool) {
	bucket, ok := d.buckets[token]
	return bucket, ok
}

// First returns the first fetched record stored under token.
func (d *Dictionary) First(token string) (Record, bool) {
	bucket, ok := d.buckets[token]
	if !ok || len(bucket) == 0 {
		return nil, false
	}
	return bucket[0], true
}

// Len is the number of distinct tokens.
func (d *Dictionary) Len() int {
	return len(d.tokens)
}

// Tokens returns the tokens in the order they were first seen.
func (d *Dictionary) Tokens() []string {
	out := make([]string, len(d.tokens))
	copy(out, d.tokens)
	return out
}

// Render draws the dictionary as a table, for debugging eager loads.
func (d *Dictionary) Render() string {
	w := table.NewWriter()
	w.AppendHeader(table.Row{"Key", "Records", "Table"})
	for _, token := range d.tokens {
		bucket := d.buckets[token]
		w.AppendRow(table.Row{token, len(bucket), bucket[0].Table()})
	}
	return w.Render()
}

// InitOne presets every parent with the "no related record" marker.
func InitOne(parents []Record, name string) []Record {
	for _, parent := range parents {
		parent.SetRelation(name, nil)
	}
	return parents
}

// InitMany presets every parent with an empty collection.
func InitMany(parents []Record, name string) []Record {
	for _, parent := range parents {
		parent.SetRelation(name, []Record{})
	}
	return parents
}

// MatchOne attaches the first record of each parent's bucket. Parents
// without a bucket get the nil marker; a missing match is not an error.
func MatchOne(parents []Record, dict *Dictionary, matchCols Columns, name string) []Record {
	for _, parent := range parents {
		key := KeyOf(parent, matchCols)
		if related, ok := dict.First(key.Encode()); ok && !key.HasNull() {
			parent.SetRelation(name, related)
		} else {
			parent.SetRelation(name, nil)
		}
	}
	return parents
}

// MatchMany attaches each parent's whole bucket, or an empty collection.
func MatchMany(parents []Record, dict *Dictionary, matchCols Columns, name string) []Record {
	for _, parent := range parents {
		key := KeyOf(parent, matchCols)
		bucket, ok := dict.Lookup(key.Encode())
		if !ok || key.HasNull() {
			parent.SetRelation(name, []Record{})
			continue
		}

		// Each parent gets its own slice so later appends never alias.
		related := make([]Record, len(bucket))
		copy(related, bucket)
		parent.SetRelation(name, related)
	}
	return parents
}
