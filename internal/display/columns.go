package display

const (
	// ColumnSample is how many leading rows are inspected for column names.
	ColumnSample = 10
	// MaxColumns caps the inferred column set.
	MaxColumns = 10
)

// Columns infers the Column Set for a sequence: distinct keys in first-seen
// order across the first sample records, capped at max. Non-record elements
// are skipped. The result is a projection, not a schema.
func Columns(items []Value, sample, max int) []string {
	if sample <= 0 {
		sample = ColumnSample
	}
	if max <= 0 {
		max = MaxColumns
	}

	seen := make(map[string]struct{})
	var cols []string

	for i, item := range items {
		if i >= sample {
			break
		}
		if item.kind != KindRecord {
			continue
		}
		for _, k := range item.record.Keys() {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			cols = append(cols, k)
			if len(cols) == max {
				return cols
			}
		}
	}

	return cols
}
