package explain

import (
	"fmt"
	"strconv"
	"strings"
)

// PlanFormatter renders a QueryPlanDescription tree as the box-drawing
// text block a client prints under "Execution Plan:".
type PlanFormatter struct{}

// Format renders description as text, e.g.:
//
//	Execution Plan:
//	  DmlExecute: DELETE account (est. 1 rows)
//	  └── FetchXmlScan: account (est. 5,000 rows)
func (PlanFormatter) Format(d *QueryPlanDescription) string {
	var b strings.Builder
	b.WriteString("Execution Plan:\n")
	writeNode(&b, d, "  ", "", true)

	capacity, parallelism, ok := firstParallelism(d)
	if ok {
		fmt.Fprintf(&b, "\nPool capacity: %d, effective parallelism: %d\n", capacity, parallelism)
	}
	return b.String()
}

func writeNode(b *strings.Builder, d *QueryPlanDescription, prefix, connector string, isRoot bool) {
	line := d.Description
	if d.EstimatedRows >= 0 {
		line += fmt.Sprintf(" (est. %s rows)", commaSeparated(d.EstimatedRows))
	}
	if isRoot {
		b.WriteString(prefix + line + "\n")
	} else {
		b.WriteString(prefix + connector + line + "\n")
	}

	childPrefix := prefix
	if !isRoot {
		if connector == "└── " {
			childPrefix = prefix + "    "
		} else {
			childPrefix = prefix + "│   "
		}
	}
	for i, c := range d.Children {
		connector := "├── "
		if i == len(d.Children)-1 {
			connector = "└── "
		}
		writeNode(b, c, childPrefix, connector, false)
	}
}

// firstParallelism returns the pool capacity and effective parallelism
// of the first ParallelPartitionNode found in the tree (pre-order), if
// any. Only the first is reported: a UNION whose branches are both
// partitioned aggregates carries two.
func firstParallelism(d *QueryPlanDescription) (capacity, parallelism int, ok bool) {
	if d == nil {
		return 0, 0, false
	}
	if d.PoolCapacity != nil && d.EffectiveParallelism != nil {
		return *d.PoolCapacity, *d.EffectiveParallelism, true
	}
	for _, c := range d.Children {
		if capacity, parallelism, ok = firstParallelism(c); ok {
			return
		}
	}
	return 0, 0, false
}

// commaSeparated formats n with thousands separators ("5,000"). No
// pack dependency demonstrates actual comma-formatting call sites (only
// unexercised transitive go.mod entries for go-humanize), so this is
// hand-rolled rather than imported ungrounded.
func commaSeparated(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
