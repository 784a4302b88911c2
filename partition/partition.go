// Package partition divides a date range into balanced buckets for the
// parallel partitioned-aggregate plan and splices the
// resulting range filters into a template FetchXML document.
package partition

import (
	"strings"
	"time"
)

// DefaultBucketSize is the server-side row ceiling a single partition
// is assumed able to cover.
const DefaultBucketSize = 40_000

// DateFormat is the wire format FetchXML date conditions use.
const DateFormat = "2006-01-02T15:04:05.000Z"

// Count returns how many partitions a table of estimatedRecordCount
// rows needs, clamped to poolCapacity. Always at
// least 1.
func Count(estimatedRecordCount int64, poolCapacity int) int {
	if estimatedRecordCount <= 0 {
		return 1
	}
	n := int((estimatedRecordCount + DefaultBucketSize - 1) / DefaultBucketSize)
	if n < 1 {
		n = 1
	}
	if poolCapacity > 0 && n > poolCapacity {
		n = poolCapacity
	}
	return n
}

// Range is one [Start, End) bucket of the overall date span.
type Range struct {
	Start time.Time
	End   time.Time
}

// Divide splits [minDate, maxDate) into n equal-width buckets. The
// final bucket's End is exactly maxDate, avoiding rounding gaps.
func Divide(minDate, maxDate time.Time, n int) []Range {
	if n < 1 {
		n = 1
	}
	total := maxDate.Sub(minDate)
	width := total / time.Duration(n)
	ranges := make([]Range, 0, n)
	start := minDate
	for i := 0; i < n; i++ {
		end := start.Add(width)
		if i == n-1 {
			end = maxDate
		}
		ranges = append(ranges, Range{Start: start, End: end})
		start = end
	}
	return ranges
}

// FormatDate renders t in FetchXML's condition value format.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateFormat)
}

// InjectDateRangeFilter splices a createdon >= start AND createdon <
// end pair of <condition> elements into the last top-level </entity>
// closing tag of fetchXml, as a new sibling filter alongside any that
// is already present.
func InjectDateRangeFilter(fetchXml string, start, end time.Time) string {
	var sb strings.Builder
	sb.WriteString("  <filter type=\"and\">\n")
	sb.WriteString("    <condition attribute=\"createdon\" operator=\"ge\" value=\"" + FormatDate(start) + "\" />\n")
	sb.WriteString("    <condition attribute=\"createdon\" operator=\"lt\" value=\"" + FormatDate(end) + "\" />\n")
	sb.WriteString("  </filter>\n")
	return spliceBeforeLastCloseEntity(fetchXml, sb.String())
}

func spliceBeforeLastCloseEntity(xmlStr, insertion string) string {
	idx := strings.LastIndex(xmlStr, "</entity>")
	if idx < 0 {
		return xmlStr + insertion
	}
	return xmlStr[:idx] + insertion + xmlStr[idx:]
}
