package remote

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/joshsmithxrm/ppds-sdk/queryerr"
)

// Fake is an in-memory Client backing tests and the usage example: it
// holds records per entity and answers RetrieveMultipleAsync with a
// naive attribute-name scan of the FetchXML rather than a real parser
// (it only needs to support the generator's own output).
type Fake struct {
	Entities map[string][]Record
	PageSize int // 0 = no paging
}

// NewFake returns an empty fake store.
func NewFake() *Fake {
	return &Fake{Entities: map[string][]Record{}}
}

// Seed adds records for entity.
func (f *Fake) Seed(entity string, records ...Record) {
	f.Entities[entity] = append(f.Entities[entity], records...)
}

func (f *Fake) RetrieveMultipleAsync(ctx context.Context, fetchXml, pagingCookie string, pageSize int) (*RetrieveResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, queryerr.ErrCancelled.New("retrieve cancelled")
	}
	entity := extractAttr(fetchXml, "entity name")
	all := f.Entities[entity]

	size := pageSize
	if size <= 0 {
		size = f.PageSize
	}
	start := 0
	if pagingCookie != "" {
		n, err := strconv.Atoi(pagingCookie)
		if err == nil {
			start = n
		}
	}
	if size <= 0 || start+size >= len(all) {
		end := len(all)
		if size > 0 && start+size < end {
			end = start + size
		}
		return &RetrieveResult{Records: all[start:end], MoreRecords: false}, nil
	}
	end := start + size
	return &RetrieveResult{Records: all[start:end], PagingCookie: strconv.Itoa(end), MoreRecords: end < len(all)}, nil
}

func (f *Fake) GetTotalRecordCountAsync(ctx context.Context, entityNames []string) (map[string]int64, error) {
	out := map[string]int64{}
	for _, e := range entityNames {
		if recs, ok := f.Entities[e]; ok {
			out[e] = int64(len(recs))
		}
	}
	return out, nil
}

func (f *Fake) ExecuteBulkAsync(ctx context.Context, requests []BulkRequest, batchSize int, progress BulkProgress) (*BulkResult, error) {
	result := &BulkResult{}
	for i, req := range requests {
		if err := ctx.Err(); err != nil {
			return nil, queryerr.ErrCancelled.New("bulk execution cancelled")
		}
		switch req.Operation {
		case "create":
			f.Entities[req.Entity] = append(f.Entities[req.Entity], Record{EntityLogicalName: req.Entity, Values: req.Values})
		case "update":
			f.updateRecord(req)
		case "delete":
			f.deleteRecord(req)
		}
		result.Succeeded++
		result.Details = append(result.Details, BulkDetail{Index: i, Success: true})
		if progress != nil && batchSize > 0 && (i+1)%batchSize == 0 {
			progress(i+1, len(requests))
		}
	}
	if progress != nil {
		progress(len(requests), len(requests))
	}
	return result, nil
}

func (f *Fake) updateRecord(req BulkRequest) {
	recs := f.Entities[req.Entity]
	for i, r := range recs {
		if idVal, ok := r.Values[req.Entity+"id"]; ok && idVal == req.ID {
			for k, v := range req.Values {
				recs[i].Values[k] = v
			}
			return
		}
	}
}

func (f *Fake) deleteRecord(req BulkRequest) {
	recs := f.Entities[req.Entity]
	idCol := req.Entity + "id"
	out := recs[:0]
	for _, r := range recs {
		if idVal, ok := r.Values[idCol]; ok && idVal == req.ID {
			continue
		}
		out = append(out, r)
	}
	f.Entities[req.Entity] = out
}

func (f *Fake) ExecuteAsync(ctx context.Context, req PassthroughRequest) (*PassthroughResponse, error) {
	return nil, queryerr.ErrInvalidRequest.New("fake client does not support pass-through SQL")
}

// extractAttr does a minimal scan for `<tag value="x">`-shaped text,
// just enough to find the entity name out of generated FetchXML
// without pulling in a full XML parser for test fixtures.
func extractAttr(fetchXml, tagAttr string) string {
	idx := strings.Index(fetchXml, tagAttr+"=\"")
	if idx < 0 {
		return ""
	}
	rest := fetchXml[idx+len(tagAttr)+2:]
	end := strings.Index(rest, "\"")
	if end < 0 {
		return ""
	}
	return rest[:end]
}

// SortedEntities returns entity names in sorted order, for
// deterministic test output.
func (f *Fake) SortedEntities() []string {
	names := make([]string, 0, len(f.Entities))
	for k := range f.Entities {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
