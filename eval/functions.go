package eval

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/joshsmithxrm/ppds-sdk/ast"
	"github.com/joshsmithxrm/ppds-sdk/queryerr"
	"github.com/joshsmithxrm/ppds-sdk/row"
)

// evalFunction dispatches a FunctionCall to the mandated scalar
// function registry. Aggregate function names (COUNT, SUM, AVG, MIN,
// MAX) are not in the registry: SELECT-list aggregates become FetchXML
// aggregate attributes, a HAVING condition refers to their results by
// alias, and an aggregate call that does reach here fails as an unknown
// function.
func (e *Evaluator) evalFunction(fc *ast.FunctionCall, r *row.QueryRow) (interface{}, error) {
	args := make([]interface{}, len(fc.Args))
	for i, a := range fc.Args {
		v, err := e.Evaluate(a, r)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	switch fc.Name {
	case "UPPER":
		return stringFn1(args, strings.ToUpper)
	case "LOWER":
		return stringFn1(args, strings.ToLower)
	case "REVERSE":
		return stringFn1(args, reverseString)
	case "TRIM":
		return stringFn1(args, strings.TrimSpace)
	case "LTRIM":
		return stringFn1(args, func(s string) string { return strings.TrimLeft(s, " ") })
	case "RTRIM":
		return stringFn1(args, func(s string) string { return strings.TrimRight(s, " ") })
	case "LEN":
		return fnLen(args)
	case "LEFT":
		return fnLeftRight(args, true)
	case "RIGHT":
		return fnLeftRight(args, false)
	case "SUBSTRING":
		return fnSubstring(args)
	case "REPLACE":
		return fnReplace(args)
	case "CHARINDEX":
		return fnCharIndex(args)
	case "CONCAT":
		return fnConcat(args)
	case "STUFF":
		return fnStuff(args)
	}
	return nil, queryerr.ErrExecutionFailed.New("unknown function " + fc.Name)
}

func reverseString(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

func stringFn1(args []interface{}, f func(string) string) (interface{}, error) {
	if args[0] == nil {
		return nil, nil
	}
	s, err := cast.ToStringE(args[0])
	if err != nil {
		return nil, queryerr.ErrTypeMismatch.New("expected a string argument")
	}
	return f(s), nil
}

// fnLen implements T-SQL LEN semantics: trailing spaces excluded,
// leading spaces counted.
func fnLen(args []interface{}) (interface{}, error) {
	if args[0] == nil {
		return nil, nil
	}
	s, err := cast.ToStringE(args[0])
	if err != nil {
		return nil, queryerr.ErrTypeMismatch.New("LEN requires a string argument")
	}
	return int64(len([]rune(strings.TrimRight(s, " ")))), nil
}

func fnLeftRight(args []interface{}, left bool) (interface{}, error) {
	if args[0] == nil || args[1] == nil {
		return nil, nil
	}
	s, err := cast.ToStringE(args[0])
	if err != nil {
		return nil, queryerr.ErrTypeMismatch.New("expected a string first argument")
	}
	n, err := cast.ToInt64E(args[1])
	if err != nil {
		return nil, queryerr.ErrTypeMismatch.New("expected an integer length argument")
	}
	runes := []rune(s)
	if n < 0 {
		n = 0
	}
	if n > int64(len(runes)) {
		n = int64(len(runes))
	}
	if left {
		return string(runes[:n]), nil
	}
	return string(runes[int64(len(runes))-n:]), nil
}

// fnSubstring implements 1-based SUBSTRING with start<=0 adjusting the
// effective length.
func fnSubstring(args []interface{}) (interface{}, error) {
	if args[0] == nil {
		return nil, nil
	}
	s, err := cast.ToStringE(args[0])
	if err != nil {
		return nil, queryerr.ErrTypeMismatch.New("SUBSTRING requires a string argument")
	}
	start, err := cast.ToInt64E(args[1])
	if err != nil {
		return nil, queryerr.ErrTypeMismatch.New("SUBSTRING requires an integer start")
	}
	length, err := cast.ToInt64E(args[2])
	if err != nil {
		return nil, queryerr.ErrTypeMismatch.New("SUBSTRING requires an integer length")
	}
	runes := []rune(s)
	if start <= 0 {
		length = length + start - 1
		start = 1
	}
	if length < 0 {
		length = 0
	}
	idx := start - 1
	if idx >= int64(len(runes)) {
		return "", nil
	}
	end := idx + length
	if end > int64(len(runes)) {
		end = int64(len(runes))
	}
	if end < idx {
		end = idx
	}
	return string(runes[idx:end]), nil
}

// fnReplace does a case-insensitive find-and-replace; an empty find
// string returns the original unchanged.
func fnReplace(args []interface{}) (interface{}, error) {
	if args[0] == nil || args[1] == nil || args[2] == nil {
		return nil, nil
	}
	s, err := cast.ToStringE(args[0])
	if err != nil {
		return nil, queryerr.ErrTypeMismatch.New("REPLACE requires string arguments")
	}
	find, err := cast.ToStringE(args[1])
	if err != nil {
		return nil, queryerr.ErrTypeMismatch.New("REPLACE requires string arguments")
	}
	repl, err := cast.ToStringE(args[2])
	if err != nil {
		return nil, queryerr.ErrTypeMismatch.New("REPLACE requires string arguments")
	}
	if find == "" {
		return s, nil
	}
	return replaceCaseInsensitive(s, find, repl), nil
}

func replaceCaseInsensitive(s, find, repl string) string {
	lowerS, lowerFind := strings.ToLower(s), strings.ToLower(find)
	var sb strings.Builder
	for {
		idx := strings.Index(lowerS, lowerFind)
		if idx < 0 {
			sb.WriteString(s)
			break
		}
		sb.WriteString(s[:idx])
		sb.WriteString(repl)
		s = s[idx+len(find):]
		lowerS = lowerS[idx+len(find):]
	}
	return sb.String()
}

// fnCharIndex is 1-based, 0 meaning not found; an optional third
// argument sets the search start position.
func fnCharIndex(args []interface{}) (interface{}, error) {
	if args[0] == nil || args[1] == nil {
		return nil, nil
	}
	find, err := cast.ToStringE(args[0])
	if err != nil {
		return nil, queryerr.ErrTypeMismatch.New("CHARINDEX requires string arguments")
	}
	s, err := cast.ToStringE(args[1])
	if err != nil {
		return nil, queryerr.ErrTypeMismatch.New("CHARINDEX requires string arguments")
	}
	start := int64(0)
	if len(args) == 3 && args[2] != nil {
		n, err := cast.ToInt64E(args[2])
		if err != nil {
			return nil, queryerr.ErrTypeMismatch.New("CHARINDEX start position must be an integer")
		}
		if n > 0 {
			start = n - 1
		}
	}
	runes := []rune(s)
	if start > int64(len(runes)) {
		return int64(0), nil
	}
	idx := strings.Index(strings.ToLower(string(runes[start:])), strings.ToLower(find))
	if idx < 0 {
		return int64(0), nil
	}
	return start + int64(len([]rune(string(runes[start:])[:idx]))) + 1, nil
}

// fnConcat is null-safe (null treated as empty) and formats numeric and
// temporal arguments invariantly.
func fnConcat(args []interface{}) (interface{}, error) {
	var sb strings.Builder
	for _, a := range args {
		if a == nil {
			continue
		}
		s, err := cast.ToStringE(a)
		if err != nil {
			s = fmt.Sprintf("%v", a)
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

// fnStuff implements STUFF(str, start, length, replacement): deletes
// length characters starting at 1-based start and inserts replacement
// in their place. An invalid start/length yields null.
func fnStuff(args []interface{}) (interface{}, error) {
	if args[0] == nil {
		return nil, nil
	}
	s, err := cast.ToStringE(args[0])
	if err != nil {
		return nil, queryerr.ErrTypeMismatch.New("STUFF requires a string argument")
	}
	start, err := cast.ToInt64E(args[1])
	if err != nil {
		return nil, queryerr.ErrTypeMismatch.New("STUFF requires an integer start")
	}
	delLen, err := cast.ToInt64E(args[2])
	if err != nil {
		return nil, queryerr.ErrTypeMismatch.New("STUFF requires an integer delete length")
	}
	repl, err := cast.ToStringE(args[3])
	if err != nil {
		return nil, queryerr.ErrTypeMismatch.New("STUFF requires a string replacement")
	}
	runes := []rune(s)
	if start <= 0 || start > int64(len(runes)) || delLen < 0 {
		return nil, nil
	}
	idx := start - 1
	end := idx + delLen
	if end > int64(len(runes)) {
		end = int64(len(runes))
	}
	var sb strings.Builder
	sb.WriteString(string(runes[:idx]))
	sb.WriteString(repl)
	sb.WriteString(string(runes[end:]))
	return sb.String(), nil
}
