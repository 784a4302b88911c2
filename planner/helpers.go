package planner

import "strings"

func lowerEntity(s string) string { return strings.ToLower(s) }
