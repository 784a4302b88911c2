package planner

import (
	"github.com/joshsmithxrm/ppds-sdk/ast"
	"github.com/joshsmithxrm/ppds-sdk/plan"
	"github.com/joshsmithxrm/ppds-sdk/queryerr"
)

func planUnion(u *ast.Union, opts Options) (*Result, error) {
	left, err := planBranch(u.Left, opts)
	if err != nil {
		return nil, err
	}
	right, err := planBranch(u.Right, opts)
	if err != nil {
		return nil, err
	}

	leftCols := branchColumnCount(u.Left)
	rightCols := branchColumnCount(u.Right)
	if leftCols != rightCols {
		return nil, queryerr.ErrInvalidRequest.New("UNION branches must select the same number of columns")
	}

	var root plan.Node = &plan.ConcatenateNode{Inputs: []plan.Node{left.Root, right.Root}}
	if !u.All {
		root = &plan.DistinctNode{Input: root}
	}

	return &Result{
		Root:              root,
		FetchXml:          left.FetchXml,
		VirtualColumns:    left.VirtualColumns,
		EntityLogicalName: left.EntityLogicalName,
		EntityAlias:       left.EntityAlias,
		Warnings:          append(append([]string{}, left.Warnings...), right.Warnings...),
	}, nil
}

// planBranch plans one UNION side, which may itself be a nested Union
// from left-associative chaining (`a UNION b UNION c`).
func planBranch(stmt ast.Statement, opts Options) (*Result, error) {
	switch s := stmt.(type) {
	case *ast.Union:
		return planUnion(s, opts)
	case *ast.Select:
		return planSelect(s, opts)
	}
	return nil, queryerr.ErrInvalidRequest.New("UNION branches must be SELECT statements")
}

func branchColumnCount(stmt ast.Statement) int {
	switch s := stmt.(type) {
	case *ast.Union:
		return branchColumnCount(s.Left)
	case *ast.Select:
		return len(s.SelectList)
	}
	return -1
}
