package projector

import (
	"fmt"
	"time"

	"github.com/dshills/gramcheck/internal/finding"
	"github.com/dshills/gramcheck/internal/plugin/lua"
	glua "github.com/yuin/gopher-lua"
)

// Filter decides whether a projected record is shown.
type Filter interface {
	Keep(r *finding.Record) (bool, error)
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(r *finding.Record) (bool, error)

// Keep calls f.
func (f FilterFunc) Keep(r *finding.Record) (bool, error) {
	return f(r)
}

// FilterEntry is the global function a filter script must define. It
// receives one finding table and returns false to hide the finding.
const FilterEntry = "keep"

// LuaFilter runs a user script against every record.
type LuaFilter struct {
	state *lua.State
}

// NewLuaFilter loads the script at path. The script must define a global
// function named by FilterEntry.
func NewLuaFilter(path string, timeout time.Duration) (*LuaFilter, error) {
	state, err := lua.NewState(lua.WithExecutionTimeout(timeout))
	if err != nil {
		return nil, err
	}
	if err := state.DoFile(path); err != nil {
		_ = state.Close()
		return nil, fmt.Errorf("load filter %s: %w", path, err)
	}
	if !state.HasFunction(FilterEntry) {
		_ = state.Close()
		return nil, fmt.Errorf("load filter %s: %w: %q", path, lua.ErrNotFunction, FilterEntry)
	}
	return &LuaFilter{state: state}, nil
}

// Keep calls the script. A script that returns nothing keeps the record.
func (f *LuaFilter) Keep(r *finding.Record) (bool, error) {
	ret, err := f.state.Call(FilterEntry, f.state.Bridge().ToLuaValue(recordTable(r)))
	if err != nil {
		return true, err
	}
	if len(ret) == 0 {
		return true, nil
	}
	return glua.LVAsBool(ret[0]), nil
}

// Close releases the script state.
func (f *LuaFilter) Close() error {
	return f.state.Close()
}

// recordTable is the view of a record handed to scripts. Lines and columns
// are zero-based.
func recordTable(r *finding.Record) map[string]any {
	return map[string]any{
		"category":     r.Category.String(),
		"option":       r.Option,
		"rule":         r.RuleID,
		"message":      r.Description,
		"before":       r.Context.Before,
		"flagged":      r.Context.Flagged,
		"after":        r.Context.After,
		"url":          r.URL,
		"suggestions":  r.Suggestions,
		"paragraph":    r.Paragraph,
		"start_line":   r.Start.Line,
		"start_column": r.Start.Column,
		"end_line":     r.End.Line,
		"end_column":   r.End.Column,
	}
}
