// Package lua runs user scripts in a sandboxed gopher-lua state.
//
// Scripts get the base, table, string and math libraries only. File,
// OS, debug and package loading functions are removed before any user
// code runs. Every call is bounded by a timeout carried through the Lua
// state's context.
//
//	state, err := lua.NewState(lua.WithExecutionTimeout(time.Second))
//	if err != nil {
//	    return err
//	}
//	defer state.Close()
//
//	if err := state.DoFile("filter.lua"); err != nil {
//	    return err
//	}
//	ret, err := state.Call("keep", state.Bridge().ToLuaValue(map[string]any{"rule": "x"}))
//
// A State is guarded by a mutex, so it may be shared, but calls are
// serialized.
package lua
