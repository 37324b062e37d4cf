package lua

import lua "github.com/yuin/gopher-lua"

// unsafeGlobals are removed from every state before user code runs.
var unsafeGlobals = []string{
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"require",
	"module",
	"collectgarbage",
}

// installSandbox strips globals that reach outside the state.
func installSandbox(L *lua.LState) {
	for _, name := range unsafeGlobals {
		L.SetGlobal(name, lua.LNil)
	}
}
