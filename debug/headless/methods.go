package headless

type RPCMethod string

// Documentation: https://pkg.go.dev/github.com/go-delve/delve/service/rpc2
const (
	RPCState RPCMethod = "RPCServer.State" // https://pkg.go.dev/github.com/go-delve/delve/service/rpc2#RPCServer.State

	// Breakpoint methods
	RPCCreateBreakpoint RPCMethod = "RPCServer.CreateBreakpoint" // https://pkg.go.dev/github.com/go-delve/delve/service/rpc2#RPCServer.CreateBreakpoint
	RPCListBreakpoints  RPCMethod = "RPCServer.ListBreakpoints"  // https://pkg.go.dev/github.com/go-delve/delve/service/rpc2#RPCServer.ListBreakpoints
	RPCClearBreakpoint  RPCMethod = "RPCServer.ClearBreakpoint"  // https://pkg.go.dev/github.com/go-delve/delve/service/rpc2#RPCServer.ClearBreakpoint
)
