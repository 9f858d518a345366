package headless

import (
	"context"
	"fmt"

	"github.com/go-delve/delve/service/api"
	"github.com/go-delve/delve/service/rpc2"
	"github.com/xhd2015/simple-debug/debug/common"
	"github.com/xhd2015/simple-debug/log"
)

// Debugger issues breakpoint directives to a running Delve headless server.
type Debugger struct {
	Client *Client
	logger log.Logger
}

var (
	_ common.Debugger = (*Debugger)(nil)
	_ common.Clearer  = (*Debugger)(nil)
)

// Dial connects to the Delve headless server at addr and checks that it
// answers.
func Dial(ctx context.Context, addr string, logger log.Logger) (*Debugger, error) {
	logger = log.OrNop(logger)

	client := NewClient(logger)
	if err := client.Connect(ctx, addr); err != nil {
		return nil, err
	}
	d := &Debugger{Client: client, logger: logger}
	if err := d.ping(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return d, nil
}

func (d *Debugger) ping(ctx context.Context) error {
	out, err := SendHeadlessClientRequest[rpc2.StateOut](ctx, d.Client, RPCState, rpc2.StateIn{NonBlocking: true})
	if err != nil {
		return fmt.Errorf("failed to get debugger state: %w", err)
	}
	if out.State != nil && out.State.Exited {
		d.logger.Warnf("target has exited with status %d", out.State.ExitStatus)
	}
	return nil
}

// CreateBreakpoint sets a breakpoint through a location expression so that
// Delve resolves partial file paths and unqualified function names the way
// its own "break" command does.
func (d *Debugger) CreateBreakpoint(ctx context.Context, dir common.Directive) (int, error) {
	locExpr, err := locationExpr(dir)
	if err != nil {
		return 0, err
	}
	d.logger.Debugf("setting breakpoint at %s", locExpr)

	createBpIn := rpc2.CreateBreakpointIn{
		LocExpr: locExpr,
	}
	response, err := SendHeadlessClientRequest[rpc2.CreateBreakpointOut](ctx, d.Client, RPCCreateBreakpoint, createBpIn)
	if err != nil {
		return 0, fmt.Errorf("failed to set breakpoint at %s: %w", locExpr, err)
	}
	return response.Breakpoint.ID, nil
}

func locationExpr(dir common.Directive) (string, error) {
	switch dir.Kind {
	case common.DirectiveFunction:
		return dir.Function, nil
	case common.DirectiveLine:
		return fmt.Sprintf("%s:%d", dir.File, dir.Line), nil
	default:
		return "", fmt.Errorf("unsupported directive kind %q", dir.Kind)
	}
}

// ListBreakpoints lists user breakpoints. Delve's internal breakpoints
// (negative IDs) are left out.
func (d *Debugger) ListBreakpoints(ctx context.Context) (string, error) {
	listBpOut, err := SendHeadlessClientRequest[rpc2.ListBreakpointsOut](ctx, d.Client, RPCListBreakpoints, rpc2.ListBreakpointsIn{})
	if err != nil {
		return "", fmt.Errorf("failed to list breakpoints: %w", err)
	}
	return common.FormatBreakpoints(toInfos(listBpOut.Breakpoints)), nil
}

func toInfos(bps []*api.Breakpoint) []common.BreakpointInfo {
	infos := make([]common.BreakpointInfo, 0, len(bps))
	for _, bp := range bps {
		if bp == nil || bp.ID <= 0 {
			continue
		}
		infos = append(infos, common.BreakpointInfo{
			ID:       bp.ID,
			Function: bp.FunctionName,
			File:     bp.File,
			Line:     bp.Line,
			Disabled: bp.Disabled,
			Verified: true,
		})
	}
	return infos
}

// ClearBreakpoint removes a breakpoint
func (d *Debugger) ClearBreakpoint(ctx context.Context, id int) error {
	_, err := SendHeadlessClientRequest[rpc2.ClearBreakpointOut](ctx, d.Client, RPCClearBreakpoint, rpc2.ClearBreakpointIn{Id: id})
	if err != nil {
		return fmt.Errorf("failed to clear breakpoint %d: %w", id, err)
	}
	return nil
}

// Close closes the connection. The Delve server and its target keep running.
func (d *Debugger) Close() error {
	return d.Client.Close()
}
