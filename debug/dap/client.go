package dap

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/go-dap"
	"github.com/xhd2015/simple-debug/log"
)

// Client represents a DAP client that communicates with a debug adapter
// such as `dlv dap`.
type Client struct {
	conn     net.Conn
	reader   *bufio.Reader
	seq      int
	isClosed bool
	mu       sync.Mutex
	logger   log.Logger
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn, logger log.Logger) *Client {
	return &Client{
		conn:   conn,
		reader: bufio.NewReader(conn),
		seq:    1,
		logger: log.OrNop(logger),
	}
}

// Connect connects to a DAP server
func Connect(ctx context.Context, addr string, logger log.Logger) (*Client, error) {
	var d net.Dialer

	// Set connection timeout to 10 seconds
	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := d.DialContext(timeoutCtx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DAP server: %w", err)
	}
	return NewClient(conn, logger), nil
}

// Close closes the connection to the DAP server
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isClosed {
		return nil
	}
	c.isClosed = true
	return c.conn.Close()
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isClosed
}

func (c *Client) newRequest(command string) dap.Request {
	return dap.Request{
		ProtocolMessage: dap.ProtocolMessage{
			Type: "request",
		},
		Command: command,
	}
}

// send writes request and reads messages until the matching response
// arrives. Events and unrelated responses are logged and dropped.
func (c *Client) send(ctx context.Context, request dap.RequestMessage) (dap.ResponseMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isClosed {
		return nil, fmt.Errorf("client is closed")
	}

	req := request.GetRequest()
	req.Seq = c.seq
	c.seq++

	deadline, _ := ctx.Deadline()
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set deadline: %w", err)
	}

	// a canceled ctx unblocks the read by closing the conn, which ends the
	// session
	conn := c.conn
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		if !stop() {
			c.isClosed = true
		}
	}()

	c.logger.Debugf("DAP request #%d: %s", req.Seq, req.Command)
	if err := dap.WriteProtocolMessage(c.conn, request); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s interrupted: %w", req.Command, ctxErr)
		}
		return nil, fmt.Errorf("failed to send %s request: %w", req.Command, err)
	}

	for {
		message, err := dap.ReadProtocolMessage(c.reader)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("%s interrupted: %w", req.Command, ctxErr)
			}
			return nil, fmt.Errorf("failed to read response to %s: %w", req.Command, err)
		}

		switch m := message.(type) {
		case dap.ResponseMessage:
			resp := m.GetResponse()
			if resp.RequestSeq != req.Seq {
				c.logger.Warnf("DAP response for request #%d while waiting for #%d, dropped", resp.RequestSeq, req.Seq)
				continue
			}
			if !resp.Success {
				return nil, &ResponseError{Command: resp.Command, Message: resp.Message}
			}
			return m, nil
		case *dap.OutputEvent:
			c.logger.Debugf("DAP output: %s", m.Body.Output)
		case dap.EventMessage:
			c.logger.Debugf("DAP event: %s", m.GetEvent().Event)
		default:
			c.logger.Debugf("DAP message ignored: %T", message)
		}
	}
}

// ResponseError is an unsuccessful response from the adapter.
type ResponseError struct {
	Command string
	Message string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("DAP %s failed: %s", e.Command, e.Message)
}

// Initialize sends the initialize request and returns the adapter's
// capabilities.
func (c *Client) Initialize(ctx context.Context) (dap.Capabilities, error) {
	request := &dap.InitializeRequest{
		Request: c.newRequest("initialize"),
		Arguments: dap.InitializeRequestArguments{
			ClientID:        "simple-debug",
			ClientName:      "simple-debug",
			AdapterID:       "go",
			PathFormat:      "path",
			LinesStartAt1:   true,
			ColumnsStartAt1: true,
		},
	}
	resp, err := c.send(ctx, request)
	if err != nil {
		return dap.Capabilities{}, err
	}
	initResp, ok := resp.(*dap.InitializeResponse)
	if !ok {
		return dap.Capabilities{}, fmt.Errorf("unexpected response type: %T", resp)
	}
	return initResp.Body, nil
}

// Launch sends a launch request with adapter-specific arguments, e.g.
// {"mode": "exec", "program": "./bin/app"} for Delve.
func (c *Client) Launch(ctx context.Context, args json.RawMessage) error {
	_, err := c.send(ctx, &dap.LaunchRequest{
		Request:   c.newRequest("launch"),
		Arguments: args,
	})
	return err
}

// Attach sends an attach request with adapter-specific arguments.
func (c *Client) Attach(ctx context.Context, args json.RawMessage) error {
	_, err := c.send(ctx, &dap.AttachRequest{
		Request:   c.newRequest("attach"),
		Arguments: args,
	})
	return err
}

// ConfigurationDone tells the adapter that breakpoint configuration is
// complete and the target may run.
func (c *Client) ConfigurationDone(ctx context.Context) error {
	_, err := c.send(ctx, &dap.ConfigurationDoneRequest{
		Request: c.newRequest("configurationDone"),
	})
	return err
}

// SetBreakpoints replaces all breakpoints of one source file.
func (c *Client) SetBreakpoints(ctx context.Context, path string, lines []int) ([]dap.Breakpoint, error) {
	sbps := make([]dap.SourceBreakpoint, 0, len(lines))
	for _, line := range lines {
		sbps = append(sbps, dap.SourceBreakpoint{Line: line})
	}
	request := &dap.SetBreakpointsRequest{
		Request: c.newRequest("setBreakpoints"),
		Arguments: dap.SetBreakpointsArguments{
			Source:      dap.Source{Path: path},
			Breakpoints: sbps,
		},
	}
	resp, err := c.send(ctx, request)
	if err != nil {
		return nil, err
	}
	bpResp, ok := resp.(*dap.SetBreakpointsResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type: %T", resp)
	}
	return bpResp.Body.Breakpoints, nil
}

// SetFunctionBreakpoints replaces all function breakpoints.
func (c *Client) SetFunctionBreakpoints(ctx context.Context, names []string) ([]dap.Breakpoint, error) {
	fbps := make([]dap.FunctionBreakpoint, 0, len(names))
	for _, name := range names {
		fbps = append(fbps, dap.FunctionBreakpoint{Name: name})
	}
	request := &dap.SetFunctionBreakpointsRequest{
		Request: c.newRequest("setFunctionBreakpoints"),
		Arguments: dap.SetFunctionBreakpointsArguments{
			Breakpoints: fbps,
		},
	}
	resp, err := c.send(ctx, request)
	if err != nil {
		return nil, err
	}
	bpResp, ok := resp.(*dap.SetFunctionBreakpointsResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type: %T", resp)
	}
	return bpResp.Body.Breakpoints, nil
}
