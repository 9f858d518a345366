package headless

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/xhd2015/simple-debug/log"
)

// Simplified request structure for JSON-RPC
type jsonRPCRequest struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
	Id     int           `json:"id"`
}

// Simplified response structure for JSON-RPC
type jsonRPCResponse struct {
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error,omitempty"`
	Id     int             `json:"id"`
}

// errorMessage extracts the error text. Delve's net/rpc codec sends a plain
// string; other JSON-RPC servers send {"code":..,"message":..}.
func (r *jsonRPCResponse) errorMessage() string {
	if len(r.Error) == 0 || string(r.Error) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.Error, &s); err == nil {
		return s
	}
	var obj struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(r.Error, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(r.Error)
}

// Client talks JSON-RPC to a Delve headless server
// (dlv --headless --api-version=2).
type Client struct {
	conn        net.Conn
	reader      *bufio.Reader
	seq         int
	isClosed    bool
	addr        string     // kept for reconnection
	mutex       sync.Mutex // one request in flight at a time
	dialTimeout time.Duration
	logger      log.Logger
}

// NewClient creates a new headless client
func NewClient(logger log.Logger) *Client {
	return &Client{
		seq:         1,
		dialTimeout: 10 * time.Second,
		logger:      log.OrNop(logger),
	}
}

// Connect connects to a headless server
func (c *Client) Connect(ctx context.Context, addr string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.addr = addr
	if err := c.dialLocked(ctx); err != nil {
		return fmt.Errorf("failed to connect to headless server: %w", err)
	}
	c.isClosed = false

	c.logger.Debugf("connected to Delve server at %s", addr)
	return nil
}

// Close closes the connection to the headless server
func (c *Client) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.isClosed = true
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		c.reader = nil
		return err
	}
	return nil
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.isClosed
}

// SendHeadlessClientRequest sends one request and decodes its result into T.
// A dropped connection is re-dialed once and the request retried.
func SendHeadlessClientRequest[T any](ctx context.Context, c *Client, method RPCMethod, params interface{}) (T, error) {
	var result T

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.isClosed {
		return result, fmt.Errorf("client is closed")
	}
	if c.conn == nil {
		return result, fmt.Errorf("connection to server not established")
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	raw, err := c.roundTripLocked(ctx, method, params)
	if err != nil && isConnectionLost(err) {
		if reconnErr := c.reconnectLocked(ctx); reconnErr != nil {
			return result, fmt.Errorf("connection failed and reconnect also failed: %w", reconnErr)
		}
		raw, err = c.roundTripLocked(ctx, method, params)
	}
	if err != nil {
		return result, err
	}

	if len(raw) == 0 || string(raw) == "null" {
		return result, nil
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return result, nil
}

// roundTripLocked writes one request and reads its response.
// Caller must hold the mutex lock
func (c *Client) roundTripLocked(ctx context.Context, method RPCMethod, params interface{}) (json.RawMessage, error) {
	seqNum := c.seq
	c.seq++

	req := jsonRPCRequest{
		Method: string(method),
		Params: []interface{}{params},
		Id:     seqNum,
	}
	requestBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	c.logger.Debugf("sending request to Delve: %s", requestBytes)

	// Delve's codec reads a JSON stream; the newline keeps the log readable
	requestBytes = append(requestBytes, '\n')

	deadline, _ := ctx.Deadline()
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set deadline: %w", err)
	}

	// a canceled ctx unblocks the read by closing the conn; the next
	// request re-dials
	conn := c.conn
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if _, err := c.conn.Write(requestBytes); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s interrupted: %w", method, ctxErr)
		}
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s interrupted: %w", method, ctxErr)
		}
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp jsonRPCResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Id != seqNum {
		return nil, fmt.Errorf("response ID %d does not match request ID %d", resp.Id, seqNum)
	}
	if msg := resp.errorMessage(); msg != "" {
		return nil, &RPCError{Method: method, Message: msg}
	}
	return resp.Result, nil
}

// reconnectLocked attempts to reconnect to the Delve server
// Caller must hold the mutex lock
func (c *Client) reconnectLocked(ctx context.Context) error {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.reader = nil
	}

	if c.addr == "" {
		return fmt.Errorf("cannot reconnect: no server address stored")
	}

	c.logger.Warnf("attempting to reconnect to Delve server at %s", c.addr)
	if err := c.dialLocked(ctx); err != nil {
		return fmt.Errorf("failed to reconnect to headless server: %w", err)
	}
	c.logger.Infof("reconnected to Delve server")
	return nil
}

func (c *Client) dialLocked(ctx context.Context) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(timeoutCtx, "tcp", c.addr)
	if err != nil {
		return err
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// RPCError is an error reported by the Delve server itself, as opposed to a
// transport failure.
type RPCError struct {
	Method  RPCMethod
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("error from Delve (%s): %s", e.Method, e.Message)
}

func isConnectionLost(err error) bool {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	return strings.Contains(err.Error(), "use of closed network connection")
}
