// ABOUTME: In-memory Dialer, Connection and Contract fakes for service tests
// ABOUTME: Records every call and replays canned responses per transaction name

package ledger

import (
	"context"
	"errors"
	"sync"
)

type recordedCall struct {
	Kind      string // "evaluate" or "submit"
	Channel   string
	Chaincode string
	Name      string
	Call      Call
}

type response struct {
	data []byte
	err  error
}

type fakeNetwork struct {
	mu        sync.Mutex
	calls     []recordedCall
	responses map[string]response

	// block, when set, is waited on by Submit after signaling started.
	block   chan struct{}
	started chan struct{}
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{responses: make(map[string]response)}
}

func (n *fakeNetwork) respond(name string, data string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.responses[name] = response{data: []byte(data), err: err}
}

func (n *fakeNetwork) recorded() []recordedCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]recordedCall, len(n.calls))
	copy(out, n.calls)
	return out
}

func (n *fakeNetwork) invoke(kind, channel, chaincode, name string, call Call) ([]byte, error) {
	n.mu.Lock()
	n.calls = append(n.calls, recordedCall{Kind: kind, Channel: channel, Chaincode: chaincode, Name: name, Call: call})
	resp := n.responses[name]
	block, started := n.block, n.started
	n.mu.Unlock()

	if kind == "submit" && block != nil {
		if started != nil {
			close(started)
		}
		<-block
	}
	return resp.data, resp.err
}

type fakeDialer struct {
	mu      sync.Mutex
	network *fakeNetwork
	conns   []*fakeConnection
	dialed  []GatewayConfig
	err     error
}

func (d *fakeDialer) Dial(ctx context.Context, cfg GatewayConfig) (Connection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	conn := &fakeConnection{network: d.network}
	d.conns = append(d.conns, conn)
	d.dialed = append(d.dialed, cfg)
	return conn, nil
}

func (d *fakeDialer) connections() []*fakeConnection {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*fakeConnection, len(d.conns))
	copy(out, d.conns)
	return out
}

type fakeConnection struct {
	network *fakeNetwork
	mu      sync.Mutex
	closed  bool
}

func (c *fakeConnection) Contract(channel, chaincode string) Contract {
	return &fakeContract{network: c.network, channel: channel, chaincode: chaincode}
}

func (c *fakeConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("already closed")
	}
	c.closed = true
	return nil
}

func (c *fakeConnection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeContract struct {
	network   *fakeNetwork
	channel   string
	chaincode string
}

func (c *fakeContract) Evaluate(ctx context.Context, name string, call Call) ([]byte, error) {
	return c.network.invoke("evaluate", c.channel, c.chaincode, name, call)
}

func (c *fakeContract) Submit(ctx context.Context, name string, call Call) ([]byte, error) {
	return c.network.invoke("submit", c.channel, c.chaincode, name, call)
}
