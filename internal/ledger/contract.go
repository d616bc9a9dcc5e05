// ABOUTME: Narrow interfaces over a gateway connection and its contracts
// ABOUTME: FabricDialer implements them for real peers; tests substitute fakes

package ledger

import "context"

// Call carries the positional arguments and transient data of one transaction.
type Call struct {
	Args      []string
	Transient map[string][]byte
}

// Contract submits or evaluates named transactions on one chaincode.
type Contract interface {
	Evaluate(ctx context.Context, name string, call Call) ([]byte, error)
	Submit(ctx context.Context, name string, call Call) ([]byte, error)
}

// Connection is an open gateway. Contract handles are cheap and resolved per call.
type Connection interface {
	Contract(channel, chaincode string) Contract
	Close() error
}

// Dialer opens gateway connections.
type Dialer interface {
	Dial(ctx context.Context, cfg GatewayConfig) (Connection, error)
}
