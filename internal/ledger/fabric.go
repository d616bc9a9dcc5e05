// ABOUTME: Fabric Gateway implementation of Dialer over a TLS gRPC connection
// ABOUTME: Builds the X.509 identity and signer from PEM files on disk

package ledger

import (
	"context"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/hyperledger/fabric-gateway/pkg/client"
	"github.com/hyperledger/fabric-gateway/pkg/identity"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// FabricDialer connects to a Fabric peer's gateway service.
type FabricDialer struct {
	// DialOptions are appended after the TLS transport credentials.
	DialOptions []grpc.DialOption
}

// Dial reads the identity, key and TLS root files named in cfg and opens a
// gateway. The gRPC connection is established lazily on the first call.
func (d FabricDialer) Dial(ctx context.Context, cfg GatewayConfig) (Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id, err := newIdentity(cfg.OrganizationID, cfg.CertificatePath)
	if err != nil {
		return nil, err
	}

	sign, err := newSign(cfg.PrivateKeyPath)
	if err != nil {
		return nil, err
	}

	creds, err := newTransportCredentials(cfg.TLSRootCertPath, cfg.ServerNameOverride)
	if err != nil {
		return nil, err
	}

	opts := append([]grpc.DialOption{grpc.WithTransportCredentials(creds)}, d.DialOptions...)
	conn, err := grpc.NewClient(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gRPC client for %s: %w", cfg.Address, err)
	}

	gw, err := client.Connect(id, client.WithSign(sign), client.WithClientConnection(conn))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if gw == nil {
		_ = conn.Close()
		return nil, ErrConnection
	}

	return &fabricConnection{gateway: gw, conn: conn}, nil
}

func newIdentity(mspID, certPath string) (*identity.X509Identity, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("reading certificate: %w", err)
	}

	cert, err := identity.CertificateFromPEM(certPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing certificate: %w", err)
	}

	id, err := identity.NewX509Identity(mspID, cert)
	if err != nil {
		return nil, fmt.Errorf("creating identity: %w", err)
	}
	return id, nil
}

func newSign(keyPath string) (identity.Sign, error) {
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}

	key, err := identity.PrivateKeyFromPEM(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	sign, err := identity.NewPrivateKeySign(key)
	if err != nil {
		return nil, fmt.Errorf("creating signer: %w", err)
	}
	return sign, nil
}

func newTransportCredentials(tlsRootPath, serverName string) (credentials.TransportCredentials, error) {
	rootPEM, err := os.ReadFile(tlsRootPath)
	if err != nil {
		return nil, fmt.Errorf("reading TLS root certificate: %w", err)
	}

	rootCert, err := identity.CertificateFromPEM(rootPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing TLS root certificate: %w", err)
	}

	pool := x509.NewCertPool()
	pool.AddCert(rootCert)
	return credentials.NewClientTLSFromCert(pool, serverName), nil
}

type fabricConnection struct {
	gateway *client.Gateway
	conn    *grpc.ClientConn
}

func (c *fabricConnection) Contract(channel, chaincode string) Contract {
	return &fabricContract{contract: c.gateway.GetNetwork(channel).GetContract(chaincode)}
}

// Close closes the gateway and then the gRPC connection it does not own.
func (c *fabricConnection) Close() error {
	gwErr := c.gateway.Close()
	connErr := c.conn.Close()
	if gwErr != nil {
		return fmt.Errorf("closing gateway: %w", gwErr)
	}
	if connErr != nil {
		return fmt.Errorf("closing gRPC connection: %w", connErr)
	}
	return nil
}

type fabricContract struct {
	contract *client.Contract
}

func (c *fabricContract) Evaluate(ctx context.Context, name string, call Call) ([]byte, error) {
	return c.contract.EvaluateWithContext(ctx, name, proposalOptions(call)...)
}

func (c *fabricContract) Submit(ctx context.Context, name string, call Call) ([]byte, error) {
	return c.contract.SubmitWithContext(ctx, name, proposalOptions(call)...)
}

func proposalOptions(call Call) []client.ProposalOption {
	var opts []client.ProposalOption
	if len(call.Args) > 0 {
		opts = append(opts, client.WithArguments(call.Args...))
	}
	if len(call.Transient) > 0 {
		opts = append(opts, client.WithTransient(call.Transient))
	}
	return opts
}
