// Package ledger is the portal's only path to the Fabric network.
//
// # Overview
//
// A Service owns one gateway connection at a time. Every operation resolves
// a contract for a fixed (channel, chaincode) pair, attaches its fields as a
// transient "asset_properties" JSON bundle, and submits or evaluates one
// named transaction. Results are returned raw.
//
// # Connection Lifecycle
//
// Configure reads the identity certificate, private key and TLS root
// certificate, dials the peer through a Dialer and swaps the new connection
// in under the service's write lock. Operations hold the read lock while
// they run, so a swap waits for them before closing the old connection.
//
// # Identifier Allocation
//
// New assets and emissions records are numbered by scanning the existing
// records and taking the largest numeric identifier plus one. This is
// best-effort: another process may pick the same number. Inside one process
// a reserve.Set keeps recently allocated numbers from being reused.
//
// # Transactions
//
//	ManufactureAsset           submit, transient asset_properties
//	CreateShipping             submit, transient asset_properties
//	ClaimShipping              submit, transient asset_properties
//	AuditEmissions             submit, args [id, prevIDs JSON, kgCO2, notes]
//	GetAllAssets               evaluate, args [collection]
//	GetAllEmissionsRecords     evaluate
//	GetEmissionsRecordsOfOwner evaluate, transient ownerID
//	CustomerGetAsset           evaluate, args [assetID]
package ledger
