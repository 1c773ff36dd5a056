package config

import (
	"fmt"
	"strings"

	"github.com/mtlprog/taskindexer/internal/domain"
)

const (
	// DefaultPort is the default HTTP server port.
	DefaultPort = "8080"

	// DefaultDatabaseURL is empty; must be provided via flag or environment
	// when the postgres store is selected.
	DefaultDatabaseURL = ""

	// DefaultStore is the default entity store backend.
	DefaultStore = StorePostgres

	// DefaultMaxConns covers one connection per ingest stream plus readers.
	DefaultMaxConns = 10
)

// StoreBackend selects the entity store implementation.
type StoreBackend string

const (
	StorePostgres StoreBackend = "postgres"
	StoreMemory   StoreBackend = "memory"
)

// ParseStore converts a flag value to a StoreBackend.
func ParseStore(s string) (StoreBackend, error) {
	switch b := StoreBackend(strings.ToLower(strings.TrimSpace(s))); b {
	case StorePostgres, StoreMemory:
		return b, nil
	default:
		return "", fmt.Errorf("unknown store %q (want postgres or memory)", s)
	}
}

// ContractFlag describes the flag carrying one stream's contract address.
type ContractFlag struct {
	Source domain.Source
	Name   string
	EnvVar string
}

// ContractFlags lists the contract address flags, one per source stream.
var ContractFlags = []ContractFlag{
	{domain.SourceBidding, "bidding-contract", "BIDDING_CONTRACT"},
	{domain.SourceFixedPayment, "fixed-payment-contract", "FIXED_PAYMENT_CONTRACT"},
	{domain.SourceMilestone, "milestone-contract", "MILESTONE_CONTRACT"},
	{domain.SourceDispute, "dispute-contract", "DISPUTE_CONTRACT"},
	{domain.SourceUser, "user-info-contract", "USER_INFO_CONTRACT"},
}
