package network

// Context is the name of the network a run targets. It is resolved once at
// startup and never changes for the duration of a run.
type Context string

const (
	// Development is an ephemeral local chain started for the run
	Development Context = "development"
	// GanacheLocal is a long-lived local chain
	GanacheLocal Context = "ganache-local"
	// MainnetFork is a local fork of mainnet
	MainnetFork Context = "mainnet-fork"
	// MainnetForkDev is a local fork of mainnet with development accounts
	MainnetForkDev Context = "mainnet-fork-dev"
)

var (
	localBlockchainEnvironments = map[Context]struct{}{
		Development:  {},
		GanacheLocal: {},
	}

	forkedLocalEnvironments = map[Context]struct{}{
		MainnetFork:    {},
		MainnetForkDev: {},
	}
)

func (c Context) String() string {
	return string(c)
}

// IsLocal reports whether the network is a local, simulated ledger on which
// auxiliary contracts are substituted with mocks
func (c Context) IsLocal() bool {
	_, ok := localBlockchainEnvironments[c]

	return ok
}

// IsForked reports whether the network is a local fork of a live network
func (c Context) IsForked() bool {
	_, ok := forkedLocalEnvironments[c]

	return ok
}

// HasDevelopmentAccounts reports whether the node exposes unlocked development accounts
func (c Context) HasDevelopmentAccounts() bool {
	return c.IsLocal() || c.IsForked()
}
