// File: internal/resolver/resolver.go
package resolver

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/eth-activity-monitor/pkg/utils"
)

// Resolver validates watch targets and reports the current chain position.
type Resolver interface {
	IsValidAddress(s string) bool
	IsValidName(s string) bool
	ResolveName(ctx context.Context, name string) (string, error)
	CurrentBlockNumber(ctx context.Context) (uint64, error)
}

// ensRegistryAddress is the ENS registry deployed on mainnet.
var ensRegistryAddress = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

// ENS method selectors: resolver(bytes32) and addr(bytes32).
var (
	resolverSelector = []byte{0x01, 0x78, 0xb8, 0xbf}
	addrSelector     = []byte{0x3b, 0x3b, 0x57, 0xde}
)

// EthResolver resolves against an Ethereum node.
type EthResolver struct {
	client *ethclient.Client
	logger *logrus.Logger
}

// Dial connects the resolver to a node.
func Dial(nodeURL string) (*EthResolver, error) {
	client, err := ethclient.Dial(nodeURL)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeSource, "Failed to dial Ethereum node", err.Error())
	}
	return &EthResolver{
		client: client,
		logger: utils.GetLogger(),
	}, nil
}

// Close releases the underlying connection.
func (r *EthResolver) Close() {
	r.client.Close()
}

// IsValidAddress reports whether s is a well-formed hex address.
func (r *EthResolver) IsValidAddress(s string) bool {
	return common.IsHexAddress(s)
}

// IsValidName reports whether s looks like an ENS name.
func (r *EthResolver) IsValidName(s string) bool {
	return strings.HasSuffix(s, ".eth") && len(s) > len(".eth")
}

// CurrentBlockNumber returns the chain head block number.
func (r *EthResolver) CurrentBlockNumber(ctx context.Context) (uint64, error) {
	n, err := r.client.BlockNumber(ctx)
	if err != nil {
		return 0, utils.NewAppError(utils.ErrCodeSource, "Failed to fetch current block number", err.Error())
	}
	return n, nil
}

// ResolveName resolves an ENS name to a hex address via the on-chain
// registry: look up the name's resolver, then ask it for the address.
func (r *EthResolver) ResolveName(ctx context.Context, name string) (string, error) {
	node := namehash(name)

	resolverAddr, err := r.callForAddress(ctx, ensRegistryAddress, resolverSelector, node)
	if err != nil {
		return "", err
	}
	if resolverAddr == (common.Address{}) {
		return "", utils.NewAppError(utils.ErrCodeNotFound, "No resolver configured for name", name)
	}

	addr, err := r.callForAddress(ctx, resolverAddr, addrSelector, node)
	if err != nil {
		return "", err
	}
	if addr == (common.Address{}) {
		return "", utils.NewAppError(utils.ErrCodeNotFound, "Name does not resolve to an address", name)
	}

	r.logger.WithFields(logrus.Fields{
		"name":    name,
		"address": addr.Hex(),
	}).Debug("Resolved ENS name")

	return addr.Hex(), nil
}

func (r *EthResolver) callForAddress(ctx context.Context, to common.Address, selector []byte, node [32]byte) (common.Address, error) {
	data := make([]byte, 0, 36)
	data = append(data, selector...)
	data = append(data, node[:]...)

	out, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return common.Address{}, utils.NewAppError(utils.ErrCodeSource, "ENS call failed", err.Error())
	}
	if len(out) < 32 {
		return common.Address{}, utils.NewAppError(utils.ErrCodeData, "Short ENS call result", "")
	}
	return common.BytesToAddress(out[12:32]), nil
}

// namehash implements the ENS name hashing algorithm.
func namehash(name string) [32]byte {
	var node [32]byte
	if name == "" {
		return node
	}

	labels := strings.Split(strings.ToLower(name), ".")
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := crypto.Keccak256([]byte(labels[i]))
		copy(node[:], crypto.Keccak256(node[:], labelHash))
	}
	return node
}
