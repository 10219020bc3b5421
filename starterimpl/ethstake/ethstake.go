// Package ethstake looks staked amounts up from a staking contract on an
// EVM chain. It only reads; stake placement and withdrawal are handled by the
// contract's own tooling.
package ethstake

import (
	"context"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"

	"github.com/OmniBazaar/participation/qualify"
	"github.com/OmniBazaar/participation/score"
)

const stakingABI = `[{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"stakeOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`

type contractStakingSource struct {
	caller   ethereum.ContractCaller
	contract common.Address
	abi      abi.ABI
}

// NewStakingSource returns a qualify.StakingSource that calls
// stakeOf(address) on the staking contract through the supplied caller.
func NewStakingSource(caller ethereum.ContractCaller, contract common.Address) (qualify.StakingSource, error) {
	if caller == nil {
		return nil, errors.New("staking source requires a contract caller")
	}
	parsed, err := abi.JSON(strings.NewReader(stakingABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse staking contract ABI")
	}
	return &contractStakingSource{caller: caller, contract: contract, abi: parsed}, nil
}

// Dial connects to an EVM RPC endpoint and wires a staking source against the
// contract at contractHex.
func Dial(ctx context.Context, rpcEndpoint, contractHex string) (qualify.StakingSource, error) {
	if !common.IsHexAddress(contractHex) {
		return nil, errors.Errorf("invalid staking contract address: %s", contractHex)
	}
	client, err := ethclient.DialContext(ctx, rpcEndpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", rpcEndpoint)
	}
	return NewStakingSource(client, common.HexToAddress(contractHex))
}

func (s *contractStakingSource) StakingAmount(ctx context.Context, address score.Address) (*big.Int, error) {
	if !common.IsHexAddress(string(address)) {
		return nil, errors.Errorf("address %s is not a valid EVM address", address)
	}

	data, err := s.abi.Pack("stakeOf", common.HexToAddress(string(address)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode stakeOf call")
	}

	out, err := s.caller.CallContract(ctx, ethereum.CallMsg{To: &s.contract, Data: data}, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "stakeOf call for %s failed", address)
	}

	results, err := s.abi.Unpack("stakeOf", out)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode stakeOf result for %s", address)
	}
	amount, ok := results[0].(*big.Int)
	if !ok {
		return nil, errors.Errorf("stakeOf returned unexpected type %T", results[0])
	}
	return amount, nil
}
