package uniswap

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Position is the cached on-chain state of one LP position NFT. Withdrawable
// amounts come from a simulated full decreaseLiquidity, collectable amounts
// from a simulated collect of the owed fees. All amounts are raw fixed-point
// token integers.
type Position struct {
	TokenID       *big.Int
	Token0        common.Address
	Token1        common.Address
	Liquidity     *big.Int
	Withdrawable0 *big.Int
	Withdrawable1 *big.Int
	Collectable0  *big.Int
	Collectable1  *big.Int
}

// Client reads LP positions from a Uniswap V3 style NonfungiblePositionManager.
// It keeps an internal position table that Sync replaces wholesale; it is driven
// by a single goroutine per monitored pair.
type Client struct {
	eth       *ethclient.Client
	contract  common.Address
	abi       abi.ABI
	log       *zap.Logger
	positions map[string]Position
}

func Dial(ctx context.Context, rpcURL string, contract common.Address, log *zap.Logger) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return &Client{
		eth:       eth,
		contract:  contract,
		abi:       mustParseABI(),
		log:       log,
		positions: make(map[string]Position),
	}, nil
}

func (c *Client) Close() {
	if c.eth != nil {
		c.eth.Close()
	}
}

// Positions returns the table built by the last Sync, keyed by NFT token id.
func (c *Client) Positions() map[string]Position {
	return c.positions
}

// Sync enumerates all positions owned by owner and rebuilds the internal
// table, returning the block height all reads were pinned to. Pinning keeps
// the table internally consistent. Per-position simulation failures leave
// that position's amounts at zero; enumeration failures abort the sync.
func (c *Client) Sync(ctx context.Context, owner common.Address) (uint64, error) {
	height, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("block number: %w", err)
	}
	block := new(big.Int).SetUint64(height)

	balance, err := c.balanceOf(ctx, owner, block)
	if err != nil {
		return 0, fmt.Errorf("balanceOf: %w", err)
	}

	table := make(map[string]Position, balance)
	for index := uint64(0); index < balance; index++ {
		tokenID, err := c.tokenOfOwnerByIndex(ctx, owner, index, block)
		if err != nil {
			return 0, fmt.Errorf("tokenOfOwnerByIndex(%d): %w", index, err)
		}
		position, err := c.readPosition(ctx, owner, tokenID, block)
		if err != nil {
			return 0, fmt.Errorf("position %s: %w", tokenID, err)
		}
		table[tokenID.String()] = position
	}
	c.positions = table
	if c.log != nil {
		c.log.Debug("lp positions synced",
			zap.Uint64("block", height),
			zap.Int("positions", len(table)),
		)
	}
	return height, nil
}

func (c *Client) readPosition(ctx context.Context, owner common.Address, tokenID, block *big.Int) (Position, error) {
	out, err := c.call(ctx, owner, block, "positions", tokenID)
	if err != nil {
		return Position{}, err
	}
	if len(out) != 12 {
		return Position{}, fmt.Errorf("positions returned %d values", len(out))
	}
	token0, ok0 := out[2].(common.Address)
	token1, ok1 := out[3].(common.Address)
	liquidity, okL := out[7].(*big.Int)
	if !ok0 || !ok1 || !okL {
		return Position{}, errors.New("positions returned unexpected types")
	}

	position := Position{
		TokenID:       tokenID,
		Token0:        token0,
		Token1:        token1,
		Liquidity:     liquidity,
		Withdrawable0: new(big.Int),
		Withdrawable1: new(big.Int),
		Collectable0:  new(big.Int),
		Collectable1:  new(big.Int),
	}

	if liquidity.Sign() > 0 {
		amount0, amount1, err := c.simulateDecrease(ctx, owner, tokenID, liquidity, block)
		if err == nil {
			position.Withdrawable0 = amount0
			position.Withdrawable1 = amount1
		} else if c.log != nil {
			c.log.Debug("decreaseLiquidity simulation failed", zap.String("token_id", tokenID.String()), zap.Error(err))
		}
	}

	amount0, amount1, err := c.simulateCollect(ctx, owner, tokenID, block)
	if err == nil {
		position.Collectable0 = amount0
		position.Collectable1 = amount1
	} else if c.log != nil {
		c.log.Debug("collect simulation failed", zap.String("token_id", tokenID.String()), zap.Error(err))
	}
	return position, nil
}

func (c *Client) balanceOf(ctx context.Context, owner common.Address, block *big.Int) (uint64, error) {
	out, err := c.call(ctx, owner, block, "balanceOf", owner)
	if err != nil {
		return 0, err
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return 0, errors.New("balanceOf returned unexpected type")
	}
	return balance.Uint64(), nil
}

func (c *Client) tokenOfOwnerByIndex(ctx context.Context, owner common.Address, index uint64, block *big.Int) (*big.Int, error) {
	out, err := c.call(ctx, owner, block, "tokenOfOwnerByIndex", owner, new(big.Int).SetUint64(index))
	if err != nil {
		return nil, err
	}
	tokenID, ok := out[0].(*big.Int)
	if !ok {
		return nil, errors.New("tokenOfOwnerByIndex returned unexpected type")
	}
	return tokenID, nil
}

func (c *Client) simulateDecrease(ctx context.Context, owner common.Address, tokenID, liquidity, block *big.Int) (*big.Int, *big.Int, error) {
	params := struct {
		TokenId    *big.Int
		Liquidity  *big.Int
		Amount0Min *big.Int
		Amount1Min *big.Int
		Deadline   *big.Int
	}{
		TokenId:    tokenID,
		Liquidity:  liquidity,
		Amount0Min: new(big.Int),
		Amount1Min: new(big.Int),
		Deadline:   new(big.Int).SetUint64(^uint64(0)),
	}
	out, err := c.call(ctx, owner, block, "decreaseLiquidity", params)
	if err != nil {
		return nil, nil, err
	}
	return amountPair(out)
}

func (c *Client) simulateCollect(ctx context.Context, owner common.Address, tokenID, block *big.Int) (*big.Int, *big.Int, error) {
	params := struct {
		TokenId    *big.Int
		Recipient  common.Address
		Amount0Max *big.Int
		Amount1Max *big.Int
	}{
		TokenId:    tokenID,
		Recipient:  owner,
		Amount0Max: maxUint128,
		Amount1Max: maxUint128,
	}
	out, err := c.call(ctx, owner, block, "collect", params)
	if err != nil {
		return nil, nil, err
	}
	return amountPair(out)
}

// call packs method+args, performs eth_call pinned to block from the owner
// address, and unpacks the raw return values.
func (c *Client) call(ctx context.Context, from common.Address, block *big.Int, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{
		From: from,
		To:   &c.contract,
		Data: data,
	}, block)
	if err != nil {
		return nil, err
	}
	out, err := c.abi.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

func amountPair(out []interface{}) (*big.Int, *big.Int, error) {
	if len(out) != 2 {
		return nil, nil, fmt.Errorf("expected amount pair, got %d values", len(out))
	}
	amount0, ok0 := out[0].(*big.Int)
	amount1, ok1 := out[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, nil, errors.New("amount pair has unexpected types")
	}
	return amount0, amount1, nil
}
