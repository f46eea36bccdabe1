package uniswap

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Read surface of the NonfungiblePositionManager contract. decreaseLiquidity
// and collect are state-changing on chain but are only ever used here through
// eth_call to simulate what a full withdrawal / fee collection would return.
const positionManagerABI = `[
  {"name":"balanceOf","type":"function","stateMutability":"view",
   "inputs":[{"name":"owner","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"name":"tokenOfOwnerByIndex","type":"function","stateMutability":"view",
   "inputs":[{"name":"owner","type":"address"},{"name":"index","type":"uint256"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"name":"positions","type":"function","stateMutability":"view",
   "inputs":[{"name":"tokenId","type":"uint256"}],
   "outputs":[
     {"name":"nonce","type":"uint96"},
     {"name":"operator","type":"address"},
     {"name":"token0","type":"address"},
     {"name":"token1","type":"address"},
     {"name":"fee","type":"uint24"},
     {"name":"tickLower","type":"int24"},
     {"name":"tickUpper","type":"int24"},
     {"name":"liquidity","type":"uint128"},
     {"name":"feeGrowthInside0LastX128","type":"uint256"},
     {"name":"feeGrowthInside1LastX128","type":"uint256"},
     {"name":"tokensOwed0","type":"uint128"},
     {"name":"tokensOwed1","type":"uint128"}]},
  {"name":"decreaseLiquidity","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"params","type":"tuple","components":[
     {"name":"tokenId","type":"uint256"},
     {"name":"liquidity","type":"uint128"},
     {"name":"amount0Min","type":"uint256"},
     {"name":"amount1Min","type":"uint256"},
     {"name":"deadline","type":"uint256"}]}],
   "outputs":[{"name":"amount0","type":"uint256"},{"name":"amount1","type":"uint256"}]},
  {"name":"collect","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"params","type":"tuple","components":[
     {"name":"tokenId","type":"uint256"},
     {"name":"recipient","type":"address"},
     {"name":"amount0Max","type":"uint128"},
     {"name":"amount1Max","type":"uint128"}]}],
   "outputs":[{"name":"amount0","type":"uint256"},{"name":"amount1","type":"uint256"}]}
]`

func mustParseABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(positionManagerABI))
	if err != nil {
		panic(err)
	}
	return parsed
}

var maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
