package evm

// abis.go — ABIs mínimos de quoting, uno por familia de AMM. Solo declaramos
// la función que usamos: el adapter extrae únicamente la cantidad de salida
// y descarta el resto de campos que devuelva cada venue.

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Router estilo Uniswap V2: el último elemento del array es el output.
const v2RouterABI = `[{"name":"getAmountsOut","type":"function","stateMutability":"view","inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],"outputs":[{"name":"amounts","type":"uint256[]"}]}]`

// QuoterV2 estilo Uniswap V3: parámetros en struct, devuelve amountOut más
// campos auxiliares (precio posterior, ticks cruzados, estimación de gas).
const quoterV2ABI = `[{"name":"quoteExactInputSingle","type":"function","stateMutability":"nonpayable","inputs":[{"name":"params","type":"tuple","components":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"fee","type":"uint24"},{"name":"sqrtPriceLimitX96","type":"uint160"}]}],"outputs":[{"name":"amountOut","type":"uint256"},{"name":"sqrtPriceX96After","type":"uint160"},{"name":"initializedTicksCrossed","type":"uint32"},{"name":"gasEstimate","type":"uint256"}]}]`

// Quoter estilo Algebra, variante moderna ("integral"): parámetros en struct.
// Convive en producción con la variante legacy de abajo; ambas responden a
// selectores distintos, de ahí la detección perezosa de esquema.
const algebraStructABI = `[{"name":"quoteExactInputSingle","type":"function","stateMutability":"nonpayable","inputs":[{"name":"params","type":"tuple","components":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"limitSqrtPrice","type":"uint160"}]}],"outputs":[{"name":"amountOut","type":"uint256"},{"name":"sqrtPriceX96After","type":"uint160"},{"name":"initializedTicksCrossed","type":"uint32"},{"name":"gasEstimate","type":"uint256"},{"name":"fee","type":"uint16"}]}]`

// Quoter estilo Algebra, variante legacy: parámetros planos, devuelve el
// fee dinámico aplicado como segundo valor.
const algebraFlatABI = `[{"name":"quoteExactInputSingle","type":"function","stateMutability":"nonpayable","inputs":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"limitSqrtPrice","type":"uint160"}],"outputs":[{"name":"amountOut","type":"uint256"},{"name":"fee","type":"uint16"}]}]`

// Quoter estilo Liquidity Book: amountIn es uint128 (de ahí el clamp) y la
// respuesta es un struct con la ruta completa; amounts[len-1] es el output.
const lbQuoterABI = `[{"name":"findBestPathFromAmountIn","type":"function","stateMutability":"view","inputs":[{"name":"route","type":"address[]"},{"name":"amountIn","type":"uint128"}],"outputs":[{"name":"quote","type":"tuple","components":[{"name":"route","type":"address[]"},{"name":"pairs","type":"address[]"},{"name":"binSteps","type":"uint256[]"},{"name":"versions","type":"uint8[]"},{"name":"amounts","type":"uint128[]"},{"name":"virtualAmountsWithoutSlippage","type":"uint128[]"},{"name":"fees","type":"uint128[]"}]}]}]`

var (
	abiV2Router      = mustABI(v2RouterABI)
	abiQuoterV2      = mustABI(quoterV2ABI)
	abiAlgebraStruct = mustABI(algebraStructABI)
	abiAlgebraFlat   = mustABI(algebraFlatABI)
	abiLBQuoter      = mustABI(lbQuoterABI)
)

func mustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("evm: ABI inválido: " + err.Error())
	}
	return parsed
}
