package domain

import "github.com/ethereum/go-ethereum/common"

// AMMFamily identifica el modelo de pricing del venue. Cada familia tiene su
// propio esquema de llamada on-chain, así que el adapter de quoting la usa
// para decidir cómo codificar y decodificar la petición.
type AMMFamily int

const (
	FamilyConstantProduct AMMFamily = iota // router estilo Uniswap V2 (x*y=k)
	FamilyConcentrated                     // liquidez concentrada, QuoterV2 estilo Uniswap V3
	FamilyDynamicFee                       // fee dinámico estilo Algebra (dos esquemas incompatibles en producción)
	FamilyLiquidityBook                    // bins discretizados estilo Liquidity Book
)

func (f AMMFamily) String() string {
	switch f {
	case FamilyConstantProduct:
		return "constant-product"
	case FamilyConcentrated:
		return "concentrated"
	case FamilyDynamicFee:
		return "dynamic-fee"
	case FamilyLiquidityBook:
		return "liquidity-book"
	default:
		return "unknown"
	}
}

// ParseAMMFamily convierte el tag de configuración en una AMMFamily.
func ParseAMMFamily(s string) (AMMFamily, bool) {
	switch s {
	case "v2", "constant-product":
		return FamilyConstantProduct, true
	case "v3", "concentrated":
		return FamilyConcentrated, true
	case "algebra", "dynamic-fee":
		return FamilyDynamicFee, true
	case "lb", "liquidity-book":
		return FamilyLiquidityBook, true
	default:
		return 0, false
	}
}

// Venue es un AMM desplegado contra el que pedimos quotes.
// Inmutable tras cargar la configuración.
type Venue struct {
	Name   string
	Family AMMFamily
	Quoter common.Address // punto de entrada de quoting (router o quoter según familia)
}
