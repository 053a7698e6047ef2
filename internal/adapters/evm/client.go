package evm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"

	"github.com/alejandrodnm/dexarb/internal/domain"
)

const (
	dialTimeout = 10 * time.Second

	// Burst pequeño: los quotes van paced por el evaluador, el limiter solo
	// protege contra ráfagas al arrancar un ciclo con muchos pares.
	limiterBurst = 5
)

// contractCaller es el subconjunto de ethclient.Client que usamos. Definirlo
// como interfaz permite stubear el nodo en tests.
type contractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Client envuelve el nodo RPC con rate limiting y clasificación de errores
// sobre la taxonomía del dominio.
type Client struct {
	eth     contractCaller
	limiter *rate.Limiter
}

// Dial conecta con el nodo RPC. ratePerSec limita las llamadas eth_call
// para respetar los límites del proveedor.
func Dial(rpcURL string, ratePerSec float64) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("evm.Dial: %q: %w", rpcURL, err)
	}
	return NewClient(eth, ratePerSec), nil
}

// NewClient crea un Client sobre un caller ya construido (o un stub en tests).
func NewClient(eth contractCaller, ratePerSec float64) *Client {
	if ratePerSec <= 0 {
		ratePerSec = 10
	}
	return &Client{
		eth:     eth,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), limiterBurst),
	}
}

// HeadBlock devuelve la altura actual de la cadena.
func (c *Client) HeadBlock(ctx context.Context) (uint64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	n, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("evm.HeadBlock: %v: %w", err, domain.ErrUnreachable)
	}
	return n, nil
}

// call ejecuta un eth_call contra el contrato dado y clasifica el error.
func (c *Client) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ret, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, classifyCallError(err)
	}
	return ret, nil
}

// revertError conserva la razón decodificada del revert (vacía si el nodo no
// devolvió datos). La razón vacía es la pista que usa la detección de esquema:
// un selector desconocido revierte sin datos, un pool sin liquidez suele
// revertir con mensaje.
type revertError struct {
	reason string
}

func (e *revertError) Error() string {
	if e.reason == "" {
		return "execution reverted"
	}
	return "execution reverted: " + e.reason
}

func (e *revertError) Unwrap() error { return domain.ErrRevertedCall }

// classifyCallError mapea el error crudo del RPC sobre la taxonomía del
// dominio. Las razones de revert conocidas de "no existe pool" se traducen a
// ErrNoRoute para que el consumidor distinga cero liquidez de fallo genuino.
func classifyCallError(err error) error {
	var de rpc.DataError
	if errors.As(err, &de) {
		reason := decodeRevertReason(de.ErrorData())
		if isNoRouteReason(reason) {
			return fmt.Errorf("evm: %s: %w", reason, domain.ErrNoRoute)
		}
		return &revertError{reason: reason}
	}
	if strings.Contains(err.Error(), "execution reverted") {
		return &revertError{}
	}
	return fmt.Errorf("evm: rpc: %v: %w", err, domain.ErrUnreachable)
}

// bareRevert indica un revert sin razón: el síntoma compatible con "esquema
// equivocado" que dispara la segunda variante durante la detección.
func bareRevert(err error) bool {
	var re *revertError
	return errors.As(err, &re) && re.reason == ""
}

// decodeRevertReason extrae el string de Error(string) si el nodo adjuntó
// los datos del revert.
func decodeRevertReason(data any) string {
	hexStr, ok := data.(string)
	if !ok || !strings.HasPrefix(hexStr, "0x") {
		return ""
	}
	raw, err := hexutil.Decode(hexStr)
	if err != nil {
		return ""
	}
	reason, err := abi.UnpackRevert(raw)
	if err != nil {
		return ""
	}
	return reason
}

// Razones de revert que significan "este venue no tiene pool para el par",
// no un fallo transitorio.
var noRouteMarkers = []string{
	"INSUFFICIENT_LIQUIDITY",
	"Invalid path",
	"pool does not exist",
}

func isNoRouteReason(reason string) bool {
	for _, m := range noRouteMarkers {
		if strings.Contains(reason, m) {
			return true
		}
	}
	return false
}
