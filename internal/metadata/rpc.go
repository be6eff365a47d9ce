package metadata

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"pool-analytics-lab/internal/observability"
)

const erc20ABI = `[
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"},
{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"type":"function"}
]`

// Some early tokens return bytes32 for symbol and name.
const erc20Bytes32ABI = `[
{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"bytes32"}],"type":"function"},
{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"bytes32"}],"type":"function"}
]`

const weightedPoolABI = `[
{"inputs":[],"name":"getNormalizedWeights","outputs":[{"name":"","type":"uint256[]"}],"stateMutability":"view","type":"function"}
]`

// Normalized weights are 18-decimal fixed point.
const weightDecimals = 18

var (
	parsedERC20        = mustParseABI(erc20ABI)
	parsedERC20Bytes32 = mustParseABI(erc20Bytes32ABI)
	parsedWeightedPool = mustParseABI(weightedPoolABI)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("metadata: parse abi: %v", err))
	}
	return parsed
}

// RPCOptions configures RPCSource.
type RPCOptions struct {
	// RequestsPerSecond limits outgoing calls. Zero means unlimited.
	RequestsPerSecond float64
	// Burst is the limiter bucket size. Zero derives it from RequestsPerSecond.
	Burst int
	// MaxRetries bounds retries per call.
	MaxRetries uint64
	// CallTimeout bounds a single attempt. Zero means no per-attempt timeout.
	CallTimeout time.Duration
	// NewBackOff builds the retry policy. Defaults to exponential backoff.
	NewBackOff func() backoff.BackOff
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// RPCSource reads token metadata and pool weights via eth_call.
type RPCSource struct {
	caller      ethereum.ContractCaller
	limiter     *rate.Limiter
	maxRetries  uint64
	callTimeout time.Duration
	newBackOff  func() backoff.BackOff
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// NewRPCSource creates an RPCSource over caller.
func NewRPCSource(caller ethereum.ContractCaller, opts RPCOptions) *RPCSource {
	limit := rate.Inf
	burst := 1
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		burst = int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		if opts.Burst > 0 {
			burst = opts.Burst
		}
	}
	newBackOff := opts.NewBackOff
	if newBackOff == nil {
		newBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RPCSource{
		caller:      caller,
		limiter:     rate.NewLimiter(limit, burst),
		maxRetries:  opts.MaxRetries,
		callTimeout: opts.CallTimeout,
		newBackOff:  newBackOff,
		logger:      logger,
		metrics:     opts.Metrics,
	}
}

// DialRPCSource connects to an Ethereum JSON-RPC endpoint.
// The returned close function releases the connection.
func DialRPCSource(ctx context.Context, url string, opts RPCOptions) (*RPCSource, func(), error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial rpc: %w", err)
	}
	return NewRPCSource(client, opts), client.Close, nil
}

// TryFetch implements Source. Each field is fetched independently; the
// lookup succeeds if any field resolved.
func (s *RPCSource) TryFetch(ctx context.Context, asset common.Address) (Metadata, bool) {
	var (
		md    Metadata
		found bool
	)

	if out, err := s.call(ctx, parsedERC20, asset, "decimals", nil); err == nil {
		if d, ok := out[0].(uint8); ok {
			md.Decimals = Int32(int32(d))
			found = true
		}
	}
	if sym, ok := s.fetchString(ctx, asset, "symbol"); ok {
		md.Symbol = sym
		found = true
	}
	if name, ok := s.fetchString(ctx, asset, "name"); ok {
		md.Name = name
		found = true
	}

	if !found {
		s.logger.Debug("token metadata unavailable", zap.String("asset", asset.Hex()))
	}
	return md, found
}

func (s *RPCSource) fetchString(ctx context.Context, asset common.Address, method string) (string, bool) {
	if out, err := s.call(ctx, parsedERC20, asset, method, nil); err == nil {
		if v, ok := out[0].(string); ok {
			return v, true
		}
	}
	out, err := s.call(ctx, parsedERC20Bytes32, asset, method, nil)
	if err != nil {
		return "", false
	}
	raw, ok := out[0].([32]byte)
	if !ok {
		return "", false
	}
	return strings.TrimRight(string(raw[:]), "\x00"), true
}

// TryWeights implements WeightSource. The call is pinned to block.
func (s *RPCSource) TryWeights(ctx context.Context, pool common.Address, block uint64) ([]decimal.Decimal, bool) {
	out, err := s.call(ctx, parsedWeightedPool, pool, "getNormalizedWeights", new(big.Int).SetUint64(block))
	if err != nil {
		return nil, false
	}
	raw, ok := out[0].([]*big.Int)
	if !ok {
		return nil, false
	}
	weights := make([]decimal.Decimal, len(raw))
	for i, w := range raw {
		weights[i] = decimal.NewFromBigInt(w, -weightDecimals)
	}
	return weights, true
}

// errEmptyResult marks a call to an address without code or method.
var errEmptyResult = errors.New("empty call result")

// call runs an eth_call at block, or at the chain head when block is nil.
func (s *RPCSource) call(ctx context.Context, contract abi.ABI, to common.Address, method string, block *big.Int) ([]interface{}, error) {
	input, err := contract.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	start := time.Now()
	var output []byte
	op := func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		callCtx := ctx
		if s.callTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, s.callTimeout)
			defer cancel()
		}
		out, err := s.caller.CallContract(callCtx, ethereum.CallMsg{To: &to, Data: input}, block)
		if err != nil {
			return err
		}
		if len(out) == 0 {
			return backoff.Permanent(errEmptyResult)
		}
		output = out
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), s.maxRetries), ctx)
	err = backoff.Retry(op, b)
	s.metrics.RecordRPC(method, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, to.Hex(), err)
	}

	values, err := contract.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: %w", method, errEmptyResult)
	}
	return values, nil
}
