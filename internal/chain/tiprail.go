package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/aviorian/monad-mindshare/internal/config"
	"github.com/aviorian/monad-mindshare/internal/domain"
)

var (
	ErrReverted         = errors.New("chain: transaction reverted")
	ErrNotConfigured    = errors.New("chain: wallet not configured")
	ErrInvalidRecipient = errors.New("chain: invalid recipient address")
)

const tipRailABI = `[{
	"type": "function",
	"name": "tipBatchNative",
	"stateMutability": "payable",
	"inputs": [{
		"name": "tips",
		"type": "tuple[]",
		"components": [
			{"name": "recipient", "type": "address"},
			{"name": "amount", "type": "uint256"}
		]
	}],
	"outputs": []
}]`

const (
	defaultPollInterval = 2 * time.Second
	maxReceiptErrors    = 5
)

// Backend is the JSON-RPC surface TipRail needs. *ethclient.Client satisfies it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

type tip struct {
	Recipient common.Address
	Amount    *big.Int
}

// TipRail sends batch native transfers through the tip rail contract,
// signing locally with the configured key.
type TipRail struct {
	backend      Backend
	closer       func()
	key          *ecdsa.PrivateKey
	from         common.Address
	rail         common.Address
	abi          abi.ABI
	pollInterval time.Duration
	logger       *zap.Logger
}

// Dial connects to RPC_URL. Without RPC_URL or PRIVATE_KEY the returned rail
// reports itself disconnected instead of failing.
func Dial(ctx context.Context, cfg config.Config, logger *zap.Logger) (*TipRail, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RPCURL == "" || cfg.PrivateKey == "" {
		logger.Warn("RPC_URL or PRIVATE_KEY not set, batch transfers are disabled")
		return New(nil, nil, common.Address{}, cfg.ConfirmationPollInterval, logger)
	}
	if !common.IsHexAddress(cfg.TipRailAddress) {
		return nil, fmt.Errorf("invalid TIP_RAIL_ADDRESS %q", cfg.TipRailAddress)
	}
	key, err := crypto.HexToECDSA(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("parse PRIVATE_KEY: %w", err)
	}
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	rail, err := New(client, key, common.HexToAddress(cfg.TipRailAddress), cfg.ConfirmationPollInterval, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	rail.closer = client.Close
	return rail, nil
}

// New builds a TipRail over an existing backend. A nil backend or key yields
// a disconnected rail.
func New(backend Backend, key *ecdsa.PrivateKey, rail common.Address, pollInterval time.Duration, logger *zap.Logger) (*TipRail, error) {
	parsed, err := abi.JSON(strings.NewReader(tipRailABI))
	if err != nil {
		return nil, fmt.Errorf("parse tip rail abi: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	t := &TipRail{
		backend:      backend,
		key:          key,
		rail:         rail,
		abi:          parsed,
		pollInterval: pollInterval,
		logger:       logger.Named("tiprail"),
	}
	if key != nil {
		t.from = crypto.PubkeyToAddress(key.PublicKey)
	}
	return t, nil
}

// Connected reports whether a signer and an RPC endpoint are available.
func (t *TipRail) Connected() bool {
	return t.backend != nil && t.key != nil
}

// Sender is the address transfers are sent from.
func (t *TipRail) Sender() common.Address {
	return t.from
}

// ChainID returns the id of the chain the RPC endpoint serves.
func (t *TipRail) ChainID(ctx context.Context) (int64, error) {
	if !t.Connected() {
		return 0, ErrNotConfigured
	}
	id, err := t.backend.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("read chain id: %w", err)
	}
	return id.Int64(), nil
}

// Pack encodes the tipBatchNative call for req.
func (t *TipRail) Pack(req domain.TransferRequest) ([]byte, error) {
	tips := make([]tip, 0, len(req.Recipients))
	for _, r := range req.Recipients {
		if !common.IsHexAddress(r.Address) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRecipient, r.Address)
		}
		tips = append(tips, tip{Recipient: common.HexToAddress(r.Address), Amount: r.AmountWei})
	}
	data, err := t.abi.Pack("tipBatchNative", tips)
	if err != nil {
		return nil, fmt.Errorf("pack tipBatchNative: %w", err)
	}
	return data, nil
}

// SubmitBatchTransfer signs and broadcasts one tipBatchNative call carrying
// the request total as value. It returns the transaction hash.
func (t *TipRail) SubmitBatchTransfer(ctx context.Context, req domain.TransferRequest) (string, error) {
	if !t.Connected() {
		return "", ErrNotConfigured
	}
	data, err := t.Pack(req)
	if err != nil {
		return "", err
	}

	chainID, err := t.backend.ChainID(ctx)
	if err != nil {
		return "", fmt.Errorf("read chain id: %w", err)
	}
	nonce, err := t.backend.PendingNonceAt(ctx, t.from)
	if err != nil {
		return "", fmt.Errorf("read pending nonce: %w", err)
	}
	gas, err := t.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  t.from,
		To:    &t.rail,
		Value: req.TotalValueWei,
		Data:  data,
	})
	if err != nil {
		return "", fmt.Errorf("estimate gas: %w", err)
	}
	gas += gas / 5

	txData, err := t.feeFields(ctx, chainID, nonce, gas, req.TotalValueWei, data)
	if err != nil {
		return "", err
	}
	tx, err := types.SignNewTx(t.key, types.LatestSignerForChainID(chainID), txData)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}
	if err := t.backend.SendTransaction(ctx, tx); err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}

	t.logger.Info("batch transfer sent",
		zap.String("tx", tx.Hash().Hex()),
		zap.Uint64("nonce", nonce),
		zap.Int("recipients", len(req.Recipients)),
		zap.String("value_wei", req.TotalValueWei.String()),
	)
	return tx.Hash().Hex(), nil
}

func (t *TipRail) feeFields(ctx context.Context, chainID *big.Int, nonce, gas uint64, value *big.Int, data []byte) (types.TxData, error) {
	head, err := t.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("read latest header: %w", err)
	}
	if head.BaseFee == nil {
		price, err := t.backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("suggest gas price: %w", err)
		}
		return &types.LegacyTx{
			Nonce:    nonce,
			GasPrice: price,
			Gas:      gas,
			To:       &t.rail,
			Value:    value,
			Data:     data,
		}, nil
	}

	tipCap, err := t.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas tip cap: %w", err)
	}
	feeCap := new(big.Int).Add(tipCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	return &types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &t.rail,
		Value:     value,
		Data:      data,
	}, nil
}

// AwaitConfirmation polls for the receipt of txHash until it is mined.
// A failed receipt is ErrReverted.
func (t *TipRail) AwaitConfirmation(ctx context.Context, txHash string) error {
	if !t.Connected() {
		return ErrNotConfigured
	}
	hash := common.HexToHash(txHash)
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	var failures int
	for {
		receipt, err := t.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			if receipt.Status == types.ReceiptStatusFailed {
				return fmt.Errorf("%w: %s", ErrReverted, txHash)
			}
			t.logger.Info("batch transfer confirmed",
				zap.String("tx", txHash),
				zap.Stringer("block", receipt.BlockNumber),
				zap.Uint64("gas_used", receipt.GasUsed),
			)
			return nil
		case errors.Is(err, ethereum.NotFound):
			failures = 0
		default:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures++
			if failures >= maxReceiptErrors {
				return fmt.Errorf("read receipt %s: %w", txHash, err)
			}
			t.logger.Warn("read receipt", zap.String("tx", txHash), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (t *TipRail) Close() {
	if t.closer != nil {
		t.closer()
	}
}
