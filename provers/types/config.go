package types

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kysee/forcerelay/types"
)

const envPrefix = "FORCERELAY"

// Config holds the relayer configuration
type Config struct {
	RootDir string

	// RPCEndpoint is the beacon node REST endpoint
	RPCEndpoint string
	// ExecutionEndpoint is the execution node JSON-RPC endpoint
	ExecutionEndpoint string
	// CkbEndpoint is the CKB node RPC endpoint, with the indexer module enabled
	CkbEndpoint string

	// ContractTypeArgs are the type-id args of the light client contract cell
	ContractTypeArgs types.HexBytes
	// BinaryTypeArgs are the type-id args of the verifier binary cell
	BinaryTypeArgs types.HexBytes
	ClientTypeID   common.Hash
	CellsCount     uint8

	Slot     uint64
	TxHash   common.Hash
	LogLevel string
}

// Flags registers every config key on fs.
func Flags(fs *pflag.FlagSet) {
	fs.String("root", ".", "working directory for cached beacon data")
	fs.String("rpc", "https://lodestar-sepolia.chainsafe.io/", "beacon node REST endpoint")
	fs.String("execution-rpc", "http://127.0.0.1:8545", "execution node JSON-RPC endpoint")
	fs.String("ckb-rpc", "http://127.0.0.1:8114", "CKB node RPC endpoint")
	fs.String("contract-type-args", "", "type-id args of the light client contract cell (hex)")
	fs.String("binary-type-args", "", "type-id args of the verifier binary cell (hex)")
	fs.String("client-type-id", "", "type id of the light client group (hex, 32 bytes)")
	fs.Uint8("cells-count", 3, "number of cells in the light client group")
	fs.Uint64("slot", 0, "beacon slot of the block to prove")
	fs.String("tx", "", "hash of the transaction to prove")
	fs.String("log-level", "info", "log level")
}

// NewConfig reads the config from fs, falling back to FORCERELAY_* env vars.
func NewConfig(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, errors.Wrap(err, "bind flags")
	}

	config := &Config{
		RootDir:           v.GetString("root"),
		RPCEndpoint:       v.GetString("rpc"),
		ExecutionEndpoint: v.GetString("execution-rpc"),
		CkbEndpoint:       v.GetString("ckb-rpc"),
		CellsCount:        uint8(v.GetUint("cells-count")),
		Slot:              v.GetUint64("slot"),
		LogLevel:          v.GetString("log-level"),
	}

	var err error
	if config.ContractTypeArgs, err = hexArg(v, "contract-type-args"); err != nil {
		return nil, err
	}
	if config.BinaryTypeArgs, err = hexArg(v, "binary-type-args"); err != nil {
		return nil, err
	}
	if s := v.GetString("client-type-id"); s != "" {
		if config.ClientTypeID, err = types.HexToHash(s); err != nil {
			return nil, errors.Wrap(err, "client-type-id")
		}
	}
	if s := v.GetString("tx"); s != "" {
		if config.TxHash, err = types.HexToHash(s); err != nil {
			return nil, errors.Wrap(err, "tx")
		}
	}
	return config, nil
}

func hexArg(v *viper.Viper, key string) (types.HexBytes, error) {
	s := v.GetString(key)
	if s == "" {
		return nil, nil
	}
	b, err := types.HexToBytes(s)
	if err != nil {
		return nil, errors.Wrap(err, key)
	}
	return b, nil
}

// ClientTypeArgs are the args of the light client type script.
func (c *Config) ClientTypeArgs() types.ClientTypeArgs {
	return types.ClientTypeArgs{TypeID: c.ClientTypeID, CellsCount: c.CellsCount}
}

// Validate reports the first missing setting needed to reach the light client on CKB.
func (c *Config) Validate() error {
	switch {
	case c.CkbEndpoint == "":
		return errors.New("ckb-rpc is required")
	case len(c.ContractTypeArgs) == 0:
		return errors.New("contract-type-args is required")
	case len(c.BinaryTypeArgs) == 0:
		return errors.New("binary-type-args is required")
	case c.ClientTypeID == (common.Hash{}):
		return errors.New("client-type-id is required")
	case c.CellsCount < 2:
		return errors.Errorf("cells-count %d is too small, a group holds at least one client and its info", c.CellsCount)
	}
	return nil
}
