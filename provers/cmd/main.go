package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	relayer "github.com/kysee/forcerelay/provers"
	"github.com/kysee/forcerelay/provers/ckbrpc"
	"github.com/kysee/forcerelay/provers/store"
	"github.com/kysee/forcerelay/provers/types"
)

const cmdTimeout = 2 * time.Minute

var config *types.Config

var rootCmd = &cobra.Command{
	Use:           "forcerelay",
	Short:         "Relay Ethereum transaction proofs to the CKB light client",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if config, err = types.NewConfig(cmd.Flags()); err != nil {
			return err
		}
		level, err := zerolog.ParseLevel(config.LogLevel)
		if err != nil {
			return errors.Wrap(err, "log-level")
		}
		zerolog.SetGlobalLevel(level)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		return config.Validate()
	},
}

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Print the authoritative light client on CKB",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
		defer cancel()

		r, closeFn, err := newRelayer(nil)
		if err != nil {
			return err
		}
		defer closeFn()

		client, err := r.OnChainClient(ctx)
		if err != nil {
			return err
		}
		return printJSON(client)
	},
}

var binaryCmd = &cobra.Command{
	Use:   "binary",
	Short: "Print the cell dep of the verifier binary",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
		defer cancel()

		r, closeFn, err := newRelayer(nil)
		if err != nil {
			return err
		}
		defer closeFn()

		dep, err := r.RefreshBinaryCellDep(ctx)
		if err != nil {
			return err
		}
		return printJSON(dep)
	},
}

var assembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Assemble the verification transaction of --tx included at --slot",
	Long: `Assemble the verification transaction of --tx included at --slot.

Only Capella beacon blocks are supported: the proofs follow the Capella block
body layout that the on-chain verifier checks. Blocks of later forks (Deneb,
Electra and onwards) are rejected by the beacon fetcher with an
"unsupported block version" error.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
		defer cancel()

		if config.Slot == 0 || config.TxHash == (common.Hash{}) {
			return errors.New("assemble needs --slot and --tx")
		}
		execution, err := ethclient.DialContext(ctx, config.ExecutionEndpoint)
		if err != nil {
			return errors.Wrap(err, "dial execution rpc")
		}
		defer execution.Close()

		fetcher := relayer.NewFileFetcher(config.RootDir, relayer.NewAPIFetcher(config.RPCEndpoint))
		listener := relayer.NewListener(fetcher, execution)

		headers, err := store.NewMemoryStore()
		if err != nil {
			return err
		}
		r, closeFn, err := newRelayer(headers)
		if err != nil {
			return err
		}
		defer closeFn()

		client, err := r.OnChainClient(ctx)
		if err != nil {
			return err
		}
		if err := listener.LoadHeaders(ctx, headers, client.Client.MinimalSlot, client.Client.MaximalSlot); err != nil {
			return err
		}
		req, err := listener.RelayRequest(ctx, config.Slot, config.TxHash)
		if err != nil {
			return err
		}
		tx, err := r.Relay(ctx, req)
		if err != nil {
			return err
		}
		return printJSON(tx)
	},
}

func newRelayer(consensus store.ConsensusStore) (*relayer.Relayer, func(), error) {
	rpc, err := ckbrpc.Dial(config.CkbEndpoint)
	if err != nil {
		return nil, nil, err
	}
	assembler := relayer.NewAssembler(rpc, config.ContractTypeArgs, config.BinaryTypeArgs, config.ClientTypeArgs())
	return relayer.NewRelayer(assembler, consensus), rpc.Close, nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func init() {
	types.Flags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(clientCmd, binaryCmd, assembleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Bool("recoverable", relayer.IsRecoverable(err)).Msg("forcerelay failed")
		os.Exit(1)
	}
}
