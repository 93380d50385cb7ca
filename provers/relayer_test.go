package relayer_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ckbtypes "github.com/nervosnetwork/ckb-sdk-go/v2/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/kysee/forcerelay/internal/fixture"
	relayer "github.com/kysee/forcerelay/provers"
	"github.com/kysee/forcerelay/provers/ckbrpc"
	"github.com/kysee/forcerelay/provers/store"
	"github.com/kysee/forcerelay/types"
	"github.com/kysee/forcerelay/verification"
)

var (
	contractTypeArgs = common.FromHex("0xc0ffee0000000000000000000000000000000000000000000000000000000001")
	binaryTypeArgs   = common.FromHex("0xb1b1b10000000000000000000000000000000000000000000000000000000002")
	alwaysSuccess    = &ckbtypes.Script{CodeHash: ckbtypes.Hash{0x11}, HashType: ckbtypes.HashTypeData1}
)

type testEnv struct {
	world      *fixture.World
	rpc        *ckbrpc.MockClient
	store      *store.MemoryStore
	args       types.ClientTypeArgs
	typeScript *ckbtypes.Script
	assembler  *relayer.Assembler
	relayer    *relayer.Relayer

	clientOutPoint *ckbtypes.OutPoint
	binaryOutPoint *ckbtypes.OutPoint
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	w, err := fixture.Build(fixture.DefaultOptions())
	require.NoError(t, err)
	s, err := store.NewMemoryStore(w.Headers...)
	require.NoError(t, err)

	env := &testEnv{
		world: w,
		rpc:   ckbrpc.NewMockClient(),
		store: s,
		args:  types.ClientTypeArgs{TypeID: common.HexToHash("0x1d"), CellsCount: 3},
	}
	env.typeScript = relayer.LightClientTypeScript(contractTypeArgs, env.args)
	env.assembler = relayer.NewAssembler(env.rpc, contractTypeArgs, binaryTypeArgs, env.args)
	env.relayer = relayer.NewRelayer(env.assembler, s)
	return env
}

// deploy puts a stale client, the fixture client (id 1), the client info and
// the verifier binary on chain.
func (e *testEnv) deploy() {
	stale := e.world.Client
	stale.ID = 0
	stale.MaximalSlot--
	stale.HeadersMmrRoot = types.HeaderDigest{ChildrenHash: common.HexToHash("0x5ca1e")}

	e.rpc.Deploy(alwaysSuccess, e.typeScript, stale.Pack())
	e.clientOutPoint = e.rpc.Deploy(alwaysSuccess, e.typeScript, e.world.Client.Pack())
	e.rpc.Deploy(alwaysSuccess, e.typeScript, types.ClientInfo{LastID: 1, MinimalHeadersCount: 8}.Pack())
	e.binaryOutPoint = e.rpc.Deploy(alwaysSuccess, relayer.MakeTypeIDScript(binaryTypeArgs), []byte("verifier binary"))
}

func (e *testEnv) request(txIndex int) *relayer.RelayRequest {
	return &relayer.RelayRequest{
		Block:       e.world.Cached,
		Transaction: e.world.Transactions[txIndex],
		Receipts:    e.world.Receipts,
	}
}

func witnessField(t *testing.T, witness []byte, index int) []byte {
	t.Helper()
	fields, err := types.UnpackTable(witness, 3)
	require.NoError(t, err)
	require.NotEmpty(t, fields[index])
	data, err := types.UnpackBytes(fields[index])
	require.NoError(t, err)
	return data
}

func TestMakeTypeIDScript(t *testing.T) {
	args := []byte{1, 2, 3}
	script := relayer.MakeTypeIDScript(args)
	args[0] = 9

	require.Equal(t, "0x00000000000000000000000000000000000000000000000000545950455f4944", "0x"+common.Bytes2Hex(script.CodeHash[:]))
	require.Equal(t, ckbtypes.HashTypeType, script.HashType)
	require.Equal(t, []byte{1, 2, 3}, script.Args)
}

func TestLightClientTypeScript(t *testing.T) {
	args := types.ClientTypeArgs{TypeID: common.HexToHash("0x1d"), CellsCount: 3}
	script := relayer.LightClientTypeScript(contractTypeArgs, args)
	require.Equal(t, relayer.MakeTypeIDScript(contractTypeArgs).Hash(), script.CodeHash)
	require.Equal(t, args.Pack(), script.Args)
	require.Len(t, script.Args, types.ClientTypeArgsSize)
}

func TestRelay(t *testing.T) {
	env := newTestEnv(t)
	env.deploy()

	for i := range env.world.Transactions {
		tx, err := env.relayer.Relay(context.Background(), env.request(i))
		require.NoError(t, err)

		require.Len(t, tx.CellDeps, 2)
		require.Equal(t, *env.binaryOutPoint, *tx.CellDeps[0].OutPoint)
		require.Equal(t, *env.clientOutPoint, *tx.CellDeps[1].OutPoint)
		for _, dep := range tx.CellDeps {
			require.Equal(t, ckbtypes.DepTypeCode, dep.DepType)
		}
		require.Empty(t, tx.Inputs)
		require.Empty(t, tx.Outputs)
		require.Len(t, tx.Witnesses, 1)

		packedProof := witnessField(t, tx.Witnesses[0], 1)
		packedPayload := witnessField(t, tx.Witnesses[0], 2)
		require.NoError(t, verification.VerifyTransactionProof(env.world.Client, packedProof))
		proof, err := types.DecodeTransactionProof(packedProof)
		require.NoError(t, err)
		require.Equal(t, uint64(i), proof.TransactionIndex)
		require.NoError(t, verification.VerifyPayload(proof, packedPayload))

		payload, err := types.DecodeTransactionPayload(packedPayload)
		require.NoError(t, err)
		raw, err := env.world.Transactions[i].MarshalBinary()
		require.NoError(t, err)
		require.Equal(t, raw, payload.Transaction)
	}
}

func TestRelayWithoutClient(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.relayer.Relay(context.Background(), env.request(0))
	require.ErrorIs(t, err, relayer.ErrNotFound)
	require.True(t, relayer.IsRecoverable(err))
	require.Contains(t, err.Error(), "no lightclient cell deployed on ckb")
}

func TestRelayWithoutBinary(t *testing.T) {
	env := newTestEnv(t)
	env.deploy()
	require.True(t, env.rpc.Consume(env.binaryOutPoint))

	_, err := env.relayer.Relay(context.Background(), env.request(0))
	require.ErrorIs(t, err, relayer.ErrNotFound)
	require.Contains(t, err.Error(), "light client binary cell not found")
}

func TestRelayMisalignedStore(t *testing.T) {
	env := newTestEnv(t)
	env.deploy()
	env.store.Prune(env.world.Client.MinimalSlot + 1)

	_, err := env.relayer.Relay(context.Background(), env.request(0))
	require.ErrorIs(t, err, relayer.ErrMisalignment)
	require.True(t, relayer.IsRecoverable(err))
	require.Contains(t, err.Error(), "please wait a while")
}

func TestRelayRpcFailure(t *testing.T) {
	env := newTestEnv(t)
	env.deploy()
	boom := errors.New("connection reset by peer")
	env.rpc.FailWith(boom)

	_, err := env.relayer.Relay(context.Background(), env.request(0))
	require.ErrorIs(t, err, boom)
	require.False(t, relayer.IsRecoverable(err))
	require.Equal(t, 1, env.rpc.Calls())
}

func TestRelayIncompleteRequest(t *testing.T) {
	env := newTestEnv(t)
	env.deploy()

	full := env.request(0)
	noBlock, noTx, noReceipts := *full, *full, *full
	noBlock.Block = nil
	noTx.Transaction = nil
	noReceipts.Receipts = nil

	for _, req := range []*relayer.RelayRequest{nil, &noBlock, &noTx, &noReceipts} {
		var err error
		require.NotPanics(t, func() {
			_, err = env.relayer.Relay(context.Background(), req)
		})
		require.ErrorIs(t, err, relayer.ErrIncompleteRequest)
		require.False(t, relayer.IsRecoverable(err))
	}
	require.Zero(t, env.rpc.Calls())
}

func TestRefreshBinaryCellDepIsFresh(t *testing.T) {
	env := newTestEnv(t)
	env.deploy()

	first, err := env.relayer.RefreshBinaryCellDep(context.Background())
	require.NoError(t, err)
	require.Equal(t, *env.binaryOutPoint, *first.OutPoint)

	require.True(t, env.rpc.Consume(env.binaryOutPoint))
	upgraded := env.rpc.Deploy(alwaysSuccess, relayer.MakeTypeIDScript(binaryTypeArgs), []byte("verifier binary v2"))
	second, err := env.relayer.RefreshBinaryCellDep(context.Background())
	require.NoError(t, err)
	require.Equal(t, *upgraded, *second.OutPoint)
	require.NotEqual(t, *first.OutPoint, *second.OutPoint)
}

func TestSkeletonIsDeterministic(t *testing.T) {
	env := newTestEnv(t)
	env.deploy()
	client, err := env.relayer.OnChainClient(context.Background())
	require.NoError(t, err)

	proof, payload, err := relayer.AssembleProof(client.Client, env.store, env.world.Cached,
		env.world.Transactions[0], env.world.Receipts)
	require.NoError(t, err)

	binary := &ckbtypes.CellDep{OutPoint: env.binaryOutPoint, DepType: ckbtypes.DepTypeCode}
	a := relayer.AssemblePartialVerificationTransaction(proof, payload, binary, client.CellDep)
	b := relayer.AssemblePartialVerificationTransaction(proof, payload, binary, client.CellDep)
	require.Equal(t, a, b)
	require.Equal(t, proof.Pack(), witnessField(t, a.Witnesses[0], 1))
	require.Equal(t, payload.Pack(), witnessField(t, a.Witnesses[0], 2))

	fields, err := types.UnpackTable(a.Witnesses[0], 3)
	require.NoError(t, err)
	require.Empty(t, fields[0])
}
