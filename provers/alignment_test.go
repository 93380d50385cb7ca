package relayer_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	relayer "github.com/kysee/forcerelay/provers"
	"github.com/kysee/forcerelay/provers/mocks"
	"github.com/kysee/forcerelay/types"
)

func TestCheckAlignment(t *testing.T) {
	client := types.Client{ID: 1, MinimalSlot: 5, MaximalSlot: 15}

	tests := []struct {
		name    string
		base    uint64
		tip     uint64
		wantErr bool
	}{
		{"base mismatch", 10, 20, true},
		{"base below client", 4, 20, true},
		{"tip behind client", 5, 14, true},
		{"tip equals maximal", 5, 15, false},
		{"tip beyond maximal", 5, 20, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			consensus := mocks.NewMockConsensusStore(ctrl)
			consensus.EXPECT().BaseHeaderSlot().Return(tt.base, true, nil)
			consensus.EXPECT().TipHeaderSlot().Return(tt.tip, true, nil)

			err := relayer.CheckAlignment(consensus, client)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, relayer.ErrMisalignment)
			require.Contains(t, err.Error(), "onchain client [5, 15]")
		})
	}
}

func TestCheckAlignmentUninitialized(t *testing.T) {
	client := types.Client{MinimalSlot: 5, MaximalSlot: 15}

	ctrl := gomock.NewController(t)
	consensus := mocks.NewMockConsensusStore(ctrl)
	consensus.EXPECT().BaseHeaderSlot().Return(uint64(0), false, nil)
	err := relayer.CheckAlignment(consensus, client)
	require.ErrorIs(t, err, relayer.ErrStoreUninitialized)
	require.ErrorIs(t, err, relayer.ErrMisalignment)

	consensus.EXPECT().BaseHeaderSlot().Return(uint64(5), true, nil)
	consensus.EXPECT().TipHeaderSlot().Return(uint64(0), false, nil)
	err = relayer.CheckAlignment(consensus, client)
	require.ErrorIs(t, err, relayer.ErrStoreUninitialized)
}

func TestCheckAlignmentStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	consensus := mocks.NewMockConsensusStore(ctrl)
	boom := errors.New("disk failure")
	consensus.EXPECT().BaseHeaderSlot().Return(uint64(0), false, boom)

	err := relayer.CheckAlignment(consensus, types.Client{})
	require.ErrorIs(t, err, boom)
	require.False(t, relayer.IsRecoverable(err))
}
