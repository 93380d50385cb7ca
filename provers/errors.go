package relayer

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/kysee/forcerelay/verification"
)

var (
	// ErrNotFound: nothing deployed or matched yet; retry later.
	ErrNotFound = errors.New("not found")
	// ErrCorruption: on-chain state breaks the light client invariants.
	ErrCorruption = errors.New("onchain corruption")
	// ErrMisalignment: local headers do not cover the on-chain client window yet.
	ErrMisalignment = errors.New("misaligned")
	// ErrVerification: the assembled proof or payload failed self-verification.
	ErrVerification = errors.New("verification failed")
	// ErrDivergence: beacon and execution views disagree on a transaction.
	ErrDivergence = errors.New("divergence")
	// ErrIncompleteRequest: a relay request lacks its block, transaction or receipts.
	ErrIncompleteRequest = errors.New("incomplete relay request")
)

// VerifyStage names which verifier entry point rejected the assembled data.
type VerifyStage string

const (
	StageProof   VerifyStage = "proof"
	StagePayload VerifyStage = "payload"
)

// VerifyError carries the verifier's diagnostic code.
type VerifyError struct {
	Stage VerifyStage
	Code  verification.ErrorCode
}

func (e *VerifyError) Error() string {
	if e.Stage == StagePayload {
		return fmt.Sprintf("verify payload proof error %d (%s)", int8(e.Code), e.Code)
	}
	return fmt.Sprintf("verify transaction proof error %d (%s)", int8(e.Code), e.Code)
}

func (e *VerifyError) Unwrap() error {
	return ErrVerification
}

func verifyError(stage VerifyStage, err error) error {
	var code verification.ErrorCode
	if !errors.As(err, &code) {
		return errors.Wrapf(ErrVerification, "%s: %v", stage, err)
	}
	return &VerifyError{Stage: stage, Code: code}
}

// IsRecoverable reports whether the attempt may succeed later without any change.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrMisalignment)
}
