package flash

import "errors"

var (
	// ErrMemoryNotReachable reports a request outside the writable
	// sectors, or a sector with no hardware erase index. Not retryable.
	ErrMemoryNotReachable = errors.New("flash: memory not reachable")

	// ErrMisalignedAccess reports an address that is not word aligned,
	// or a sector-local program outside its sector. Not retryable.
	ErrMisalignedAccess = errors.New("flash: misaligned access")

	// ErrWouldBlock signals the peripheral is mid-operation. It is not
	// a failure: retrying the same call verbatim is always safe.
	ErrWouldBlock = errors.New("flash: would block")
)

// Retry runs op until it returns anything other than ErrWouldBlock.
// It is the only blocking construct in the driver and always runs on
// the caller's side; the engine itself never spins.
func Retry(op func() error) error {
	for {
		err := op()
		if !errors.Is(err, ErrWouldBlock) {
			return err
		}
	}
}
