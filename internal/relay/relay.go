// Package relay splices two already-handshaken streams together, the way
// the demo binaries join a client connection to its dialed upstream once a
// libra or leo handshake has completed.
package relay

import (
	"errors"
	"io"
	"sync"
)

// errTransfer wraps each side's io.Copy failure.
var errTransfer = errors.New("relay: data transfer failed")

// Pipe copies bytes bidirectionally between a and b until both directions
// finish, then returns any non-EOF errors observed, joined together.
func Pipe(a, b io.ReadWriter) error {
	var wg sync.WaitGroup
	wg.Add(2)
	errChan := make(chan error, 2)

	go transfer(&wg, errChan, a, b)
	go transfer(&wg, errChan, b, a)

	go func() {
		wg.Wait()
		close(errChan)
	}()

	var joined error
	for err := range errChan {
		if !errors.Is(err, io.EOF) {
			joined = errors.Join(joined, err)
		}
	}
	return joined
}

func transfer(wg *sync.WaitGroup, errChan chan error, dst io.Writer, src io.Reader) {
	defer wg.Done()
	if _, err := io.Copy(dst, src); err != nil {
		errChan <- errors.Join(errTransfer, err)
	}
}
