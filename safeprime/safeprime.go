// Package safeprime computes safe primes, i.e. primes of the form 2p+1 where p is also prime.
// All randomness is drawn from a caller-supplied reader.
package safeprime

import (
	"io"
	"runtime"
	"sync"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/anoncreds/big"
	"github.com/privacybydesign/anoncreds/internal/common"
)

var ErrStopped = errors.New("safe prime generation stopped")

// GenerateConcurrent concurrently and continuously generates safeprimes on all CPU cores,
// until the stop channel receives a struct or is closed. If an error is encountered, generation is
// stopped in all goroutines, and the error is sent on the second return parameter.
// The reader is shared among the goroutines through a common.LockedReader.
func GenerateConcurrent(rnd io.Reader, bitsize int, stop chan struct{}) (<-chan *big.Int, <-chan error) {
	count := runtime.GOMAXPROCS(0)
	ints := make(chan *big.Int, count)
	errs := make(chan error, count)
	locked := common.NewLockedReader(rnd)

	// In order to succesfully close all goroutines below when the caller wants them to, they require
	// a channel that is close()d: just sending a struct{}{} would stop one but not all goroutines.
	stopped := make(chan struct{})
	var once sync.Once
	closeStopped := func() { once.Do(func() { close(stopped) }) }
	go func() {
		select {
		case <-stop:
			closeStopped()
		case <-stopped:
		}
	}()

	for i := 0; i < count; i++ {
		go func() {
			for {
				x, err := Generate(locked, bitsize, stopped)
				if err == ErrStopped {
					return
				}
				if err != nil {
					errs <- err
					closeStopped()
					return
				}

				select {
				case <-stopped:
					return
				case ints <- x:
				}
			}
		}()
	}

	return ints, errs
}

// Generate a safe prime of the given size, using the fact that:
//     If q is prime and 2^(2q) = 1 mod (2q+1), then 2q+1 is a safe prime.
// We take a random bigint q; if the above formula holds and q is prime, then we return 2q+1.
// (See https://www.ijipbangalore.org/abstracts_2(1)/p5.pdf and
// https://groups.google.com/group/sci.crypt/msg/34c4abf63568a8eb)
//
// In order to cancel the generation algorithm, close() the stop parameter; Generate then
// returns ErrStopped. Passing nil is allowed, then the algorithm cannot be cancelled.
func Generate(rnd io.Reader, bitsize int, stop <-chan struct{}) (*big.Int, error) {
	if bitsize < 4 {
		return nil, errors.Errorf("safe prime size too small: %d", bitsize)
	}
	var (
		one        = big.NewInt(1)
		max        = new(big.Int).Lsh(one, uint(bitsize)) // 2^bitsize, len bitsize+1
		twoq       = new(big.Int)
		twoqone    = new(big.Int)
		twoexptwoq = new(big.Int)
		q          *big.Int
		bitlen     int
		err        error
		i          int
	)

	for {
		// Every 1000 iterations, check if we have been asked to stop
		i++
		if stop != nil && i%1000 == 0 {
			select {
			case <-stop:
				return nil, ErrStopped
			default:
			}
		}

		if q, err = big.RandInt(rnd, max); err != nil {
			return nil, err
		}

		bitlen = q.BitLen() // q < max = 2^bitsize, so bitlen <= bitsize

		if q.Bit(0) != uint(1) || bitlen < bitsize-1 {
			continue
		}

		// We want q to have bitsize-1 bits, so that 2q+1 has bitsize bits.
		if bitlen == bitsize {
			q.Rsh(q, 1)
			if q.Bit(0) != uint(1) {
				continue
			}
		}

		twoq.Lsh(q, 1)
		twoqone.Add(twoq, one)
		twoexptwoq.Exp(two, twoq, twoqone) // 2^(2q) mod (2q+1)

		if twoexptwoq.Cmp(one) == 0 && q.ProbablyPrime(40) {
			break
		}
	}

	if !ProbablySafePrime(twoqone, 40) {
		return nil, errors.New("safeprime generation returned non-safeprime")
	}
	return twoqone, nil
}

var two = big.NewInt(2)

// ProbablySafePrime reports whether x is probably safe prime, by calling big.Int.ProbablyPrime(n)
// on x as well as on (x-1)/2.
func ProbablySafePrime(x *big.Int, n int) bool {
	if x.Cmp(two) <= 0 {
		return false
	}
	if !x.ProbablyPrime(n) {
		return false
	}
	y := new(big.Int).Rsh(x, 1)
	return y.ProbablyPrime(n)
}
