// Copyright 2016 Maarten Everts. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package credkeys

import (
	"sort"
)

type (
	// SystemParameters holds the bit lengths used throughout key generation, signing
	// and proving.
	SystemParameters struct {
		BaseParameters
		DerivedParameters
	}

	// BaseParameters holds the base system parameters
	BaseParameters struct {
		LePrime uint
		Lh      uint
		Lm      uint
		Ln      uint
		Lstatzk uint
	}

	// DerivedParameters holds system parameters that can be drived from base
	// systemparameters (BaseParameters)
	DerivedParameters struct {
		Le            uint
		LeCommit      uint
		LmCommit      uint
		LRA           uint
		Lv            uint
		LvCommit      uint
		LvPrime       uint
		LvPrimeCommit uint
		LxCommit      uint
	}
)

// defaultBaseParameters holds per keylength the base parameters.
var defaultBaseParameters = map[int]BaseParameters{
	1024: {
		LePrime: 120,
		Lh:      256,
		Lm:      256,
		Ln:      1024,
		Lstatzk: 80,
	},
	2048: {
		LePrime: 120,
		Lh:      256,
		Lm:      256,
		Ln:      2048,
		Lstatzk: 128,
	},
	4096: {
		LePrime: 120,
		Lh:      256,
		Lm:      512,
		Ln:      4096,
		Lstatzk: 128,
	},
}

// MakeDerivedParameters computes the derived system parameters
func MakeDerivedParameters(base BaseParameters) DerivedParameters {
	Lv := base.Ln + 2*base.Lstatzk + base.Lh + base.Lm + 4
	return DerivedParameters{
		Le:            base.Lstatzk + base.Lh + base.Lm + 5,
		LeCommit:      base.LePrime + base.Lstatzk + base.Lh,
		LmCommit:      base.Lm + base.Lstatzk + base.Lh,
		LRA:           base.Ln + base.Lstatzk,
		Lv:            Lv,
		LvCommit:      Lv + base.Lstatzk + base.Lh,
		LvPrime:       base.Ln + base.Lstatzk,
		LvPrimeCommit: base.Ln + 2*base.Lstatzk + base.Lh,
		LxCommit:      base.Ln + base.Lstatzk + base.Lh,
	}
}

// DefaultSystemParameters holds per modulus length the default parameters.
var DefaultSystemParameters = map[int]*SystemParameters{
	1024: {defaultBaseParameters[1024], MakeDerivedParameters(defaultBaseParameters[1024])},
	2048: {defaultBaseParameters[2048], MakeDerivedParameters(defaultBaseParameters[2048])},
	4096: {defaultBaseParameters[4096], MakeDerivedParameters(defaultBaseParameters[4096])},
}

// DefaultKeyLengths is a sorted slice holding the modulus lengths for which
// system parameters are available.
var DefaultKeyLengths = func() []int {
	lengths := make([]int, 0, len(DefaultSystemParameters))
	for k := range DefaultSystemParameters {
		lengths = append(lengths, k)
	}
	sort.Ints(lengths)
	return lengths
}()

// ParamSize computes the size of a parameter in bytes given the size in bits.
func ParamSize(a int) int {
	return (a + 8 - 1) / 8
}
