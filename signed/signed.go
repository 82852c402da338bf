// Package signed signs and verifies CBOR-encoded messages with ECDSA over P-256. The
// revocation registry uses it to publish accumulator states that holders and verifiers can
// authenticate against the registry's public key.
package signed

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"io"
	"math/big"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/anoncreds/cbor"
)

var ErrInvalidSignature = errors.New("ecdsa signature was invalid")

type (
	// Message is a signed message, created and signed by MarshalSign, and verified and parsed
	// by UnmarshalVerify.
	Message []byte

	envelope struct {
		Msg, Sig []byte
	}
)

func GenerateKey(rnd io.Reader) (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rnd)
}

func UnmarshalPublicKey(bts []byte) (*ecdsa.PublicKey, error) {
	genericPk, err := x509.ParsePKIXPublicKey(bts)
	if err != nil {
		return nil, err
	}
	pk, ok := genericPk.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("invalid ecdsa public key")
	}
	return pk, nil
}

func MarshalPublicKey(pk *ecdsa.PublicKey) ([]byte, error) {
	return x509.MarshalPKIXPublicKey(pk)
}

func UnmarshalPemPublicKey(bts []byte) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode(bts)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	return UnmarshalPublicKey(block.Bytes)
}

func MarshalPemPublicKey(pk *ecdsa.PublicKey) ([]byte, error) {
	bts, err := MarshalPublicKey(pk)
	if err != nil {
		return nil, errors.WrapPrefix(err, "failed to serialize public key", 0)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: bts}), nil
}

func UnmarshalPrivateKey(bts []byte) (*ecdsa.PrivateKey, error) {
	return x509.ParseECPrivateKey(bts)
}

func MarshalPrivateKey(sk *ecdsa.PrivateKey) ([]byte, error) {
	return x509.MarshalECPrivateKey(sk)
}

// Sign signs the sha256 hash of bts, returning an asn1-encoded (r, s) pair.
func Sign(rnd io.Reader, sk *ecdsa.PrivateKey, bts []byte) ([]byte, error) {
	hash := sha256.Sum256(bts)
	r, s, err := ecdsa.Sign(rnd, sk, hash[:])
	if err != nil {
		return nil, err
	}
	return asn1.Marshal([]*big.Int{r, s})
}

func Verify(pk *ecdsa.PublicKey, bts []byte, signature []byte) error {
	var ints []*big.Int
	if _, err := asn1.Unmarshal(signature, &ints); err != nil {
		return errors.WrapPrefix(ErrInvalidSignature, err.Error(), 0)
	}
	if len(ints) != 2 {
		return ErrInvalidSignature
	}
	hash := sha256.Sum256(bts)
	if !ecdsa.Verify(pk, hash[:], ints[0], ints[1]) {
		return ErrInvalidSignature
	}
	return nil
}

// MarshalSign encodes message with CBOR, signs the encoding, and returns both as a
// Message suitable for UnmarshalVerify.
func MarshalSign(rnd io.Reader, sk *ecdsa.PrivateKey, message interface{}) (Message, error) {
	bts, err := cbor.Marshal(message)
	if err != nil {
		return nil, err
	}
	signature, err := Sign(rnd, sk, bts)
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(&envelope{bts, signature})
}

// UnmarshalVerify checks the signature of a Message created by MarshalSign and decodes
// the signed bytes into dst.
func UnmarshalVerify(pk *ecdsa.PublicKey, signed Message, dst interface{}) error {
	var env envelope
	if err := cbor.Unmarshal(signed, &env); err != nil {
		return err
	}
	if err := Verify(pk, env.Msg, env.Sig); err != nil {
		return err
	}
	return cbor.Unmarshal(env.Msg, dst)
}
