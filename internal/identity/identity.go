package identity

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58/base58"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/blake2b"
)

// AddressPrefix marks mailbox agent addresses.
const AddressPrefix = "agent1"

var ErrEmptySeedPhrase = errors.New("seed phrase is empty")

// Identity is the bridge's stable mailbox identity, derived from the seed
// phrase so the address survives restarts.
type Identity struct {
	Address    string
	PublicKey  ed25519.PublicKey
	privateKey ed25519.PrivateKey
}

// FromSeedPhrase derives the bridge identity. A valid BIP-39 mnemonic is
// expanded the standard way; any other non-empty phrase is hashed so
// operators are not forced to generate a mnemonic first.
func FromSeedPhrase(phrase string) (*Identity, error) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return nil, ErrEmptySeedPhrase
	}

	var seedBytes []byte
	if bip39.IsMnemonicValid(phrase) {
		seedBytes = bip39.NewSeed(phrase, "")
	} else {
		h := blake2b.Sum256([]byte(phrase))
		seedBytes = h[:]
	}

	keys, err := DeriveKeys(seedBytes)
	if err != nil {
		return nil, err
	}
	addr, err := BuildAgentAddress(keys.SigningPublicKey)
	if err != nil {
		return nil, err
	}
	return &Identity{
		Address:    addr,
		PublicKey:  keys.SigningPublicKey,
		privateKey: keys.SigningPrivateKey,
	}, nil
}

func BuildAgentAddress(signingPublicKey []byte) (string, error) {
	if len(signingPublicKey) != ed25519.PublicKeySize {
		return "", fmt.Errorf("invalid signing public key size: %d", len(signingPublicKey))
	}
	h := blake2b.Sum256(signingPublicKey)
	return AddressPrefix + base58.Encode(h[:]), nil
}

// Sign signs an outgoing envelope body.
func (id *Identity) Sign(data []byte) []byte {
	return ed25519.Sign(id.privateKey, data)
}

func Verify(publicKey ed25519.PublicKey, data, sig []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(publicKey, data, sig)
}
