package ledger

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rony4d/go-survival/inter"
	"github.com/rony4d/go-survival/rules"
)

var (
	domainTypeHash = crypto.Keccak256Hash([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	boostTypeHash  = crypto.Keccak256Hash([]byte("Boost(address participant,uint8 kind,uint256 magnitude,uint64 expiry,uint256 nonce)"))
)

// BoostMessage is the typed payload a boost signer authorizes.
type BoostMessage struct {
	Participant common.Address
	Kind        inter.BoostKind
	Magnitude   uint64
	Expiry      inter.Timestamp
	Nonce       *big.Int
}

func word(v *big.Int) []byte {
	return math.U256Bytes(new(big.Int).Set(v))
}

func wordUint(v uint64) []byte {
	return common.LeftPadBytes(new(big.Int).SetUint64(v).Bytes(), 32)
}

// DomainSeparator binds boost signatures to one ledger deployment.
func DomainSeparator(r rules.BoostRules, chainID uint64, verifying common.Address) common.Hash {
	return crypto.Keccak256Hash(
		domainTypeHash.Bytes(),
		crypto.Keccak256([]byte(r.DomainName)),
		crypto.Keccak256([]byte(r.DomainVersion)),
		wordUint(chainID),
		common.LeftPadBytes(verifying.Bytes(), 32),
	)
}

// StructHash returns the typed-data hash of m.
func (m BoostMessage) StructHash() common.Hash {
	return crypto.Keccak256Hash(
		boostTypeHash.Bytes(),
		common.LeftPadBytes(m.Participant.Bytes(), 32),
		wordUint(uint64(m.Kind)),
		wordUint(m.Magnitude),
		wordUint(uint64(m.Expiry)),
		word(m.Nonce),
	)
}

// Digest returns the hash the signer signs for m under domain.
func (m BoostMessage) Digest(domain common.Hash) common.Hash {
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, domain.Bytes(), m.StructHash().Bytes())
}

// SignBoost signs m for domain with key, producing a 65-byte [R || S || V]
// signature with V in {27, 28}.
func SignBoost(key *ecdsa.PrivateKey, domain common.Hash, m BoostMessage) ([]byte, error) {
	sig, err := crypto.Sign(m.Digest(domain).Bytes(), key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// RecoverBoostSigner returns the address that signed m under domain. High-S
// signatures are rejected so a signature cannot be malleated into a second
// valid one.
func RecoverBoostSigner(domain common.Hash, m BoostMessage, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: length %d", ErrBadSignature, len(sig))
	}
	norm := make([]byte, crypto.SignatureLength)
	copy(norm, sig)
	if v := norm[crypto.RecoveryIDOffset]; v >= 27 {
		norm[crypto.RecoveryIDOffset] = v - 27
	}
	r := new(big.Int).SetBytes(norm[:32])
	s := new(big.Int).SetBytes(norm[32:64])
	if !crypto.ValidateSignatureValues(norm[crypto.RecoveryIDOffset], r, s, true) {
		return common.Address{}, fmt.Errorf("%w: malformed values", ErrBadSignature)
	}
	pub, err := crypto.SigToPub(m.Digest(domain).Bytes(), norm)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Domain returns the boost domain separator of this ledger.
func (l *Ledger) Domain() common.Hash {
	return l.domain
}

// ApplyBoost attaches a signed boost to the live position of participant.
// Each (participant, nonce) pair is accepted once.
func (l *Ledger) ApplyBoost(participant common.Address, kind inter.BoostKind, magnitude uint64, expiry inter.Timestamp, nonce *big.Int, sig []byte) error {
	return l.execute("applyBoost", func(now inter.Timestamp) error {
		br := l.rules.Boost
		switch {
		case !kind.Valid():
			return fmt.Errorf("%w: kind %d", ErrInvalidBoost, kind)
		case magnitude == 0 || magnitude > br.MaxMagnitude:
			return fmt.Errorf("%w: magnitude %d", ErrInvalidBoost, magnitude)
		case nonce == nil || nonce.Sign() < 0 || nonce.BitLen() > 256:
			return fmt.Errorf("%w: nonce", ErrInvalidBoost)
		}
		if expiry <= now {
			return fmt.Errorf("%w: at %s", ErrBoostExpired, expiry)
		}
		if l.signer == (common.Address{}) {
			return ErrSignerNotSet
		}
		key := inter.NonceKey{Participant: participant, Nonce: common.BigToHash(nonce)}
		if _, used := l.usedNonces[key]; used {
			return ErrNonceUsed
		}
		msg := BoostMessage{
			Participant: participant,
			Kind:        kind,
			Magnitude:   magnitude,
			Expiry:      expiry,
			Nonce:       nonce,
		}
		signer, err := RecoverBoostSigner(l.domain, msg, sig)
		if err != nil {
			return err
		}
		if signer != l.signer {
			return fmt.Errorf("%w: signed by %s", ErrBadSignature, signer.Hex())
		}

		p, err := l.settleLive(participant)
		if err != nil {
			return err
		}
		// boosts still relevant to a running scan are kept until it closes
		cutoff := now
		if id := l.tiers[p.Tier.Index()].ActiveScan; id != 0 {
			cutoff = l.scans[id].StartedAt
		}
		kept := p.Boosts[:0:0]
		active := 0
		for _, b := range p.Boosts {
			if b.Expiry > cutoff {
				kept = append(kept, b)
			}
			if b.Expiry > now {
				active++
			}
		}
		if active >= br.MaxBoosts {
			return fmt.Errorf("%w: %d active", ErrTooManyBoosts, active)
		}
		p.Boosts = append(kept, inter.Boost{
			Kind:      kind,
			Magnitude: magnitude,
			Applied:   now,
			Expiry:    expiry,
		})
		l.markNonce(key)

		l.emit(&inter.BoostApplied{
			Participant: participant,
			BoostKind:   kind,
			Magnitude:   magnitude,
			Expiry:      expiry,
			Nonce:       key.Nonce,
		})
		return nil
	})
}
