package integration

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-survival/bank"
	"github.com/rony4d/go-survival/env"
	"github.com/rony4d/go-survival/inter"
	"github.com/rony4d/go-survival/ledger"
	"github.com/rony4d/go-survival/rules"
)

// FakeGenesisTime is the default genesis of fake networks.
// Timestamp: 1608600000 seconds since Unix epoch (December 22, 2020)
var FakeGenesisTime = inter.Timestamp(1608600000 * time.Second)

// Well-known addresses of fake networks.
var (
	FakeCustody     = common.HexToAddress("0x5afe000000000000000000000000000000000001")
	FakeTreasury    = common.HexToAddress("0x5afe000000000000000000000000000000000002")
	FakeDistributor = common.HexToAddress("0x5afe000000000000000000000000000000000003")
)

// FakeKey generates a deterministic fake private key for testing purposes.
// Given the same n it always returns the same key.
//
// Example:
//
//	key0 := FakeKey(0)      // first fake key
//	key1 := FakeKey(1)      // second fake key (different from key0)
//	key0Again := FakeKey(0) // same as key0
func FakeKey(n int) *ecdsa.PrivateKey {
	seed := bigendian.Uint64ToBytes(uint64(n))
	for {
		seed = crypto.Keccak256(seed)
		key, err := crypto.ToECDSA(seed)
		if err == nil {
			return key
		}
		// the hash fell outside the curve order, rehash
	}
}

// FakeAddress returns the address of FakeKey(n).
func FakeAddress(n int) common.Address {
	return crypto.PubkeyToAddress(FakeKey(n).PublicKey)
}

// FakeSignerKey is the boost signer of fake networks.
func FakeSignerKey() *ecdsa.PrivateKey {
	return FakeKey(1 << 20)
}

// FakeGenesisBalances funds participants fake accounts, the distributor and
// the treasury with balance each.
func FakeGenesisBalances(participants int, balance *big.Int) map[common.Address]*big.Int {
	balances := make(map[common.Address]*big.Int, participants+2)
	for i := 0; i < participants; i++ {
		balances[FakeAddress(i)] = new(big.Int).Set(balance)
	}
	balances[FakeDistributor] = new(big.Int).Set(balance)
	balances[FakeTreasury] = new(big.Int).Set(balance)
	return balances
}

// FakeNet is a fully assembled in-memory ledger on simulated time.
type FakeNet struct {
	Ledger   *ledger.Ledger
	Bank     *bank.Memory
	Env      *env.Sim
	Recorder *ledger.Recorder
	Signer   *ecdsa.PrivateKey

	participants int
}

// NewFakeNet assembles a ledger on r with participants funded accounts.
// Pass extra emitters to observe events alongside the built-in recorder.
func NewFakeNet(r rules.Rules, participants int, balance *big.Int, log logrus.FieldLogger, emitters ...ledger.Emitter) (*FakeNet, error) {
	sim := env.NewSim(FakeGenesisTime, crypto.Keccak256Hash([]byte(r.Name)))
	b := bank.NewMemory(FakeGenesisBalances(participants, balance))
	rec := &ledger.Recorder{}
	signer := FakeSignerKey()

	l, err := ledger.New(ledger.Config{
		Rules:       r,
		Self:        FakeCustody,
		Treasury:    FakeTreasury,
		Distributor: FakeDistributor,
		Signer:      crypto.PubkeyToAddress(signer.PublicKey),
		Genesis:     FakeGenesisTime,
		Log:         log,
	}, sim, b, append(ledger.MultiEmitter{rec}, emitters...))
	if err != nil {
		return nil, fmt.Errorf("fake net: %w", err)
	}
	return &FakeNet{
		Ledger:       l,
		Bank:         b,
		Env:          sim,
		Recorder:     rec,
		Signer:       signer,
		participants: participants,
	}, nil
}

// Participant returns the address of fake participant n.
func (f *FakeNet) Participant(n int) common.Address {
	return FakeAddress(n)
}

// Participants returns the number of funded participants.
func (f *FakeNet) Participants() int {
	return f.participants
}

// SignBoost produces a boost signature from the fake signer.
func (f *FakeNet) SignBoost(m ledger.BoostMessage) ([]byte, error) {
	return ledger.SignBoost(f.Signer, f.Ledger.Domain(), m)
}
