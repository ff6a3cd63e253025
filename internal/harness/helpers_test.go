package harness

import (
	"github.com/roach88/tokenworld/internal/amount"
	"github.com/roach88/tokenworld/internal/config"
)

const testSeed = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func testConfig(genesis uint64) *config.Config {
	cfg := &config.Config{
		Faucet:  config.Faucet{Seed: testSeed},
		Symbols: map[string]string{"MFX": "mfx-id"},
	}
	if genesis > 0 {
		cfg.Genesis = map[string]amount.Amount{"MFX": amount.FromUint64(genesis)}
	}
	cfg.Normalize()
	return cfg
}

func identityStep(alias string) Step {
	return Step{Action: ActionIdentity, Args: map[string]string{"alias": alias}}
}

func hasStep(alias, amt string) Step {
	return Step{Action: ActionHas, Args: map[string]string{"alias": alias, "amount": amt, "symbol": "MFX"}}
}

func sendStep(from, to, amt string) Step {
	return Step{Action: ActionSend, Args: map[string]string{"from": from, "to": to, "amount": amt, "symbol": "MFX"}}
}

func balanceStep(alias, amt string) Step {
	return Step{Action: ActionBalance, Args: map[string]string{"alias": alias, "amount": amt, "symbol": "MFX"}}
}
