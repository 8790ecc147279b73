package config

import (
	"encoding/json"
	"fmt"
	"os"

	"almoner/internal/ledger/models"
)

// LoadGenesis reads the deployment-time seed recipients. An empty path means
// no seeds: the ledger initializes with an empty recipient table.
func LoadGenesis(path string) ([]models.GenesisRecipient, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis file: %w", err)
	}
	var seeds []models.GenesisRecipient
	if err := json.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("parse genesis file %s: %w", path, err)
	}
	for i, seed := range seeds {
		if seed.Name == "" || seed.PayoutAddress == "" {
			return nil, fmt.Errorf("genesis seed %d: name and payout_address are required", i)
		}
	}
	return seeds, nil
}
