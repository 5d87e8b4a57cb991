package poro

import "fmt"

type Tier int

const (
	TierCommon Tier = iota
	TierRare
	TierUltraRare
)

func ParseTier(s string) (Tier, error) {
	switch s {
	case "common":
		return TierCommon, nil
	case "rare":
		return TierRare, nil
	case "ultra_rare":
		return TierUltraRare, nil
	default:
		return TierCommon, fmt.Errorf("unknown rarity %q", s)
	}
}

func (t Tier) String() string {
	switch t {
	case TierUltraRare:
		return "Ultra Rare"
	case TierRare:
		return "Rare"
	default:
		return "Common"
	}
}

func ColorForTier(t Tier) int {
	switch t {
	case TierUltraRare:
		return 0xF1C40F // gold
	case TierRare:
		return 0x9B59B6 // purple
	default:
		return 0x95A5A6 // gray
	}
}
