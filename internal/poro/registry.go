package poro

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bwmarrin/discordgo"
)

type PoroId int

// Stats are the five rolled attributes of a single spawn instance.
type Stats struct {
	Size          int
	Weight        int
	ThrowDistance int
	Fluffiness    int
	Hunger        int
}

type StatRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type StatRanges struct {
	Size          StatRange `json:"size"`
	Weight        StatRange `json:"weight"`
	ThrowDistance StatRange `json:"throwDistance"`
	Fluffiness    StatRange `json:"fluffiness"`
	Hunger        StatRange `json:"hunger"`
}

type Poro struct {
	Id        PoroId
	Key       string // stable string id if we decide to rename a poro
	Name      string
	Tier      Tier
	Weight    int     // rarity weight (higher = more common); 0 is allowed
	BaseCatch float64 // base capture probability before level/berry bonuses
	XPBonus   int
	Ranges    *StatRanges // nil means Fixed is used verbatim
	Fixed     *Stats
	Image     string
}

type poroJSON struct {
	Id        int         `json:"id"`
	Key       string      `json:"key"`
	Name      string      `json:"name"`
	Rarity    string      `json:"rarity"`
	Weight    int         `json:"weight"`
	BaseCatch float64     `json:"baseCatch"`
	XPBonus   int         `json:"xpBonus"`
	Ranges    *StatRanges `json:"statRanges"`
	Fixed     *Stats      `json:"fixedStats"`
	Image     string      `json:"thumbnail"`
}

type Registry struct {
	byId  []Poro
	byKey map[string]PoroId
}

func LoadRegistryFromJSON(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRegistry(raw)
}

func ParseRegistry(raw []byte) (*Registry, error) {
	var arr []poroJSON
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, err
	}
	if len(arr) == 0 {
		return nil, fmt.Errorf("poro list is empty")
	}

	maxId := -1
	ids := make([]int, len(arr))
	seenKey := map[string]bool{}
	seenId := map[int]bool{}

	for i, pj := range arr {
		id := pj.Id
		if id < 0 {
			return nil, fmt.Errorf("negative id at index %d", i)
		}
		if seenId[id] {
			return nil, fmt.Errorf("duplicate id %d", id)
		}
		if pj.Key == "" {
			return nil, fmt.Errorf("missing key at id %d", id)
		}
		if seenKey[pj.Key] {
			return nil, fmt.Errorf("duplicate key %q", pj.Key)
		}
		if pj.BaseCatch <= 0 || pj.BaseCatch > 1 {
			return nil, fmt.Errorf("poro %q baseCatch %v out of (0,1]", pj.Key, pj.BaseCatch)
		}
		if pj.Ranges == nil && pj.Fixed == nil {
			return nil, fmt.Errorf("poro %q has neither statRanges nor fixedStats", pj.Key)
		}

		seenId[id] = true
		seenKey[pj.Key] = true
		ids[i] = id
		if id > maxId {
			maxId = id
		}
	}

	byId := make([]Poro, maxId+1)
	for i, pj := range arr {
		id := ids[i]
		if byId[id].Key != "" {
			return nil, fmt.Errorf("non-dense id assignment at %d", id)
		}

		tier, err := ParseTier(pj.Rarity)
		if err != nil {
			return nil, fmt.Errorf("poro %q: %w", pj.Key, err)
		}
		if pj.Weight < 0 {
			pj.Weight = 0
		}
		byId[id] = Poro{
			Id:        PoroId(id),
			Key:       pj.Key,
			Name:      pj.Name,
			Tier:      tier,
			Weight:    pj.Weight,
			BaseCatch: pj.BaseCatch,
			XPBonus:   pj.XPBonus,
			Ranges:    pj.Ranges,
			Fixed:     pj.Fixed,
			Image:     pj.Image,
		}
	}

	byKey := make(map[string]PoroId, len(arr))
	for id, p := range byId {
		if p.Key == "" {
			return nil, fmt.Errorf("gap at id %d", id)
		}
		byKey[p.Key] = PoroId(id)
	}

	return &Registry{byId: byId, byKey: byKey}, nil
}

func (r *Registry) GetById(id PoroId) (Poro, bool) {
	if int(id) < 0 || int(id) >= len(r.byId) {
		return Poro{}, false
	}
	return r.byId[id], true
}

func (r *Registry) NameById(id PoroId) string {
	if p, ok := r.GetById(id); ok {
		return p.Name
	}
	return "Unknown"
}

func (r *Registry) IdByKey(key string) (PoroId, bool) {
	id, ok := r.byKey[key]
	return id, ok
}

func (r *Registry) EmbedThumb(id PoroId) *discordgo.MessageEmbedThumbnail {
	if p, ok := r.GetById(id); ok && p.Image != "" {
		return &discordgo.MessageEmbedThumbnail{URL: p.Image}
	}
	return nil
}

func (r *Registry) All() []Poro {
	out := make([]Poro, len(r.byId))
	copy(out, r.byId)
	return out
}

func (r *Registry) Count() int { return len(r.byId) }
