package pool

import "sort"

type AssetStats struct {
	Asset   string  `json:"asset"`
	Created int     `json:"created"`
	Free    int     `json:"free"`
	InUse   int     `json:"in_use"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

type Stats struct {
	Resident int          `json:"resident"`
	Evicted  uint64       `json:"evicted"`
	Assets   []AssetStats `json:"assets"`
}

func (p *Pool) Stats() Stats {
	s := Stats{
		Resident: p.resident,
		Evicted:  p.evicted,
		Assets:   make([]AssetStats, 0, len(p.entries)),
	}
	for id, e := range p.entries {
		s.Assets = append(s.Assets, AssetStats{
			Asset:   id,
			Created: e.created,
			Free:    len(e.free),
			InUse:   e.inUse,
			Hits:    e.hits,
			Misses:  e.misses,
			HitRate: p.HitRate(id),
		})
	}
	sort.Slice(s.Assets, func(i, j int) bool { return s.Assets[i].Asset < s.Assets[j].Asset })
	return s
}
