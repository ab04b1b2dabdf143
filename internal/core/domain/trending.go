package domain

import "sort"

// RankTrending classe les poèmes de la fenêtre par nombre d'abonnés de l'auteur,
// puis du plus récent au plus ancien. Le tri est stable.
func RankTrending(poems []Poem, followerCounts map[string]int, limit int) []Poem {
	ranked := make([]Poem, len(poems))
	copy(ranked, poems)

	reach := func(p Poem) int {
		id, ok := p.AuthorID.Get()
		if !ok {
			return 0
		}
		return followerCounts[id]
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		ri, rj := reach(ranked[i]), reach(ranked[j])
		if ri != rj {
			return ri > rj
		}
		return ranked[i].CreatedAt.After(ranked[j].CreatedAt)
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// AuthorIDs : identifiants distincts des auteurs, dans l'ordre d'apparition.
func AuthorIDs(poems []Poem) []string {
	seen := make(map[string]struct{}, len(poems))
	var ids []string
	for _, p := range poems {
		id, ok := p.AuthorID.Get()
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
