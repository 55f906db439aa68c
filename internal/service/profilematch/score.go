package profilematch

import "github.com/oggyb/destined/internal/db"

// Score compares the requesting user's interests a with a candidate's b.
//
// Shared are the items of b whose exact (interest, selectedOption) pair
// also appears in a. The score is |shared| divided by the mean list length,
// times 100. It is not clamped: duplicate pairs on b can push it above 100.
// Perfect means every interest on both sides is shared.
type Score struct {
	Shared  []db.Interest
	Value   float64
	Perfect bool
}

func ScoreInterests(a, b []db.Interest) Score {
	if len(a) == 0 || len(b) == 0 {
		return Score{Shared: []db.Interest{}}
	}

	own := make(map[db.Interest]struct{}, len(a))
	for _, i := range a {
		own[i] = struct{}{}
	}

	shared := make([]db.Interest, 0, len(b))
	for _, i := range b {
		if _, ok := own[i]; ok {
			shared = append(shared, i)
		}
	}

	avg := float64(len(a)+len(b)) / 2
	return Score{
		Shared:  shared,
		Value:   float64(len(shared)) / avg * 100,
		Perfect: len(shared) == len(a) && len(shared) == len(b),
	}
}

func pairs(in []db.UserInterest) []db.Interest {
	out := make([]db.Interest, 0, len(in))
	for _, i := range in {
		out = append(out, i.Pair())
	}
	return out
}
