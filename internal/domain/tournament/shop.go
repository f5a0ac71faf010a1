package tournament

// Pack is a bundle of attempts sold for chat stars.
type Pack struct {
	ID       string `json:"id"`
	Attempts int    `json:"attempts"`
	Stars    int    `json:"stars"`
	Popular  bool   `json:"popular,omitempty"`
}

// Pack ids.
const (
	PackSingle = "single"
	PackTriple = "triple"
	PackTen    = "ten"
)

// Packs returns the shop listing in display order.
func Packs() []Pack {
	return []Pack{
		{ID: PackSingle, Attempts: 1, Stars: 5},
		{ID: PackTriple, Attempts: 3, Stars: 10, Popular: true},
		{ID: PackTen, Attempts: 10, Stars: 25},
	}
}

// FindPack looks a pack up by id.
func FindPack(id string) (Pack, error) {
	for _, p := range Packs() {
		if p.ID == id {
			return p, nil
		}
	}
	return Pack{}, ErrUnknownPack
}
