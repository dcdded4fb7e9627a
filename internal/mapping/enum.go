package mapping

// EnumTable maps canonical values to CRM enum ids. Lookups never fail:
// unmapped values get the fallback id.
type EnumTable[K comparable] struct {
	ids      map[K]int
	fallback int
}

func NewEnumTable[K comparable](ids map[K]int, fallback int) EnumTable[K] {
	copied := make(map[K]int, len(ids))
	for k, v := range ids {
		copied[k] = v
	}
	return EnumTable[K]{ids: copied, fallback: fallback}
}

// Lookup returns the enum id and whether it came from the table.
func (t EnumTable[K]) Lookup(key K) (int, bool) {
	if id, ok := t.ids[key]; ok && id != 0 {
		return id, true
	}
	return t.fallback, false
}

func (t EnumTable[K]) Fallback() int {
	return t.fallback
}
