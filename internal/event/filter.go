package event

// UnitSet is a connection's organisational scope. Empty means unrestricted.
type UnitSet map[int64]struct{}

func NewUnitSet(ids ...int64) UnitSet {
	s := make(UnitSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s UnitSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// Filter restricts delivery. The zero Filter targets every connection.
type Filter struct {
	UnitIDs []int64
	UserID  string
}

func (f Filter) IsZero() bool {
	return len(f.UnitIDs) == 0 && f.UserID == ""
}

// Matches reports whether a connection owned by userID with the given scope is
// entitled to an event carrying this filter.
//
// A user filter is exclusive: only that user's connections match. Otherwise a
// unit filter matches connections whose scope is empty or intersects it.
func (f Filter) Matches(userID string, scope UnitSet) bool {
	if f.UserID != "" {
		return f.UserID == userID
	}
	if len(f.UnitIDs) == 0 || len(scope) == 0 {
		return true
	}
	for _, id := range f.UnitIDs {
		if scope.Has(id) {
			return true
		}
	}
	return false
}
