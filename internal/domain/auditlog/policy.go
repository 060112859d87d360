package auditlog

import (
	"github.com/ohitsyle/jusq-sub002/internal/domain/auth"
)

// Group is a named visibility predicate.
type Group struct {
	Name  string
	Match func(role auth.RoleTag, rec EventRecord) bool
}

type typeSet map[string]bool

func newTypeSet(types ...string) typeSet {
	s := make(typeSet, len(types))
	for _, t := range types {
		s[t] = true
	}
	return s
}

var (
	authTypes = newTypeSet(TypeLogin, TypeLogout)
	crudTypes = newTypeSet(TypeCreate, TypeUpdate, TypeDelete,
		TypeNoteAdded, TypeNoteUpdated, TypeConcernResolved)
	dataTypes = newTypeSet(TypeManualExport, TypeAutoExport, TypeConfigUpdate)

	motorpoolTypes = newTypeSet(TypeDriverLogin, TypeDriverLogout, TypeTripStart, TypeTripEnd,
		TypeRouteChange, TypeTripRefund, TypeRefund)
	walletTypes   = newTypeSet(TypeCashIn, TypeRegistration)
	merchantTypes = newTypeSet(TypeMerchantLogin, TypeMerchantLogout)
)

func attributedTo(role auth.RoleTag, rec EventRecord) bool {
	return rec.attributedRole() == string(role)
}

func attributedOfType(name string, types typeSet) Group {
	return Group{
		Name: name,
		Match: func(role auth.RoleTag, rec EventRecord) bool {
			return types[rec.normalizedType()] && attributedTo(role, rec)
		},
	}
}

var (
	authGroup = attributedOfType("auth", authTypes)
	crudGroup = attributedOfType("crud", crudTypes)

	// dataGroup honors both attribution and the department field.
	dataGroup = Group{
		Name: "data_management",
		Match: func(role auth.RoleTag, rec EventRecord) bool {
			if !dataTypes[rec.normalizedType()] {
				return false
			}
			return attributedTo(role, rec) || rec.department() == string(role)
		},
	}

	motorpoolActivity = Group{
		Name: "activity",
		Match: func(_ auth.RoleTag, rec EventRecord) bool {
			return motorpoolTypes[rec.normalizedType()]
		},
	}
	walletActivity = Group{
		Name: "activity",
		Match: func(role auth.RoleTag, rec EventRecord) bool {
			return walletTypes[rec.normalizedType()] && attributedTo(role, rec)
		},
	}
	merchantActivity = Group{
		Name: "activity",
		Match: func(_ auth.RoleTag, rec EventRecord) bool {
			return merchantTypes[rec.normalizedType()]
		},
	}
)

// correlation builds the entity fallback group. It only considers records
// without an admin attribution, i.e. system-generated events.
func correlation(entities []string, keys func(Metadata) []string) Group {
	set := newTypeSet(entities...)
	return Group{
		Name: "entity_correlation",
		Match: func(_ auth.RoleTag, rec EventRecord) bool {
			if rec.attributedRole() != "" {
				return false
			}
			if set[rec.target()] {
				return true
			}
			for _, k := range keys(rec.Metadata) {
				if k != "" {
					return true
				}
			}
			return false
		},
	}
}

var (
	motorpoolCorrelation = correlation(
		[]string{EntityDriver, EntityShuttle, EntityRoute, EntityTrip},
		func(m Metadata) []string { return []string{m.DriverID, m.ShuttleID, m.RouteID, m.TripID} },
	)
	walletCorrelation = correlation(
		[]string{EntityUser, EntityTransaction},
		func(m Metadata) []string { return []string{m.UserID, m.TransactionID} },
	)
	merchantCorrelation = correlation(
		[]string{EntityMerchant},
		func(m Metadata) []string { return []string{m.MerchantID} },
	)
)

// Groups returns the predicate groups that apply to role. Sysad has none
// because it is entitled to every record.
func Groups(role auth.RoleTag) []Group {
	switch role {
	case auth.RoleSysad:
		return nil
	case auth.RoleMotorpool:
		return []Group{authGroup, crudGroup, motorpoolActivity, dataGroup, motorpoolCorrelation}
	case auth.RoleTreasury, auth.RoleAccounting:
		return []Group{authGroup, crudGroup, walletActivity, dataGroup, walletCorrelation}
	case auth.RoleMerchant:
		return []Group{authGroup, crudGroup, merchantActivity, dataGroup, merchantCorrelation}
	}
	return nil
}

// Visible reports whether a viewer with role may see rec. Unknown roles see nothing.
func Visible(role auth.RoleTag, rec EventRecord) bool {
	if role == auth.RoleSysad {
		return true
	}
	for _, g := range Groups(role) {
		if g.Match(role, rec) {
			return true
		}
	}
	return false
}

// MatchedGroups evaluates every group independently and returns the names that matched.
func MatchedGroups(role auth.RoleTag, rec EventRecord) []string {
	if role == auth.RoleSysad {
		return []string{"all"}
	}
	var names []string
	for _, g := range Groups(role) {
		if g.Match(role, rec) {
			names = append(names, g.Name)
		}
	}
	return names
}

// Filter returns the records visible to role, preserving order.
func Filter(role auth.RoleTag, records []EventRecord) []EventRecord {
	out := make([]EventRecord, 0, len(records))
	for _, rec := range records {
		if Visible(role, rec) {
			out = append(out, rec)
		}
	}
	return out
}
