package auditlog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ohitsyle/jusq-sub002/internal/domain/auth"
)

func attributed(eventType string, role auth.RoleTag) EventRecord {
	return EventRecord{EventType: eventType, Metadata: Metadata{AdminRole: string(role)}}
}

func TestVisible_AuthEventsScopedToRole(t *testing.T) {
	rec := attributed(TypeLogin, auth.RoleTreasury)

	assert.True(t, Visible(auth.RoleTreasury, rec))
	assert.False(t, Visible(auth.RoleAccounting, rec))
	assert.False(t, Visible(auth.RoleMotorpool, rec))
	assert.False(t, Visible(auth.RoleMerchant, rec))
}

func TestVisible_CrudEvents(t *testing.T) {
	for _, typ := range []string{TypeCreate, TypeUpdate, TypeDelete, TypeNoteAdded, TypeNoteUpdated, TypeConcernResolved} {
		rec := attributed(typ, auth.RoleMerchant)
		assert.True(t, Visible(auth.RoleMerchant, rec), typ)
		assert.False(t, Visible(auth.RoleTreasury, rec), typ)
	}
}

func TestVisible_EventTypeNormalization(t *testing.T) {
	rec := attributed("Note-Added", auth.RoleAccounting)
	assert.True(t, Visible(auth.RoleAccounting, rec))

	rec = EventRecord{EventType: "Driver Login"}
	assert.True(t, Visible(auth.RoleMotorpool, rec))
}

func TestVisible_DomainActivity(t *testing.T) {
	tests := []struct {
		name    string
		rec     EventRecord
		visible map[auth.RoleTag]bool
	}{
		{
			name:    "driver login reaches motorpool",
			rec:     EventRecord{EventType: TypeDriverLogin},
			visible: map[auth.RoleTag]bool{auth.RoleMotorpool: true},
		},
		{
			name:    "route change reaches motorpool",
			rec:     EventRecord{EventType: TypeRouteChange, Metadata: Metadata{AdminRole: "motorpool"}},
			visible: map[auth.RoleTag]bool{auth.RoleMotorpool: true},
		},
		{
			name:    "cash in attributed to treasury",
			rec:     attributed(TypeCashIn, auth.RoleTreasury),
			visible: map[auth.RoleTag]bool{auth.RoleTreasury: true},
		},
		{
			name:    "registration attributed to accounting",
			rec:     attributed(TypeRegistration, auth.RoleAccounting),
			visible: map[auth.RoleTag]bool{auth.RoleAccounting: true},
		},
		{
			name:    "merchant logout",
			rec:     EventRecord{EventType: TypeMerchantLogout},
			visible: map[auth.RoleTag]bool{auth.RoleMerchant: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, role := range []auth.RoleTag{auth.RoleTreasury, auth.RoleAccounting, auth.RoleMotorpool, auth.RoleMerchant} {
				assert.Equal(t, tt.visible[role], Visible(role, tt.rec), "role %s", role)
			}
		})
	}
}

func TestVisible_DataManagementByAttributionOrDepartment(t *testing.T) {
	byRole := attributed(TypeManualExport, auth.RoleAccounting)
	byDept := EventRecord{EventType: TypeAutoExport, Department: "Accounting"}
	other := EventRecord{EventType: TypeConfigUpdate, Department: "treasury"}

	assert.True(t, Visible(auth.RoleAccounting, byRole))
	assert.True(t, Visible(auth.RoleAccounting, byDept))
	assert.False(t, Visible(auth.RoleAccounting, other))
	assert.True(t, Visible(auth.RoleTreasury, other))
}

func TestVisible_EntityCorrelationFallback(t *testing.T) {
	refund := EventRecord{EventType: TypeTripRefund, TargetEntity: EntityTrip, Metadata: Metadata{TripID: "t-9", UserID: "u-1"}}
	assert.True(t, Visible(auth.RoleMotorpool, refund))
	assert.Equal(t, []string{"activity", "entity_correlation"}, MatchedGroups(auth.RoleMotorpool, refund))

	system := EventRecord{EventType: "balance_sync", Metadata: Metadata{ShuttleID: "s-1"}}
	assert.True(t, Visible(auth.RoleMotorpool, system))
	assert.False(t, Visible(auth.RoleMerchant, system))

	adjusted := EventRecord{EventType: "balance_adjusted", Metadata: Metadata{UserID: "u-42"}}
	assert.True(t, Visible(auth.RoleTreasury, adjusted))
	assert.True(t, Visible(auth.RoleAccounting, adjusted))
	assert.False(t, Visible(auth.RoleMotorpool, adjusted))
	assert.Equal(t, []string{"entity_correlation"}, MatchedGroups(auth.RoleTreasury, adjusted))

	payout := EventRecord{EventType: "payout", Metadata: Metadata{MerchantID: "m-1"}}
	assert.True(t, Visible(auth.RoleMerchant, payout))

	// attributed records never fall back to correlation
	update := EventRecord{EventType: TypeUpdate, TargetEntity: EntityUser, Metadata: Metadata{AdminRole: "treasury"}}
	assert.True(t, Visible(auth.RoleTreasury, update))
	assert.False(t, Visible(auth.RoleAccounting, update))
}

func TestVisible_NonExclusiveAcrossRoles(t *testing.T) {
	rec := EventRecord{EventType: TypeRegistration, TargetEntity: EntityUser}

	assert.True(t, Visible(auth.RoleTreasury, rec))
	assert.True(t, Visible(auth.RoleAccounting, rec))
}

func TestVisible_SysadSeesAll(t *testing.T) {
	records := []EventRecord{
		{},
		{EventType: "unknown"},
		attributed(TypeLogin, auth.RoleTreasury),
		{EventType: TypeConfigUpdate, Department: "merchant"},
		{EventType: "x", Metadata: Metadata{AdminRole: "someone-else"}},
	}
	for _, rec := range records {
		for _, role := range []auth.RoleTag{auth.RoleTreasury, auth.RoleAccounting, auth.RoleMotorpool, auth.RoleMerchant} {
			_ = Visible(role, rec)
		}
		assert.True(t, Visible(auth.RoleSysad, rec))
	}
}

func TestVisible_Deterministic(t *testing.T) {
	rec := EventRecord{EventType: TypeCashIn, TargetEntity: EntityTransaction, Metadata: Metadata{TransactionID: "tx"}}
	first := Visible(auth.RoleTreasury, rec)
	for range 10 {
		assert.Equal(t, first, Visible(auth.RoleTreasury, rec))
	}
}

func TestVisible_UnknownRole(t *testing.T) {
	assert.False(t, Visible("dean", EventRecord{EventType: TypeLogin, Metadata: Metadata{AdminRole: "dean"}}))
}

func TestFilter_PreservesOrder(t *testing.T) {
	records := []EventRecord{
		{ID: "1", EventType: TypeDriverLogin},
		{ID: "2", EventType: TypeMerchantLogin},
		{ID: "3", EventType: TypeTripEnd},
	}

	got := Filter(auth.RoleMotorpool, records)

	assert.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "3", got[1].ID)
	assert.Len(t, Filter(auth.RoleSysad, records), 3)
	assert.Empty(t, Filter(auth.RoleTreasury, records))
}
