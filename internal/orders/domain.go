package orders

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk/internal/pricing"
	"github.com/angelmondragon/orderdesk/internal/proforma"
	"github.com/angelmondragon/orderdesk/pkg/enums"
)

// Party is the identity snapshot of a buyer or seller taken when the order
// is created. GSTNumber is only meaningful for sellers.
type Party struct {
	ID           uuid.UUID `json:"id"`
	BusinessName string    `json:"businessName"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	City         string    `json:"city,omitempty"`
	State        string    `json:"state,omitempty"`
	Pincode      string    `json:"pincode,omitempty"`
	GSTNumber    string    `json:"gstNumber,omitempty"`
}

// Actor is whoever asks for a mutation.
type Actor struct {
	ID   uuid.UUID
	Name string
}

// StatusHistoryEntry records one accepted transition.
type StatusHistoryEntry struct {
	Status        enums.OrderStatus `json:"status"`
	UpdatedAt     time.Time         `json:"updatedAt"`
	UpdatedBy     uuid.UUID         `json:"updatedBy"`
	UpdatedByName string            `json:"updatedByName"`
	Notes         string            `json:"notes,omitempty"`
}

// UnmarshalJSON accepts free-text status values written by older clients.
func (e *StatusHistoryEntry) UnmarshalJSON(data []byte) error {
	type alias StatusHistoryEntry
	var raw struct {
		alias
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = StatusHistoryEntry(raw.alias)
	if status, err := enums.ParseOrderStatus(raw.Status); err == nil {
		e.Status = status
	} else {
		e.Status = enums.OrderStatus(raw.Status)
	}
	return nil
}

// Payment holds the settlement flags the invoice snapshots.
type Payment struct {
	Mode   enums.PaymentMode `json:"mode"`
	IsPaid bool              `json:"isPaid"`
}

// Order is the document stored once per party namespace.
type Order struct {
	ID               uuid.UUID            `json:"id"`
	Buyer            Party                `json:"buyer"`
	Seller           Party                `json:"seller"`
	Lines            []pricing.Line       `json:"lines"`
	Charges          proforma.Charges     `json:"charges"`
	Discount         proforma.Discount    `json:"discount"`
	Rounding         proforma.Rounding    `json:"rounding"`
	Status           enums.OrderStatus    `json:"status"`
	StatusTimestamps map[string]time.Time `json:"statusTimestamps"`
	StatusHistory    []StatusHistoryEntry `json:"statusHistory"`
	Breakdown        *proforma.Breakdown  `json:"breakdown,omitempty"`
	InventorySynced  bool                 `json:"inventorySynced"`
	Payment          Payment              `json:"payment"`
	Revision         int64                `json:"revision"`
	CreatedBy        enums.Namespace      `json:"createdBy"`
	CreatedAt        time.Time            `json:"createdAt"`
}

// NamespaceOf reports which side of the order partyID is on.
func (o *Order) NamespaceOf(partyID uuid.UUID) (enums.Namespace, bool) {
	switch {
	case partyID == uuid.Nil:
		return "", false
	case partyID == o.Seller.ID:
		return enums.NamespaceSeller, true
	case partyID == o.Buyer.ID:
		return enums.NamespaceBuyer, true
	}
	return "", false
}

// PartyIDs returns the owner and peer ids for the copy in ns.
func (o *Order) PartyIDs(ns enums.Namespace) (owner, peer uuid.UUID) {
	if ns == enums.NamespaceSeller {
		return o.Seller.ID, o.Buyer.ID
	}
	return o.Buyer.ID, o.Seller.ID
}

// PricingInput assembles the calculator input from the order's current terms.
func (o *Order) PricingInput() proforma.Input {
	return proforma.Input{
		Lines:       o.Lines,
		Charges:     o.Charges,
		Discount:    o.Discount,
		BuyerState:  o.Buyer.State,
		SellerState: o.Seller.State,
		Rounding:    o.Rounding,
	}
}

// MarshalJSON writes status alongside statusCode and statusLabel, all derived
// from the single enum value.
func (o Order) MarshalJSON() ([]byte, error) {
	type alias Order
	return json.Marshal(struct {
		alias
		StatusCode  enums.OrderStatus `json:"statusCode"`
		StatusLabel string            `json:"statusLabel"`
	}{
		alias:       alias(o),
		StatusCode:  o.Status,
		StatusLabel: o.Status.Label(),
	})
}

// UnmarshalJSON prefers statusCode over status and upgrades history stored
// as a keyed map into the append-only list.
func (o *Order) UnmarshalJSON(data []byte) error {
	type alias Order
	var raw struct {
		alias
		Status        string          `json:"status"`
		StatusCode    string          `json:"statusCode"`
		StatusHistory json.RawMessage `json:"statusHistory"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*o = Order(raw.alias)

	code := raw.StatusCode
	if strings.TrimSpace(code) == "" {
		code = raw.Status
	}
	status, err := enums.ParseOrderStatus(code)
	if err != nil {
		return err
	}
	o.Status = status

	history, err := decodeHistory(raw.StatusHistory)
	if err != nil {
		return fmt.Errorf("decode status history: %w", err)
	}
	o.StatusHistory = history
	if o.StatusTimestamps == nil {
		o.StatusTimestamps = map[string]time.Time{}
	}
	return nil
}

func decodeHistory(raw json.RawMessage) ([]StatusHistoryEntry, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var list []StatusHistoryEntry
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var keyed map[string]StatusHistoryEntry
	if err := json.Unmarshal(trimmed, &keyed); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(keyed))
	for key := range keyed {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	list := make([]StatusHistoryEntry, 0, len(keyed))
	for _, key := range keys {
		list = append(list, keyed[key])
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].UpdatedAt.Before(list[j].UpdatedAt)
	})
	return list, nil
}
