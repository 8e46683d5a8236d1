package model

import (
	"strings"
	"time"
)

// IDKind discriminates the store a product identifier belongs to.
type IDKind int

const (
	IDNone IDKind = iota
	IDLocal
	IDRemote
)

// ProductID is a tagged identifier resolved once at ingestion: either a
// numeric row id assigned by a local tier or an opaque string assigned by
// the remote store. Downstream code switches on Kind instead of sniffing
// value shapes.
type ProductID struct {
	kind   IDKind
	local  int64
	remote string
}

// LocalID wraps a local tier row identifier.
func LocalID(id int64) ProductID {
	return ProductID{kind: IDLocal, local: id}
}

// RemoteID wraps a remote store identifier.
func RemoteID(id string) ProductID {
	return ProductID{kind: IDRemote, remote: id}
}

func (id ProductID) Kind() IDKind { return id.kind }

// Local returns the numeric identifier when the id is local.
func (id ProductID) Local() (int64, bool) {
	return id.local, id.kind == IDLocal
}

// Remote returns the string identifier when the id is remote.
func (id ProductID) Remote() (string, bool) {
	return id.remote, id.kind == IDRemote
}

func (id ProductID) IsZero() bool { return id.kind == IDNone }

// StoreIDs records how each store identifies the same product record. The
// remote identifier, once assigned, is authoritative and propagates to all
// local copies on the next reconciliation pass.
type StoreIDs struct {
	Remote string `json:"remote,omitempty"`
	Local  int64  `json:"local,omitempty"`
}

// Primary resolves the authoritative identifier for the record: the remote
// id once one was assigned, otherwise the local row id. Callers switch on
// the returned kind instead of sniffing the raw fields.
func (ids StoreIDs) Primary() ProductID {
	if ids.Remote != "" {
		return RemoteID(ids.Remote)
	}
	if ids.Local != 0 {
		return LocalID(ids.Local)
	}
	return ProductID{}
}

// Product is one catalog variant. Identity across stores is the composite
// key derived from normalized name and size, never a store-assigned id.
type Product struct {
	Name      string    `json:"name"`
	Size      string    `json:"size"`
	Category  string    `json:"category"`
	Price     float64   `json:"price"`
	Discount  int       `json:"discount"`
	Quantity  int       `json:"quantity"`
	Image     []byte    `json:"image,omitempty"`
	IDs       StoreIDs  `json:"ids"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key returns the composite key identifying this variant across stores.
func (p Product) Key() string {
	return CompositeKey(p.Name, p.Size)
}

// CompositeKey builds the canonical product identity from name and size.
func CompositeKey(name, size string) string {
	return normalize(name) + "_" + normalize(size)
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), "-"))
}

// EffectivePrice applies the percentage discount to the list price.
func (p Product) EffectivePrice() float64 {
	if p.Discount <= 0 {
		return p.Price
	}
	if p.Discount >= 100 {
		return 0
	}
	return p.Price * float64(100-p.Discount) / 100
}
